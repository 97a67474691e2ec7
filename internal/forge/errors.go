package forge

import (
	"context"
	"errors"
	"fmt"

	"github.com/fridaforge/fridaforge/internal/depcache"
	"github.com/fridaforge/fridaforge/internal/runner"
)

// ErrInvalidRequest reports a request with missing or conflicting input.
var ErrInvalidRequest = errors.New("invalid request")

// WorkspaceError reports a failure to materialize or wire up the per-job
// workspace — a service-side fault, not a user code error.
type WorkspaceError struct {
	Err error
}

func (e *WorkspaceError) Error() string {
	return fmt.Sprintf("workspace setup failed: %v", e.Err)
}

func (e *WorkspaceError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies a terminal job error for callers that need to map
// it to a response without unwrapping package-level error types.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidRequest
	KindWorkspace
	KindInstall
	KindBuildTimeout
	KindBuild
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindWorkspace:
		return "workspace_error"
	case KindInstall:
		return "dependency_install_error"
	case KindBuildTimeout:
		return "build_timeout"
	case KindBuild:
		return "build_error"
	case KindCanceled:
		return "canceled"
	default:
		return "internal_error"
	}
}

// Classify maps a Compile error to its kind. Build failures keep their
// raw diagnostic in the underlying *runner.BuildError; nothing here
// downgrades or rewrites it.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, runner.ErrBuildTimeout):
		return KindBuildTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}

	var workspaceErr *WorkspaceError
	if errors.As(err, &workspaceErr) {
		return KindWorkspace
	}

	var installErr *depcache.InstallError
	if errors.As(err, &installErr) {
		return KindInstall
	}

	var buildErr *runner.BuildError
	if errors.As(err, &buildErr) {
		return KindBuild
	}

	return KindInternal
}

// Diagnostic returns the user-facing diagnostic text for a build
// failure, empty otherwise.
func Diagnostic(err error) string {
	var buildErr *runner.BuildError
	if errors.As(err, &buildErr) {
		return buildErr.Output
	}

	return ""
}
