package forge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fridaforge/fridaforge/internal/depcache"
	"github.com/fridaforge/fridaforge/internal/runner"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "invalid request",
			err:  fmt.Errorf("%w: no source", ErrInvalidRequest),
			want: KindInvalidRequest,
		},
		{
			name: "workspace",
			err:  &WorkspaceError{Err: errors.New("disk full")},
			want: KindWorkspace,
		},
		{
			name: "install",
			err:  &depcache.InstallError{Fingerprint: "abc", Err: errors.New("registry down")},
			want: KindInstall,
		},
		{
			name: "build",
			err:  &runner.BuildError{ExitCode: 1, Output: "syntax error"},
			want: KindBuild,
		},
		{
			name: "build timeout",
			err:  fmt.Errorf("%w after 2m", runner.ErrBuildTimeout),
			want: KindBuildTimeout,
		},
		{
			name: "caller cancelled",
			err:  context.Canceled,
			want: KindCanceled,
		},
		{
			name: "anything else",
			err:  errors.New("surprise"),
			want: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestDiagnosticOnlyForBuildErrors(t *testing.T) {
	buildErr := &runner.BuildError{ExitCode: 1, Output: "index.ts:1:1: error"}
	assert.Equal(t, "index.ts:1:1: error", Diagnostic(buildErr))

	wrapped := fmt.Errorf("stage failed: %w", buildErr)
	assert.Equal(t, "index.ts:1:1: error", Diagnostic(wrapped))

	assert.Empty(t, Diagnostic(errors.New("other")))
	assert.Empty(t, Diagnostic(&WorkspaceError{Err: errors.New("x")}))
}

func TestWorkspaceErrorUnwraps(t *testing.T) {
	cause := errors.New("permission denied")
	err := &WorkspaceError{Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "permission denied")
}
