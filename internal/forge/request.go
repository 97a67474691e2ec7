package forge

import (
	"fmt"
	"strings"

	"github.com/fridaforge/fridaforge/internal/workspace"
)

// Origin says where a request's source came from.
type Origin int

const (
	// OriginSnippet is an inline text snippet
	OriginSnippet Origin = iota

	// OriginUpload is an uploaded file or archive
	OriginUpload
)

// CompileRequest is one user submission. Exactly one of Source and Files
// must be populated: Source for a snippet or single uploaded file, Files
// for the members of an uploaded archive.
type CompileRequest struct {
	// Source is the raw script text
	Source string

	// Files maps file names to contents for multi-file submissions;
	// must include the entry file
	Files map[string][]byte

	// Origin of the submission
	Origin Origin

	// SuggestedName optionally names the returned artifact
	SuggestedName string
}

// Validate enforces the one-of-source invariant.
func (r *CompileRequest) Validate() error {
	hasSource := strings.TrimSpace(r.Source) != ""
	hasFiles := len(r.Files) > 0

	switch {
	case hasSource && hasFiles:
		return fmt.Errorf("%w: provide either a source or a file set, not both", ErrInvalidRequest)
	case !hasSource && !hasFiles:
		return fmt.Errorf("%w: no source provided", ErrInvalidRequest)
	}

	if hasFiles {
		if _, ok := r.Files[workspace.EntryFileName]; !ok {
			return fmt.Errorf("%w: file set must contain an %s entry file", ErrInvalidRequest, workspace.EntryFileName)
		}
	}

	return nil
}

// sources normalizes the request into the file map consumed by the
// workspace manager.
func (r *CompileRequest) sources() map[string][]byte {
	if len(r.Files) > 0 {
		return r.Files
	}

	return map[string][]byte{
		workspace.EntryFileName: []byte(r.Source),
	}
}

// ArtifactName derives the download name for the compiled artifact from
// the request's name hint.
func (r *CompileRequest) ArtifactName() string {
	base := workspace.SanitizeName(r.SuggestedName)
	if base == "" {
		return "_agent.js"
	}

	// Trim until stable so stacked suffixes ("hook.ts.zip") don't leak
	// into the download name.
	for {
		trimmed := base
		for _, ext := range []string{".ts", ".js", ".zip"} {
			trimmed = strings.TrimSuffix(trimmed, ext)
		}

		if trimmed == base {
			break
		}

		base = trimmed
	}

	if base == "" {
		return "_agent.js"
	}

	return base + ".js"
}
