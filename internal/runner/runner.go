// Package runner invokes the external bundler against a workspace and
// resolves the invocation to an artifact or a typed failure.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fridaforge/fridaforge/internal/utils"
	"github.com/fridaforge/fridaforge/internal/workspace"
)

// ArtifactName is the bundled agent file the compiler writes into the
// workspace root.
const ArtifactName = "_agent.js"

// ErrBuildTimeout reports that the compiler exceeded its wall-clock
// limit and was killed.
var ErrBuildTimeout = errors.New("build timed out")

// BuildError reports a failed compiler run. Output carries the captured
// stdout/stderr verbatim — it is the primary debugging signal for the
// caller and is never rewritten.
type BuildError struct {
	ExitCode int
	Output   string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed (exit code %d)", e.ExitCode)
}

// Runner executes the bundler as a child process.
type Runner struct {
	// CompilerPath is the bundler executable, resolved via PATH when
	// not absolute
	CompilerPath string

	// Timeout is the hard wall-clock limit per invocation
	Timeout time.Duration

	// MaxOutputBytes caps the captured compiler output
	MaxOutputBytes int

	// Logger for invocation-level events
	Logger *slog.Logger
}

// Run compiles the workspace's entry file into a single bundled script
// and returns the artifact bytes.
//
// The compiler runs with the workspace root as its working directory, in
// its own process group. On timeout or ctx cancellation the whole group
// is killed — descendant processes included — before Run returns.
//
// Outcomes:
//   - exit 0 and a non-empty artifact: artifact bytes, nil error
//   - non-zero exit: *BuildError with the captured diagnostics
//   - exit 0 but no artifact: *BuildError, toolchain contract violation
//   - deadline exceeded: ErrBuildTimeout
func (r *Runner) Run(ctx context.Context, ws *workspace.Workspace) ([]byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	buildCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	out := utils.NewCappedBuffer(r.MaxOutputBytes)

	cmd := exec.CommandContext(buildCtx, r.CompilerPath, ws.EntryFile, "-o", ArtifactName, "-c")
	cmd.Dir = ws.Root
	cmd.Stdout = out
	cmd.Stderr = out

	// Own process group so that cancellation kills the bundler and
	// everything it spawned, not just the direct child. Negative pid
	// signals the whole group.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	logger.Debug("running compiler", "workspace", ws.ID, "entry", ws.EntryFile)

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	// Only the runner's own deadline is a build timeout; a deadline or
	// cancellation on the caller's context is their abort, not the
	// compiler overrunning its budget.
	if buildCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		logger.Warn("build timed out", "workspace", ws.ID, "elapsed", elapsed)
		return nil, fmt.Errorf("%w after %s", ErrBuildTimeout, r.Timeout)
	}

	if err != nil {
		if ctx.Err() != nil {
			// Caller gave up; the process group is already dead.
			return nil, ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logger.Info("build failed", "workspace", ws.ID, "exit_code", exitErr.ExitCode(), "elapsed", elapsed)

			return nil, &BuildError{
				ExitCode: exitErr.ExitCode(),
				Output:   out.String(),
			}
		}

		return nil, fmt.Errorf("failed to start compiler: %w", err)
	}

	artifact, err := readArtifact(ws.Root)
	if err != nil {
		logger.Error("compiler exited cleanly but produced no artifact", "workspace", ws.ID)

		return nil, &BuildError{
			ExitCode: 0,
			Output:   "compiler produced no output\n" + out.String(),
		}
	}

	logger.Info("build succeeded", "workspace", ws.ID, "artifact_bytes", len(artifact), "elapsed", elapsed)

	return artifact, nil
}

// readArtifact loads the bundled output, rejecting a missing or empty
// file.
func readArtifact(root string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(root, ArtifactName))
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, errors.New("artifact is empty")
	}

	return data, nil
}
