package depcache

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"

	"github.com/fridaforge/fridaforge/internal/utils"
)

// Installer materializes the dependencies described by the package.json
// already present in dir. Implementations are injected so tests can
// count invocations without a real package manager.
type Installer interface {
	Install(ctx context.Context, dir string) error
}

// ExecInstaller runs an external package manager (npm or bun) as a child
// process in its own process group.
type ExecInstaller struct {
	// Path to the package manager executable
	Path string

	// MaxOutputBytes caps the captured install output
	MaxOutputBytes int
}

// Install runs `<manager> install --ignore-scripts` in dir. Lifecycle
// scripts are disabled: the manifest only ever names trusted packages,
// but their transitive dependencies are not audited.
func (i *ExecInstaller) Install(ctx context.Context, dir string) error {
	out := utils.NewCappedBuffer(i.MaxOutputBytes)

	cmd := exec.CommandContext(ctx, i.Path, "install", "--ignore-scripts")
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid signals the whole process group, so helper
		// processes spawned by the package manager die too.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("install timed out: %w", ctx.Err())
		}

		return fmt.Errorf("%s install failed: %w\n%s", i.Path, err, out.String())
	}

	return nil
}
