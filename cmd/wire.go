package cmd

import (
	"log/slog"

	"github.com/fridaforge/fridaforge/internal/config"
	"github.com/fridaforge/fridaforge/internal/depcache"
	"github.com/fridaforge/fridaforge/internal/forge"
	"github.com/fridaforge/fridaforge/internal/runner"
	"github.com/fridaforge/fridaforge/internal/workspace"
)

// newForge assembles the coordinator and its collaborators from config.
// The returned cache must be closed when the process shuts down.
func newForge(cfg *config.Config, logger *slog.Logger) (*forge.Forge, *depcache.Cache, error) {
	workspaces := workspace.NewManager(cfg.ScratchDir, logger)

	installer := &depcache.ExecInstaller{
		Path:           cfg.PackageManager,
		MaxOutputBytes: cfg.MaxOutputBytes,
	}

	cache, err := depcache.New(cfg.CacheDir, installer, cfg.InstallTimeout, logger)
	if err != nil {
		return nil, nil, err
	}

	run := &runner.Runner{
		CompilerPath:   cfg.CompilerPath,
		Timeout:        cfg.BuildTimeout,
		MaxOutputBytes: cfg.MaxOutputBytes,
		Logger:         logger,
	}

	f := forge.New(workspaces, cache, run, int64(cfg.MaxBuilds), logger)

	return f, cache, nil
}
