// Package forge coordinates compile jobs from request to terminal state.
//
// A job moves strictly forward through
//
//	Queued -> Preparing -> Installing -> Building -> Succeeded | Failed
//
// with the workspace manager, dependency cache and build runner owning
// one stage each. The first stage failure short-circuits the pipeline;
// later stages never run. The job's workspace is destroyed on every exit
// path, and every call resolves to exactly one of artifact or error.
//
// Admission is bounded by a weighted semaphore: at most MaxBuilds jobs
// occupy the Preparing/Installing/Building stages at once, and excess
// requests queue in Acquire instead of spawning unbounded subprocesses.
package forge

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/fridaforge/fridaforge/internal/workspace"
)

// DependencyEnsurer resolves a manifest to an installed dependency tree.
type DependencyEnsurer interface {
	Ensure(ctx context.Context, m *workspace.Manifest) (string, error)
}

// BuildRunner compiles a workspace into artifact bytes.
type BuildRunner interface {
	Run(ctx context.Context, ws *workspace.Workspace) ([]byte, error)
}

// Result is a successful compile outcome.
type Result struct {
	// JobID identifies the job that produced the artifact
	JobID string

	// Artifact is the bundled agent script, byte-for-byte as the
	// compiler wrote it
	Artifact []byte

	// Name is the suggested download file name
	Name string

	// Duration is the end-to-end job time, admission wait excluded
	Duration time.Duration
}

// Forge is the job coordinator.
type Forge struct {
	workspaces *workspace.Manager
	deps       DependencyEnsurer
	runner     BuildRunner
	sem        *semaphore.Weighted
	logger     *slog.Logger
}

// New creates a coordinator that admits at most maxJobs concurrent jobs.
func New(workspaces *workspace.Manager, deps DependencyEnsurer, run BuildRunner, maxJobs int64, logger *slog.Logger) *Forge {
	if logger == nil {
		logger = slog.Default()
	}

	if maxJobs < 1 {
		maxJobs = 1
	}

	return &Forge{
		workspaces: workspaces,
		deps:       deps,
		runner:     run,
		sem:        semaphore.NewWeighted(maxJobs),
		logger:     logger,
	}
}

// Compile runs one request to a terminal state and returns either the
// artifact or the originating stage's error, never both.
func (f *Forge) Compile(ctx context.Context, req *CompileRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	job := newJob()
	logger := f.logger.With("job", job.ID)

	logger.Info("job admitted", "origin", req.Origin, "name", req.SuggestedName)

	job.advance(StatusPreparing)

	ws, err := f.workspaces.Create(job.ID, req.sources())
	if err != nil {
		job.fail()
		logger.Error("workspace creation failed", "error", err)

		return nil, &WorkspaceError{Err: err}
	}

	// Reclaimed on every path: success, stage failure, cancellation.
	defer f.workspaces.Destroy(ws)

	job.advance(StatusInstalling)

	installed, err := f.deps.Ensure(ctx, ws.Manifest)
	if err != nil {
		job.fail()
		logger.Error("dependency install failed", "error", err)

		return nil, err
	}

	if err := f.workspaces.LinkModules(ws, installed); err != nil {
		job.fail()

		return nil, &WorkspaceError{Err: err}
	}

	job.advance(StatusBuilding)

	artifact, err := f.runner.Run(ctx, ws)
	if err != nil {
		job.fail()

		return nil, err
	}

	job.advance(StatusSucceeded)

	elapsed := time.Since(job.Started)
	logger.Info("job succeeded", "artifact_bytes", len(artifact), "elapsed", elapsed)

	return &Result{
		JobID:    job.ID,
		Artifact: artifact,
		Name:     req.ArtifactName(),
		Duration: elapsed,
	}, nil
}
