// Package workspace manages the ephemeral per-job project directories
// that builds run in.
//
// Each compile job owns exactly one workspace for its lifetime. A
// workspace is a self-contained project tree under the configured
// scratch root:
//
//	<scratch>/<job-id>/
//	    package.json     generated manifest, never user-controlled
//	    tsconfig.json    compiler settings with strict mode disabled
//	    agent/index.ts   the user source (entry point)
//	    agent/*.ts       additional sources from a zip upload
//
// Workspaces are destroyed on job completion regardless of outcome; the
// manager never writes outside the scratch root.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EntryFileName is the fixed name of the agent entry point inside the
// agent source directory.
const EntryFileName = "index.ts"

// agentDir is the subdirectory holding user sources.
const agentDir = "agent"

// tsconfig is written verbatim into every workspace. Strict mode is
// disabled so loosely typed snippets still compile.
const tsconfig = `{
  "compilerOptions": {
    "target": "es2020",
    "lib": ["es2020"],
    "module": "es2020",
    "moduleResolution": "node",
    "esModuleInterop": true,
    "allowJs": true,
    "strict": false
  }
}
`

// Workspace is an exclusively owned project directory for one job.
type Workspace struct {
	// ID is the owning job's id, also the directory name.
	ID string

	// Root is the absolute path of the workspace directory.
	Root string

	// EntryFile is the compiler entry point, relative to Root.
	EntryFile string

	// Manifest is the generated dependency descriptor.
	Manifest *Manifest
}

// Manager creates and tears down workspaces under a scratch root.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager creates a workspace manager rooted at dir.
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		root:   dir,
		logger: logger,
	}
}

// Create allocates a fresh workspace for the given job id and writes the
// user sources, the generated manifest and the compiler config into it.
//
// sources maps file names to contents. Names are flattened to their base
// name, so archive entries cannot escape the agent directory. The set
// must contain the entry file. Bridge imports are injected into every
// .ts/.js source that uses a bridge global without importing it, and the
// union of detected bridges becomes part of the manifest.
func (m *Manager) Create(id string, sources map[string][]byte) (*Workspace, error) {
	if id == "" {
		return nil, fmt.Errorf("workspace id must not be empty")
	}

	root := filepath.Join(m.root, id)

	if _, err := os.Stat(root); err == nil {
		return nil, fmt.Errorf("workspace %s already exists", root)
	}

	if err := os.MkdirAll(filepath.Join(root, agentDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	ws := &Workspace{
		ID:        id,
		Root:      root,
		EntryFile: filepath.Join(agentDir, EntryFileName),
	}

	bridgeSet := make(map[string]bool)
	haveEntry := false

	// Sorted for a deterministic write order.
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		base := SanitizeName(name)
		if base == "" {
			continue
		}

		content := sources[name]

		if isScript(base) {
			rewritten, pkgs := InjectMissingBridges(string(content))
			content = []byte(rewritten)

			for _, pkg := range pkgs {
				bridgeSet[pkg] = true
			}
		}

		if base == EntryFileName {
			haveEntry = true
		}

		path := filepath.Join(root, agentDir, base)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			m.Destroy(ws)
			return nil, fmt.Errorf("failed to write source %s: %w", base, err)
		}
	}

	if !haveEntry {
		m.Destroy(ws)
		return nil, fmt.Errorf("sources must contain an %s entry file", EntryFileName)
	}

	bridgePkgs := make([]string, 0, len(bridgeSet))
	for pkg := range bridgeSet {
		bridgePkgs = append(bridgePkgs, pkg)
	}
	sort.Strings(bridgePkgs)

	ws.Manifest = NewManifest(bridgePkgs)

	manifestData, err := ws.Manifest.Encode()
	if err != nil {
		m.Destroy(ws)
		return nil, err
	}

	if err := os.WriteFile(filepath.Join(root, "package.json"), manifestData, 0o644); err != nil {
		m.Destroy(ws)
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte(tsconfig), 0o644); err != nil {
		m.Destroy(ws)
		return nil, fmt.Errorf("failed to write tsconfig: %w", err)
	}

	return ws, nil
}

// LinkModules points the workspace's node_modules at the shared installed
// dependency tree for its manifest. installedPath is the install
// directory, whose node_modules subdirectory holds the packages — the
// link must target that subdirectory so Node resolves
// <workspace>/node_modules/<pkg> directly.
func (m *Manager) LinkModules(ws *Workspace, installedPath string) error {
	link := filepath.Join(ws.Root, "node_modules")

	if err := os.Symlink(filepath.Join(installedPath, "node_modules"), link); err != nil {
		return fmt.Errorf("failed to link dependencies: %w", err)
	}

	return nil
}

// Destroy recursively removes the workspace directory. It is idempotent
// and never fails the caller: a leaked scratch directory must not change
// a response that has already been determined.
func (m *Manager) Destroy(ws *Workspace) {
	if ws == nil || ws.Root == "" {
		return
	}

	// Refuse to remove anything outside the scratch root.
	if rel, err := filepath.Rel(m.root, ws.Root); err != nil || strings.HasPrefix(rel, "..") {
		m.logger.Error("refusing to remove path outside scratch root", "path", ws.Root)
		return
	}

	if err := os.RemoveAll(ws.Root); err != nil {
		m.logger.Error("failed to clean up workspace", "path", ws.Root, "error", err)
		return
	}

	m.logger.Debug("cleaned up workspace", "path", ws.Root)
}

// SanitizeName flattens a file name to its base name and rejects names
// that could escape the agent directory or hide the file.
func SanitizeName(name string) string {
	base := filepath.Base(filepath.Clean(strings.ReplaceAll(name, "\\", "/")))
	if base == "." || base == ".." || base == "/" || strings.HasPrefix(base, ".") {
		return ""
	}

	return base
}

func isScript(name string) bool {
	return strings.HasSuffix(name, ".ts") || strings.HasSuffix(name, ".js")
}
