package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultListenAddr     = ":8000"
	DefaultCompilerPath   = "frida-compile"
	DefaultPackageManager = "npm"
	DefaultBuildTimeout   = 2 * time.Minute
	DefaultInstallTimeout = 5 * time.Minute
	DefaultMaxBuilds      = 4
	DefaultMaxOutputBytes = 256 * 1024
)

// Holds the configuration options for fridaforge
type Config struct {
	// Address the HTTP server listens on
	ListenAddr string

	// Root directory for per-job build workspaces
	ScratchDir string

	// Root directory for the shared dependency cache
	CacheDir string

	// Path to the frida-compile executable
	CompilerPath string

	// Package manager executable used for dependency installs (npm or bun)
	PackageManager string

	// Wall-clock limit for a single compiler invocation
	BuildTimeout time.Duration

	// Wall-clock limit for a dependency install
	InstallTimeout time.Duration

	// Maximum number of jobs in flight at once
	MaxBuilds int

	// Cap on captured compiler/installer output, in bytes
	MaxOutputBytes int
}

func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:     viper.GetString("listen_addr"),
		ScratchDir:     viper.GetString("scratch_dir"),
		CacheDir:       viper.GetString("cache_dir"),
		CompilerPath:   viper.GetString("compiler_path"),
		PackageManager: viper.GetString("package_manager"),
		BuildTimeout:   viper.GetDuration("build_timeout"),
		InstallTimeout: viper.GetDuration("install_timeout"),
		MaxBuilds:      viper.GetInt("max_builds"),
		MaxOutputBytes: viper.GetInt("max_output_bytes"),
	}

	// Apply defaults if not set
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = filepath.Join(os.TempDir(), "fridaforge", "builds")
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(os.TempDir(), "fridaforge", "cache")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if abs, err := filepath.Abs(c.ScratchDir); err == nil {
		c.ScratchDir = abs
	}

	if abs, err := filepath.Abs(c.CacheDir); err == nil {
		c.CacheDir = abs
	}

	if c.CompilerPath == "" {
		return fmt.Errorf("compiler_path must not be empty")
	}

	switch c.PackageManager {
	case "npm", "bun":
	default:
		return fmt.Errorf("unsupported package_manager: %s", c.PackageManager)
	}

	if c.BuildTimeout <= 0 {
		return fmt.Errorf("build_timeout must be positive")
	}

	if c.InstallTimeout <= 0 {
		return fmt.Errorf("install_timeout must be positive")
	}

	if c.MaxBuilds < 1 {
		return fmt.Errorf("max_builds must be at least 1")
	}

	if c.MaxOutputBytes < 1024 {
		return fmt.Errorf("max_output_bytes must be at least 1024")
	}

	return nil
}
