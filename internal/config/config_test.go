package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ListenAddr:     ":8000",
		ScratchDir:     "/tmp/forge/builds",
		CacheDir:       "/tmp/forge/cache",
		CompilerPath:   "frida-compile",
		PackageManager: "npm",
		BuildTimeout:   time.Minute,
		InstallTimeout: time.Minute,
		MaxBuilds:      2,
		MaxOutputBytes: 4096,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty compiler path",
			mutate:  func(c *Config) { c.CompilerPath = "" },
			wantErr: "compiler_path",
		},
		{
			name:    "unknown package manager",
			mutate:  func(c *Config) { c.PackageManager = "yarn" },
			wantErr: "package_manager",
		},
		{
			name:    "zero build timeout",
			mutate:  func(c *Config) { c.BuildTimeout = 0 },
			wantErr: "build_timeout",
		},
		{
			name:    "negative install timeout",
			mutate:  func(c *Config) { c.InstallTimeout = -time.Second },
			wantErr: "install_timeout",
		},
		{
			name:    "zero max builds",
			mutate:  func(c *Config) { c.MaxBuilds = 0 },
			wantErr: "max_builds",
		},
		{
			name:    "tiny output cap",
			mutate:  func(c *Config) { c.MaxOutputBytes = 16 },
			wantErr: "max_output_bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateAllowsBun(t *testing.T) {
	cfg := validConfig()
	cfg.PackageManager = "bun"

	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.SetDefault("listen_addr", DefaultListenAddr)
	viper.SetDefault("compiler_path", DefaultCompilerPath)
	viper.SetDefault("package_manager", DefaultPackageManager)
	viper.SetDefault("build_timeout", DefaultBuildTimeout)
	viper.SetDefault("install_timeout", DefaultInstallTimeout)
	viper.SetDefault("max_builds", DefaultMaxBuilds)
	viper.SetDefault("max_output_bytes", DefaultMaxOutputBytes)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultCompilerPath, cfg.CompilerPath)
	assert.Equal(t, DefaultBuildTimeout, cfg.BuildTimeout)
	assert.NotEmpty(t, cfg.ScratchDir, "scratch dir gets a temp default")
	assert.NotEmpty(t, cfg.CacheDir)
	assert.NotEqual(t, cfg.ScratchDir, cfg.CacheDir)
}

func TestLoadRejectsInvalidOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("listen_addr", ":8000")
	viper.Set("compiler_path", "frida-compile")
	viper.Set("package_manager", "pnpm")
	viper.Set("build_timeout", time.Minute)
	viper.Set("install_timeout", time.Minute)
	viper.Set("max_builds", 2)
	viper.Set("max_output_bytes", 4096)

	_, err := Load()
	assert.Error(t, err)
}
