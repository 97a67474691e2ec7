package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForCommand loads configuration for a CLI command, layering
// defaults, an optional config file, environment variables and flags.
func (l *Loader) LoadForCommand(cmd *cobra.Command) (*Config, error) {
	l.setupViperDefaults()
	l.loadConfigFile()
	l.bindEnvironment()
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("listen_addr", DefaultListenAddr)
	viper.SetDefault("compiler_path", DefaultCompilerPath)
	viper.SetDefault("package_manager", DefaultPackageManager)
	viper.SetDefault("build_timeout", DefaultBuildTimeout)
	viper.SetDefault("install_timeout", DefaultInstallTimeout)
	viper.SetDefault("max_builds", DefaultMaxBuilds)
	viper.SetDefault("max_output_bytes", DefaultMaxOutputBytes)
}

// loadConfigFile loads an optional config file found from the working directory
func (l *Loader) loadConfigFile() {
	path := FindLocalConfig(".")
	if path != "" {
		viper.SetConfigFile(path)
		_ = viper.ReadInConfig()
	}
}

// bindEnvironment maps FRIDAFORGE_* environment variables to config keys
func (l *Loader) bindEnvironment() {
	viper.SetEnvPrefix("fridaforge")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("listen_addr", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("scratch_dir", cmd.Flags().Lookup("scratch-dir"))
	_ = viper.BindPFlag("cache_dir", cmd.Flags().Lookup("cache-dir"))
	_ = viper.BindPFlag("compiler_path", cmd.Flags().Lookup("compiler"))
	_ = viper.BindPFlag("package_manager", cmd.Flags().Lookup("package-manager"))
	_ = viper.BindPFlag("build_timeout", cmd.Flags().Lookup("build-timeout"))
	_ = viper.BindPFlag("max_builds", cmd.Flags().Lookup("max-builds"))
}
