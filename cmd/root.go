package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fridaforge/fridaforge/internal/version"
)

var rootCmd = &cobra.Command{
	Use:          "fridaforge",
	Short:        "Frida agent compile service",
	Long:         `Compile TypeScript/JavaScript sources into bundled Frida agent scripts.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().String("scratch-dir", "", "Root directory for per-job build workspaces")
	rootCmd.PersistentFlags().String("cache-dir", "", "Root directory for the shared dependency cache")
	rootCmd.PersistentFlags().String("compiler", "", "Path to the frida-compile executable")
	rootCmd.PersistentFlags().String("package-manager", "", "Package manager for dependency installs (npm or bun)")
	rootCmd.PersistentFlags().Duration("build-timeout", 0, "Wall-clock limit per compiler invocation")
	rootCmd.PersistentFlags().Int("max-builds", 0, "Maximum number of concurrent builds")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(buildCmd)
}

// newLogger builds the process logger; -v lowers the level to debug.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
