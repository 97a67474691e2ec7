package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fridaforge/fridaforge/internal/config"
	"github.com/fridaforge/fridaforge/internal/forge"
)

var buildCmd = &cobra.Command{
	Use:          "build <file>",
	Short:        "Compile a single agent source",
	Long:         `Compile a local TypeScript/JavaScript file into a bundled agent script.`,
	RunE:         runBuild,
	SilenceUsage: true,
}

func init() {
	buildCmd.Flags().StringP("out", "o", "_agent.js", "Output file for the bundled agent")
}

func runBuild(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("requires exactly one file argument")
	}

	file := args[0]
	if !strings.HasSuffix(file, ".ts") && !strings.HasSuffix(file, ".js") {
		return fmt.Errorf("file must have .ts or .js extension")
	}

	logger := newLogger(cmd)

	cfg, err := config.NewLoader().LoadForCommand(cmd)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	f, cache, err := newForge(cfg, logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	result, err := f.Compile(cmd.Context(), &forge.CompileRequest{
		Source:        string(source),
		Origin:        forge.OriginUpload,
		SuggestedName: file,
	})
	if err != nil {
		if diag := forge.Diagnostic(err); diag != "" {
			fmt.Fprintln(os.Stderr, diag)
		}

		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if err := os.WriteFile(out, result.Artifact, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	fmt.Printf("Compiled %s -> %s (%d bytes)\n", file, out, len(result.Artifact))

	return nil
}
