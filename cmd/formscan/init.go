package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/formscan/internal/config"
)

//go:embed templates/formscan.yaml
var configTemplate []byte

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a formscan configuration file",
		Long: `Initialize writes a commented .formscan configuration file.

The generated file documents:
- Scoring thresholds and the section gap
- Knowledge overrides for every jurisdiction
- State-specific knowledge overrides

Examples:
  # Create .formscan in the current directory
  formscan init

  # Create the file at a specific path
  formscan init -o formscan.yaml

  # Overwrite an existing file
  formscan init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// The template must stay loadable.
	if _, err := config.ParseConfigFile(configTemplate); err != nil {
		return fmt.Errorf("invalid config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, configTemplate, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to tune detection, for example:")
	fmt.Fprintln(out, "  - the business form threshold")
	fmt.Fprintln(out, "  - keywords your agency uses for a category")
	fmt.Fprintln(out, "  - state-specific field vocabulary")
	return nil
}
