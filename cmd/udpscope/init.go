package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/udpscope/internal/config"
)

//go:embed templates/udpscope.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a udpscope configuration file",
		Long: `Init writes a commented .udpscope configuration file.

The generated file documents every setting:
- Bind and target addresses, buffer sizes and TTL
- Classifier threshold and encoding order
- Report format and session history

Examples:
  # Create .udpscope in the current directory
  udpscope init

  # Create the file in the XDG config directory
  udpscope init -o ~/.config/udpscope/config.yaml

  # Overwrite an existing file
  udpscope init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
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

	content, err := configTemplate.ReadFile("templates/udpscope.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	// The template must stay loadable; a broken template is a build defect.
	if _, err := config.ParseConfigFile(content); err != nil {
		return fmt.Errorf("embedded config template is invalid: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to change settings such as:")
	fmt.Fprintln(out, "  - Default bind and target addresses")
	fmt.Fprintln(out, "  - Text detection threshold and encoding order")
	fmt.Fprintln(out, "  - Report format and session history")

	return nil
}
