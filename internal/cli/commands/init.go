package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/loopsql/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new LoopSQL project",
		Long: `Initialize a new LoopSQL project with a default layout.

This creates:
  - loopsql.yaml configuration file
  - queries/ directory with example templates
  - vars/ directory with a YAML and a Starlark vars file`,
		Example: `  # Initialize in current directory
  loopsql init

  # Initialize in a new directory
  loopsql init my-project

  # Force overwrite existing files
  loopsql init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "loopsql.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("loopsql.yaml already exists. Use --force to overwrite")
	}

	files, err := copyTemplate("project", dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("LoopSQL project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  loopsql check     Validate the templates in queries/")
	r.Println("  loopsql render    Write expanded SQL to build/")

	return nil
}
