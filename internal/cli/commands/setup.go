package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/leapstack-labs/loopsql/internal/bindings"
	"github.com/leapstack-labs/loopsql/internal/cli/config"
	"github.com/leapstack-labs/loopsql/internal/cli/output"
	"github.com/leapstack-labs/loopsql/internal/render"
	"github.com/leapstack-labs/loopsql/internal/template"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// LoadVars merges config vars, vars files and --var pairs.
func (c *CommandContext) LoadVars() (template.Vars, error) {
	vars, err := bindings.Load(c.Cfg.Vars, c.Cfg.VarsFiles, c.Cfg.Pairs)
	if err != nil {
		return nil, fmt.Errorf("failed to load bindings: %w", err)
	}
	c.Logger.Debug("bindings loaded", "count", len(vars), "files", len(c.Cfg.VarsFiles))
	return vars, nil
}

// NewBatchRenderer creates a batch renderer for the configured directories.
func (c *CommandContext) NewBatchRenderer(concurrency int) *render.Renderer {
	if concurrency < 1 {
		concurrency = c.Cfg.Concurrency
	}
	return render.New(render.Options{
		QueriesDir:  c.Cfg.QueriesDir,
		OutputDir:   c.Cfg.OutputDir,
		TemplateExt: c.Cfg.TemplateExt,
		OutputExt:   c.Cfg.OutputExt,
		Concurrency: concurrency,
		Vars:        c.Cfg.Vars,
		VarsFiles:   c.Cfg.VarsFiles,
		Pairs:       c.Cfg.Pairs,
		Logger:      c.Logger,
	})
}

// getConfig returns the current configuration, or defaults rooted at the
// working directory when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return config.Default(cwd)
}

// readTemplate reads a template file, or stdin when path is empty or "-".
// It returns the content and the name to use in error positions.
func readTemplate(cmd *cobra.Command, path string) (string, string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), "<stdin>", nil
	}
	b, err := os.ReadFile(path) //nolint:gosec // G304: template path is user-supplied by design
	if err != nil {
		return "", "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(b), path, nil
}
