package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leapstack-labs/loopsql/internal/cli/output"
	"github.com/leapstack-labs/loopsql/internal/render"
	"github.com/spf13/cobra"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Watch       bool
	Concurrency int
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render every template in the queries directory",
		Long: `Render all templates under the queries directory into the output
directory, keeping relative paths and swapping the template extension
for the output extension.

A template that fails does not stop the others; every failure is reported
and the command exits non-zero. With --watch, templates are re-rendered
whenever a template or vars file changes.`,
		Example: `  # Render the project
  loopsql render

  # Render with more workers
  loopsql render --concurrency 8

  # Re-render on every change
  loopsql render --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Watch templates and vars files and re-render on change")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Number of templates rendered in parallel (default from config)")

	return cmd
}

func runRender(cmd *cobra.Command, opts *RenderOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	batch := cmdCtx.NewBatchRenderer(opts.Concurrency)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Watch {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		r.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", cmdCtx.Cfg.QueriesDir))
		return batch.Watch(ctx, func(result *render.Result, err error) {
			if err != nil {
				r.Error(err.Error())
				return
			}
			if err := reportBuild(r, cmdCtx.Cfg.OutputDir, result); err != nil {
				cmdCtx.Logger.Error("failed to report build", "build", result.ID, "error", err)
			}
		})
	}

	result, err := batch.RenderAll(ctx)
	if err != nil {
		return err
	}
	if err := reportBuild(r, cmdCtx.Cfg.OutputDir, result); err != nil {
		return err
	}

	if len(result.Failures) > 0 {
		return fmt.Errorf("%d of %d templates failed to render",
			len(result.Failures), len(result.Failures)+len(result.Rendered))
	}
	return nil
}

func reportBuild(r *output.Renderer, outputDir string, result *render.Result) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		build := output.BuildResult{ID: result.ID, Output: outputDir, Rendered: result.Rendered}
		if len(result.Failures) > 0 {
			build.Failed = make(map[string]string, len(result.Failures))
			for _, f := range result.Failures {
				build.Failed[f.File] = f.Err.Error()
			}
		}
		if err := r.JSON(build); err != nil {
			return fmt.Errorf("failed to write build result: %w", err)
		}
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Render"))
		r.Println("")
		r.Println(output.FormatKeyValue("Output", outputDir))
		r.Println(output.FormatKeyValue("Rendered", fmt.Sprintf("%d", len(result.Rendered))))
		r.Println(output.FormatKeyValue("Failed", fmt.Sprintf("%d", len(result.Failures))))
		for _, f := range result.Failures {
			r.Println(fmt.Sprintf("- `%s`: %v", f.File, f.Err))
		}
	default:
		for _, f := range result.Failures {
			r.Error(fmt.Sprintf("%s: %v", f.File, f.Err))
		}
		if len(result.Rendered) == 0 && len(result.Failures) == 0 {
			r.Warning("no templates found")
			return nil
		}
		r.Success(fmt.Sprintf("Rendered %d templates to %s in %s",
			len(result.Rendered), outputDir, result.Duration.Round(time.Millisecond)))
	}
	return nil
}
