package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"discoverydraft-backend/pipeline"
	"discoverydraft-backend/renderer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runCmd executes the full pipeline against the renderer
var runCmd = &cobra.Command{
	Use:   "run <submission.json|->",
	Short: "Plan a submission and submit every document set to the renderer",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}
	if cfg.RendererEndpoint == "" {
		return errors.New("no renderer configured: pass --renderer or set RENDERER_URL")
	}
	raw, err := readSubmission(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	client, err := renderer.NewClient(cfg.RendererEndpoint,
		renderer.WithToken(cfg.RendererToken),
		renderer.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, pipeline.WithRenderer(client), pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := p.Run(ctx, raw, func(phase, status, detail string) {
		logger.Info("phase", zap.String("phase", phase), zap.String("status", status), zap.String("detail", detail))
	})
	if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	switch {
	case !result.Success:
		return fmt.Errorf("pipeline failed in %s: %s", result.PhaseFailed, result.ErrorMessage)
	case result.DispatchSummary.Failed > 0 && !cfg.ContinueOnFailure:
		return fmt.Errorf("%d of %d document sets failed to render",
			result.DispatchSummary.Failed, result.DispatchSummary.TotalSets)
	}
	return nil
}
