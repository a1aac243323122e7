package pipeline

import (
	"context"
	"errors"
	"time"

	"discoverydraft-backend/config"
	"discoverydraft-backend/metrics"
	"discoverydraft-backend/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Renderer submits one generation request to the rendering service
type Renderer interface {
	Render(ctx context.Context, req models.GenerationRequest) error
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(ctx context.Context, req models.GenerationRequest) error

// Render calls f
func (f RendererFunc) Render(ctx context.Context, req models.GenerationRequest) error {
	return f(ctx, req)
}

// Dispatcher submits generation requests with bounded concurrency and
// per-request retry. A request that exhausts its retries is recorded as
// failed; the others proceed.
type Dispatcher struct {
	renderer    Renderer
	retry       config.RetryConfig
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Collector
	wait        func(ctx context.Context, d time.Duration) error
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// DispatchWithLogger sets the logger
func DispatchWithLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// DispatchWithMetrics sets the metrics collector
func DispatchWithMetrics(m *metrics.Collector) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// DispatchWithWait replaces the backoff sleep, mainly for tests
func DispatchWithWait(wait func(ctx context.Context, d time.Duration) error) DispatcherOption {
	return func(d *Dispatcher) {
		d.wait = wait
	}
}

// NewDispatcher creates a dispatcher using the retry, timeout and
// concurrency settings of cfg.
func NewDispatcher(renderer Renderer, cfg config.PipelineConfig, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		renderer:    renderer,
		retry:       cfg.Retry,
		timeout:     cfg.RequestTimeout,
		concurrency: cfg.Concurrency,
		logger:      zap.NewNop(),
		wait:        sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.concurrency < 1 {
		d.concurrency = 1
	}
	if d.retry.MaxAttempts < 1 {
		d.retry.MaxAttempts = 1
	}
	return d
}

type outcome struct {
	attempts int
	err      error
}

// Dispatch submits every request and returns the aggregate summary. Errors
// are listed in request order.
func (d *Dispatcher) Dispatch(ctx context.Context, requests []models.GenerationRequest) models.DispatchSummary {
	outcomes := make([]outcome, len(requests))

	g := new(errgroup.Group)
	g.SetLimit(d.concurrency)
	for i, req := range requests {
		g.Go(func() error {
			attempts, err := d.submit(ctx, req)
			outcomes[i] = outcome{attempts: attempts, err: err}
			return nil
		})
	}
	_ = g.Wait()

	summary := models.DispatchSummary{
		TotalSets: len(requests),
		Errors:    []models.DispatchError{},
	}
	for i, out := range outcomes {
		req := requests[i]
		d.metrics.ObserveRequest(string(req.Type), out.err == nil)
		if out.err == nil {
			summary.Succeeded++
			continue
		}
		summary.Failed++
		summary.Errors = append(summary.Errors, models.DispatchError{
			RequestID:  req.RequestID,
			CaseUnitID: req.CaseUnitID,
			Type:       req.Type,
			SetLabel:   req.SetLabel,
			Attempts:   out.attempts,
			Message:    out.err.Error(),
		})
	}
	return summary
}

// submit sends one request, retrying transient failures with backoff
func (d *Dispatcher) submit(ctx context.Context, req models.GenerationRequest) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= d.retry.MaxAttempts; attempt++ {
		err := d.attempt(ctx, req)
		if err == nil {
			if attempt > 1 {
				d.logger.Info("Render succeeded after retry",
					zap.String("request_id", req.RequestID),
					zap.Int("attempt", attempt))
			}
			return attempt, nil
		}
		lastErr = err

		if IsFatal(err) {
			d.logger.Warn("Render rejected, not retrying",
				zap.String("request_id", req.RequestID),
				zap.Error(err))
			return attempt, err
		}
		if ctx.Err() != nil {
			return attempt, errors.Join(err, ctx.Err())
		}

		if attempt < d.retry.MaxAttempts {
			backoff := d.retry.Backoff(attempt)
			d.logger.Debug("Render failed, retrying",
				zap.String("request_id", req.RequestID),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", d.retry.MaxAttempts),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if err := d.wait(ctx, backoff); err != nil {
				return attempt, errors.Join(lastErr, err)
			}
		}
	}

	d.logger.Warn("Render failed after retries",
		zap.String("request_id", req.RequestID),
		zap.Int("attempts", d.retry.MaxAttempts),
		zap.Error(lastErr))
	return d.retry.MaxAttempts, lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, req models.GenerationRequest) error {
	attemptCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	started := time.Now()
	err := d.renderer.Render(attemptCtx, req)

	result := "ok"
	switch {
	case err == nil:
	case IsFatal(err):
		result = "fatal"
	default:
		result = "transient"
	}
	d.metrics.ObserveAttempt(string(req.Type), result, time.Since(started))
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
