// Package pipeline turns an intake submission into discovery document
// generation requests and submits them for rendering.
//
// Stages run in order: normalize, build case units, compute flags, assemble
// document profiles, split profiles into sets, dispatch. Every stage before
// dispatch is a pure function of its input and the PipelineConfig; only the
// dispatcher performs I/O.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"discoverydraft-backend/catalog"
	"discoverydraft-backend/config"
	"discoverydraft-backend/metrics"
	"discoverydraft-backend/models"
	"discoverydraft-backend/taxonomy"

	"go.uber.org/zap"
)

// PhaseObserver is notified as phases start, complete or fail
type PhaseObserver func(phase, status, detail string)

// Plan is the output of the pure stages: everything needed to dispatch
type Plan struct {
	Submission *models.IntakeSubmission   `json:"submission"`
	CaseUnits  []models.CaseUnit          `json:"case_units"`
	Flags      map[string]models.Flags    `json:"-"`
	Profiles   []models.DocumentProfile   `json:"profiles"`
	Sets       []models.DocumentSet       `json:"-"`
	Requests   []models.GenerationRequest `json:"requests"`
	Warnings   []models.TaxonomyWarning   `json:"flag_warnings"`
}

// Pipeline runs submissions against a fixed configuration, registry and
// catalog. It is safe for concurrent use.
type Pipeline struct {
	cfg          config.PipelineConfig
	registry     *taxonomy.Registry
	catalog      *catalog.Catalog
	renderer     Renderer
	dispatchOpts []DispatcherOption
	dispatcher   *Dispatcher
	logger       *zap.Logger
	metrics      *metrics.Collector
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithRegistry replaces the embedded taxonomy registry
func WithRegistry(reg *taxonomy.Registry) Option {
	return func(p *Pipeline) {
		p.registry = reg
	}
}

// WithCatalog replaces the embedded document catalog
func WithCatalog(cat *catalog.Catalog) Option {
	return func(p *Pipeline) {
		p.catalog = cat
	}
}

// WithRenderer sets the rendering service client. Without one, Plan works
// but every dispatched request fails.
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
	}
}

// WithDispatcherOptions passes options through to the dispatcher
func WithDispatcherOptions(opts ...DispatcherOption) Option {
	return func(p *Pipeline) {
		p.dispatchOpts = append(p.dispatchOpts, opts...)
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New validates cfg and builds a pipeline
func New(cfg config.PipelineConfig, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.registry == nil {
		p.registry = taxonomy.Default()
	}
	if err := cfg.Validate(p.registry.Version()); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	if p.catalog == nil {
		cat, err := catalog.Default(p.registry)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		p.catalog = cat
	}

	renderer := p.renderer
	if renderer == nil {
		renderer = RendererFunc(func(context.Context, models.GenerationRequest) error {
			return NewFatalError(errors.New("no renderer configured"))
		})
	}
	dispatchOpts := append([]DispatcherOption{
		DispatchWithLogger(p.logger),
		DispatchWithMetrics(p.metrics),
	}, p.dispatchOpts...)
	p.dispatcher = NewDispatcher(renderer, cfg, dispatchOpts...)

	return p, nil
}

// Registry returns the taxonomy registry in use
func (p *Pipeline) Registry() *taxonomy.Registry { return p.registry }

// Config returns the pipeline configuration
func (p *Pipeline) Config() config.PipelineConfig { return p.cfg }

// Run executes every stage and returns the caller-facing result. Fatal
// errors in the pure stages are reported in the result, not returned.
func (p *Pipeline) Run(ctx context.Context, raw *models.RawSubmission, observers ...PhaseObserver) *models.PipelineResult {
	plan, err := p.Plan(raw, observers...)
	if err != nil {
		return p.Failure(err)
	}
	return p.Dispatch(ctx, plan, observers...)
}

// Plan runs the pure stages: normalize through request building
func (p *Pipeline) Plan(raw *models.RawSubmission, observers ...PhaseObserver) (*Plan, error) {
	notify := func(phase, status, detail string) {
		for _, obs := range observers {
			obs(phase, status, detail)
		}
	}
	fail := func(phase string, err error) error {
		notify(phase, models.PhaseFailed, err.Error())
		return &PhaseError{Phase: phase, Err: err}
	}

	notify(models.PhaseNormalize, models.PhaseInProgress, "")
	sub, err := Normalize(raw, p.registry)
	if err != nil {
		return nil, fail(models.PhaseNormalize, err)
	}
	notify(models.PhaseNormalize, models.PhaseCompleted,
		fmt.Sprintf("%d issues selected, %d unknown", len(sub.Issues), len(sub.UnknownIssueCodes)))

	notify(models.PhaseDataset, models.PhaseInProgress, "")
	units, err := BuildCaseUnits(sub)
	if err != nil {
		return nil, fail(models.PhaseDataset, err)
	}
	notify(models.PhaseDataset, models.PhaseCompleted, fmt.Sprintf("%d case units", len(units)))

	plan := &Plan{
		Submission: sub,
		CaseUnits:  units,
		Flags:      make(map[string]models.Flags, len(units)),
		Warnings:   []models.TaxonomyWarning{},
	}

	notify(models.PhaseFlags, models.PhaseInProgress, "")
	for _, unit := range units {
		flags, warnings := ComputeFlags(unit, sub, p.registry)
		plan.Flags[unit.ID] = flags
		plan.Warnings = append(plan.Warnings, warnings...)
	}
	notify(models.PhaseFlags, models.PhaseCompleted, fmt.Sprintf("%d taxonomy warnings", len(plan.Warnings)))

	notify(models.PhaseProfiles, models.PhaseInProgress, "")
	eligible := 0
	for _, unit := range units {
		for _, profile := range AssembleProfiles(unit, plan.Flags[unit.ID], p.catalog) {
			eligible += len(profile.Items)
			plan.Profiles = append(plan.Profiles, profile)
		}
	}
	notify(models.PhaseProfiles, models.PhaseCompleted, fmt.Sprintf("%d eligible items", eligible))

	notify(models.PhaseSplit, models.PhaseInProgress, "")
	unitByID := make(map[string]models.CaseUnit, len(units))
	for _, unit := range units {
		unitByID[unit.ID] = unit
	}
	for _, profile := range plan.Profiles {
		sets, err := SplitProfile(profile, p.cfg.ItemLimit(profile.Type))
		if err != nil {
			return nil, fail(models.PhaseSplit, err)
		}
		if len(sets) == 0 {
			continue
		}
		unit := unitByID[profile.CaseUnitID]
		requests, err := BuildRequests(sub, unit, plan.Flags[unit.ID], sets, p.catalog)
		if err != nil {
			return nil, fail(models.PhaseSplit, err)
		}
		plan.Sets = append(plan.Sets, sets...)
		plan.Requests = append(plan.Requests, requests...)
	}
	notify(models.PhaseSplit, models.PhaseCompleted, fmt.Sprintf("%d document sets", len(plan.Sets)))

	return plan, nil
}

// Dispatch submits a plan's requests and builds the result. Render failures
// are recorded in the dispatch summary; the result still reports success.
func (p *Pipeline) Dispatch(ctx context.Context, plan *Plan, observers ...PhaseObserver) *models.PipelineResult {
	for _, obs := range observers {
		obs(models.PhaseDispatch, models.PhaseInProgress, "")
	}

	summary := p.dispatcher.Dispatch(ctx, plan.Requests)

	detail := fmt.Sprintf("%d of %d sets rendered", summary.Succeeded, summary.TotalSets)
	for _, obs := range observers {
		obs(models.PhaseDispatch, models.PhaseCompleted, detail)
	}

	p.logger.Info("Discovery run dispatched",
		zap.String("case_number", plan.Submission.CaseNumber),
		zap.Int("case_units", len(plan.CaseUnits)),
		zap.Int("document_sets", len(plan.Sets)),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("flag_warnings", len(plan.Warnings)))
	p.metrics.ObserveRun(true, "")
	p.metrics.ObserveTaxonomyWarnings(len(plan.Warnings))

	return &models.PipelineResult{
		Success:         true,
		FlagWarnings:    plan.Warnings,
		CaseUnits:       len(plan.CaseUnits),
		DocumentSets:    len(plan.Sets),
		DispatchSummary: summary,
	}
}

// Failure builds the result for a fatal error raised by Plan
func (p *Pipeline) Failure(err error) *models.PipelineResult {
	phase := ""
	var perr *PhaseError
	if errors.As(err, &perr) {
		phase = perr.Phase
	}

	p.logger.Warn("Discovery run failed", zap.String("phase", phase), zap.Error(err))
	p.metrics.ObserveRun(false, phase)

	return &models.PipelineResult{
		Success:         false,
		PhaseFailed:     phase,
		ErrorMessage:    err.Error(),
		FlagWarnings:    []models.TaxonomyWarning{},
		DispatchSummary: models.DispatchSummary{Errors: []models.DispatchError{}},
	}
}
