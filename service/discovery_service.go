package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"discoverydraft-backend/models"
	"discoverydraft-backend/pipeline"
	"discoverydraft-backend/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// RunStore persists discovery runs. repository.RunRepository implements it.
type RunStore interface {
	Create(ctx context.Context, run *models.DiscoveryRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DiscoveryRun, error)
	ListRecent(ctx context.Context, limit int) ([]*models.DiscoveryRun, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RunStatus) error
	UpdateProgress(ctx context.Context, id uuid.UUID, currentPhase string, phases models.RunPhases) error
	Complete(ctx context.Context, id uuid.UUID, status models.RunStatus, result *models.PipelineResult, manifestPath string) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string, result *models.PipelineResult, manifestPath string) error
}

// DiscoveryService runs the discovery pipeline for submitted intakes and
// tracks each execution as a DiscoveryRun.
type DiscoveryService struct {
	runs              RunStore
	archive           storage.Storage
	pipeline          *pipeline.Pipeline
	logger            *zap.Logger
	continueOnFailure bool
}

// DiscoveryServiceOption is a functional option for DiscoveryService
type DiscoveryServiceOption func(*DiscoveryService)

// WithRunStore sets the run store
func WithRunStore(store RunStore) DiscoveryServiceOption {
	return func(s *DiscoveryService) {
		s.runs = store
	}
}

// WithArchive sets the storage used for run manifests
func WithArchive(archive storage.Storage) DiscoveryServiceOption {
	return func(s *DiscoveryService) {
		s.archive = archive
	}
}

// WithPipeline sets the pipeline
func WithPipeline(p *pipeline.Pipeline) DiscoveryServiceOption {
	return func(s *DiscoveryService) {
		s.pipeline = p
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) DiscoveryServiceOption {
	return func(s *DiscoveryService) {
		s.logger = logger
	}
}

// WithContinueOnFailure sets whether failed render requests leave a run
// partially failed (true) or failed (false)
func WithContinueOnFailure(v bool) DiscoveryServiceOption {
	return func(s *DiscoveryService) {
		s.continueOnFailure = v
	}
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(opts ...DiscoveryServiceOption) *DiscoveryService {
	s := &DiscoveryService{
		logger:            zap.NewNop(),
		continueOnFailure: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRunRequest represents a request to start a discovery run
type StartRunRequest struct {
	Submission *models.RawSubmission
}

// StartRunResult represents the result of creating a run
type StartRunResult struct {
	RunID uuid.UUID
}

// GetRunRequest represents a request to get a run
type GetRunRequest struct {
	RunID uuid.UUID
}

// GetRunResult represents the result of getting a run
type GetRunResult struct {
	Run *models.DiscoveryRun
}

// Manifest is the archived record of every generation request in a run
type Manifest struct {
	RunID           uuid.UUID                  `json:"run_id"`
	CaseNumber      string                     `json:"case_number"`
	TaxonomyVersion string                     `json:"taxonomy_version"`
	CreatedAt       time.Time                  `json:"created_at"`
	CaseUnits       []models.CaseUnit          `json:"case_units"`
	FlagWarnings    []models.TaxonomyWarning   `json:"flag_warnings"`
	Requests        []models.GenerationRequest `json:"requests"`
}

var (
	ErrInvalidSubmission = errors.New("submission is required")
	ErrRunCreationFailed = errors.New("failed to create discovery run")
	ErrRunNotFound       = errors.New("discovery run not found")
	ErrManifestNotFound  = errors.New("run manifest not found")
	ErrNotConfigured     = errors.New("discovery service not configured")
)

// StartRun creates a pending run and returns immediately. The caller runs
// ProcessRun, usually in a goroutine.
func (s *DiscoveryService) StartRun(ctx context.Context, req StartRunRequest) (*StartRunResult, error) {
	if s.runs == nil || s.pipeline == nil {
		return nil, ErrNotConfigured
	}
	if req.Submission == nil {
		return nil, ErrInvalidSubmission
	}
	// Reject bad submissions before a run row exists
	sub, err := pipeline.Normalize(req.Submission, s.pipeline.Registry())
	if err != nil {
		return nil, err
	}

	run := &models.DiscoveryRun{
		ID:         uuid.New(),
		CaseNumber: sub.CaseNumber,
		Status:     models.RunStatusPending,
		Phases:     models.NewRunPhases(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Error("Failed to create discovery run", zap.Error(err))
		return nil, ErrRunCreationFailed
	}

	return &StartRunResult{RunID: run.ID}, nil
}

// ProcessRun executes the pipeline for a run, recording phase progress,
// archiving the request manifest and storing the final result.
func (s *DiscoveryService) ProcessRun(ctx context.Context, runID uuid.UUID, raw *models.RawSubmission) error {
	if s.runs == nil || s.pipeline == nil {
		return ErrNotConfigured
	}
	logger := s.logger.With(zap.String("run_id", runID.String()))

	if err := s.runs.UpdateStatus(ctx, runID, models.RunStatusInProgress); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	phases := models.NewRunPhases()
	observe := func(phase, status, detail string) {
		phases = phases.WithStatus(phase, status, detail)
		if err := s.runs.UpdateProgress(ctx, runID, phase, phases); err != nil {
			logger.Warn("Failed to record phase progress",
				zap.String("phase", phase), zap.Error(err))
		}
	}

	plan, err := s.pipeline.Plan(raw, observe)
	if err != nil {
		result := s.pipeline.Failure(err)
		s.markRunFailed(ctx, runID, err.Error(), result, "")
		return err
	}

	manifestPath := s.archiveManifest(ctx, runID, plan)

	result := s.pipeline.Dispatch(ctx, plan, observe)
	status := s.finalStatus(result)
	if status == models.RunStatusFailed {
		msg := fmt.Sprintf("%d of %d document sets failed to render",
			result.DispatchSummary.Failed, result.DispatchSummary.TotalSets)
		s.markRunFailed(ctx, runID, msg, result, manifestPath)
		return errors.New(msg)
	}

	if err := s.runs.Complete(ctx, runID, status, result, manifestPath); err != nil {
		s.markRunFailed(ctx, runID, "failed to store result: "+err.Error(), result, manifestPath)
		return fmt.Errorf("failed to store result: %w", err)
	}

	logger.Info("Discovery run finished",
		zap.String("status", string(status)),
		zap.Int("document_sets", result.DocumentSets),
		zap.Int("failed", result.DispatchSummary.Failed))
	return nil
}

// finalStatus applies the continue-on-failure policy to a dispatch result
func (s *DiscoveryService) finalStatus(result *models.PipelineResult) models.RunStatus {
	switch {
	case !result.Success:
		return models.RunStatusFailed
	case result.DispatchSummary.Failed == 0:
		return models.RunStatusCompleted
	case s.continueOnFailure:
		return models.RunStatusPartiallyFailed
	default:
		return models.RunStatusFailed
	}
}

// archiveManifest writes the plan's requests to storage. Failures are
// logged and leave the run without a manifest.
func (s *DiscoveryService) archiveManifest(ctx context.Context, runID uuid.UUID, plan *pipeline.Plan) string {
	if s.archive == nil {
		return ""
	}

	manifest := Manifest{
		RunID:           runID,
		CaseNumber:      plan.Submission.CaseNumber,
		TaxonomyVersion: plan.Submission.TaxonomyVersion,
		CreatedAt:       time.Now().UTC(),
		CaseUnits:       plan.CaseUnits,
		FlagWarnings:    plan.Warnings,
		Requests:        plan.Requests,
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		s.logger.Warn("Failed to encode manifest", zap.String("run_id", runID.String()), zap.Error(err))
		return ""
	}

	key := storage.ManifestKey(runID)
	if err := s.archive.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		s.logger.Warn("Failed to archive manifest", zap.String("run_id", runID.String()), zap.Error(err))
		return ""
	}
	return key
}

// markRunFailed marks a run as failed with an error message
func (s *DiscoveryService) markRunFailed(ctx context.Context, runID uuid.UUID, errorMessage string, result *models.PipelineResult, manifestPath string) {
	if err := s.runs.Fail(ctx, runID, errorMessage, result, manifestPath); err != nil {
		s.logger.Error("Failed to mark run failed",
			zap.String("run_id", runID.String()), zap.Error(err))
	}
}

// GetRun retrieves a run by ID
func (s *DiscoveryService) GetRun(ctx context.Context, req GetRunRequest) (*GetRunResult, error) {
	if s.runs == nil {
		return nil, ErrNotConfigured
	}

	run, err := s.runs.GetByID(ctx, req.RunID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return &GetRunResult{Run: run}, nil
}

// ListRuns returns recent runs, newest first
func (s *DiscoveryService) ListRuns(ctx context.Context, limit int) ([]*models.DiscoveryRun, error) {
	if s.runs == nil {
		return nil, ErrNotConfigured
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.runs.ListRecent(ctx, limit)
}

// GetManifest reads the archived manifest of a run
func (s *DiscoveryService) GetManifest(ctx context.Context, runID uuid.UUID) (*Manifest, error) {
	if s.archive == nil {
		return nil, ErrManifestNotFound
	}

	rc, err := s.archive.Get(ctx, storage.ManifestKey(runID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrManifestNotFound
		}
		return nil, err
	}
	defer rc.Close()

	var manifest Manifest
	if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &manifest, nil
}

// Preview runs every stage except dispatch and returns the plan
func (s *DiscoveryService) Preview(ctx context.Context, raw *models.RawSubmission) (*pipeline.Plan, error) {
	if s.pipeline == nil {
		return nil, ErrNotConfigured
	}
	if raw == nil {
		return nil, ErrInvalidSubmission
	}
	return s.pipeline.Plan(raw)
}
