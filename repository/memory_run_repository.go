package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"discoverydraft-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MemoryRunRepository keeps runs in process memory. It mirrors
// RunRepository, including pgx.ErrNoRows for missing runs, and is used when
// no database is configured.
type MemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*models.DiscoveryRun
}

// NewMemoryRunRepository creates an empty in-memory run repository
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[uuid.UUID]*models.DiscoveryRun)}
}

// Create stores a new run
func (r *MemoryRunRepository) Create(ctx context.Context, run *models.DiscoveryRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	now := time.Now()
	run.CreatedAt, run.UpdatedAt = now, now
	r.runs[run.ID] = cloneRun(run)
	return nil
}

// GetByID returns a copy of the run
func (r *MemoryRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DiscoveryRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneRun(run), nil
}

// ListRecent returns the most recent runs, newest first
func (r *MemoryRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.DiscoveryRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]*models.DiscoveryRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, cloneRun(run))
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit >= 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// UpdateStatus updates the status of a run
func (r *MemoryRunRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RunStatus) error {
	return r.update(id, func(run *models.DiscoveryRun) {
		run.Status = status
	})
}

// UpdateProgress records the phase currently running and the phase list
func (r *MemoryRunRepository) UpdateProgress(ctx context.Context, id uuid.UUID, currentPhase string, phases models.RunPhases) error {
	return r.update(id, func(run *models.DiscoveryRun) {
		run.CurrentPhase = &currentPhase
		run.Phases = append(models.RunPhases(nil), phases...)
	})
}

// Complete stores the pipeline result and final status of a run
func (r *MemoryRunRepository) Complete(ctx context.Context, id uuid.UUID, status models.RunStatus, result *models.PipelineResult, manifestPath string) error {
	return r.update(id, func(run *models.DiscoveryRun) {
		now := time.Now()
		run.Status = status
		run.Result = result
		if manifestPath != "" {
			run.ManifestPath = &manifestPath
		}
		run.CompletedAt = &now
	})
}

// Fail marks a run as failed
func (r *MemoryRunRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string, result *models.PipelineResult, manifestPath string) error {
	return r.update(id, func(run *models.DiscoveryRun) {
		now := time.Now()
		run.Status = models.RunStatusFailed
		run.ErrorMessage = &errorMessage
		if result != nil {
			run.Result = result
		}
		if manifestPath != "" {
			run.ManifestPath = &manifestPath
		}
		run.CompletedAt = &now
	})
}

func (r *MemoryRunRepository) update(id uuid.UUID, fn func(run *models.DiscoveryRun)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(run)
	run.UpdatedAt = time.Now()
	return nil
}

func cloneRun(run *models.DiscoveryRun) *models.DiscoveryRun {
	cp := *run
	cp.Phases = append(models.RunPhases(nil), run.Phases...)
	return &cp
}
