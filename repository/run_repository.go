package repository

import (
	"context"
	"time"

	"discoverydraft-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunRepository handles database operations for discovery runs
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository creates a new discovery run repository
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, case_number, status, current_phase, phases, result,
	error_message, manifest_path, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.DiscoveryRun, error) {
	run := &models.DiscoveryRun{}
	err := row.Scan(
		&run.ID,
		&run.CaseNumber,
		&run.Status,
		&run.CurrentPhase,
		&run.Phases,
		&run.Result,
		&run.ErrorMessage,
		&run.ManifestPath,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if run.Phases == nil {
		run.Phases = make(models.RunPhases, 0)
	}
	return run, nil
}

// Create inserts a new run; ID and timestamps are filled in from the database
func (r *RunRepository) Create(ctx context.Context, run *models.DiscoveryRun) error {
	query := `
		INSERT INTO discovery_runs (
			id, case_number, status, current_phase, phases
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return r.db.QueryRow(
		ctx, query,
		run.ID,
		run.CaseNumber,
		run.Status,
		run.CurrentPhase,
		run.Phases,
	).Scan(&run.CreatedAt, &run.UpdatedAt)
}

// GetByID retrieves a run by ID
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DiscoveryRun, error) {
	query := `SELECT ` + runColumns + ` FROM discovery_runs WHERE id = $1`
	return scanRun(r.db.QueryRow(ctx, query, id))
}

// ListRecent returns the most recent runs, newest first
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*models.DiscoveryRun, error) {
	query := `SELECT ` + runColumns + `
		FROM discovery_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*models.DiscoveryRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// UpdateStatus updates the status of a run
func (r *RunRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RunStatus) error {
	query := `
		UPDATE discovery_runs SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// UpdateProgress records the phase currently running and the phase list
func (r *RunRepository) UpdateProgress(ctx context.Context, id uuid.UUID, currentPhase string, phases models.RunPhases) error {
	query := `
		UPDATE discovery_runs SET
			current_phase = $2,
			phases = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, currentPhase, phases)
	return err
}

// Complete stores the pipeline result and final status of a run
func (r *RunRepository) Complete(ctx context.Context, id uuid.UUID, status models.RunStatus, result *models.PipelineResult, manifestPath string) error {
	now := time.Now()
	query := `
		UPDATE discovery_runs SET
			status = $2,
			result = $3,
			manifest_path = NULLIF($4, ''),
			completed_at = $5,
			updated_at = $5
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status, result, manifestPath, now)
	return err
}

// Fail marks a run as failed. result may be nil when the failure happened
// outside the pipeline; manifestPath is empty when nothing was archived.
func (r *RunRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string, result *models.PipelineResult, manifestPath string) error {
	now := time.Now()
	query := `
		UPDATE discovery_runs SET
			status = $2,
			error_message = $3,
			result = COALESCE($4, result),
			manifest_path = COALESCE(NULLIF($5, ''), manifest_path),
			completed_at = $6,
			updated_at = $6
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.RunStatusFailed, errorMessage, result, manifestPath, now)
	return err
}
