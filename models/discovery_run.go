package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the status of a discovery run
type RunStatus string

const (
	RunStatusPending         RunStatus = "pending"
	RunStatusInProgress      RunStatus = "in_progress"
	RunStatusCompleted       RunStatus = "completed"
	RunStatusPartiallyFailed RunStatus = "partially_failed"
	RunStatusFailed          RunStatus = "failed"
)

// Phase status values
const (
	PhasePending    = "pending"
	PhaseInProgress = "in_progress"
	PhaseCompleted  = "completed"
	PhaseFailed     = "failed"
)

// RunPhase is the progress of one pipeline phase within a run
type RunPhase struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// RunPhases is the ordered phase list stored as JSONB
type RunPhases []RunPhase

// NewRunPhases returns every pipeline phase in pending state
func NewRunPhases() RunPhases {
	phases := make(RunPhases, 0, len(Phases))
	for _, name := range Phases {
		phases = append(phases, RunPhase{Name: name, Status: PhasePending})
	}
	return phases
}

// WithStatus returns a copy with the named phase updated
func (p RunPhases) WithStatus(name, status, detail string) RunPhases {
	out := make(RunPhases, len(p))
	copy(out, p)
	for i := range out {
		if out[i].Name == name {
			out[i].Status = status
			out[i].Detail = detail
		}
	}
	return out
}

// Value implements driver.Valuer for JSONB
func (p RunPhases) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB
func (p *RunPhases) Scan(value interface{}) error {
	if value == nil {
		*p = make(RunPhases, 0)
		return nil
	}

	// pgx may hand back JSONB as bytes or text
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*p = make(RunPhases, 0)
		return nil
	}

	if len(bytes) == 0 {
		*p = make(RunPhases, 0)
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// DiscoveryRun is the persisted record of one pipeline execution
type DiscoveryRun struct {
	ID           uuid.UUID       `json:"id"`
	CaseNumber   string          `json:"case_number"`
	Status       RunStatus       `json:"status"`
	CurrentPhase *string         `json:"current_phase,omitempty"`
	Phases       RunPhases       `json:"phases"`
	Result       *PipelineResult `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	ManifestPath *string         `json:"manifest_path,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}
