package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Phase names, in pipeline order
const (
	PhaseNormalize = "normalize"
	PhaseDataset   = "dataset"
	PhaseFlags     = "flags"
	PhaseProfiles  = "profiles"
	PhaseSplit     = "split"
	PhaseDispatch  = "dispatch"
)

// Phases lists every pipeline phase in execution order
var Phases = []string{PhaseNormalize, PhaseDataset, PhaseFlags, PhaseProfiles, PhaseSplit, PhaseDispatch}

// TaxonomyWarning records an issue code that is not in the flag registry.
// The code resolves to false and processing continues.
type TaxonomyWarning struct {
	Code       string `json:"code"`
	CaseUnitID string `json:"case_unit_id,omitempty"`
	Message    string `json:"message"`
}

// DispatchError describes one generation request that failed after retries
type DispatchError struct {
	RequestID  string       `json:"request_id"`
	CaseUnitID string       `json:"case_unit_id"`
	Type       DocumentType `json:"document_type"`
	SetLabel   string       `json:"set_label"`
	Attempts   int          `json:"attempts"`
	Message    string       `json:"message"`
}

// DispatchSummary aggregates per-request outcomes
type DispatchSummary struct {
	TotalSets int             `json:"totalSets"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Errors    []DispatchError `json:"errors"`
}

// PipelineResult is returned to the caller after a run
type PipelineResult struct {
	Success         bool              `json:"success"`
	PhaseFailed     string            `json:"phaseFailed,omitempty"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
	FlagWarnings    []TaxonomyWarning `json:"flagWarnings"`
	CaseUnits       int               `json:"caseUnits"`
	DocumentSets    int               `json:"documentSets"`
	DispatchSummary DispatchSummary   `json:"dispatchSummary"`
}

// Value implements driver.Valuer for JSONB
func (r PipelineResult) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *PipelineResult) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, r)
}
