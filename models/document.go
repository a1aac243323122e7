package models

import (
	"fmt"
	"strings"
)

// DocumentType identifies one of the three discovery documents
type DocumentType string

const (
	DocSROGs      DocumentType = "srogs"
	DocPODs       DocumentType = "pods"
	DocAdmissions DocumentType = "admissions"
)

// DocumentTypes lists the document types in canonical order
var DocumentTypes = []DocumentType{DocSROGs, DocPODs, DocAdmissions}

// Title returns the heading used on the rendered document
func (t DocumentType) Title() string {
	switch t {
	case DocSROGs:
		return "Special Interrogatories"
	case DocPODs:
		return "Requests for Production of Documents"
	case DocAdmissions:
		return "Requests for Admission"
	default:
		return string(t)
	}
}

// ParseDocumentType accepts canonical names and common abbreviations
func ParseDocumentType(s string) (DocumentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "srogs", "srog", "interrogatories":
		return DocSROGs, nil
	case "pods", "pod", "production":
		return DocPODs, nil
	case "admissions", "rfas", "rfa":
		return DocAdmissions, nil
	}
	return "", fmt.Errorf("unknown document type: %q", s)
}

// Item is one numbered entry of a document template
type Item struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// DocumentProfile is the eligible, ordered item list for one document type
// and case unit. Items is empty, never nil, when nothing is eligible.
type DocumentProfile struct {
	CaseUnitID string       `json:"case_unit_id"`
	Type       DocumentType `json:"type"`
	Items      []Item       `json:"items"`
}

// SetItem is an item renumbered within its document set
type SetItem struct {
	LocalNumber int    `json:"local_number"`
	ItemID      string `json:"item_id"`
	Text        string `json:"text"`
}

// DocumentSet is a size-bounded slice of a profile
type DocumentSet struct {
	CaseUnitID string       `json:"case_unit_id"`
	Type       DocumentType `json:"type"`
	SetIndex   int          `json:"set_index"`
	SetCount   int          `json:"set_count"`
	Items      []SetItem    `json:"items"`
}

// Label formats the set position, e.g. "2 of 3"
func (s DocumentSet) Label() string {
	return fmt.Sprintf("%d of %d", s.SetIndex, s.SetCount)
}

// Caption carries party and property data for the document header
type Caption struct {
	CaseNumber   string   `json:"case_number"`
	Court        string   `json:"court,omitempty"`
	County       string   `json:"county,omitempty"`
	Plaintiff    string   `json:"plaintiff"`
	Defendant    string   `json:"defendant"`
	Plaintiffs   []string `json:"plaintiffs"`
	Defendants   []string `json:"defendants"`
	Property     string   `json:"property"`
	PropertyUnit string   `json:"property_unit,omitempty"`
}

// GenerationRequest is the payload submitted to the rendering service
type GenerationRequest struct {
	RequestID      string       `json:"request_id"`
	CaseUnitID     string       `json:"case_unit_id"`
	CaseNumber     string       `json:"case_number"`
	Type           DocumentType `json:"document_type"`
	Title          string       `json:"title"`
	SetIndex       int          `json:"set_index"`
	SetCount       int          `json:"set_count"`
	SetLabel       string       `json:"set_label"`
	Caption        Caption      `json:"caption"`
	Items          []SetItem    `json:"items"`
	FlagsDigest    string       `json:"flags_digest"`
	IdempotencyKey string       `json:"idempotency_key"`
}
