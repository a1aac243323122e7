package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// PartyRole distinguishes the two sides of a case
type PartyRole string

const (
	RolePlaintiff PartyRole = "plaintiff"
	RoleDefendant PartyRole = "defendant"
)

// DefendantKind describes a defendant's relationship to the property
type DefendantKind string

const (
	DefendantOwner   DefendantKind = "owner"
	DefendantManager DefendantKind = "manager"
	DefendantBoth    DefendantKind = "both"
)

// RawIssues holds checkbox selections as sent by the intake UI. A value is
// either a bool for a flat "<category>.<checkbox>" key or an object of
// checkbox -> bool for a nested category group.
type RawIssues map[string]json.RawMessage

// RawAddress is the property address as submitted
type RawAddress struct {
	Street string `json:"street"`
	Unit   string `json:"unit"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// RawParty is a plaintiff or defendant entry as submitted
type RawParty struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	EntityName        string    `json:"entity_name"`
	IsHeadOfHousehold bool      `json:"is_head_of_household"`
	Unit              string    `json:"unit"`
	IsMinor           bool      `json:"is_minor"`
	Kind              string    `json:"kind"`
	IsEntity          bool      `json:"is_entity"`
	Issues            RawIssues `json:"issues,omitempty"`
}

// RawSubmission is the intake payload received from the web layer
type RawSubmission struct {
	CaseNumber   string     `json:"case_number"`
	Court        string     `json:"court"`
	Jurisdiction string     `json:"jurisdiction"`
	County       string     `json:"county"`
	FilingDate   string     `json:"filing_date"`
	Property     RawAddress `json:"property"`
	Plaintiffs   []RawParty `json:"plaintiffs"`
	Defendants   []RawParty `json:"defendants"`
	Issues       RawIssues  `json:"issues"`
}

// Address is a canonical property address
type Address struct {
	Street string `json:"street"`
	Unit   string `json:"unit,omitempty"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// String formats the address on a single line for captions
func (a Address) String() string {
	line := a.Street
	if a.Unit != "" {
		line += ", Unit " + a.Unit
	}
	tail := strings.TrimSpace(strings.Join([]string{a.State, a.Zip}, " "))
	parts := []string{line}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// IssueSelection is a set of canonical taxonomy codes. Only selected codes
// are present.
type IssueSelection map[string]bool

// Has reports whether code was selected
func (s IssueSelection) Has(code string) bool {
	return s[code]
}

// Codes returns the selected codes in sorted order
func (s IssueSelection) Codes() []string {
	codes := make([]string, 0, len(s))
	for code, selected := range s {
		if selected {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// Party is a canonical plaintiff or defendant
type Party struct {
	ID                string         `json:"id"`
	Role              PartyRole      `json:"role"`
	FirstName         string         `json:"first_name,omitempty"`
	LastName          string         `json:"last_name,omitempty"`
	EntityName        string         `json:"entity_name,omitempty"`
	IsHeadOfHousehold bool           `json:"is_head_of_household,omitempty"`
	Unit              string         `json:"unit,omitempty"`
	IsMinor           bool           `json:"is_minor,omitempty"`
	Kind              DefendantKind  `json:"kind,omitempty"`
	IsEntity          bool           `json:"is_entity,omitempty"`
	HouseholdIssues   IssueSelection `json:"household_issues,omitempty"`
	UnknownIssueCodes []string       `json:"unknown_issue_codes,omitempty"`
}

// DisplayName returns the name used in captions and item text
func (p Party) DisplayName() string {
	if p.EntityName != "" {
		return p.EntityName
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// IntakeSubmission is a validated, canonical intake. It is not modified
// after normalization.
type IntakeSubmission struct {
	CaseNumber        string         `json:"case_number"`
	Court             string         `json:"court,omitempty"`
	Jurisdiction      string         `json:"jurisdiction,omitempty"`
	County            string         `json:"county,omitempty"`
	FilingDate        string         `json:"filing_date,omitempty"`
	Property          Address        `json:"property"`
	Plaintiffs        []Party        `json:"plaintiffs"`
	Defendants        []Party        `json:"defendants"`
	Issues            IssueSelection `json:"issues"`
	UnknownIssueCodes []string       `json:"unknown_issue_codes,omitempty"`
	TaxonomyVersion   string         `json:"taxonomy_version"`
}

// HeadsOfHousehold returns the plaintiffs anchoring case units, in declared order
func (s *IntakeSubmission) HeadsOfHousehold() []Party {
	heads := make([]Party, 0, len(s.Plaintiffs))
	for _, p := range s.Plaintiffs {
		if p.IsHeadOfHousehold {
			heads = append(heads, p)
		}
	}
	return heads
}
