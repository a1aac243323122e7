package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"discoverydraft-backend/models"
	"discoverydraft-backend/taxonomy"
)

// Normalize validates a raw submission and returns its canonical form.
// Checkbox groups are flattened into registry codes; codes the registry does
// not know are dropped from the selection and listed as unknown.
func Normalize(raw *models.RawSubmission, reg *taxonomy.Registry) (*models.IntakeSubmission, error) {
	verr := &ValidationError{}
	if raw == nil {
		verr.add("submission", "is required")
		return nil, verr
	}

	sub := &models.IntakeSubmission{
		CaseNumber:      strings.TrimSpace(raw.CaseNumber),
		Court:           strings.TrimSpace(raw.Court),
		Jurisdiction:    strings.TrimSpace(raw.Jurisdiction),
		County:          strings.TrimSpace(raw.County),
		FilingDate:      strings.TrimSpace(raw.FilingDate),
		Property:        normalizeAddress(raw.Property),
		TaxonomyVersion: reg.Version(),
	}

	switch {
	case sub.CaseNumber == "":
		verr.add("case_number", "is required")
	case len(sub.CaseNumber) > MaxCaseNumberLength:
		verr.add("case_number", "must be at most %d characters", MaxCaseNumberLength)
	}
	if sub.Property.Street == "" {
		verr.add("property.street", "is required")
	}
	if sub.Property.City == "" {
		verr.add("property.city", "is required")
	}
	if len(raw.Plaintiffs) == 0 {
		verr.add("plaintiffs", "at least one plaintiff is required")
	}
	if len(raw.Defendants) == 0 {
		verr.add("defendants", "at least one defendant is required")
	}

	ids := make(map[string]string)
	sub.Plaintiffs = normalizeParties(raw.Plaintiffs, models.RolePlaintiff, "P", reg, ids, verr)
	sub.Defendants = normalizeParties(raw.Defendants, models.RoleDefendant, "D", reg, ids, verr)

	// A lone plaintiff anchors the household even when the form left the
	// head-of-household box unchecked.
	if len(sub.Plaintiffs) == 1 && !sub.Plaintiffs[0].IsHeadOfHousehold {
		sub.Plaintiffs[0].IsHeadOfHousehold = true
	}

	sub.Issues, sub.UnknownIssueCodes = flattenIssues(raw.Issues, reg)

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return sub, nil
}

// MaxCaseNumberLength matches the width of the case_number column
const MaxCaseNumberLength = 64

// reservedIDChars separate party IDs in case unit IDs ("P1-D1") and case
// unit IDs in request IDs ("P1-D1/srogs/1").
const reservedIDChars = "-/"

func normalizeParties(
	raw []models.RawParty,
	role models.PartyRole,
	prefix string,
	reg *taxonomy.Registry,
	ids map[string]string,
	verr *ValidationError,
) []models.Party {
	parties := make([]models.Party, 0, len(raw))
	for i, rp := range raw {
		field := fmt.Sprintf("%ss[%d]", role, i)

		p := models.Party{
			ID:         strings.TrimSpace(rp.ID),
			Role:       role,
			FirstName:  strings.TrimSpace(rp.FirstName),
			LastName:   strings.TrimSpace(rp.LastName),
			EntityName: strings.TrimSpace(rp.EntityName),
			Unit:       strings.TrimSpace(rp.Unit),
		}
		if p.ID == "" {
			p.ID = fmt.Sprintf("%s%d", prefix, i+1)
		}
		// Party IDs are joined into case unit and request IDs
		if strings.ContainsAny(p.ID, reservedIDChars) {
			verr.add(field+".id", "must not contain any of %q", reservedIDChars)
		}
		if prev, dup := ids[p.ID]; dup {
			verr.add(field+".id", "duplicates %s", prev)
		}
		ids[p.ID] = field

		if p.EntityName == "" && (p.FirstName == "" || p.LastName == "") {
			verr.add(field+".name", "first and last name or entity name is required")
		}

		switch role {
		case models.RolePlaintiff:
			p.IsHeadOfHousehold = rp.IsHeadOfHousehold
			p.IsMinor = rp.IsMinor
			p.HouseholdIssues, p.UnknownIssueCodes = flattenIssues(rp.Issues, reg)
		case models.RoleDefendant:
			p.IsEntity = rp.IsEntity || (p.EntityName != "" && p.FirstName == "")
			kind, ok := parseDefendantKind(rp.Kind)
			if !ok {
				verr.add(field+".kind", "must be owner, manager or both, got %q", rp.Kind)
			}
			p.Kind = kind
		}
		parties = append(parties, p)
	}
	return parties
}

func parseDefendantKind(s string) (models.DefendantKind, bool) {
	switch taxonomy.CanonicalKey(s) {
	case "":
		return "", true
	case "owner", "landlord":
		return models.DefendantOwner, true
	case "manager", "property_manager", "management_company":
		return models.DefendantManager, true
	case "both", "owner_manager":
		return models.DefendantBoth, true
	}
	return "", false
}

func normalizeAddress(a models.RawAddress) models.Address {
	zip := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, a.Zip)
	return models.Address{
		Street: strings.TrimSpace(a.Street),
		Unit:   strings.TrimSpace(a.Unit),
		City:   strings.TrimSpace(a.City),
		State:  strings.ToUpper(strings.TrimSpace(a.State)),
		Zip:    zip,
	}
}

// flattenIssues turns nested or flat checkbox input into canonical codes.
// Only checked boxes select; values that are neither a checkbox nor a group
// are treated like unknown keys.
func flattenIssues(raw models.RawIssues, reg *taxonomy.Registry) (models.IssueSelection, []string) {
	selection := make(models.IssueSelection)
	unknown := make(map[string]bool)

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		if checked, ok := checkboxValue(value); ok {
			if !checked {
				continue
			}
			if code, known := reg.ResolveCode(key); known {
				selection[code] = true
			} else {
				unknown[code] = true
			}
			continue
		}

		var group map[string]json.RawMessage
		if err := json.Unmarshal(value, &group); err != nil || group == nil {
			unknown[taxonomy.CanonicalKey(key)] = true
			continue
		}
		for box, boxValue := range group {
			checked, ok := checkboxValue(boxValue)
			if !ok || !checked {
				continue
			}
			if code, known := reg.Resolve(key, box); known {
				selection[code] = true
			} else {
				unknown[code] = true
			}
		}
	}

	codes := make([]string, 0, len(unknown))
	for code := range unknown {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	if len(codes) == 0 {
		codes = nil
	}
	return selection, codes
}

// checkboxValue interprets a JSON checkbox value. Older forms post strings
// such as "on" or "true".
func checkboxValue(value json.RawMessage) (checked bool, ok bool) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return false, false
	}
	switch value[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return false, false
		}
		return b, true
	case '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return false, false
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "on", "yes", "1", "checked":
			return true, true
		case "false", "off", "no", "0", "":
			return false, true
		}
		return false, false
	case 'n':
		return false, true
	}
	return false, false
}
