package pipeline

import (
	"sort"

	"discoverydraft-backend/models"
	"discoverydraft-backend/taxonomy"
)

// ComputeFlags derives the flag map for one case unit. The map has an entry
// for every registry flag. Issue codes come from the submission-wide
// selection plus the household selections of the unit's plaintiffs; any code
// the registry does not know produces a warning and stays false.
func ComputeFlags(unit models.CaseUnit, sub *models.IntakeSubmission, reg *taxonomy.Registry) (models.Flags, []models.TaxonomyWarning) {
	household := unit.Household()

	selected := make(models.IssueSelection, len(sub.Issues))
	unknown := make(map[string]bool)
	for code := range sub.Issues {
		selected[code] = sub.Issues[code]
	}
	for _, code := range sub.UnknownIssueCodes {
		unknown[code] = true
	}
	for _, member := range household {
		for code, on := range member.HouseholdIssues {
			if on {
				selected[code] = true
			}
		}
		for _, code := range member.UnknownIssueCodes {
			unknown[code] = true
		}
	}

	flags := make(models.Flags, len(reg.FlagNames()))
	for _, name := range reg.FlagNames() {
		flags[name] = false
	}

	for code, on := range selected {
		if !on {
			continue
		}
		if !reg.HasCode(code) {
			unknown[code] = true
			continue
		}
		flags[code] = true
		flags[taxonomy.AggregateFlag(reg.CategoryOf(code))] = true
	}

	setContext := func(name string, value bool) {
		if reg.IsFlag(name) {
			flags[name] = value
		}
	}
	kind := unit.Defendant.Kind
	setContext(taxonomy.FlagDefendantIsOwner, kind == models.DefendantOwner || kind == models.DefendantBoth)
	setContext(taxonomy.FlagDefendantIsManager, kind == models.DefendantManager || kind == models.DefendantBoth)
	setContext(taxonomy.FlagDefendantIsEntity, unit.Defendant.IsEntity)
	setContext(taxonomy.FlagHouseholdHasMinors, hasMinor(household))
	setContext(taxonomy.FlagMultiplePlaintiffs, len(unit.Roster.Plaintiffs) > 1)
	setContext(taxonomy.FlagMultipleDefendants, len(unit.Roster.Defendants) > 1)

	codes := make([]string, 0, len(unknown))
	for code := range unknown {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	warnings := make([]models.TaxonomyWarning, 0, len(codes))
	for _, code := range codes {
		warnings = append(warnings, models.TaxonomyWarning{
			Code:       code,
			CaseUnitID: unit.ID,
			Message:    "issue code not in taxonomy " + reg.Version() + "; treated as not selected",
		})
	}
	return flags, warnings
}

func hasMinor(parties []models.Party) bool {
	for _, p := range parties {
		if p.IsMinor {
			return true
		}
	}
	return false
}
