package pipeline

import (
	"testing"

	"discoverydraft-backend/models"
	"discoverydraft-backend/taxonomy"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstUnit(t *testing.T, sub *models.IntakeSubmission) models.CaseUnit {
	t.Helper()
	units, err := BuildCaseUnits(sub)
	require.NoError(t, err)
	require.NotEmpty(t, units)
	return units[0]
}

func TestComputeFlags_Derivation(t *testing.T) {
	reg := taxonomy.Default()
	sub := normalized(t, sampleRaw(t))
	unit := firstUnit(t, sub)

	flags, warnings := ComputeFlags(unit, sub, reg)

	assert.Empty(t, warnings)
	assert.Len(t, flags, len(reg.FlagNames()))

	want := map[string]bool{
		"vermin.rats":                   true,
		"vermin.mice":                   false,
		"plumbing.leaks":                true,
		"has_vermin":                    true,
		"has_plumbing":                  true,
		"has_mold":                      false,
		taxonomy.FlagDefendantIsOwner:   true,
		taxonomy.FlagDefendantIsManager: false,
		taxonomy.FlagDefendantIsEntity:  true,
		taxonomy.FlagHouseholdHasMinors: true,
		taxonomy.FlagMultiplePlaintiffs: true,
		taxonomy.FlagMultipleDefendants: false,
	}
	for name, value := range want {
		v, ok := flags[name]
		assert.True(t, ok, "flag %s missing", name)
		assert.Equal(t, value, v, name)
	}
}

func TestComputeFlags_Idempotent(t *testing.T) {
	reg := taxonomy.Default()
	sub := normalized(t, sampleRaw(t))
	unit := firstUnit(t, sub)

	first, firstWarnings := ComputeFlags(unit, sub, reg)
	second, secondWarnings := ComputeFlags(unit, sub, reg)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("flags differ between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(firstWarnings, secondWarnings); diff != "" {
		t.Errorf("warnings differ between runs (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Digest(), second.Digest())
}

func TestComputeFlags_UnknownCodeWarns(t *testing.T) {
	reg := taxonomy.Default()
	raw := sampleRaw(t)
	raw.Issues = rawIssues(t, map[string]any{
		"vermin.rats":        true,
		"teleporters.broken": true,
	})
	sub := normalized(t, raw)
	unit := firstUnit(t, sub)

	flags, warnings := ComputeFlags(unit, sub, reg)

	require.Len(t, warnings, 1)
	assert.Equal(t, "teleporters.broken", warnings[0].Code)
	assert.Equal(t, unit.ID, warnings[0].CaseUnitID)
	assert.Contains(t, warnings[0].Message, reg.Version())
	assert.False(t, flags.Get("teleporters.broken"))
	assert.True(t, flags.Get("vermin.rats"))
}

func TestComputeFlags_SelectedCodeMissingFromRegistry(t *testing.T) {
	reg := taxonomy.Default()
	sub := normalized(t, sampleRaw(t))
	sub.Issues["legacy.code"] = true
	unit := firstUnit(t, sub)

	flags, warnings := ComputeFlags(unit, sub, reg)

	require.Len(t, warnings, 1)
	assert.Equal(t, "legacy.code", warnings[0].Code)
	_, present := flags["legacy.code"]
	assert.False(t, present)
}

func TestComputeFlags_HouseholdIssuesScopedToUnit(t *testing.T) {
	reg := taxonomy.Default()
	raw := sampleRaw(t)
	raw.Issues = nil
	raw.Plaintiffs[1].Issues = rawIssues(t, map[string]any{"mold.bedroom": true})
	raw.Plaintiffs = append(raw.Plaintiffs,
		models.RawParty{FirstName: "Ana", LastName: "Ruiz", IsHeadOfHousehold: true, Unit: "7"})
	sub := normalized(t, raw)
	units, err := BuildCaseUnits(sub)
	require.NoError(t, err)
	require.Len(t, units, 2)

	lopez, _ := ComputeFlags(units[0], sub, reg)
	ruiz, _ := ComputeFlags(units[1], sub, reg)

	assert.True(t, lopez.Get("mold.bedroom"))
	assert.True(t, lopez.Get("has_mold"))
	assert.True(t, lopez.Get(taxonomy.FlagHouseholdHasMinors))
	assert.False(t, ruiz.Get("mold.bedroom"))
	assert.False(t, ruiz.Get(taxonomy.FlagHouseholdHasMinors))
	assert.NotEqual(t, lopez.Digest(), ruiz.Digest())
}

func TestComputeFlags_BlankUnitsDoNotShareHouseholdIssues(t *testing.T) {
	reg := taxonomy.Default()
	raw := sampleRaw(t)
	raw.Issues = nil
	raw.Plaintiffs = []models.RawParty{
		{FirstName: "Maria", LastName: "Lopez", IsHeadOfHousehold: true},
		{FirstName: "Ana", LastName: "Ruiz", IsHeadOfHousehold: true, IsMinor: true,
			Issues: rawIssues(t, map[string]any{"mold.bedroom": true})},
	}
	sub := normalized(t, raw)
	units, err := BuildCaseUnits(sub)
	require.NoError(t, err)
	require.Len(t, units, 2)

	lopez, _ := ComputeFlags(units[0], sub, reg)
	ruiz, _ := ComputeFlags(units[1], sub, reg)

	require.Len(t, units[0].Household(), 1)
	assert.False(t, lopez.Get("mold.bedroom"))
	assert.False(t, lopez.Get(taxonomy.FlagHouseholdHasMinors))
	assert.True(t, ruiz.Get("mold.bedroom"))
	assert.True(t, ruiz.Get(taxonomy.FlagHouseholdHasMinors))
}

func TestComputeFlags_DefendantKindBoth(t *testing.T) {
	reg := taxonomy.Default()
	raw := sampleRaw(t)
	raw.Defendants[0].Kind = "both"
	sub := normalized(t, raw)

	flags, _ := ComputeFlags(firstUnit(t, sub), sub, reg)

	assert.True(t, flags.Get(taxonomy.FlagDefendantIsOwner))
	assert.True(t, flags.Get(taxonomy.FlagDefendantIsManager))
}
