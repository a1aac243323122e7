package pipeline

import (
	"strings"
	"testing"

	"discoverydraft-backend/models"
	"discoverydraft-backend/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Valid(t *testing.T) {
	sub := normalized(t, sampleRaw(t))

	assert.Equal(t, "24STCV01234", sub.CaseNumber)
	assert.Equal(t, "CA", sub.Property.State)
	assert.Equal(t, taxonomy.Default().Version(), sub.TaxonomyVersion)

	require.Len(t, sub.Plaintiffs, 2)
	assert.Equal(t, "P1", sub.Plaintiffs[0].ID)
	assert.Equal(t, "P2", sub.Plaintiffs[1].ID)
	assert.True(t, sub.Plaintiffs[0].IsHeadOfHousehold)
	assert.False(t, sub.Plaintiffs[1].IsHeadOfHousehold)

	require.Len(t, sub.Defendants, 1)
	assert.Equal(t, "D1", sub.Defendants[0].ID)
	assert.Equal(t, models.DefendantOwner, sub.Defendants[0].Kind)
	assert.True(t, sub.Defendants[0].IsEntity)

	assert.Equal(t, []string{"plumbing.leaks", "vermin.rats"}, sub.Issues.Codes())
	assert.Empty(t, sub.UnknownIssueCodes)
}

func TestNormalize_CollectsAllFieldErrors(t *testing.T) {
	raw := &models.RawSubmission{
		Plaintiffs: []models.RawParty{{FirstName: "Ana"}},
		Defendants: []models.RawParty{{LastName: "Smith", FirstName: "Bob", Kind: "tenant"}},
	}

	_, err := Normalize(raw, taxonomy.Default())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{
		"case_number",
		"property.street",
		"property.city",
		"plaintiffs[0].name",
		"defendants[0].kind",
	}, fields)
}

func TestNormalize_NilSubmission(t *testing.T) {
	_, err := Normalize(nil, taxonomy.Default())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "submission", verr.Fields[0].Field)
}

func TestNormalize_DuplicatePartyIDs(t *testing.T) {
	raw := sampleRaw(t)
	raw.Plaintiffs[0].ID = "X"
	raw.Defendants[0].ID = "X"

	_, err := Normalize(raw, taxonomy.Default())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "defendants[0].id", verr.Fields[0].Field)
	assert.Contains(t, verr.Fields[0].Message, "plaintiffs[0]")
}

func TestNormalize_RejectsSeparatorsInPartyIDs(t *testing.T) {
	raw := sampleRaw(t)
	raw.Plaintiffs[0].ID = "A"
	raw.Plaintiffs[1].ID = "A-B"
	raw.Defendants = []models.RawParty{
		{ID: "B-C", EntityName: "Acme Properties LLC", Kind: "owner"},
		{ID: "C/1", EntityName: "Best Management Inc", Kind: "manager"},
	}

	_, err := Normalize(raw, taxonomy.Default())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"plaintiffs[1].id", "defendants[0].id", "defendants[1].id"}, fields)
}

func TestNormalize_CaseNumberLength(t *testing.T) {
	raw := sampleRaw(t)
	raw.CaseNumber = strings.Repeat("9", MaxCaseNumberLength)
	_, err := Normalize(raw, taxonomy.Default())
	require.NoError(t, err)

	raw.CaseNumber += "9"
	_, err = Normalize(raw, taxonomy.Default())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "case_number", verr.Fields[0].Field)
}

func TestNormalize_LonePlaintiffBecomesHead(t *testing.T) {
	raw := sampleRaw(t)
	raw.Plaintiffs = []models.RawParty{{FirstName: "Maria", LastName: "Lopez"}}

	sub := normalized(t, raw)

	assert.True(t, sub.Plaintiffs[0].IsHeadOfHousehold)
}

func TestNormalize_UnknownCodesRecorded(t *testing.T) {
	raw := sampleRaw(t)
	raw.Issues = rawIssues(t, map[string]any{
		"vermin":             map[string]any{"rats": true, "dragons": true},
		"teleporters.broken": true,
		"plumbing.leaks":     false,
	})

	sub := normalized(t, raw)

	assert.Equal(t, []string{"vermin.rats"}, sub.Issues.Codes())
	assert.Equal(t, []string{"teleporters.broken", "vermin.dragons"}, sub.UnknownIssueCodes)
}

func TestNormalize_CheckboxValues(t *testing.T) {
	raw := sampleRaw(t)
	raw.Issues = rawIssues(t, map[string]any{
		"vermin.rats":    "on",
		"vermin.mice":    "off",
		"plumbing.leaks": nil,
		"insects":        map[string]any{"roaches": "true", "ants": 1},
	})

	sub := normalized(t, raw)

	assert.Equal(t, []string{"insects.roaches", "vermin.rats"}, sub.Issues.Codes())
}

func TestNormalize_HouseholdIssues(t *testing.T) {
	raw := sampleRaw(t)
	raw.Plaintiffs[1].Issues = rawIssues(t, map[string]any{
		"mildew":           map[string]bool{"bedroom": true},
		"insects.bed_bugs": true,
		"vermin.unicorns":  true,
	})

	sub := normalized(t, raw)

	assert.Empty(t, sub.Plaintiffs[0].HouseholdIssues.Codes())
	assert.Equal(t, []string{"insects.bedbugs", "mold.bedroom"}, sub.Plaintiffs[1].HouseholdIssues.Codes())
	assert.Equal(t, []string{"vermin.unicorns"}, sub.Plaintiffs[1].UnknownIssueCodes)
}

func TestParseDefendantKind(t *testing.T) {
	tests := []struct {
		in   string
		want models.DefendantKind
		ok   bool
	}{
		{"", "", true},
		{"Owner", models.DefendantOwner, true},
		{"landlord", models.DefendantOwner, true},
		{"Property Manager", models.DefendantManager, true},
		{"management-company", models.DefendantManager, true},
		{"both", models.DefendantBoth, true},
		{"tenant", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseDefendantKind(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	got := normalizeAddress(models.RawAddress{
		Street: " 9 Elm ", City: "Pasadena", State: " ca", Zip: "91101 - 1234",
	})

	assert.Equal(t, models.Address{Street: "9 Elm", City: "Pasadena", State: "CA", Zip: "91101-1234"}, got)
	assert.Equal(t, "9 Elm, Pasadena, CA 91101-1234", got.String())
}
