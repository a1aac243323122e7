package pipeline

import (
	"testing"

	"discoverydraft-backend/catalog"
	"discoverydraft-backend/models"
	"discoverydraft-backend/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleProfiles_CanonicalOrder(t *testing.T) {
	reg := taxonomy.Default()
	cat := defaultCatalog(t)
	sub := normalized(t, sampleRaw(t))
	unit := firstUnit(t, sub)
	flags, _ := ComputeFlags(unit, sub, reg)

	profiles := AssembleProfiles(unit, flags, cat)

	require.Len(t, profiles, 3)
	for i, docType := range models.DocumentTypes {
		assert.Equal(t, docType, profiles[i].Type)
		assert.Equal(t, unit.ID, profiles[i].CaseUnitID)
	}
}

func TestAssembleProfile_FiltersAndKeepsTemplateOrder(t *testing.T) {
	reg := taxonomy.Default()
	cat := defaultCatalog(t)
	sub := normalized(t, sampleRaw(t))
	unit := firstUnit(t, sub)
	flags, _ := ComputeFlags(unit, sub, reg)

	profile := AssembleProfile(unit.ID, models.DocSROGs, flags, cat)

	ids := make(map[string]bool, len(profile.Items))
	last := 0
	for _, item := range profile.Items {
		assert.False(t, ids[item.ID], "duplicate item %s", item.ID)
		ids[item.ID] = true
		assert.Greater(t, item.Number, last, "items out of template order")
		last = item.Number
	}

	// owner-only item included, manager-only item excluded
	assert.True(t, ids["SROG-003"])
	assert.False(t, ids["SROG-004"])
	assert.True(t, ids["SROG-020"])

	for _, tmplItem := range cat.Template(models.DocSROGs).Items {
		assert.Equal(t, tmplItem.Eligible(flags), ids[tmplItem.ID], tmplItem.ID)
	}
}

func TestAssembleProfile_NoEligibleItems(t *testing.T) {
	cat, err := catalog.New(taxonomy.Default(), catalog.Template{
		Type: models.DocPODs,
		Items: []catalog.TemplateItem{
			{ID: "POD-X", Text: "Documents about rats.", When: &catalog.Predicate{Flag: "has_vermin"}},
		},
	})
	require.NoError(t, err)

	profile := AssembleProfile("P1-D1", models.DocPODs, models.Flags{"has_vermin": false}, cat)

	assert.NotNil(t, profile.Items)
	assert.Empty(t, profile.Items)

	profile = AssembleProfile("P1-D1", models.DocAdmissions, models.Flags{}, cat)
	assert.NotNil(t, profile.Items)
	assert.Empty(t, profile.Items)
}

func TestAssembleProfile_FlagChangesSelection(t *testing.T) {
	cat := defaultCatalog(t)
	reg := taxonomy.Default()
	sub := normalized(t, sampleRaw(t))
	unit := firstUnit(t, sub)
	flags, _ := ComputeFlags(unit, sub, reg)

	without := AssembleProfile(unit.ID, models.DocSROGs, flags, cat)
	flags[taxonomy.FlagDefendantIsManager] = true
	with := AssembleProfile(unit.ID, models.DocSROGs, flags, cat)

	assert.Greater(t, len(with.Items), len(without.Items))
}
