package pipeline

import (
	"testing"

	"discoverydraft-backend/models"
	"discoverydraft-backend/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequests(t *testing.T) {
	reg := taxonomy.Default()
	cat := syntheticCatalog(t, 5)
	sub := normalized(t, sampleRaw(t))
	unit := firstUnit(t, sub)
	flags, _ := ComputeFlags(unit, sub, reg)
	sets, err := SplitProfile(AssembleProfile(unit.ID, models.DocSROGs, flags, cat), 3)
	require.NoError(t, err)

	requests, err := BuildRequests(sub, unit, flags, sets, cat)
	require.NoError(t, err)
	require.Len(t, requests, 2)

	first := requests[0]
	assert.Equal(t, "P1-D1/srogs/1", first.RequestID)
	assert.Equal(t, "24STCV01234", first.CaseNumber)
	assert.Equal(t, "Special Interrogatories", first.Title)
	assert.Equal(t, "1 of 2", first.SetLabel)
	assert.Equal(t, flags.Digest(), first.FlagsDigest)
	assert.Len(t, first.Items, 3)
	assert.Equal(t, "Question 1 for Acme Properties LLC about 123 Main St, Unit 4.", first.Items[0].Text)

	assert.Equal(t, "Maria Lopez", first.Caption.Plaintiff)
	assert.Equal(t, []string{"Maria Lopez", "Diego Lopez"}, first.Caption.Plaintiffs)
	assert.Equal(t, []string{"Acme Properties LLC"}, first.Caption.Defendants)
	assert.Equal(t, "123 Main St, Los Angeles, CA 90012", first.Caption.Property)
	assert.Equal(t, "4", first.Caption.PropertyUnit)

	second := requests[1]
	assert.Equal(t, "2 of 2", second.SetLabel)
	assert.Len(t, second.Items, 2)
	assert.Equal(t, 1, second.Items[0].LocalNumber)
	assert.Equal(t, "S-004", second.Items[0].ItemID)
	assert.NotEqual(t, first.IdempotencyKey, second.IdempotencyKey)
}

func TestBuildRequests_IdempotencyKeyStable(t *testing.T) {
	reg := taxonomy.Default()
	cat := syntheticCatalog(t, 2)
	sub := normalized(t, sampleRaw(t))
	unit := firstUnit(t, sub)
	flags, _ := ComputeFlags(unit, sub, reg)
	sets, err := SplitProfile(AssembleProfile(unit.ID, models.DocSROGs, flags, cat), 120)
	require.NoError(t, err)

	a, err := BuildRequests(sub, unit, flags, sets, cat)
	require.NoError(t, err)
	b, err := BuildRequests(sub, unit, flags, sets, cat)
	require.NoError(t, err)

	assert.Equal(t, a[0].IdempotencyKey, b[0].IdempotencyKey)
	assert.Len(t, a[0].IdempotencyKey, 64)

	flags["vermin.mice"] = true
	c, err := BuildRequests(sub, unit, flags, sets, cat)
	require.NoError(t, err)
	assert.NotEqual(t, a[0].IdempotencyKey, c[0].IdempotencyKey)
}
