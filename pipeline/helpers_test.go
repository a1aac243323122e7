package pipeline

import (
	"encoding/json"
	"fmt"
	"testing"

	"discoverydraft-backend/catalog"
	"discoverydraft-backend/models"
	"discoverydraft-backend/taxonomy"

	"github.com/stretchr/testify/require"
)

func rawIssues(t *testing.T, values map[string]any) models.RawIssues {
	t.Helper()
	out := make(models.RawIssues, len(values))
	for key, value := range values {
		data, err := json.Marshal(value)
		require.NoError(t, err)
		out[key] = data
	}
	return out
}

// sampleRaw is a household of two plaintiffs (one head of household, one
// minor) against a single corporate owner.
func sampleRaw(t *testing.T) *models.RawSubmission {
	t.Helper()
	return &models.RawSubmission{
		CaseNumber: "24STCV01234",
		Court:      "Superior Court of California",
		County:     "Los Angeles",
		Property: models.RawAddress{
			Street: "123 Main St",
			City:   "Los Angeles",
			State:  "ca",
			Zip:    "90012",
		},
		Plaintiffs: []models.RawParty{
			{FirstName: "Maria", LastName: "Lopez", IsHeadOfHousehold: true, Unit: "4"},
			{FirstName: "Diego", LastName: "Lopez", Unit: "4", IsMinor: true},
		},
		Defendants: []models.RawParty{
			{EntityName: "Acme Properties LLC", Kind: "owner", IsEntity: true},
		},
		Issues: rawIssues(t, map[string]any{
			"vermin":         map[string]bool{"rats": true, "mice": false},
			"plumbing.leaks": true,
		}),
	}
}

func normalized(t *testing.T, raw *models.RawSubmission) *models.IntakeSubmission {
	t.Helper()
	sub, err := Normalize(raw, taxonomy.Default())
	require.NoError(t, err)
	return sub
}

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default(taxonomy.Default())
	require.NoError(t, err)
	return cat
}

// syntheticCatalog builds a catalog with n unconditional SROG items and no
// PODs or admissions.
func syntheticCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	items := make([]catalog.TemplateItem, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, catalog.TemplateItem{
			ID:   fmt.Sprintf("S-%03d", i),
			Text: fmt.Sprintf("Question %d for {{.Defendant}} about {{.Property}}.", i),
		})
	}
	cat, err := catalog.New(taxonomy.Default(), catalog.Template{
		Type:    models.DocSROGs,
		Version: "test",
		Items:   items,
	})
	require.NoError(t, err)
	return cat
}
