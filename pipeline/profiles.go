package pipeline

import (
	"discoverydraft-backend/catalog"
	"discoverydraft-backend/models"
)

// AssembleProfiles returns one profile per document type, in canonical type
// order. A type with no eligible items yields an empty profile.
func AssembleProfiles(unit models.CaseUnit, flags models.Flags, cat *catalog.Catalog) []models.DocumentProfile {
	profiles := make([]models.DocumentProfile, 0, len(models.DocumentTypes))
	for _, docType := range models.DocumentTypes {
		profiles = append(profiles, AssembleProfile(unit.ID, docType, flags, cat))
	}
	return profiles
}

// AssembleProfile filters one template by flags, keeping template order.
// Item.Number is the item's position in the full template so the original
// numbering stays traceable.
func AssembleProfile(unitID string, docType models.DocumentType, flags models.Flags, cat *catalog.Catalog) models.DocumentProfile {
	tmpl := cat.Template(docType)
	profile := models.DocumentProfile{
		CaseUnitID: unitID,
		Type:       docType,
		Items:      make([]models.Item, 0, len(tmpl.Items)),
	}

	seen := make(map[string]bool, len(tmpl.Items))
	for i, item := range tmpl.Items {
		if seen[item.ID] || !item.Eligible(flags) {
			continue
		}
		seen[item.ID] = true
		profile.Items = append(profile.Items, models.Item{
			ID:     item.ID,
			Number: i + 1,
			Text:   item.Text,
		})
	}
	return profile
}
