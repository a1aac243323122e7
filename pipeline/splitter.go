package pipeline

import (
	"fmt"

	"discoverydraft-backend/models"
)

// SplitProfile partitions a profile into ceil(N/limit) contiguous sets of at
// most limit items. Items keep their relative order and are renumbered from 1
// within each set. An empty profile yields no sets.
func SplitProfile(profile models.DocumentProfile, limit int) ([]models.DocumentSet, error) {
	if limit < 1 {
		return nil, fmt.Errorf("item limit for %s must be at least 1, got %d", profile.Type, limit)
	}
	n := len(profile.Items)
	if n == 0 {
		return nil, nil
	}

	count := (n + limit - 1) / limit
	sets := make([]models.DocumentSet, 0, count)
	for start := 0; start < n; start += limit {
		end := min(start+limit, n)
		items := make([]models.SetItem, 0, end-start)
		for i, item := range profile.Items[start:end] {
			items = append(items, models.SetItem{
				LocalNumber: i + 1,
				ItemID:      item.ID,
				Text:        item.Text,
			})
		}
		sets = append(sets, models.DocumentSet{
			CaseUnitID: profile.CaseUnitID,
			Type:       profile.Type,
			SetIndex:   len(sets) + 1,
			SetCount:   count,
			Items:      items,
		})
	}
	return sets, nil
}
