package pipeline

import (
	"encoding/hex"
	"fmt"
	"strings"

	"discoverydraft-backend/catalog"
	"discoverydraft-backend/models"

	"golang.org/x/crypto/blake2b"
)

// BuildCaption collects the header data for a case unit's documents
func BuildCaption(sub *models.IntakeSubmission, unit models.CaseUnit) models.Caption {
	caption := models.Caption{
		CaseNumber:   sub.CaseNumber,
		Court:        sub.Court,
		County:       sub.County,
		Plaintiff:    unit.Plaintiff.DisplayName(),
		Defendant:    unit.Defendant.DisplayName(),
		Plaintiffs:   make([]string, 0, len(unit.Roster.Plaintiffs)),
		Defendants:   make([]string, 0, len(unit.Roster.Defendants)),
		Property:     sub.Property.String(),
		PropertyUnit: unit.Plaintiff.Unit,
	}
	for _, p := range unit.Roster.Plaintiffs {
		caption.Plaintiffs = append(caption.Plaintiffs, p.DisplayName())
	}
	for _, d := range unit.Roster.Defendants {
		caption.Defendants = append(caption.Defendants, d.DisplayName())
	}
	return caption
}

// BuildRequests packages a unit's document sets as generation requests with
// item text rendered against the caption.
func BuildRequests(
	sub *models.IntakeSubmission,
	unit models.CaseUnit,
	flags models.Flags,
	sets []models.DocumentSet,
	cat *catalog.Catalog,
) ([]models.GenerationRequest, error) {
	caption := BuildCaption(sub, unit)
	property := caption.Property
	if unit.Plaintiff.Unit != "" && sub.Property.Unit == "" {
		property = sub.Property.Street + ", Unit " + unit.Plaintiff.Unit
	}
	data := catalog.TextData{
		CaseNumber: sub.CaseNumber,
		Plaintiff:  caption.Plaintiff,
		Plaintiffs: strings.Join(caption.Plaintiffs, ", "),
		Defendant:  caption.Defendant,
		Property:   property,
	}
	digest := flags.Digest()

	requests := make([]models.GenerationRequest, 0, len(sets))
	for _, set := range sets {
		items := make([]models.SetItem, 0, len(set.Items))
		for _, item := range set.Items {
			text, err := cat.RenderText(set.Type, item.ItemID, data)
			if err != nil {
				return nil, err
			}
			items = append(items, models.SetItem{
				LocalNumber: item.LocalNumber,
				ItemID:      item.ItemID,
				Text:        text,
			})
		}

		requestID := fmt.Sprintf("%s/%s/%d", unit.ID, set.Type, set.SetIndex)
		requests = append(requests, models.GenerationRequest{
			RequestID:      requestID,
			CaseUnitID:     unit.ID,
			CaseNumber:     sub.CaseNumber,
			Type:           set.Type,
			Title:          set.Type.Title(),
			SetIndex:       set.SetIndex,
			SetCount:       set.SetCount,
			SetLabel:       set.Label(),
			Caption:        caption,
			Items:          items,
			FlagsDigest:    digest,
			IdempotencyKey: idempotencyKey(sub.CaseNumber, requestID, digest, items),
		})
	}
	return requests, nil
}

// idempotencyKey identifies a request's content so the renderer can drop
// duplicate submissions from retries or re-runs.
func idempotencyKey(caseNumber, requestID, digest string, items []models.SetItem) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s\n%s\n%s\n", caseNumber, requestID, digest)
	for _, item := range items {
		fmt.Fprintf(h, "%d:%s\n", item.LocalNumber, item.ItemID)
	}
	return hex.EncodeToString(h.Sum(nil))
}
