package pipeline

import "discoverydraft-backend/models"

// BuildCaseUnits pairs every head-of-household plaintiff with every
// defendant, plaintiff-major in declared order. Joint filings are not
// collapsed; each pair becomes its own unit.
func BuildCaseUnits(sub *models.IntakeSubmission) ([]models.CaseUnit, error) {
	heads := sub.HeadsOfHousehold()
	if len(heads) == 0 || len(sub.Defendants) == 0 {
		return nil, &IncompleteCaseError{HeadsOfHousehold: len(heads), Defendants: len(sub.Defendants)}
	}

	roster := models.Roster{
		Plaintiffs: append([]models.Party(nil), sub.Plaintiffs...),
		Defendants: append([]models.Party(nil), sub.Defendants...),
	}

	units := make([]models.CaseUnit, 0, len(heads)*len(sub.Defendants))
	for _, p := range heads {
		for _, d := range sub.Defendants {
			units = append(units, models.CaseUnit{
				ID:        p.ID + "-" + d.ID,
				Index:     len(units),
				Plaintiff: p,
				Defendant: d,
				Roster:    roster,
			})
		}
	}
	return units, nil
}
