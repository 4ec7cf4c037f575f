package filter

import (
	"math"

	"go-cvlibrary-scraper/internal/models"
)

// CompletenessScore is the share of the six key fields that were captured:
// name, title, location, expected salary, skills and a way to contact the
// candidate. Rounded to two decimals.
func CompletenessScore(info *models.CandidateInfo) float64 {
	if info == nil {
		return 0
	}
	d := info.PersonalJobDetails
	checks := []bool{
		info.Name != "",
		info.Title() != "",
		d.Location != nil || d.Town != nil,
		d.ExpectedSalary != nil,
		len(info.MainSkills) > 0,
		info.HasContact(),
	}

	filled := 0
	for _, ok := range checks {
		if ok {
			filled++
		}
	}
	return math.Round(float64(filled)/float64(len(checks))*100) / 100
}
