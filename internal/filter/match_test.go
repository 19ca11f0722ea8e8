package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blockedby/kandra/internal/models"
)

func f(v float64) *float64 { return &v }

func fixtures() []models.JobPosting {
	return []models.JobPosting{
		{ID: "1", Title: "Go Engineer", Category: "engineering", Kind: models.OfferFullTime, ExperienceLevel: models.LevelExpert, Salary: models.Salary{Min: f(60), Max: f(80)}, Proposals: 3, Skills: []string{"go"}},
		{ID: "2", Title: "UX Intern", Category: "design", Kind: models.OfferInternship, ExperienceLevel: models.LevelEntry, Salary: models.Salary{Min: f(12), Max: f(15)}, Proposals: 12},
		{ID: "3", Title: "Brand Designer", Category: "design", Kind: models.OfferFreelance, ExperienceLevel: models.LevelIntermediate, Salary: models.Salary{Text: "40/h"}, Proposals: 30},
		{ID: "4", Title: "Accountant", Category: "finance", Kind: models.OfferFullTime, ExperienceLevel: models.LevelIntermediate, Salary: models.Salary{Min: f(45), Max: f(55)}, Proposals: 7},
		{ID: "5", Title: "Finance Intern", Category: "finance", Kind: models.OfferInternship, ExperienceLevel: models.LevelEntry, Salary: models.Salary{Min: f(150), Max: f(300)}, Proposals: 60},
		{ID: "6", Title: "Food bank helper", Category: "community", Kind: models.OfferVolunteer, ExperienceLevel: models.LevelEntry, Proposals: 0},
	}
}

func matchingIDs(s State) []string {
	var ids []string
	for _, j := range fixtures() {
		if s.Matches(j) {
			ids = append(ids, j.ID.String())
		}
	}
	return ids
}

func TestMatches(t *testing.T) {
	d := Default(DefaultDomain)

	tests := []struct {
		name  string
		state State
		want  []string
	}{
		{"no constraint", d, []string{"1", "2", "3", "4", "5", "6"}},
		{"category", d.SetCategory("design"), []string{"2", "3"}},
		{"types are OR", d.ToggleJobType(models.OfferInternship).ToggleJobType(models.OfferVolunteer), []string{"2", "5", "6"}},
		{"groups are AND", d.SetCategory("finance").ToggleJobType(models.OfferInternship), []string{"5"}},
		{"levels", d.ToggleExperienceLevel(models.LevelIntermediate), []string{"3", "4"}},
		{"numeric range", d.SetSalaryRange(40, 70), []string{"1", "4"}},
		{"hourly bucket", d.ToggleSalaryOption(SalaryHourly), []string{"3"}},
		{"buckets are OR", d.ToggleSalaryOption(SalaryHourly).ToggleSalaryOption(Salary100To1k), []string{"3", "5"}},
		{"proposals", d.SetProposalCount(Proposals5To10), []string{"4"}},
		{"text", d.SetSearchQuery("intern"), []string{"2", "5"}},
		{"skills text", d.SetSearchQuery("GO"), []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchingIDs(tt.state))
		})
	}
}

// Every job admitted by a filter is consistent with each active flag.
func TestMatches_NoFalsePositives(t *testing.T) {
	d := Default(DefaultDomain)
	var states []State
	for _, k := range models.OfferKinds {
		for _, l := range models.ExperienceLevels {
			for _, c := range []string{CategoryAny, "design", "finance"} {
				states = append(states, d.ToggleJobType(k).ToggleExperienceLevel(l).SetCategory(c))
			}
		}
	}

	for _, s := range states {
		for _, j := range fixtures() {
			if !s.Matches(j) {
				continue
			}
			assert.True(t, s.JobTypes[j.Kind])
			assert.True(t, s.Levels[j.ExperienceLevel])
			if s.Category != CategoryAny {
				assert.True(t, strings.EqualFold(s.Category, j.Category))
			}
		}
	}
}
