package filter

import (
	"strings"

	"github.com/blockedby/kandra/internal/models"
)

// Matches reports whether job satisfies s. Flags in the same group combine
// with OR, groups combine with AND; an empty group imposes nothing. The
// numeric range and the salary buckets are separate groups.
func (s State) Matches(job models.JobPosting) bool {
	if q := strings.TrimSpace(s.SearchQuery); q != "" && !matchesText(job, q) {
		return false
	}

	if s.Category != "" && s.Category != CategoryAny && !strings.EqualFold(job.Category, s.Category) {
		return false
	}

	if anyActive(s.JobTypes) && !s.JobTypes[job.Kind] {
		return false
	}

	if anyActive(s.Levels) && !s.Levels[job.ExperienceLevel] {
		return false
	}

	if s.salaryConstrained() && !job.Salary.InRange(float64(s.SalaryMin), float64(s.SalaryMax)) {
		return false
	}

	if anyActive(s.SalaryOptions) && !s.matchesSalaryOption(job.Salary) {
		return false
	}

	if s.Proposals != ProposalsAny {
		lo, hi := s.Proposals.Bounds()
		if job.Proposals < lo || (hi >= 0 && job.Proposals > hi) {
			return false
		}
	}

	return true
}

func (s State) matchesSalaryOption(sal models.Salary) bool {
	for opt, on := range s.SalaryOptions {
		if !on {
			continue
		}
		switch opt {
		case SalaryUnder100:
			if upper, ok := salaryUpper(sal); ok && upper < 100 {
				return true
			}
		case Salary100To1k:
			if sal.InRange(100, 1000) {
				return true
			}
		case SalaryHourly:
			if isHourly(sal.Text) {
				return true
			}
		}
	}
	return false
}

func salaryUpper(sal models.Salary) (float64, bool) {
	switch {
	case sal.Max != nil:
		return *sal.Max, true
	case sal.Min != nil:
		return *sal.Min, true
	}
	return 0, false
}

func isHourly(text string) bool {
	t := strings.ToLower(text)
	for _, marker := range []string{"/h", "hour", "heure", "hourly"} {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}

func matchesText(job models.JobPosting, q string) bool {
	q = strings.ToLower(q)
	fields := []string{job.Title, job.Company, job.Description, job.Location, job.Category}
	fields = append(fields, job.Skills...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func anyActive[K comparable](flags map[K]bool) bool {
	for _, on := range flags {
		if on {
			return true
		}
	}
	return false
}
