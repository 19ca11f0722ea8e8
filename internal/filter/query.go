package filter

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/blockedby/kandra/internal/models"
)

// Query parameter names understood by the jobs endpoint.
const (
	ParamQuery         = "q"
	ParamCategory      = "category"
	ParamTypes         = "types"
	ParamLevels        = "levels"
	ParamSalaryOptions = "salary_options"
	ParamSalaryMin     = "salary_min"
	ParamSalaryMax     = "salary_max"
	ParamProposals     = "proposals"
)

// QueryParams derives the jobs query from s. Only active constraints are
// emitted; calling it never changes s.
func (s State) QueryParams() url.Values {
	v := url.Values{}

	if q := strings.TrimSpace(s.SearchQuery); q != "" {
		v.Set(ParamQuery, q)
	}
	if s.Category != "" && s.Category != CategoryAny {
		v.Set(ParamCategory, s.Category)
	}

	var types []string
	for _, k := range models.OfferKinds {
		if s.JobTypes[k] {
			types = append(types, string(k))
		}
	}
	if len(types) > 0 {
		v.Set(ParamTypes, strings.Join(types, ","))
	}

	var levels []string
	for _, l := range models.ExperienceLevels {
		if s.Levels[l] {
			levels = append(levels, string(l))
		}
	}
	if len(levels) > 0 {
		v.Set(ParamLevels, strings.Join(levels, ","))
	}

	var opts []string
	for o, on := range s.SalaryOptions {
		if on {
			opts = append(opts, string(o))
		}
	}
	if len(opts) > 0 {
		sort.Strings(opts)
		v.Set(ParamSalaryOptions, strings.Join(opts, ","))
	}

	if s.salaryConstrained() {
		v.Set(ParamSalaryMin, strconv.Itoa(s.SalaryMin))
		v.Set(ParamSalaryMax, strconv.Itoa(s.SalaryMax))
	}

	if s.Proposals != ProposalsAny {
		v.Set(ParamProposals, string(s.Proposals))
	}
	return v
}

func (s State) salaryConstrained() bool {
	return s.SalaryMin != s.Domain.SalaryMin || s.SalaryMax != s.Domain.SalaryMax
}

// FromQuery rebuilds a State from query parameters. Unknown keys and values
// are ignored, so FromQuery(s.QueryParams(), s.Domain) equals s.
func FromQuery(v url.Values, d Domain) State {
	s := Default(d)

	s = s.SetSearchQuery(v.Get(ParamQuery))
	s = s.SetCategory(v.Get(ParamCategory))

	for _, k := range splitList(v[ParamTypes]) {
		if kind, ok := models.ParseOfferKind(k); ok && !s.JobTypes[kind] {
			s = s.ToggleJobType(kind)
		}
	}
	for _, l := range splitList(v[ParamLevels]) {
		if level, ok := models.ParseExperienceLevel(l); ok && !s.Levels[level] {
			s = s.ToggleExperienceLevel(level)
		}
	}
	for _, o := range splitList(v[ParamSalaryOptions]) {
		if on, known := s.SalaryOptions[SalaryOption(o)]; known && !on {
			s = s.ToggleSalaryOption(SalaryOption(o))
		}
	}

	lo, hi := s.SalaryMin, s.SalaryMax
	if n, err := strconv.Atoi(v.Get(ParamSalaryMin)); err == nil {
		lo = n
	}
	if n, err := strconv.Atoi(v.Get(ParamSalaryMax)); err == nil {
		hi = n
	}
	s = s.SetSalaryRange(lo, hi)

	s = s.SetProposalCount(ProposalBucket(v.Get(ParamProposals)))
	return s
}

// splitList accepts both repeated parameters and comma-joined values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
