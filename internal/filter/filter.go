// Package filter holds the candidate's search criteria as an immutable value.
// Every transition returns a new State; nothing here performs I/O.
package filter

import (
	"strings"

	"github.com/blockedby/kandra/internal/models"
)

// CategoryAny is the category sentinel meaning "no category constraint".
const CategoryAny = "any"

// SalaryOption is a salary bucket independent of the numeric range.
type SalaryOption string

// SalaryOption constants.
const (
	SalaryUnder100 SalaryOption = "under_100"
	Salary100To1k  SalaryOption = "100_1k"
	SalaryHourly   SalaryOption = "hourly"
)

// SalaryOptions lists every bucket in display order.
var SalaryOptions = []SalaryOption{SalaryUnder100, Salary100To1k, SalaryHourly}

// ProposalBucket is a single-select range of received proposals.
type ProposalBucket string

// ProposalBucket constants. ProposalsAny means no constraint.
const (
	ProposalsAny     ProposalBucket = ""
	ProposalsUnder5  ProposalBucket = "lt_5"
	Proposals5To10   ProposalBucket = "5_10"
	Proposals10To20  ProposalBucket = "10_20"
	Proposals20To50  ProposalBucket = "20_50"
	ProposalsAbove50 ProposalBucket = "50_plus"
)

// ProposalBuckets lists every non-empty bucket.
var ProposalBuckets = []ProposalBucket{ProposalsUnder5, Proposals5To10, Proposals10To20, Proposals20To50, ProposalsAbove50}

// Bounds returns the inclusive proposal range of b. hi < 0 means unbounded.
func (b ProposalBucket) Bounds() (lo, hi int) {
	switch b {
	case ProposalsUnder5:
		return 0, 4
	case Proposals5To10:
		return 5, 10
	case Proposals10To20:
		return 11, 20
	case Proposals20To50:
		return 21, 50
	case ProposalsAbove50:
		return 51, -1
	}
	return 0, -1
}

func (b ProposalBucket) valid() bool {
	if b == ProposalsAny {
		return true
	}
	for _, x := range ProposalBuckets {
		if x == b {
			return true
		}
	}
	return false
}

// Domain is the slider range of the salary filter, in thousands.
type Domain struct {
	SalaryMin int `json:"salary_min"`
	SalaryMax int `json:"salary_max"`
}

// DefaultDomain is used when no configuration overrides it.
var DefaultDomain = Domain{SalaryMin: 10, SalaryMax: 100}

// State is the current search intent. Treat it as a value: maps are never
// shared between two States.
type State struct {
	SearchQuery   string                          `json:"search_query"`
	Category      string                          `json:"category"`
	JobTypes      map[models.OfferKind]bool       `json:"job_types"`
	Levels        map[models.ExperienceLevel]bool `json:"levels"`
	SalaryMin     int                             `json:"salary_min"`
	SalaryMax     int                             `json:"salary_max"`
	SalaryOptions map[SalaryOption]bool           `json:"salary_options"`
	Proposals     ProposalBucket                  `json:"proposals,omitempty"`

	// UI-only, not part of the search intent
	PanelExpanded bool `json:"panel_expanded"`

	Domain Domain `json:"domain"`
}

// Default returns the initial state for domain.
func Default(d Domain) State {
	if d.SalaryMin >= d.SalaryMax {
		d = DefaultDomain
	}

	s := State{
		Category:      CategoryAny,
		JobTypes:      make(map[models.OfferKind]bool, len(models.OfferKinds)),
		Levels:        make(map[models.ExperienceLevel]bool, len(models.ExperienceLevels)),
		SalaryOptions: make(map[SalaryOption]bool, len(SalaryOptions)),
		SalaryMin:     d.SalaryMin,
		SalaryMax:     d.SalaryMax,
		Domain:        d,
	}
	for _, k := range models.OfferKinds {
		s.JobTypes[k] = false
	}
	for _, l := range models.ExperienceLevels {
		s.Levels[l] = false
	}
	for _, o := range SalaryOptions {
		s.SalaryOptions[o] = false
	}
	return s
}

// Clone returns a copy that shares no maps with s.
func (s State) Clone() State {
	return s.clone()
}

// clone deep-copies the maps so transitions never alias the receiver.
func (s State) clone() State {
	out := s
	out.JobTypes = make(map[models.OfferKind]bool, len(s.JobTypes))
	for k, v := range s.JobTypes {
		out.JobTypes[k] = v
	}
	out.Levels = make(map[models.ExperienceLevel]bool, len(s.Levels))
	for k, v := range s.Levels {
		out.Levels[k] = v
	}
	out.SalaryOptions = make(map[SalaryOption]bool, len(s.SalaryOptions))
	for k, v := range s.SalaryOptions {
		out.SalaryOptions[k] = v
	}
	return out
}

// SetSearchQuery sets the free-text query.
func (s State) SetSearchQuery(text string) State {
	out := s.clone()
	out.SearchQuery = text
	return out
}

// SetCategory selects a single category. An empty value means any.
func (s State) SetCategory(category string) State {
	out := s.clone()
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, CategoryAny) {
		category = CategoryAny
	}
	out.Category = category
	return out
}

// ToggleJobType flips one job type flag. Unknown kinds are ignored.
func (s State) ToggleJobType(kind models.OfferKind) State {
	out := s.clone()
	if _, ok := out.JobTypes[kind]; ok {
		out.JobTypes[kind] = !out.JobTypes[kind]
	}
	return out
}

// ToggleExperienceLevel flips one level flag. Unknown levels are ignored.
func (s State) ToggleExperienceLevel(level models.ExperienceLevel) State {
	out := s.clone()
	if _, ok := out.Levels[level]; ok {
		out.Levels[level] = !out.Levels[level]
	}
	return out
}

// SetSalaryRange sets the numeric range, clamped to the domain. Inverted
// bounds are swapped so SalaryMin <= SalaryMax always holds.
func (s State) SetSalaryRange(lo, hi int) State {
	out := s.clone()
	if lo > hi {
		lo, hi = hi, lo
	}
	out.SalaryMin = clamp(lo, s.Domain.SalaryMin, s.Domain.SalaryMax)
	out.SalaryMax = clamp(hi, s.Domain.SalaryMin, s.Domain.SalaryMax)
	return out
}

// ToggleSalaryOption flips one salary bucket. Unknown buckets are ignored.
func (s State) ToggleSalaryOption(opt SalaryOption) State {
	out := s.clone()
	if _, ok := out.SalaryOptions[opt]; ok {
		out.SalaryOptions[opt] = !out.SalaryOptions[opt]
	}
	return out
}

// SetProposalCount selects a proposals bucket. Unknown buckets are ignored.
func (s State) SetProposalCount(b ProposalBucket) State {
	out := s.clone()
	if b.valid() {
		out.Proposals = b
	}
	return out
}

// SetPanelExpanded records whether the filter panel is open.
func (s State) SetPanelExpanded(expanded bool) State {
	out := s.clone()
	out.PanelExpanded = expanded
	return out
}

// Reset returns every search field to its default. PanelExpanded survives.
func (s State) Reset() State {
	out := Default(s.Domain)
	out.PanelExpanded = s.PanelExpanded
	return out
}

// Equal reports whether s and other express the same search. PanelExpanded
// is ignored.
func (s State) Equal(other State) bool {
	return s.QueryParams().Encode() == other.QueryParams().Encode()
}

// IsDefault reports whether s carries no constraint at all.
func (s State) IsDefault() bool {
	return len(s.QueryParams()) == 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
