package filter

import (
	"fmt"

	"github.com/blockedby/kandra/internal/models"
)

// Op names accepted by Apply.
const (
	OpSetSearchQuery        = "set_search_query"
	OpSetCategory           = "set_category"
	OpToggleJobType         = "toggle_job_type"
	OpToggleExperienceLevel = "toggle_experience_level"
	OpSetSalaryRange        = "set_salary_range"
	OpToggleSalaryOption    = "toggle_salary_option"
	OpSetProposalCount      = "set_proposal_count"
	OpSetPanelExpanded      = "set_panel_expanded"
	OpReset                 = "reset"
)

// Op is a serialized transition, as sent by a view.
type Op struct {
	Op       string `json:"op"`
	Value    string `json:"value,omitempty"`
	Min      int    `json:"min,omitempty"`
	Max      int    `json:"max,omitempty"`
	Expanded bool   `json:"expanded,omitempty"`
}

// Apply runs op on s. Unknown keys inside a known op are no-ops; an unknown
// op name is an error.
func (s State) Apply(op Op) (State, error) {
	switch op.Op {
	case OpSetSearchQuery:
		return s.SetSearchQuery(op.Value), nil
	case OpSetCategory:
		return s.SetCategory(op.Value), nil
	case OpToggleJobType:
		kind, ok := models.ParseOfferKind(op.Value)
		if !ok {
			return s, nil
		}
		return s.ToggleJobType(kind), nil
	case OpToggleExperienceLevel:
		level, ok := models.ParseExperienceLevel(op.Value)
		if !ok {
			return s, nil
		}
		return s.ToggleExperienceLevel(level), nil
	case OpSetSalaryRange:
		return s.SetSalaryRange(op.Min, op.Max), nil
	case OpToggleSalaryOption:
		return s.ToggleSalaryOption(SalaryOption(op.Value)), nil
	case OpSetProposalCount:
		return s.SetProposalCount(ProposalBucket(op.Value)), nil
	case OpSetPanelExpanded:
		return s.SetPanelExpanded(op.Expanded), nil
	case OpReset:
		return s.Reset(), nil
	}
	return s, fmt.Errorf("unknown filter op %q", op.Op)
}
