package jobs

import (
	"github.com/blockedby/kandra/internal/filter"
	"github.com/blockedby/kandra/internal/models"
)

// Phase is the list-fetch lifecycle: Idle -> Loading -> Loaded|Errored.
type Phase string

// Phase constants.
const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseErrored Phase = "errored"
)

// Op identifies one of the independent list operations.
type Op string

// Op constants.
const (
	OpInitial  Op = "initial"
	OpLoadMore Op = "load_more"
	OpSearch   Op = "search"
)

// OpState is the loading/error pair of one operation. Err is a user-facing
// message, empty when the last attempt succeeded.
type OpState struct {
	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`
}

// State is a read-only snapshot of the job listing.
type State struct {
	Jobs     []models.JobPosting `json:"jobs"`
	Offset   int                 `json:"offset"`
	Limit    int                 `json:"limit"`
	HasMore  bool                `json:"has_more"`
	Total    int                 `json:"total,omitempty"`
	HasTotal bool                `json:"has_total"`
	Phase    Phase               `json:"phase"`

	Initial  OpState `json:"initial"`
	LoadMore OpState `json:"load_more"`
	Search   OpState `json:"search"`

	Filter filter.State `json:"filter"`

	Selected *models.JobPosting `json:"selected,omitempty"`
	Details  OpState            `json:"details"`

	Bookmarks        map[models.ID]bool  `json:"bookmarks"`
	PendingBookmarks map[models.ID]bool  `json:"pending_bookmarks"`
	Saved            []models.JobPosting `json:"saved"`
	Bookmark         OpState             `json:"bookmark"`
}

func (s *State) op(op Op) *OpState {
	switch op {
	case OpLoadMore:
		return &s.LoadMore
	case OpSearch:
		return &s.Search
	default:
		return &s.Initial
	}
}

func (s State) anyLoading() bool {
	return s.Initial.Loading || s.LoadMore.Loading || s.Search.Loading
}

func (s State) clone() State {
	out := s
	out.Jobs = cloneJobs(s.Jobs)
	out.Saved = cloneJobs(s.Saved)
	if s.Selected != nil {
		sel := s.Selected.Clone()
		out.Selected = &sel
	}
	out.Filter = s.Filter.Clone()
	out.Bookmarks = cloneSet(s.Bookmarks)
	out.PendingBookmarks = cloneSet(s.PendingBookmarks)
	return out
}

func cloneJobs(in []models.JobPosting) []models.JobPosting {
	if in == nil {
		return nil
	}
	out := make([]models.JobPosting, len(in))
	for i, j := range in {
		out[i] = j.Clone()
	}
	return out
}

func cloneSet(in map[models.ID]bool) map[models.ID]bool {
	out := make(map[models.ID]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
