// Package jobs manages the paginated, filtered job listing, bookmarks and
// the job detail slot.
package jobs

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"

	"github.com/blockedby/kandra/internal/apiclient"
	"github.com/blockedby/kandra/internal/events"
	"github.com/blockedby/kandra/internal/filter"
	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/models"
)

// errors
var (
	ErrToggleInFlight = errors.New("a bookmark change for this job is already in progress")
)

// API is the subset of the API client the manager needs.
type API interface {
	ListJobs(ctx context.Context, params url.Values) (*apiclient.JobPage, error)
	GetJob(ctx context.Context, id models.ID) (*models.JobPosting, error)
	Bookmark(ctx context.Context, id models.ID) error
	Unbookmark(ctx context.Context, id models.ID) error
	ListBookmarks(ctx context.Context) ([]models.JobPosting, error)
}

// Options configures a Manager.
type Options struct {
	PageSize int
	Domain   filter.Domain
}

// Manager owns the job listing state.
// thread-safe; network calls run outside the lock
type Manager struct {
	mu  sync.Mutex
	api API
	bus *events.Bus
	log *logger.Logger

	state State

	// gen changes whenever the listing is replaced or reset; responses from
	// an older generation are dropped
	gen uint64
	// seq numbers every fetch; owner records which fetch owns each op flag
	seq   uint64
	owner map[Op]uint64
	// outcome of the last applied fetch, reported when nothing is loading
	outcome Phase

	detailsSeq uint64
	applied    map[models.ID]bool
	// account changes on every ResetSession; bookmark responses from a
	// previous account are dropped
	account uint64
}

// NewManager creates a manager with an empty listing and a default filter.
func NewManager(api API, opts Options, bus *events.Bus, log *logger.Logger) *Manager {
	if opts.PageSize <= 0 {
		opts.PageSize = 12
	}
	if opts.Domain == (filter.Domain{}) {
		opts.Domain = filter.DefaultDomain
	}

	return &Manager{
		api: api,
		bus: bus,
		log: logger.OrGet(log).Component("jobs"),
		state: State{
			Limit:            opts.PageSize,
			Phase:            PhaseIdle,
			Filter:           filter.Default(opts.Domain),
			Bookmarks:        make(map[models.ID]bool),
			PendingBookmarks: make(map[models.ID]bool),
		},
		owner:   make(map[Op]uint64),
		outcome: PhaseIdle,
		applied: make(map[models.ID]bool),
	}
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Filter returns the current filter.
func (m *Manager) Filter() filter.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Filter.Clone()
}

// FetchPage requests limit jobs matching params starting at offset. Offset 0
// replaces the listing, anything else appends to it. Callers must not
// request an offset already covered.
func (m *Manager) FetchPage(ctx context.Context, params url.Values, offset, limit int) error {
	op := OpInitial
	if offset > 0 {
		op = OpLoadMore
	}
	return m.fetch(ctx, op, params, offset, limit)
}

// Refresh reloads the first page for the current filter.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	params, limit := m.state.Filter.QueryParams(), m.state.Limit
	m.mu.Unlock()

	return m.fetch(ctx, OpInitial, params, 0, limit)
}

// Search loads the first page for the current filter as a search.
func (m *Manager) Search(ctx context.Context) error {
	m.mu.Lock()
	params, limit := m.state.Filter.QueryParams(), m.state.Limit
	m.mu.Unlock()

	return m.fetch(ctx, OpSearch, params, 0, limit)
}

// LoadMore appends the next page. It does nothing while a load-more is in
// flight or when no more pages are expected.
func (m *Manager) LoadMore(ctx context.Context) error {
	m.mu.Lock()
	if m.state.LoadMore.Loading || !m.state.HasMore {
		m.mu.Unlock()
		return nil
	}
	params, offset, limit := m.state.Filter.QueryParams(), m.state.Offset, m.state.Limit
	m.mu.Unlock()

	return m.fetch(ctx, OpLoadMore, params, offset, limit)
}

// ResetForNewQuery clears the listing and the pagination cursor. Every
// response still in flight becomes stale.
func (m *Manager) ResetForNewQuery() {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()

	m.publish()
}

func (m *Manager) resetLocked() {
	m.gen++
	m.state.Jobs = nil
	m.state.Offset = 0
	m.state.HasMore = false
	m.state.Total = 0
	m.state.HasTotal = false
	m.state.Initial.Err = ""
	m.state.LoadMore.Err = ""
	m.state.Search.Err = ""
	m.outcome = PhaseIdle
	m.updatePhaseLocked()
}

// UpdateFilter applies fn to the filter. When the search intent changed the
// listing is reset and searched again.
func (m *Manager) UpdateFilter(ctx context.Context, fn func(filter.State) filter.State) error {
	m.mu.Lock()
	prev := m.state.Filter
	next := fn(prev.Clone())
	m.state.Filter = next
	changed := !next.Equal(prev)
	if changed {
		m.resetLocked()
	}
	m.mu.Unlock()

	if !changed {
		m.publish()
		return nil
	}
	return m.Search(ctx)
}

// ResetFilter restores the default filter and searches again if needed.
func (m *Manager) ResetFilter(ctx context.Context) error {
	return m.UpdateFilter(ctx, filter.State.Reset)
}

func (m *Manager) fetch(ctx context.Context, op Op, params url.Values, offset, limit int) error {
	m.mu.Lock()
	if limit <= 0 {
		limit = m.state.Limit
	}
	if offset == 0 {
		// a replacing fetch supersedes everything before it
		m.gen++
	}
	m.seq++
	seq, gen := m.seq, m.gen
	m.owner[op] = seq
	*m.state.op(op) = OpState{Loading: true}
	m.updatePhaseLocked()
	m.mu.Unlock()
	m.publish()

	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	page, err := m.api.ListJobs(ctx, q)

	m.mu.Lock()
	stale := gen != m.gen
	if m.owner[op] == seq {
		delete(m.owner, op)
		m.state.op(op).Loading = false
	}

	switch {
	case stale:
		m.log.Debug().Str("op", string(op)).Uint64("seq", seq).Msg("dropping stale response")
	case err != nil:
		m.state.op(op).Err = apiclient.MessageOf(err)
		m.outcome = PhaseErrored
	default:
		m.applyPageLocked(page, offset, limit)
		m.state.op(op).Err = ""
		m.outcome = PhaseLoaded
	}
	m.updatePhaseLocked()
	m.mu.Unlock()
	m.publish()

	if stale {
		return nil
	}
	return err
}

func (m *Manager) applyPageLocked(page *apiclient.JobPage, offset, limit int) {
	jobs := make([]models.JobPosting, 0, len(page.Jobs))
	for _, j := range page.Jobs {
		jobs = append(jobs, m.annotate(j))
	}

	if offset == 0 {
		m.state.Jobs = jobs
	} else {
		m.state.Jobs = append(m.state.Jobs, jobs...)
	}
	m.state.Offset = offset + len(jobs)

	if page.HasTotal {
		m.state.Total, m.state.HasTotal = page.Total, true
		m.state.HasMore = m.state.Offset < page.Total
	} else {
		m.state.Total, m.state.HasTotal = 0, false
		// a full page suggests more may exist
		m.state.HasMore = len(jobs) == limit
	}
}

func (m *Manager) annotate(j models.JobPosting) models.JobPosting {
	j = j.Clone()
	if m.state.Bookmarks[j.ID] {
		j.Bookmarked = true
	}
	if m.applied[j.ID] {
		j.Applied = true
	}
	return j
}

func (m *Manager) updatePhaseLocked() {
	if m.state.anyLoading() {
		m.state.Phase = PhaseLoading
		return
	}
	m.state.Phase = m.outcome
}

// GetDetails loads one posting into the Selected slot.
func (m *Manager) GetDetails(ctx context.Context, id models.ID) (*models.JobPosting, error) {
	m.mu.Lock()
	m.detailsSeq++
	seq := m.detailsSeq
	m.state.Details = OpState{Loading: true}
	m.mu.Unlock()
	m.publish()

	job, err := m.api.GetJob(ctx, id)

	m.mu.Lock()
	latest := seq == m.detailsSeq
	if latest {
		m.state.Details.Loading = false
		if err != nil {
			m.state.Details.Err = apiclient.MessageOf(err)
		} else {
			annotated := m.annotate(*job)
			m.state.Selected = &annotated
		}
	}
	var out *models.JobPosting
	if err == nil {
		annotated := m.annotate(*job)
		out = &annotated
	}
	m.mu.Unlock()
	m.publish()

	return out, err
}

// ResetSession forgets everything tied to the signed-in account: the
// bookmark set, pending toggles, saved jobs, applied marks and the detail
// slot. Listed jobs stay but lose their marks.
func (m *Manager) ResetSession() {
	m.mu.Lock()
	m.account++
	m.detailsSeq++
	m.applied = make(map[models.ID]bool)
	m.state.Bookmarks = make(map[models.ID]bool)
	m.state.PendingBookmarks = make(map[models.ID]bool)
	m.state.Saved = nil
	m.state.Bookmark = OpState{}
	m.state.Selected = nil
	m.state.Details = OpState{}
	for i := range m.state.Jobs {
		m.state.Jobs[i].Bookmarked = false
		m.state.Jobs[i].Applied = false
	}
	m.mu.Unlock()
	m.publish()
}

// ClearSelected empties the detail slot.
func (m *Manager) ClearSelected() {
	m.mu.Lock()
	m.state.Selected = nil
	m.state.Details = OpState{}
	m.mu.Unlock()
	m.publish()
}

// MarkApplied annotates id as applied to, in the listing and the detail slot.
func (m *Manager) MarkApplied(id models.ID) {
	m.mu.Lock()
	m.applied[id] = true
	m.forEachLocked(id, func(j *models.JobPosting) { j.Applied = true })
	m.mu.Unlock()
	m.publish()
}

func (m *Manager) forEachLocked(id models.ID, fn func(*models.JobPosting)) {
	for i := range m.state.Jobs {
		if m.state.Jobs[i].ID == id {
			fn(&m.state.Jobs[i])
		}
	}
	if m.state.Selected != nil && m.state.Selected.ID == id {
		fn(m.state.Selected)
	}
}

func (m *Manager) publish() {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.Event{Type: events.JobsUpdated, Payload: m.Snapshot()})
}
