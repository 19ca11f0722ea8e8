// Package applications submits applications and tracks the candidate's
// application history with its derived statistics.
package applications

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/blockedby/kandra/internal/apiclient"
	"github.com/blockedby/kandra/internal/events"
	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/models"
)

// errors
var (
	ErrMissingResume      = errors.New("a resume file is required")
	ErrMissingCoverLetter = errors.New("a cover letter is required")
	ErrMissingJob         = errors.New("a job is required")
	ErrUpdateInFlight     = errors.New("a status change for this application is already in progress")
)

// Attachment is an uploaded file.
type Attachment = apiclient.File

// SubmitRequest holds the application form.
type SubmitRequest struct {
	JobID        models.ID
	CoverLetter  string
	Resume       *Attachment
	Portfolio    *Attachment
	Motivation   string
	PortfolioURL string
	LinkedInURL  string
}

// Validate checks the two mandatory fields. The server stays authoritative.
func (r SubmitRequest) Validate() error {
	if r.JobID == "" {
		return ErrMissingJob
	}
	if r.Resume == nil || len(r.Resume.Data) == 0 {
		return ErrMissingResume
	}
	if strings.TrimSpace(r.CoverLetter) == "" {
		return ErrMissingCoverLetter
	}
	return nil
}

func (r SubmitRequest) form() *apiclient.Multipart {
	return (&apiclient.Multipart{}).
		Field("job_id", r.JobID.String()).
		Field("cover_letter", r.CoverLetter).
		Field("motivation", r.Motivation).
		Field("portfolio_url", r.PortfolioURL).
		Field("linkedin_url", r.LinkedInURL).
		File("resume", r.Resume).
		File("portfolio", r.Portfolio)
}

// API is the subset of the API client the manager needs.
type API interface {
	SubmitApplication(ctx context.Context, form *apiclient.Multipart) (*models.Application, error)
	ListMyApplications(ctx context.Context) ([]models.Application, error)
	GetApplication(ctx context.Context, id models.ID) (*models.Application, error)
	UpdateApplicationStatus(ctx context.Context, id models.ID, status models.ApplicationStatus) (*models.Application, error)
}

// OpState is the loading/error pair of one operation.
type OpState struct {
	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`
}

// State is a read-only snapshot.
type State struct {
	Applications []models.Application   `json:"applications"`
	Stats        models.ApplicationStats `json:"stats"`
	Selected     *models.Application     `json:"selected,omitempty"`
	Updating     map[models.ID]bool      `json:"updating"`

	Submit  OpState `json:"submit"`
	List    OpState `json:"list"`
	Details OpState `json:"details"`
	Update  OpState `json:"update"`
}

func (s State) clone() State {
	out := s
	if s.Applications != nil {
		out.Applications = make([]models.Application, len(s.Applications))
		for i, a := range s.Applications {
			out.Applications[i] = a.Clone()
		}
	}
	if s.Selected != nil {
		sel := s.Selected.Clone()
		out.Selected = &sel
	}
	out.Updating = make(map[models.ID]bool, len(s.Updating))
	for k, v := range s.Updating {
		out.Updating[k] = v
	}
	return out
}

// Manager owns the application history.
// thread-safe; network calls run outside the lock
type Manager struct {
	mu  sync.Mutex
	api API
	bus *events.Bus
	log *logger.Logger

	state State

	listSeq    uint64
	detailsSeq uint64
	// gen changes whenever a local write lands; a list fetched before it
	// would undo the write and is dropped
	gen       uint64
	submitted []func(models.Application)
}

// NewManager creates an empty manager.
func NewManager(api API, bus *events.Bus, log *logger.Logger) *Manager {
	return &Manager{
		api: api,
		bus: bus,
		log: logger.OrGet(log).Component("applications"),
		state: State{
			Applications: []models.Application{},
			Updating:     make(map[models.ID]bool),
		},
	}
}

// OnSubmitted registers fn to run after every confirmed submission.
func (m *Manager) OnSubmitted(fn func(models.Application)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, fn)
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Submit validates req, posts it and prepends the confirmed record. On
// failure the history is left untouched.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (*models.Application, error) {
	if err := req.Validate(); err != nil {
		m.mu.Lock()
		m.state.Submit = OpState{Err: err.Error()}
		m.mu.Unlock()
		m.publish()
		return nil, err
	}

	m.mu.Lock()
	m.state.Submit = OpState{Loading: true}
	m.mu.Unlock()
	m.publish()

	app, err := m.api.SubmitApplication(ctx, req.form())

	m.mu.Lock()
	m.state.Submit.Loading = false
	if err != nil {
		m.state.Submit.Err = apiclient.MessageOf(err)
		m.mu.Unlock()
		m.publish()
		m.log.Warn().Err(err).Str("job_id", req.JobID.String()).Msg("submit failed")
		return nil, err
	}

	rec := app.Clone()
	if rec.JobID == "" {
		rec.JobID = req.JobID
	}
	m.state.Applications = append([]models.Application{rec}, m.state.Applications...)
	m.state.Stats = models.ComputeStats(m.state.Applications)
	m.gen++
	hooks := append([]func(models.Application){}, m.submitted...)
	m.mu.Unlock()
	m.publish()

	m.log.Info().Str("application_id", rec.ID.String()).Str("job_id", rec.JobID.String()).Msg("application submitted")
	for _, fn := range hooks {
		fn(rec.Clone())
	}

	out := rec.Clone()
	return &out, nil
}

// ListMine replaces the history with the server's and recomputes the stats
// from scratch. A response overtaken by a newer ListMine, a submission or a
// status update is dropped.
func (m *Manager) ListMine(ctx context.Context) ([]models.Application, error) {
	m.mu.Lock()
	m.listSeq++
	seq, gen := m.listSeq, m.gen
	m.state.List = OpState{Loading: true}
	m.mu.Unlock()
	m.publish()

	apps, err := m.api.ListMyApplications(ctx)

	m.mu.Lock()
	if seq != m.listSeq {
		m.mu.Unlock()
		return cloneApps(apps), err
	}
	m.state.List.Loading = false
	switch {
	case err != nil:
		m.state.List.Err = apiclient.MessageOf(err)
	case gen != m.gen:
		m.log.Debug().Uint64("seq", seq).Msg("dropping list fetched before a local change")
	default:
		m.state.Applications = cloneApps(apps)
		if m.state.Applications == nil {
			m.state.Applications = []models.Application{}
		}
		m.state.Stats = models.ComputeStats(m.state.Applications)
		m.syncSelectedLocked()
	}
	m.mu.Unlock()
	m.publish()

	return cloneApps(apps), err
}

// GetDetails loads one application into the Selected slot without touching
// the list.
func (m *Manager) GetDetails(ctx context.Context, id models.ID) (*models.Application, error) {
	m.mu.Lock()
	m.detailsSeq++
	seq := m.detailsSeq
	m.state.Details = OpState{Loading: true}
	m.mu.Unlock()
	m.publish()

	app, err := m.api.GetApplication(ctx, id)

	m.mu.Lock()
	if seq == m.detailsSeq {
		m.state.Details.Loading = false
		if err != nil {
			m.state.Details.Err = apiclient.MessageOf(err)
		} else {
			sel := app.Clone()
			m.state.Selected = &sel
		}
	}
	m.mu.Unlock()
	m.publish()

	if err != nil {
		return nil, err
	}
	out := app.Clone()
	return &out, nil
}

// UpdateStatus changes the status of id on the server and replaces the
// record in the list and the detail slot. Updates on the same id are
// serialized: a second one while the first is outstanding returns
// ErrUpdateInFlight.
func (m *Manager) UpdateStatus(ctx context.Context, id models.ID, status models.ApplicationStatus) (*models.Application, error) {
	m.mu.Lock()
	if m.state.Updating[id] {
		m.mu.Unlock()
		return nil, ErrUpdateInFlight
	}
	m.state.Updating[id] = true
	m.state.Update = OpState{Loading: true}
	m.mu.Unlock()
	m.publish()

	app, err := m.api.UpdateApplicationStatus(ctx, id, status)

	m.mu.Lock()
	delete(m.state.Updating, id)
	m.state.Update.Loading = len(m.state.Updating) > 0
	if err != nil {
		m.state.Update.Err = apiclient.MessageOf(err)
		m.mu.Unlock()
		m.publish()
		return nil, err
	}

	rec := app.Clone()
	if rec.ID == "" {
		rec.ID = id
	}
	m.replaceLocked(rec)
	m.gen++
	m.state.Update.Err = ""
	m.mu.Unlock()
	m.publish()

	m.log.Info().Str("application_id", id.String()).Str("status", string(rec.Status)).Msg("status updated")
	out := rec.Clone()
	return &out, nil
}

// replaceLocked swaps the record with rec.ID in the list and the detail slot
// and recomputes the stats.
func (m *Manager) replaceLocked(rec models.Application) {
	for i := range m.state.Applications {
		if m.state.Applications[i].ID == rec.ID {
			merged := merge(m.state.Applications[i], rec)
			m.state.Applications[i] = merged
		}
	}
	if m.state.Selected != nil && m.state.Selected.ID == rec.ID {
		merged := merge(*m.state.Selected, rec)
		m.state.Selected = &merged
	}
	m.state.Stats = models.ComputeStats(m.state.Applications)
}

// syncSelectedLocked refreshes the status of the selected record from a
// freshly listed one.
func (m *Manager) syncSelectedLocked() {
	if m.state.Selected == nil {
		return
	}
	for _, a := range m.state.Applications {
		if a.ID == m.state.Selected.ID {
			m.state.Selected.Status = a.Status
			return
		}
	}
}

// Reset forgets everything, e.g. after logout.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.listSeq++
	m.detailsSeq++
	m.state = State{Applications: []models.Application{}, Updating: make(map[models.ID]bool)}
	m.mu.Unlock()
	m.publish()
}

// merge keeps fields the server omitted from a partial response.
func merge(prev, next models.Application) models.Application {
	if next.JobID == "" {
		next.JobID = prev.JobID
	}
	if next.Job == nil {
		next.Job = prev.Job
	}
	if next.SubmittedAt.IsZero() {
		next.SubmittedAt = prev.SubmittedAt
	}
	if next.CoverLetter == "" {
		next.CoverLetter = prev.CoverLetter
	}
	if next.Motivation == "" {
		next.Motivation = prev.Motivation
	}
	if next.PortfolioURL == "" {
		next.PortfolioURL = prev.PortfolioURL
	}
	if next.LinkedInURL == "" {
		next.LinkedInURL = prev.LinkedInURL
	}
	if next.ResumeRef == "" {
		next.ResumeRef = prev.ResumeRef
	}
	return next.Clone()
}

func cloneApps(in []models.Application) []models.Application {
	if in == nil {
		return nil
	}
	out := make([]models.Application, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

func (m *Manager) publish() {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.Event{Type: events.ApplicationsUpdated, Payload: m.Snapshot()})
}
