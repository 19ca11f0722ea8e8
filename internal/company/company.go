// Package company is the company-side slice: own offers, their publication
// status and the applications received for each.
package company

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
	ErrMissingTitle  = errors.New("an offer needs a title")
	ErrInvalidKind   = errors.New("unknown offer kind")
	ErrInvalidStatus = errors.New("unknown offer status")
)

// OfferDraft is the payload of a new offer.
type OfferDraft = apiclient.OfferDraft

// API is the subset of the API client the slice needs.
type API interface {
	ListCompanyOffers(ctx context.Context) (*apiclient.JobPage, error)
	CreateOffer(ctx context.Context, draft apiclient.OfferDraft) (*models.JobPosting, error)
	UpdateOfferStatus(ctx context.Context, id models.ID, status models.JobStatus) (*models.JobPosting, error)
	ListApplicants(ctx context.Context, jobID models.ID) ([]models.Application, error)
}

// StatusUpdater changes application statuses. The applications manager is
// the single owner of that contract.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id models.ID, status models.ApplicationStatus) (*models.Application, error)
}

// OpState is the loading/error pair of one operation.
type OpState struct {
	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`
}

// State is a read-only snapshot.
type State struct {
	Offers     []models.JobPosting                `json:"offers"`
	Applicants map[models.ID][]models.Application `json:"applicants"`

	List         OpState `json:"list"`
	Create       OpState `json:"create"`
	Status       OpState `json:"status"`
	ApplicantsOp OpState `json:"applicants_op"`
}

func (s State) clone() State {
	out := s
	out.Offers = make([]models.JobPosting, len(s.Offers))
	for i, j := range s.Offers {
		out.Offers[i] = j.Clone()
	}
	out.Applicants = make(map[models.ID][]models.Application, len(s.Applicants))
	for id, apps := range s.Applicants {
		cp := make([]models.Application, len(apps))
		for i, a := range apps {
			cp[i] = a.Clone()
		}
		out.Applicants[id] = cp
	}
	return out
}

// Manager owns the company-side state.
type Manager struct {
	mu       sync.Mutex
	api      API
	statuses StatusUpdater
	bus      *events.Bus
	log      *logger.Logger

	state State
}

// NewManager creates an empty slice.
func NewManager(api API, statuses StatusUpdater, bus *events.Bus, log *logger.Logger) *Manager {
	return &Manager{
		api:      api,
		statuses: statuses,
		bus:      bus,
		log:      logger.OrGet(log).Component("company"),
		state:    State{Offers: []models.JobPosting{}, Applicants: make(map[models.ID][]models.Application)},
	}
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// ListOffers replaces the offer list with the server's.
func (m *Manager) ListOffers(ctx context.Context) ([]models.JobPosting, error) {
	m.update(func(s *State) { s.List = OpState{Loading: true} })

	page, err := m.api.ListCompanyOffers(ctx)
	if err != nil {
		m.update(func(s *State) { s.List = OpState{Err: apiclient.MessageOf(err)} })
		return nil, err
	}

	m.update(func(s *State) {
		s.Offers = append([]models.JobPosting{}, page.Jobs...)
		s.List = OpState{}
	})
	return page.Jobs, nil
}

// CreateOffer publishes draft and prepends the created offer.
func (m *Manager) CreateOffer(ctx context.Context, draft OfferDraft) (*models.JobPosting, error) {
	if strings.TrimSpace(draft.Title) == "" {
		m.update(func(s *State) { s.Create = OpState{Err: ErrMissingTitle.Error()} })
		return nil, ErrMissingTitle
	}
	if draft.Kind == "" {
		draft.Kind = models.OfferFullTime
	} else if kind, ok := models.ParseOfferKind(string(draft.Kind)); ok {
		draft.Kind = kind
	} else {
		m.update(func(s *State) { s.Create = OpState{Err: ErrInvalidKind.Error()} })
		return nil, ErrInvalidKind
	}
	if draft.Status == "" {
		draft.Status = models.JobStatusPublished
	}

	m.update(func(s *State) { s.Create = OpState{Loading: true} })
	job, err := m.api.CreateOffer(ctx, draft)
	if err != nil {
		m.update(func(s *State) { s.Create = OpState{Err: apiclient.MessageOf(err)} })
		return nil, err
	}

	m.update(func(s *State) {
		s.Offers = append([]models.JobPosting{job.Clone()}, s.Offers...)
		s.Create = OpState{}
	})
	m.log.Info().Str("job_id", job.ID.String()).Msg("offer created")
	return job, nil
}

// UpdateOfferStatus moves an offer between draft, published and expired.
func (m *Manager) UpdateOfferStatus(ctx context.Context, id models.ID, status models.JobStatus) (*models.JobPosting, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	m.update(func(s *State) { s.Status = OpState{Loading: true} })
	job, err := m.api.UpdateOfferStatus(ctx, id, status)
	if err != nil {
		m.update(func(s *State) { s.Status = OpState{Err: apiclient.MessageOf(err)} })
		return nil, err
	}

	m.update(func(s *State) {
		for i := range s.Offers {
			if s.Offers[i].ID == id {
				s.Offers[i] = job.Clone()
			}
		}
		s.Status = OpState{}
	})
	return job, nil
}

// ListApplicants loads the applications received for jobID.
func (m *Manager) ListApplicants(ctx context.Context, jobID models.ID) ([]models.Application, error) {
	m.update(func(s *State) { s.ApplicantsOp = OpState{Loading: true} })

	apps, err := m.api.ListApplicants(ctx, jobID)
	if err != nil {
		m.update(func(s *State) { s.ApplicantsOp = OpState{Err: apiclient.MessageOf(err)} })
		return nil, err
	}

	m.update(func(s *State) {
		s.Applicants[jobID] = append([]models.Application{}, apps...)
		s.ApplicantsOp = OpState{}
	})
	return apps, nil
}

// UpdateApplicantStatus changes an applicant's status through the
// applications manager and mirrors the result here.
func (m *Manager) UpdateApplicantStatus(ctx context.Context, appID models.ID, status models.ApplicationStatus) (*models.Application, error) {
	app, err := m.statuses.UpdateStatus(ctx, appID, status)
	if err != nil {
		return nil, err
	}

	m.update(func(s *State) {
		for jobID, apps := range s.Applicants {
			for i := range apps {
				if apps[i].ID == appID {
					apps[i].Status = app.Status
				}
			}
			s.Applicants[jobID] = apps
		}
	})
	return app, nil
}

// Reset forgets everything, e.g. after logout.
func (m *Manager) Reset() {
	m.update(func(s *State) {
		*s = State{Offers: []models.JobPosting{}, Applicants: make(map[models.ID][]models.Application)}
	})
}

func (m *Manager) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(events.Event{Type: events.CompanyUpdated, Payload: m.Snapshot()})
	}
}
