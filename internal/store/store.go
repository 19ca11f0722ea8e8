// Package store wires one session, one API client and every state slice
// onto a shared event bus.
package store

import (
	"context"
	"fmt"
	"net/http"

	"github.com/blockedby/kandra/internal/apiclient"
	"github.com/blockedby/kandra/internal/applications"
	"github.com/blockedby/kandra/internal/auth"
	"github.com/blockedby/kandra/internal/company"
	"github.com/blockedby/kandra/internal/config"
	"github.com/blockedby/kandra/internal/events"
	"github.com/blockedby/kandra/internal/filter"
	"github.com/blockedby/kandra/internal/jobs"
	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/models"
	"github.com/blockedby/kandra/internal/notify"
	"github.com/blockedby/kandra/internal/session"
)

// Session store kinds accepted in SESSION_STORE.
const (
	SessionMemory = "memory"
	SessionSQLite = "sqlite"
	SessionRedis  = "redis"
)

// Options carries what the configuration cannot express.
type Options struct {
	// SessionStore overrides the store selected by cfg.SessionStore.
	SessionStore session.Store
	HTTPClient   *http.Client
	// Notifiers and Redirectors receive transport notifications in addition
	// to the log and the bus.
	Notifiers   []notify.Notifier
	Redirectors []notify.Redirector
	Log         *logger.Logger
}

// Store is the root of the client state.
type Store struct {
	Bus          *events.Bus
	Session      *session.Session
	Client       *apiclient.Client
	Auth         *auth.Manager
	Jobs         *jobs.Manager
	Applications *applications.Manager
	Company      *company.Manager

	log     *logger.Logger
	closers []func() error
}

// New builds the store from cfg. Close must be called to release the
// session backend and the NATS connection.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Store, error) {
	log := logger.OrGet(opts.Log).Component("store")
	s := &Store{Bus: events.NewBus(), log: log}

	// 1. Session
	store := opts.SessionStore
	if store == nil {
		var err error
		store, err = s.openSessionStore(ctx, cfg)
		if err != nil {
			s.Close()
			return nil, err
		}
	}
	s.Session = session.New(store)

	// 2. Notifications
	notifiers := notify.Multi{notify.NewLogNotifier(opts.Log), notify.NewBusNotifier(s.Bus)}
	if cfg.NatsURL != "" {
		nc, err := notify.Connect(cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("notifications will not be published to nats")
		} else {
			notifiers = append(notifiers, notify.NewNATSPublisher(nc, cfg.NotifySubject, opts.Log))
			s.closers = append(s.closers, func() error { nc.Close(); return nil })
		}
	}
	notifiers = append(notifiers, opts.Notifiers...)

	redirectors := append([]notify.Redirector{notify.NewBusRedirector(s.Bus, "/login")}, opts.Redirectors...)
	redirect := notify.RedirectorFunc(func(ctx context.Context) {
		for _, r := range redirectors {
			if r != nil {
				r.RedirectToLogin(ctx)
			}
		}
	})

	// 3. API client
	s.Client = apiclient.New(apiclient.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.RequestTimeout,
		RateLimit:  cfg.RateLimitRPS,
		Burst:      cfg.RateLimitBurst,
		HTTPClient: opts.HTTPClient,
	}, s.Session, notifiers, redirect, opts.Log)

	// 4. Slices
	s.Auth = auth.NewManager(s.Client, s.Session, s.Bus, opts.Log)
	s.Jobs = jobs.NewManager(s.Client, jobs.Options{
		PageSize: cfg.PageSize,
		Domain:   filter.Domain{SalaryMin: cfg.SalaryDomainMin, SalaryMax: cfg.SalaryDomainMax},
	}, s.Bus, opts.Log)
	s.Applications = applications.NewManager(s.Client, s.Bus, opts.Log)
	s.Company = company.NewManager(s.Client, s.Applications, s.Bus, opts.Log)

	s.Applications.OnSubmitted(func(app models.Application) {
		s.Jobs.MarkApplied(app.JobID)
	})
	s.Auth.OnLogout(func() {
		s.Jobs.ResetSession()
		s.Applications.Reset()
		s.Company.Reset()
	})

	return s, nil
}

func (s *Store) openSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.SessionStore {
	case SessionMemory:
		return session.NewMemoryStore(), nil
	case SessionRedis:
		rdb, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		s.closers = append(s.closers, rdb.Close)
		return session.NewRedisStore(rdb, "default", 0), nil
	case SessionSQLite, "":
		st, err := session.OpenSQLiteStore(cfg.SessionDB, "default")
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		s.closers = append(s.closers, st.Close)
		return st, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

// Restore reloads a persisted login. It returns nil, nil when there is none.
// A token the server no longer accepts is cleared by the client itself.
func (s *Store) Restore(ctx context.Context) (*models.User, error) {
	user, err := s.Auth.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore login: %w", err)
	}
	if user != nil {
		s.log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("session restored")
	}
	return user, nil
}

// Close releases external resources in reverse order of acquisition.
func (s *Store) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.Warn().Err(err).Msg("close failed")
		}
	}
	s.closers = nil
}
