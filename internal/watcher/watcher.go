// Package watcher periodically re-fetches the signed-in candidate's
// applications and notifies about status changes, which the backend only
// reveals on re-fetch.
package watcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/models"
	"github.com/blockedby/kandra/internal/notify"
)

// DefaultSchedule is used when no schedule is configured.
const DefaultSchedule = "@every 5m"

// Lister loads the current application history.
type Lister interface {
	ListMine(ctx context.Context) ([]models.Application, error)
}

// Authenticator reports whether a session token is set.
type Authenticator interface {
	Authenticated() bool
}

// Change is one application whose status moved between two checks.
type Change struct {
	Application models.Application
	From        models.ApplicationStatus
	To          models.ApplicationStatus
}

// Message is the user-facing text of the change.
func (c Change) Message() string {
	title := "Application " + c.Application.ID.String()
	if c.Application.Job != nil && c.Application.Job.Title != "" {
		title = c.Application.Job.Title
	}
	return fmt.Sprintf("%s: %s → %s", title, label(c.From), label(c.To))
}

func label(s models.ApplicationStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// Watcher wraps robfig/cron and diffs successive application lists.
type Watcher struct {
	cron     *cron.Cron
	spec     string
	apps     Lister
	auth     Authenticator
	notifier notify.Notifier
	log      *logger.Logger

	mu     sync.Mutex
	known  map[models.ID]models.ApplicationStatus
	primed bool
}

// New creates a Watcher firing on spec (robfig/cron syntax, "@every 5m" style).
func New(spec string, apps Lister, auth Authenticator, notifier notify.Notifier, log *logger.Logger) *Watcher {
	if spec == "" {
		spec = DefaultSchedule
	}
	l := logger.OrGet(log).Component("watcher")
	cl := cronLogger{log: l}
	return &Watcher{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		spec:     spec,
		apps:     apps,
		auth:     auth,
		notifier: notifier,
		log:      l,
		known:    make(map[models.ID]models.ApplicationStatus),
	}
}

// Start registers the job and starts the scheduler. One check runs right
// away so the baseline exists before the first tick.
func (w *Watcher) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.spec, func() {
		w.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	w.cron.Start()
	w.log.Info().Str("spec", w.spec).Msg("watcher started")

	go w.run(ctx)

	return nil
}

// Stop halts the scheduler and waits for a running check to finish.
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
	w.log.Info().Msg("watcher stopped")
}

func (w *Watcher) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	changes, err := w.Check(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("status check failed")
		return
	}
	if len(changes) > 0 {
		w.log.Info().Int("changes", len(changes)).Msg("application statuses changed")
	}
}

// Check fetches the history once and notifies about every application whose
// status differs from the previous check. The first check after sign-in only
// records the baseline. While signed out nothing is fetched.
func (w *Watcher) Check(ctx context.Context) ([]Change, error) {
	if !w.auth.Authenticated() {
		w.mu.Lock()
		w.known = make(map[models.ID]models.ApplicationStatus)
		w.primed = false
		w.mu.Unlock()
		return nil, nil
	}

	apps, err := w.apps.ListMine(ctx)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	w.mu.Lock()
	var changes []Change
	next := make(map[models.ID]models.ApplicationStatus, len(apps))
	for _, a := range apps {
		next[a.ID] = a.Status
		if prev, ok := w.known[a.ID]; ok && w.primed && prev != a.Status {
			changes = append(changes, Change{Application: a, From: prev, To: a.Status})
		}
	}
	w.known = next
	w.primed = true
	w.mu.Unlock()

	for _, c := range changes {
		w.log.Debug().
			Str("application_id", c.Application.ID.String()).
			Str("from", string(c.From)).
			Str("to", string(c.To)).
			Msg("status changed")
		if w.notifier != nil {
			w.notifier.Notify(ctx, notify.Notification{
				Level:   notify.LevelInfo,
				Kind:    notify.KindStatusChange,
				Message: c.Message(),
				At:      time.Now(),
			})
		}
	}
	return changes, nil
}

// cronLogger routes robfig/cron's logging through zerolog.
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
