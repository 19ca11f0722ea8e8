// Package auth is the authentication slice: it signs users in and out and
// follows the session token so a transport-level expiry logs the slice out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/blockedby/kandra/internal/apiclient"
	"github.com/blockedby/kandra/internal/events"
	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/models"
	"github.com/blockedby/kandra/internal/session"
)

// errors
var (
	ErrNotAuthenticated   = errors.New("not signed in")
	ErrMissingCredentials = errors.New("email and password are required")
)

// API is the subset of the API client the slice needs.
type API interface {
	Login(ctx context.Context, email, password string) (*apiclient.AuthResult, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.AuthResult, error)
	Me(ctx context.Context) (*models.User, error)
}

// RegisterRequest holds the profile fields of a new account.
type RegisterRequest = apiclient.RegisterRequest

// OpState is the loading/error pair of one operation.
type OpState struct {
	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`
}

// State is a read-only snapshot.
type State struct {
	User          *models.User `json:"user,omitempty"`
	Authenticated bool         `json:"authenticated"`
	Op            OpState      `json:"op"`
}

// Manager owns the authentication state.
type Manager struct {
	mu      sync.Mutex
	api     API
	session *session.Session
	bus     *events.Bus
	log     *logger.Logger

	state    State
	onLogout []func()
}

// NewManager creates the slice and starts following sess.
func NewManager(api API, sess *session.Session, bus *events.Bus, log *logger.Logger) *Manager {
	m := &Manager{
		api:     api,
		session: sess,
		bus:     bus,
		log:     logger.OrGet(log).Component("auth"),
		state:   State{Authenticated: sess.Authenticated()},
	}
	sess.OnChange(m.tokenChanged)
	return m
}

// OnLogout registers fn to run whenever the session ends, including expiry.
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.state
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

// Require returns ErrNotAuthenticated when no token is set.
func (m *Manager) Require() error {
	if !m.session.Authenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// Login signs in and configures the token for every later request.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		m.setOp(OpState{Err: ErrMissingCredentials.Error()})
		return nil, ErrMissingCredentials
	}

	m.setOp(OpState{Loading: true})
	res, err := m.api.Login(ctx, email, password)
	return m.finishAuth(ctx, res, err)
}

// Register creates an account and signs in with it.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		m.setOp(OpState{Err: ErrMissingCredentials.Error()})
		return nil, ErrMissingCredentials
	}
	if req.Role == "" {
		req.Role = models.RoleCandidate
	}

	m.setOp(OpState{Loading: true})
	res, err := m.api.Register(ctx, req)
	return m.finishAuth(ctx, res, err)
}

func (m *Manager) finishAuth(ctx context.Context, res *apiclient.AuthResult, err error) (*models.User, error) {
	if err != nil {
		m.setOp(OpState{Err: apiclient.MessageOf(err)})
		return nil, err
	}

	if err := m.session.Configure(ctx, res.Token); err != nil {
		// the token is live in memory even if persisting it failed
		m.log.Warn().Err(err).Msg("session not persisted")
	}

	user := res.User
	m.mu.Lock()
	m.state.User = &user
	m.state.Authenticated = true
	m.state.Op = OpState{}
	m.mu.Unlock()
	m.publish()

	m.log.Info().Str("user", user.Email).Msg("signed in")
	return &user, nil
}

// Logout clears the token and the slice.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.session.Configure(ctx, ""); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	// tokenChanged does the rest when the token was set; make sure the
	// slice is clean either way
	m.clear()
	return nil
}

// Restore loads a persisted token and fetches the account behind it.
// It returns nil, nil when there is nothing to restore.
func (m *Manager) Restore(ctx context.Context) (*models.User, error) {
	token, err := m.session.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	m.setOp(OpState{Loading: true})
	user, err := m.api.Me(ctx)
	if err != nil {
		m.setOp(OpState{Err: apiclient.MessageOf(err)})
		return nil, err
	}

	m.mu.Lock()
	m.state.User = user
	m.state.Authenticated = m.session.Authenticated()
	m.state.Op = OpState{}
	m.mu.Unlock()
	m.publish()

	u := *user
	return &u, nil
}

func (m *Manager) tokenChanged(token string) {
	if token != "" {
		m.mu.Lock()
		m.state.Authenticated = true
		m.mu.Unlock()
		m.publish()
		return
	}
	m.clear()
}

func (m *Manager) clear() {
	m.mu.Lock()
	wasSignedIn := m.state.Authenticated || m.state.User != nil
	m.state.User = nil
	m.state.Authenticated = false
	m.state.Op.Loading = false
	hooks := append([]func(){}, m.onLogout...)
	m.mu.Unlock()

	if !wasSignedIn {
		return
	}
	m.publish()
	for _, fn := range hooks {
		fn()
	}
}

func (m *Manager) setOp(op OpState) {
	m.mu.Lock()
	m.state.Op = op
	m.mu.Unlock()
	m.publish()
}

func (m *Manager) publish() {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.Event{Type: events.AuthChanged, Payload: m.Snapshot()})
}
