// Package session holds the bearer token shared by every outgoing request
// and persists it across restarts through a pluggable Store.
package session

import (
	"context"
	"fmt"
	"sync"
)

// Store persists a single token.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Session is an explicitly passed token holder. Requests read the token once
// at dispatch, so changing it never affects a request already sent.
type Session struct {
	mu        sync.RWMutex
	token     string
	store     Store
	listeners map[int]func(token string)
	nextID    int
}

// New creates a session backed by store. A nil store keeps the token in memory only.
func New(store Store) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{
		store:     store,
		listeners: make(map[int]func(string)),
	}
}

// Restore loads a previously persisted token.
func (s *Session) Restore(ctx context.Context) (string, error) {
	token, err := s.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	changed := s.token != token
	s.token = token
	s.mu.Unlock()

	if changed {
		s.emit(token)
	}
	return token, nil
}

// Configure sets the token and persists it. An empty token clears both the
// in-memory value and the persisted one.
func (s *Session) Configure(ctx context.Context, token string) error {
	s.mu.Lock()
	changed := s.token != token
	s.token = token
	s.mu.Unlock()

	var err error
	if token == "" {
		err = s.store.Clear(ctx)
	} else {
		err = s.store.Save(ctx, token)
	}

	if changed {
		s.emit(token)
	}
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Token returns the current token, empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is set.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// ClearIf clears the session only if it still holds token. cleared is true
// for exactly one caller per token, which lets a burst of failing requests
// dispatched with the same token trigger session expiry handling once. The
// in-memory token is gone even when err reports that the persisted copy
// could not be removed.
func (s *Session) ClearIf(ctx context.Context, token string) (cleared bool, err error) {
	if token == "" {
		return false, nil
	}

	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return false, nil
	}
	s.token = ""
	s.mu.Unlock()

	err = s.store.Clear(ctx)
	s.emit("")
	if err != nil {
		return true, fmt.Errorf("persist session: %w", err)
	}
	return true, nil
}

// OnChange registers fn to run after every token change. The returned
// function unregisters it.
func (s *Session) OnChange(fn func(token string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) emit(token string) {
	s.mu.RLock()
	fns := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(token)
	}
}
