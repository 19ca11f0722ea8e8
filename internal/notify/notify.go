// Package notify delivers user-visible notifications and login redirects
// raised by the transport layer.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/blockedby/kandra/internal/events"
	"github.com/blockedby/kandra/internal/logger"
)

// Level is the severity shown to the user.
type Level string

// Level constants.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Kind classifies where a notification came from.
type Kind string

// Kind constants.
const (
	KindConnectivity   Kind = "connectivity"
	KindSessionExpired Kind = "session_expired"
	KindServer         Kind = "server"
	KindValidation     Kind = "validation"
	KindStatusChange   Kind = "status_change"
)

// Notification is a message for the user.
type Notification struct {
	Level   Level     `json:"level"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier surfaces notifications. Implementations must not block for long.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Redirector sends the user back to the login entry point.
type Redirector interface {
	RedirectToLogin(ctx context.Context)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// RedirectorFunc adapts a function to Redirector.
type RedirectorFunc func(ctx context.Context)

func (f RedirectorFunc) RedirectToLogin(ctx context.Context) { f(ctx) }

// Multi fans a notification out to several notifiers; nil entries are skipped.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(ctx, n)
		}
	}
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: logger.OrGet(log)}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) {
	evt := l.log.Info()
	switch n.Level {
	case LevelError:
		evt = l.log.Error()
	case LevelWarning:
		evt = l.log.Warn()
	}
	evt.Str("kind", string(n.Kind)).Msg(n.Message)
}

// WriterNotifier prints notifications as plain lines, for terminals.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a WriterNotifier.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (p *WriterNotifier) Notify(_ context.Context, n Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "[%s] %s\n", n.Level, n.Message)
}

// BusNotifier republishes notifications as bus events.
type BusNotifier struct {
	bus *events.Bus
}

// NewBusNotifier creates a BusNotifier.
func NewBusNotifier(bus *events.Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (b *BusNotifier) Notify(_ context.Context, n Notification) {
	b.bus.Publish(events.Event{Type: events.Notification, Payload: n})
}

// BusRedirector publishes a navigate event pointing at the login page.
type BusRedirector struct {
	bus  *events.Bus
	path string
}

// NewBusRedirector creates a BusRedirector targeting loginPath.
func NewBusRedirector(bus *events.Bus, loginPath string) *BusRedirector {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &BusRedirector{bus: bus, path: loginPath}
}

func (b *BusRedirector) RedirectToLogin(_ context.Context) {
	b.bus.Publish(events.Event{Type: events.Navigate, Payload: map[string]string{"to": b.path}})
}

// Recorder keeps notifications and redirects in memory.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
	redirects     int
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *Recorder) RedirectToLogin(_ context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirects++
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

// Redirects returns how many login redirects were requested.
func (r *Recorder) Redirects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redirects
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notifications) == 0 {
		return Notification{}, false
	}
	return r.notifications[len(r.notifications)-1], true
}
