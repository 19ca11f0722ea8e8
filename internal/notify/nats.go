package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/blockedby/kandra/internal/logger"
)

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher forwards notifications to a NATS subject so other processes
// (desktop notifiers, mail relays) can pick them up.
type NATSPublisher struct {
	nc      NATSClient
	subject string
	log     *logger.Logger
}

// Connect opens a NATS connection.
func Connect(natsURL string) (*nats.Conn, error) {
	conn, err := nats.Connect(natsURL, nats.Name("kandra"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return conn, nil
}

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(nc NATSClient, subject string, log *logger.Logger) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject, log: logger.OrGet(log)}
}

// Notify publishes n; failures are logged, never surfaced.
func (p *NATSPublisher) Notify(ctx context.Context, n Notification) {
	if err := p.Publish(ctx, n); err != nil {
		p.log.Warn().Err(err).Str("subject", p.subject).Msg("notification not published")
	}
}

// Publish publishes a notification and reports failures.
func (p *NATSPublisher) Publish(_ context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	return nil
}
