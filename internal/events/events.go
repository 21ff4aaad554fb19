package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Lifecycle event names published by the back office.
const (
	AccountCreated   = "account.created"
	AccountBlocked   = "account.blocked"
	AccountSuspended = "account.suspended"
	AccountDeleted   = "account.deleted"
	DocumentSigned   = "document.signed"
)

// Backend defines the broker-agnostic publish operations used by the app.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// envelope is the wire shape of a published event.
type envelope struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Publisher emits lifecycle events on a best-effort basis. Publishing
// failures are logged and absorbed; they never propagate to the operation
// that triggered the event. A Publisher with a nil backend is a no-op.
type Publisher struct {
	backend Backend
	topic   string
	log     *zap.Logger
}

func NewPublisher(backend Backend, topic string, log *zap.Logger) *Publisher {
	return &Publisher{backend: backend, topic: topic, log: log}
}

// Emit publishes one event. It never returns an error.
func (p *Publisher) Emit(ctx context.Context, name string, payload any) {
	if p == nil || p.backend == nil {
		return
	}

	data, err := json.Marshal(envelope{
		Name:       name,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		p.log.Warn("encode event failed", zap.String("event", name), zap.Error(err))
		return
	}

	if _, err := p.backend.Publish(ctx, p.topic, data, map[string]string{"event": name}); err != nil {
		p.log.Warn("publish event failed", zap.String("event", name), zap.Error(err))
	}
}

// Close releases the backend, if any.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
