package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side record bound to an opaque token.
type Session struct {
	AccountID int       `json:"account_id"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Store is the session-store capability injected into the credential
// service and any session-gated handler. Delete is idempotent: deleting an
// unknown token is not an error.
type Store interface {
	Put(ctx context.Context, token string, sess Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (Session, bool, error)
	Delete(ctx context.Context, token string) error
}

// NewToken generates a fresh opaque session token. A new token is issued on
// every login, never derived from anything the client supplied.
func NewToken() string {
	return uuid.NewString()
}
