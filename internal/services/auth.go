package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/chemo-it/backoffice/internal/session"
	"github.com/chemo-it/backoffice/internal/store"
	"github.com/chemo-it/backoffice/types"
)

// AuthService verifies login credentials against stored hashes, enforces
// the account-status gate and manages session lifecycle.
type AuthService struct {
	repo     AccountRepository
	sessions session.Store
	ttl      time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewAuthService(repo AccountRepository, sessions session.Store, ttl time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		sessions: sessions,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

// Login authenticates by email and password and, on success, establishes a
// fresh session and returns its opaque token. priorToken is whatever token
// the client presented before authenticating; it is destroyed so a
// pre-auth token can never become an authenticated one.
//
// Unknown email, wrong password and disallowed status all return
// ErrInvalidCredentials with nothing to tell them apart. A store or
// transport failure is the one internally distinguishable outcome.
func (s *AuthService) Login(ctx context.Context, email, password, priorToken string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	// Syntactically invalid emails are rejected without a store round trip.
	if err := validation.Validate(email, is.Email); err != nil {
		return "", ErrInvalidCredentials
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("login lookup: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	// The status gate runs only after the password verified, so a wrong
	// password never reveals account status.
	if !s.statusAllowsLogin(account) {
		return "", ErrInvalidCredentials
	}

	// Rotate before binding any session state.
	token := session.NewToken()
	if priorToken != "" {
		if err := s.sessions.Delete(ctx, priorToken); err != nil {
			s.log.Warn("destroy pre-auth session failed", zap.Error(err))
		}
	}

	err = s.sessions.Put(ctx, token, session.Session{
		AccountID: account.ID,
		Email:     account.Email,
		IssuedAt:  s.now().UTC(),
	}, s.ttl)
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	return token, nil
}

// Logout invalidates the session bound to the token. Logging out an
// already-invalid session succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Check reports whether the token is bound to an authenticated session.
// Nothing beyond the boolean is disclosed.
func (s *AuthService) Check(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	_, ok, err := s.sessions.Get(ctx, token)
	if err != nil {
		s.log.Warn("session lookup failed", zap.Error(err))
		return false
	}
	return ok
}

// Session returns the session bound to the token, if any.
func (s *AuthService) Session(ctx context.Context, token string) (session.Session, bool) {
	if token == "" {
		return session.Session{}, false
	}
	sess, ok, err := s.sessions.Get(ctx, token)
	if err != nil {
		s.log.Warn("session lookup failed", zap.Error(err))
		return session.Session{}, false
	}
	return sess, ok
}

// statusAllowsLogin applies the lifecycle gate: blocked accounts never log
// in; suspended accounts log in once their expiry date (UTC, day
// granularity) has passed. An absent or unreadable expiry on a suspended
// account counts as expired.
func (s *AuthService) statusAllowsLogin(account types.Account) bool {
	switch account.Status {
	case types.StatusBlocked:
		return false
	case types.StatusSuspended:
		if account.SuspendedUntil == nil {
			return true
		}
		until, err := parseStoredDate(*account.SuspendedUntil)
		if err != nil {
			s.log.Warn("unreadable suspension expiry",
				zap.Int("account_id", account.ID),
			)
			return true
		}
		return !until.After(dateOnly(s.now()))
	default:
		return true
	}
}

// parseStoredDate reads the calendar-day part of a stored suspension
// expiry. The store returns either a bare date or a full timestamp; only
// the date part is significant.
func parseStoredDate(value string) (time.Time, error) {
	if len(value) > len(dateFormat) {
		value = value[:len(dateFormat)]
	}
	return time.Parse(dateFormat, value)
}
