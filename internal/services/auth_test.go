package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/chemo-it/backoffice/internal/session"
	"github.com/chemo-it/backoffice/types"
)

const testPassword = "correct-password"

func newAuthFixture(t *testing.T) (*AuthService, *fakeRepo, *session.MemoryStore) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &fakeRepo{byEmail: map[string]types.Account{
		"b@x.com": {
			ID:           2,
			Email:        "b@x.com",
			PasswordHash: string(hash),
			Status:       types.StatusActive,
		},
	}}
	sessions := session.NewMemoryStore()
	svc := NewAuthService(repo, sessions, time.Hour, zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
	}
	return svc, repo, sessions
}

func withStatus(t *testing.T, repo *fakeRepo, status types.Status, until *string) {
	t.Helper()
	account := repo.byEmail["b@x.com"]
	account.Status = status
	account.SuspendedUntil = until
	repo.byEmail["b@x.com"] = account
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)
	withStatus(t, repo, types.StatusBlocked, nil)

	// Unknown email, known email with wrong password, and blocked account
	// with correct password: one identical outcome for all three.
	_, unknownErr := svc.Login(context.Background(), "a@x.com", "whatever", "")
	_, wrongPassErr := svc.Login(context.Background(), "b@x.com", "wrong-password", "")
	_, blockedErr := svc.Login(context.Background(), "b@x.com", testPassword, "")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongPassErr, ErrInvalidCredentials)
	assert.ErrorIs(t, blockedErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongPassErr.Error())
	assert.Equal(t, wrongPassErr.Error(), blockedErr.Error())
}

func TestLoginRejectsMalformedInputWithoutStoreCall(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)

	for _, tc := range []struct{ email, password string }{
		{"", testPassword},
		{"b@x.com", ""},
		{"not-an-email", testPassword},
	} {
		_, err := svc.Login(context.Background(), tc.email, tc.password, "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	assert.Zero(t, repo.storeCalls, "malformed input must not reach the store")
}

func TestLoginStoreErrorIsNotInvalidCredentials(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)
	repo.getErr = errors.New("row store request: connection refused")

	_, err := svc.Login(context.Background(), "b@x.com", testPassword, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSuspensionGate(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)

	future := "2026-09-05T00:00:00+00:00"
	withStatus(t, repo, types.StatusSuspended, &future)
	_, err := svc.Login(context.Background(), "b@x.com", testPassword, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Once the reference clock passes the expiry, login succeeds without
	// any explicit reactivation call.
	past := "2026-08-30T00:00:00+00:00"
	withStatus(t, repo, types.StatusSuspended, &past)
	token, err := svc.Login(context.Background(), "b@x.com", testPassword, "")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// An expiry date that is no longer in the future admits login.
	today := "2026-08-31"
	withStatus(t, repo, types.StatusSuspended, &today)
	_, err = svc.Login(context.Background(), "b@x.com", testPassword, "")
	assert.NoError(t, err)

	// Absent expiry on a suspended account is treated as expired.
	withStatus(t, repo, types.StatusSuspended, nil)
	_, err = svc.Login(context.Background(), "b@x.com", testPassword, "")
	assert.NoError(t, err)
}

func TestLoginRotatesSessionToken(t *testing.T) {
	svc, _, sessions := newAuthFixture(t)

	// A token the attacker planted before authentication.
	preAuth := session.NewToken()
	require.NoError(t, sessions.Put(context.Background(), preAuth, session.Session{}, time.Hour))

	token, err := svc.Login(context.Background(), "b@x.com", testPassword, preAuth)
	require.NoError(t, err)
	assert.NotEqual(t, preAuth, token)

	_, preAuthAlive, err := sessions.Get(context.Background(), preAuth)
	require.NoError(t, err)
	assert.False(t, preAuthAlive, "pre-auth token must not survive login")

	sess, ok, err := sessions.Get(context.Background(), token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, sess.AccountID)
	assert.Equal(t, "b@x.com", sess.Email)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	token, err := svc.Login(context.Background(), "b@x.com", testPassword, "")
	require.NoError(t, err)
	assert.True(t, svc.Check(context.Background(), token))

	require.NoError(t, svc.Logout(context.Background(), token))
	assert.False(t, svc.Check(context.Background(), token))

	// Logging out an already-invalid session is not an error.
	require.NoError(t, svc.Logout(context.Background(), token))
	require.NoError(t, svc.Logout(context.Background(), ""))
}

func TestCheckDisclosesOnlyBoolean(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	assert.False(t, svc.Check(context.Background(), ""))
	assert.False(t, svc.Check(context.Background(), "unknown-token"))

	token, err := svc.Login(context.Background(), "b@x.com", testPassword, "")
	require.NoError(t, err)
	assert.True(t, svc.Check(context.Background(), token))
}
