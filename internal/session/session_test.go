package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	token := NewToken()
	sess := Session{AccountID: 7, Email: "admin@example.com", IssuedAt: time.Now().UTC()}

	require.NoError(t, store.Put(ctx, token, sess, time.Hour))

	got, ok, err := store.Get(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sess.AccountID, got.AccountID)
	assert.Equal(t, sess.Email, got.Email)

	require.NoError(t, store.Delete(ctx, token))
	_, ok, err = store.Get(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	store := NewMemoryStore()
	_, ok, err := store.Get(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	token := NewToken()

	require.NoError(t, store.Put(ctx, token, Session{AccountID: 1}, -time.Second))

	_, ok, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok, "expired sessions must not resolve")
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.Delete(context.Background(), "never-issued"))
}

func TestNewTokenIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := NewToken()
		require.NotEmpty(t, token)
		require.False(t, seen[token], "token issued twice")
		seen[token] = true
	}
}
