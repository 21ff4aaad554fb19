package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// ObjectStore defines the object operations shared by the storage backends.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Signatures stores signed-document signature images under unique keys.
type Signatures struct {
	backend ObjectStore
}

func NewSignatures(backend ObjectStore) *Signatures {
	return &Signatures{backend: backend}
}

// Init ensures the signature bucket exists.
func (s *Signatures) Init(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// SavePNG stores a validated signature PNG and returns its generated key.
// Keys embed a UUID so concurrent submissions cannot collide.
func (s *Signatures) SavePNG(ctx context.Context, data []byte) (string, error) {
	key := fmt.Sprintf("sig_%s.png", uuid.NewString())
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/png"); err != nil {
		return "", fmt.Errorf("store signature: %w", err)
	}
	return key, nil
}

// Open returns a reader for a stored signature.
func (s *Signatures) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Remove deletes a stored signature.
func (s *Signatures) Remove(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}
