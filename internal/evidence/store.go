// Package evidence stores uploaded evidence blobs and hands back stable
// references. Binary storage is a collaborator capability: report creation
// only needs a reference that can later be retrieved.
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"vigil/pkg/platform/sentinel"
)

// Store is the evidence capability consumed by report creation.
type Store interface {
	// Put persists the bytes and returns a stable, retrievable reference.
	Put(ctx context.Context, data []byte) (string, error)
	// Get retrieves previously stored bytes by reference.
	Get(ctx context.Context, ref string) ([]byte, error)
}

// InMemoryStore keeps blobs in process, content-addressed so repeated uploads
// of the same bytes share one reference.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryStore) Put(_ context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[ref]; !ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.blobs[ref] = cp
	}
	return ref, nil
}

func (s *InMemoryStore) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}
