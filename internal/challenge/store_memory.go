package challenge

import (
	"context"
	"sync"
	"time"

	"vigil/pkg/platform/sentinel"
)

// InMemoryStore keeps challenges in process, guarded by a mutex so Consume is
// an atomic check-and-delete.
type InMemoryStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{challenges: make(map[string]Challenge)}
}

func (s *InMemoryStore) Put(_ context.Context, target string, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[target] = ch
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, target string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.challenges[target]; ok {
		return ch, nil
	}
	return Challenge{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Consume(_ context.Context, target string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[target]
	if !ok {
		return Challenge{}, sentinel.ErrNotFound
	}
	delete(s.challenges, target)
	return ch, nil
}

// RemoveExpiredAt drops challenges whose expiry has passed. The sweep is
// idempotent and has no ordering requirement relative to other operations.
func (s *InMemoryStore) RemoveExpiredAt(_ context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for target, ch := range s.challenges {
		if now.After(ch.ExpiresAt) {
			delete(s.challenges, target)
			removed++
		}
	}
	return removed
}

// StartCleanup runs the expiry sweep on a ticker until ctx is cancelled.
func (s *InMemoryStore) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RemoveExpiredAt(ctx, time.Now())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
