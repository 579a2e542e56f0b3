package store

import (
	"context"
	"sync"

	"vigil/internal/account/models"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

// InMemoryStore keeps accounts in process. It is the unit-test substrate and
// the default when no database is configured; it favors clarity over
// performance.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]*models.Account
	byEmail  map[string]id.AccountID // key is the normalized email
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[id.AccountID]*models.Account),
		byEmail:  make(map[string]id.AccountID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.NormalizeEmail(account.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	cp := clone(account)
	s.accounts[account.ID] = cp
	s.byEmail[key] = account.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if account, ok := s.accounts[accountID]; ok {
		return clone(account), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if accountID, ok := s.byEmail[models.NormalizeEmail(email)]; ok {
		return clone(s.accounts[accountID]), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.accounts[account.ID] = clone(account)
	return nil
}

func (s *InMemoryStore) ListByRoleStatus(_ context.Context, role models.Role, status models.Status) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Account
	for _, account := range s.accounts {
		if account.Role == role && account.Status == status {
			out = append(out, clone(account))
		}
	}
	return out, nil
}

// clone guards callers against aliasing the store's copy.
func clone(a *models.Account) *models.Account {
	cp := *a
	if a.Responder != nil {
		details := *a.Responder
		cp.Responder = &details
	}
	return &cp
}
