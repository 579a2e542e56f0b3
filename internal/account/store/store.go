// Package store persists accounts. Implementations are interface-driven so
// services stay testable against the in-memory store while deployments use
// PostgreSQL.
package store

import (
	"context"

	"vigil/internal/account/models"
	id "vigil/pkg/domain"
)

// Store is the account persistence contract. Implementations return
// sentinel.ErrNotFound for missing accounts and sentinel.ErrConflict when a
// create would violate case-insensitive email uniqueness.
type Store interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	ListByRoleStatus(ctx context.Context, role models.Role, status models.Status) ([]*models.Account, error)
}
