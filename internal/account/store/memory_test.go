package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/account/models"
	"vigil/internal/geo"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

type AccountStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *AccountStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func TestAccountStoreSuite(t *testing.T) {
	suite.Run(t, new(AccountStoreSuite))
}

func citizen(email string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:        id.NewAccountID(),
		Name:      "Asha Rao",
		Email:     models.NormalizeEmail(email),
		Role:      models.RoleCitizen,
		Status:    models.StatusPendingVerification,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *AccountStoreSuite) TestEmailUniqueness() {
	s.Run("create then lookup by email", func() {
		account := citizen("asha@example.com")
		s.Require().NoError(s.store.Create(context.Background(), account))

		found, err := s.store.FindByEmail(context.Background(), "asha@example.com")
		s.Require().NoError(err)
		s.Equal(account.ID, found.ID)
	})

	s.Run("duplicate email conflicts regardless of case", func() {
		s.Require().NoError(s.store.Create(context.Background(), citizen("dup@example.com")))

		err := s.store.Create(context.Background(), citizen("DUP@Example.COM"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("missing email returns ErrNotFound", func() {
		_, err := s.store.FindByEmail(context.Background(), "nobody@example.com")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *AccountStoreSuite) TestUpdateAndIsolation() {
	account := citizen("update@example.com")
	s.Require().NoError(s.store.Create(context.Background(), account))

	account.Status = models.StatusApproved
	s.Require().NoError(s.store.Update(context.Background(), account))

	found, err := s.store.FindByID(context.Background(), account.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, found.Status)

	// Mutating the returned value must not touch the stored copy.
	found.Status = models.StatusRejected
	again, err := s.store.FindByID(context.Background(), account.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, again.Status)
}

func (s *AccountStoreSuite) TestUpdateMissingAccount() {
	err := s.store.Update(context.Background(), citizen("ghost@example.com"))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *AccountStoreSuite) TestListByRoleStatus() {
	responder := &models.Account{
		ID:     id.NewAccountID(),
		Name:   "Bandra Station",
		Email:  "station@example.com",
		Role:   models.RoleResponder,
		Status: models.StatusApproved,
		Responder: &models.ResponderDetails{
			Address:    "Hill Road",
			City:       "Mumbai",
			PostalCode: "400050",
			Location:   geo.Point{Longitude: 72.88, Latitude: 19.08},
		},
	}
	s.Require().NoError(s.store.Create(context.Background(), responder))
	s.Require().NoError(s.store.Create(context.Background(), citizen("bystander@example.com")))

	approved, err := s.store.ListByRoleStatus(context.Background(), models.RoleResponder, models.StatusApproved)
	s.Require().NoError(err)
	s.Require().Len(approved, 1)
	s.Equal(responder.ID, approved[0].ID)

	pending, err := s.store.ListByRoleStatus(context.Background(), models.RoleResponder, models.StatusPendingApproval)
	s.Require().NoError(err)
	s.Empty(pending)
}
