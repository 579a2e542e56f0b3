package geo_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/account/models"
	"vigil/internal/account/store"
	"vigil/internal/geo"
	id "vigil/pkg/domain"
)

type MemoryIndexSuite struct {
	suite.Suite
	accounts *store.InMemoryStore
	index    *geo.MemoryIndex
}

func (s *MemoryIndexSuite) SetupTest() {
	s.accounts = store.NewInMemory()
	s.index = geo.NewMemoryIndex(s.accounts)
}

func TestMemoryIndexSuite(t *testing.T) {
	suite.Run(t, new(MemoryIndexSuite))
}

func (s *MemoryIndexSuite) addResponder(email string, status models.Status, loc geo.Point) *models.Account {
	now := time.Now()
	account := &models.Account{
		ID:     id.NewAccountID(),
		Name:   "Station " + email,
		Email:  email,
		Role:   models.RoleResponder,
		Status: status,
		Responder: &models.ResponderDetails{
			Address:    "Hill Road",
			City:       "Mumbai",
			PostalCode: "400050",
			Location:   loc,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.accounts.Create(context.Background(), account))
	return account
}

func (s *MemoryIndexSuite) TestPicksNearestApproved() {
	origin := geo.Point{Longitude: 72.877, Latitude: 19.076}

	s.addResponder("far@example.com", models.StatusApproved, geo.Point{Longitude: 72.99, Latitude: 19.30})
	near := s.addResponder("near@example.com", models.StatusApproved, geo.Point{Longitude: 72.88, Latitude: 19.08})
	// Nearer than both, but not yet approved.
	s.addResponder("pending@example.com", models.StatusPendingApproval, origin)

	candidate, err := s.index.NearestApproved(context.Background(), models.RoleResponder, origin, 50_000)
	s.Require().NoError(err)
	s.Require().NotNil(candidate)
	s.Equal(near.ID, candidate.AccountID)
}

func (s *MemoryIndexSuite) TestRadiusExcludes() {
	origin := geo.Point{Longitude: 72.877, Latitude: 19.076}
	// Pune is well over 100 km from Mumbai.
	s.addResponder("pune@example.com", models.StatusApproved, geo.Point{Longitude: 73.8567, Latitude: 18.5204})

	candidate, err := s.index.NearestApproved(context.Background(), models.RoleResponder, origin, 50_000)
	s.Require().NoError(err)
	s.Nil(candidate)
}

func (s *MemoryIndexSuite) TestNoResponders() {
	candidate, err := s.index.NearestApproved(context.Background(),
		models.RoleResponder, geo.Point{Longitude: 0, Latitude: 0}, 50_000)
	s.Require().NoError(err)
	s.Nil(candidate)
}

func (s *MemoryIndexSuite) TestEqualDistanceBreaksTowardLowestID() {
	origin := geo.Point{Longitude: 72.877, Latitude: 19.076}
	colocated := geo.Point{Longitude: 72.88, Latitude: 19.08}

	a := s.addResponder("a@example.com", models.StatusApproved, colocated)
	b := s.addResponder("b@example.com", models.StatusApproved, colocated)

	expected := a
	if b.ID.String() < a.ID.String() {
		expected = b
	}

	candidate, err := s.index.NearestApproved(context.Background(), models.RoleResponder, origin, 50_000)
	s.Require().NoError(err)
	s.Require().NotNil(candidate)
	s.Equal(expected.ID, candidate.AccountID)
}

func (s *MemoryIndexSuite) TestAgreesWithBruteForce() {
	origin := geo.Point{Longitude: 72.877, Latitude: 19.076}
	rng := rand.New(rand.NewSource(42))

	type placed struct {
		account *models.Account
		loc     geo.Point
	}
	var within []placed
	for i := 0; i < 40; i++ {
		loc := geo.Point{
			Longitude: origin.Longitude + (rng.Float64()-0.5), // up to ~50 km east-west
			Latitude:  origin.Latitude + (rng.Float64()-0.5),
		}
		account := s.addResponder(fmt.Sprintf("station-%d@example.com", i), models.StatusApproved, loc)
		if geo.DistanceMeters(origin, loc) <= 30_000 {
			within = append(within, placed{account: account, loc: loc})
		}
	}
	s.Require().NotEmpty(within, "seeded layout should place stations inside the radius")

	best := within[0]
	for _, p := range within[1:] {
		if geo.DistanceMeters(origin, p.loc) < geo.DistanceMeters(origin, best.loc) {
			best = p
		}
	}

	candidate, err := s.index.NearestApproved(context.Background(), models.RoleResponder, origin, 30_000)
	s.Require().NoError(err)
	s.Require().NotNil(candidate)
	s.Equal(best.account.ID, candidate.AccountID)
}
