package geo

import (
	"context"

	"vigil/internal/account/models"
	id "vigil/pkg/domain"
)

// Candidate is a responder eligible for dispatch, as seen by the index.
type Candidate struct {
	AccountID id.AccountID
	Location  Point
}

// Index answers nearest-within-radius queries over approved accounts of a
// given role. Implementations observe status and location through the account
// store, so an approval or rejection is visible on the next query.
type Index interface {
	// NearestApproved returns the approved account of the role nearest to
	// point within maxDistanceMeters, or (nil, nil) when nothing qualifies.
	// Ties on distance break toward the lowest account id so selection is
	// deterministic.
	NearestApproved(ctx context.Context, role models.Role, point Point, maxDistanceMeters float64) (*Candidate, error)
}

// CandidateSource lists accounts by role and status; the account store
// satisfies it.
type CandidateSource interface {
	ListByRoleStatus(ctx context.Context, role models.Role, status models.Status) ([]*models.Account, error)
}

// MemoryIndex scans candidates from a CandidateSource and computes
// great-circle distances in process. It is exact, and fine at the scale of a
// city's worth of responders; swap in the Postgres index when the store is
// SQL-backed.
type MemoryIndex struct {
	source CandidateSource
}

func NewMemoryIndex(source CandidateSource) *MemoryIndex {
	return &MemoryIndex{source: source}
}

func (x *MemoryIndex) NearestApproved(ctx context.Context, role models.Role, point Point, maxDistanceMeters float64) (*Candidate, error) {
	accounts, err := x.source.ListByRoleStatus(ctx, role, models.StatusApproved)
	if err != nil {
		return nil, err
	}

	var (
		best     *Candidate
		bestDist float64
	)
	for _, account := range accounts {
		loc, ok := account.Location()
		if !ok {
			continue
		}
		dist := DistanceMeters(point, loc)
		if dist > maxDistanceMeters {
			continue
		}
		switch {
		case best == nil, dist < bestDist:
			best = &Candidate{AccountID: account.ID, Location: loc}
			bestDist = dist
		case dist == bestDist && account.ID.String() < best.AccountID.String():
			best = &Candidate{AccountID: account.ID, Location: loc}
		}
	}
	return best, nil
}
