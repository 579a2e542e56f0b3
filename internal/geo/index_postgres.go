package geo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vigil/internal/account/models"
	id "vigil/pkg/domain"
)

// PostgresIndex pushes the nearest-within-radius query into SQL over the
// accounts table. The haversine expression matches DistanceMeters up to
// floating point noise; ordering by distance then id gives the same
// deterministic tie-break as the memory index.
type PostgresIndex struct {
	db *sql.DB
}

func NewPostgresIndex(db *sql.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

func (x *PostgresIndex) NearestApproved(ctx context.Context, role models.Role, point Point, maxDistanceMeters float64) (*Candidate, error) {
	// 2 * R * asin(sqrt(sin²(Δlat/2) + cos(lat1)·cos(lat2)·sin²(Δlon/2)))
	const query = `
		SELECT id, longitude, latitude
		FROM (
			SELECT id, longitude, latitude,
			       2 * $5 * asin(sqrt(
			           pow(sin(radians(latitude - $2) / 2), 2) +
			           cos(radians($2)) * cos(radians(latitude)) *
			           pow(sin(radians(longitude - $1) / 2), 2)
			       )) AS distance_m
			FROM accounts
			WHERE role = $3
			  AND status = 'approved'
			  AND longitude IS NOT NULL
			  AND latitude IS NOT NULL
		) candidates
		WHERE distance_m <= $4
		ORDER BY distance_m, id
		LIMIT 1
	`
	var (
		accountID uuid.UUID
		longitude float64
		latitude  float64
	)
	err := x.db.QueryRowContext(ctx, query,
		point.Longitude, point.Latitude, string(role), maxDistanceMeters, EarthRadiusMeters,
	).Scan(&accountID, &longitude, &latitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nearest approved %s: %w", role, err)
	}
	return &Candidate{
		AccountID: id.AccountID(accountID),
		Location:  Point{Longitude: longitude, Latitude: latitude},
	}, nil
}
