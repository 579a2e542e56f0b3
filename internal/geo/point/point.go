// Package point defines the WGS84 coordinate pair and great-circle distance
// shared by the geo index and the account model. It is a leaf package so that
// both vigil/internal/geo and vigil/internal/account/models can depend on it
// without importing each other.
package point

import (
	"math"

	"github.com/golang/geo/s2"

	dErrors "vigil/pkg/domain-errors"
)

// EarthRadiusMeters is the mean earth radius used to convert angles on the
// unit sphere into metric distance.
const EarthRadiusMeters = 6371010.0

// Point is a WGS84 coordinate pair. Longitude first, matching the GeoJSON
// ordering used on the wire.
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Validate rejects non-finite or out-of-range coordinates.
func (p Point) Validate() error {
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) ||
		math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) {
		return dErrors.New(dErrors.CodeInvalidLocation, "coordinates must be finite numbers")
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return dErrors.New(dErrors.CodeInvalidLocation, "longitude must be in [-180,180]")
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return dErrors.New(dErrors.CodeInvalidLocation, "latitude must be in [-90,90]")
	}
	return nil
}

func (p Point) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Latitude, p.Longitude)
}

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(a, b Point) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * EarthRadiusMeters
}
