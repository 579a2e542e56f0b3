// Package geo provides the geographic primitives for dispatch: a validated
// point type, great-circle distance, and the responder index used for
// nearest-within-radius lookups.
package geo

import geopoint "vigil/internal/geo/point"

// EarthRadiusMeters is the mean earth radius used to convert angles on the
// unit sphere into metric distance.
const EarthRadiusMeters = geopoint.EarthRadiusMeters

// Point is a WGS84 coordinate pair. Longitude first, matching the GeoJSON
// ordering used on the wire.
type Point = geopoint.Point

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(a, b Point) float64 {
	return geopoint.DistanceMeters(a, b)
}
