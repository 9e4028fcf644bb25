// Package geo contains the pure geographic helpers used by route tracking.
// None of these functions fail: they are defined for every finite coordinate pair.
package geo

import (
	"math"

	"github.com/golang/geo/s2"

	"saferoute/internal/types"
)

const (
	// EarthRadiusMeters is the mean Earth radius used for every distance in this module.
	EarthRadiusMeters = 6371e3

	// MetersPerMile converts great-circle meters into statute miles.
	MetersPerMile = 1609.34

	// metersPerDegree scales a planar distance measured in degrees back to meters.
	metersPerDegree = EarthRadiusMeters * math.Pi / 180
)

// Distance returns the haversine (great-circle) distance between a and b in meters.
func Distance(a, b types.Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Bearing returns the initial great-circle bearing from a to b in degrees,
// normalized to [0, 360) with 0 = north.
func Bearing(a, b types.Point) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	return normalizeDegrees(radiansToDegrees(math.Atan2(y, x)))
}

// DistanceToSegment returns the perpendicular distance in meters from p to the
// line through a and b.
//
// Latitude and longitude are treated directly as planar x/y and the result is
// scaled by meters-per-degree of latitude, ignoring the cos(lat) shrink of
// longitude. When a and b coincide the point-to-point distance to a is returned.
func DistanceToSegment(p, a, b types.Point) float64 {
	x0, y0 := p.Lat, p.Lng
	x1, y1 := a.Lat, a.Lng
	x2, y2 := b.Lat, b.Lng

	denominator := math.Hypot(y2-y1, x2-x1)
	if denominator == 0 {
		return Distance(p, a)
	}
	numerator := math.Abs((y2-y1)*x0 - (x2-x1)*y0 + x2*y1 - y2*x1)
	return numerator / denominator * metersPerDegree
}

// HeadingFromVector converts a 2-axis magnetometer reading into a compass
// heading in [0, 360).
func HeadingFromVector(x, y float64) float64 {
	return normalizeDegrees(radiansToDegrees(math.Atan2(y, x)))
}

// AngleDiff returns the smallest absolute difference between two headings, in [0, 180].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// PathLength sums the great-circle lengths of consecutive pairs in points.
func PathLength(points []types.Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Interpolate returns the point a fraction f of the way from a to b along the great circle.
func Interpolate(a, b types.Point, f float64) types.Point {
	pa := s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat, a.Lng))
	pb := s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat, b.Lng))
	ll := s2.LatLngFromPoint(s2.Interpolate(f, pa, pb))
	return types.Point{Lat: ll.Lat.Degrees(), Lng: ll.Lng.Degrees()}
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radiansToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}
