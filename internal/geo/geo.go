// Package geo provides geodesic distance and local planar projection
// utilities for GPS coordinates.
//
// All projection math uses a local equirectangular approximation around a
// centroid, which is accurate only for small extents (under roughly 1 km).
// Recorded territories are capped at a few hundred meters across, so no
// further sophistication is needed.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// MetersPerDegreeLat is the approximate north-south extent of one degree of
// latitude. Longitude scale shrinks with cos(latitude).
const MetersPerDegreeLat = 111320.0

// Point is an immutable geographic coordinate in degrees.
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// PlanePoint is a point projected onto a local tangent plane, in meters
// from the projection origin.
type PlanePoint struct {
	X float64
	Y float64
}

// Valid reports whether the point lies within the WGS84 coordinate ranges.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// DistanceMeters returns the great-circle distance between two points using
// the haversine formula. Accurate to well under a meter at the tens to
// hundreds of meters scale this system operates at.
func DistanceMeters(a, b Point) float64 {
	if a.Latitude == b.Latitude && a.Longitude == b.Longitude {
		return 0
	}

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dlat := (b.Latitude - a.Latitude) * math.Pi / 180
	dlon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Centroid returns the arithmetic mean of the given points. Returns the zero
// point for an empty slice.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Latitude
		sumLon += p.Longitude
	}
	n := float64(len(points))
	return Point{Latitude: sumLat / n, Longitude: sumLon / n}
}

// ProjectToLocalPlane converts points to meters-from-origin coordinates on a
// local tangent plane. The origin supplies both the subtraction reference and
// the latitude at which the longitude scale is evaluated.
func ProjectToLocalPlane(points []Point, origin Point) []PlanePoint {
	metersPerDegreeLon := MetersPerDegreeLat * math.Cos(origin.Latitude*math.Pi/180)

	projected := make([]PlanePoint, len(points))
	for i, p := range points {
		projected[i] = PlanePoint{
			X: (p.Longitude - origin.Longitude) * metersPerDegreeLon,
			Y: (p.Latitude - origin.Latitude) * MetersPerDegreeLat,
		}
	}
	return projected
}

// Bounds is an axis-aligned bounding box in plane coordinates.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// PlaneBounds computes the bounding box of projected points. Returns the zero
// Bounds for an empty slice.
func PlaneBounds(points []PlanePoint) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{
		MinX: points[0].X, MaxX: points[0].X,
		MinY: points[0].Y, MaxY: points[0].Y,
	}
	for _, p := range points[1:] {
		if p.X < b.MinX {
			b.MinX = p.X
		}
		if p.X > b.MaxX {
			b.MaxX = p.X
		}
		if p.Y < b.MinY {
			b.MinY = p.Y
		}
		if p.Y > b.MaxY {
			b.MaxY = p.Y
		}
	}
	return b
}

// Area returns the bounding box area in square meters.
func (b Bounds) Area() float64 {
	return (b.MaxX - b.MinX) * (b.MaxY - b.MinY)
}

// GeoBounds is an axis-aligned bounding box in geographic coordinates.
type GeoBounds struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// BoundsOf computes the geographic bounding box of the given points.
// Returns the zero GeoBounds for an empty slice.
func BoundsOf(points []Point) GeoBounds {
	if len(points) == 0 {
		return GeoBounds{}
	}
	b := GeoBounds{
		MinLat: points[0].Latitude, MaxLat: points[0].Latitude,
		MinLon: points[0].Longitude, MaxLon: points[0].Longitude,
	}
	for _, p := range points[1:] {
		if p.Latitude < b.MinLat {
			b.MinLat = p.Latitude
		}
		if p.Latitude > b.MaxLat {
			b.MaxLat = p.Latitude
		}
		if p.Longitude < b.MinLon {
			b.MinLon = p.Longitude
		}
		if p.Longitude > b.MaxLon {
			b.MaxLon = p.Longitude
		}
	}
	return b
}

// Expand grows the bounds by approximately the given number of meters in
// every direction, converting meters to degrees at the box's own latitude.
func (b GeoBounds) Expand(meters float64) GeoBounds {
	dLat := meters / MetersPerDegreeLat
	midLat := (b.MinLat + b.MaxLat) / 2
	metersPerDegreeLon := MetersPerDegreeLat * math.Cos(midLat*math.Pi/180)
	dLon := dLat
	if metersPerDegreeLon > 1 {
		dLon = meters / metersPerDegreeLon
	}
	return GeoBounds{
		MinLat: b.MinLat - dLat,
		MaxLat: b.MaxLat + dLat,
		MinLon: b.MinLon - dLon,
		MaxLon: b.MaxLon + dLon,
	}
}
