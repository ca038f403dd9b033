package territory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-polyline"

	"github.com/walkabout-games/territory/internal/geo"
)

// ClaimRecord is the on-wire/persistence shape of a finished territory:
// ordered vertices, a WKT polygon string, the bounding box, the encoded
// polyline, and the measured figures from validation.
type ClaimRecord struct {
	ID               string        `json:"id"`
	SessionID        string        `json:"session_id"`
	OwnerID          string        `json:"owner_id"`
	Vertices         []geo.Point   `json:"vertices"`
	WKT              string        `json:"wkt"`
	EncodedPolyline  string        `json:"encoded_polyline"`
	Bounds           geo.GeoBounds `json:"bounds"`
	PointCount       int           `json:"point_count"`
	AreaSquareMeters float64       `json:"area_m2"`
	PerimeterMeters  float64       `json:"perimeter_m"`
	ClaimedAt        time.Time     `json:"claimed_at"`
}

func buildClaimRecord(sessionID, ownerID string, path []geo.Point, verdict Verdict, now time.Time) (*ClaimRecord, error) {
	if len(path) < 3 {
		return nil, fmt.Errorf("territory: claim needs at least 3 vertices, got %d", len(path))
	}
	return &ClaimRecord{
		ID:               uuid.NewString(),
		SessionID:        sessionID,
		OwnerID:          ownerID,
		Vertices:         path,
		WKT:              PolygonWKT(path),
		EncodedPolyline:  EncodePath(path),
		Bounds:           geo.BoundsOf(path),
		PointCount:       len(path),
		AreaSquareMeters: verdict.AreaSquareMeters,
		PerimeterMeters:  verdict.DistanceMeters,
		ClaimedAt:        now,
	}, nil
}

// PolygonWKT renders the path as a well-known-text polygon. WKT vertex order
// is longitude first, latitude second. The ring is explicitly closed by
// repeating the first vertex if needed.
func PolygonWKT(path []geo.Point) string {
	var b strings.Builder
	b.WriteString("POLYGON((")
	for i, p := range path {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%.6f %.6f", p.Longitude, p.Latitude)
	}
	if path[0] != path[len(path)-1] {
		fmt.Fprintf(&b, ", %.6f %.6f", path[0].Longitude, path[0].Latitude)
	}
	b.WriteString("))")
	return b.String()
}

// EncodePath returns the Google encoded-polyline representation of the path.
func EncodePath(path []geo.Point) string {
	coords := make([][]float64, len(path))
	for i, p := range path {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePath parses a Google encoded polyline back into points.
func DecodePath(encoded string) ([]geo.Point, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("territory: decode polyline: %w", err)
	}
	points := make([]geo.Point, len(coords))
	for i, c := range coords {
		points[i] = geo.Point{Latitude: c[0], Longitude: c[1]}
	}
	return points, nil
}
