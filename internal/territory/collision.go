package territory

import (
	"fmt"
	"math"

	"github.com/walkabout-games/territory/internal/geo"
)

// ClaimedTerritory is a previously validated polygon owned by some player.
// Supplied as a read-only snapshot by the store; the engine never mutates it.
type ClaimedTerritory struct {
	ID       string      `json:"id"`
	OwnerID  string      `json:"owner_id"`
	Vertices []geo.Point `json:"vertices"`
}

// CollisionKind distinguishes the two hard-violation conditions.
type CollisionKind string

const (
	CollisionPointInTerritory    CollisionKind = "point_in_territory"
	CollisionPathCrossesBoundary CollisionKind = "path_crosses_boundary"
)

// WarningLevel buckets the distance to the nearest other-owner territory.
type WarningLevel string

const (
	LevelSafe      WarningLevel = "safe"
	LevelCaution   WarningLevel = "caution"
	LevelWarning   WarningLevel = "warning"
	LevelDanger    WarningLevel = "danger"
	LevelViolation WarningLevel = "violation"
)

// CollisionResult is the outcome of a collision or proximity check.
// Recomputed fresh on every check; nothing is persisted.
type CollisionResult struct {
	HasCollision          bool          `json:"has_collision"`
	Kind                  CollisionKind `json:"kind,omitempty"`
	Message               string        `json:"message,omitempty"`
	ClosestDistanceMeters float64       `json:"closest_distance_m"`
	Level                 WarningLevel  `json:"level"`
}

// CollisionEngine checks candidate points and paths against a snapshot of
// existing territories. A stale or empty snapshot is treated as "no other
// territories": the checks fail open rather than closed when collision data
// is unavailable.
type CollisionEngine struct {
	cfg Config
}

// NewCollisionEngine creates an engine using the proximity bands from cfg.
func NewCollisionEngine(cfg Config) *CollisionEngine {
	return &CollisionEngine{cfg: cfg}
}

// PointInPolygon runs the standard even-odd ray-casting test with longitude
// as x and latitude as y. Polygons with fewer than 3 vertices contain
// nothing.
func PointInPolygon(p geo.Point, vertices []geo.Point) bool {
	n := len(vertices)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := vertices[i], vertices[j]
		if (vi.Latitude > p.Latitude) != (vj.Latitude > p.Latitude) {
			crossLon := (vj.Longitude-vi.Longitude)*(p.Latitude-vi.Latitude)/
				(vj.Latitude-vi.Latitude) + vi.Longitude
			if p.Longitude < crossLon {
				inside = !inside
			}
		}
	}
	return inside
}

// CheckStartPoint rejects a claim starting inside another owner's territory.
func (e *CollisionEngine) CheckStartPoint(p geo.Point, userID string, territories []ClaimedTerritory) CollisionResult {
	for _, t := range territories {
		if t.OwnerID == userID {
			continue
		}
		if PointInPolygon(p, t.Vertices) {
			return CollisionResult{
				HasCollision: true,
				Kind:         CollisionPointInTerritory,
				Message:      "cannot start a claim inside another player's territory",
				Level:        LevelViolation,
			}
		}
	}
	return CollisionResult{
		ClosestDistanceMeters: e.MinDistanceToTerritories(p, userID, territories),
		Level:                 LevelSafe,
	}
}

// CheckPathCrossesBoundary tests every path segment against every edge of
// every other owner's polygon, and every path point for containment. Either
// condition is a hard violation.
func (e *CollisionEngine) CheckPathCrossesBoundary(path []geo.Point, userID string, territories []ClaimedTerritory) CollisionResult {
	for _, t := range territories {
		if t.OwnerID == userID || len(t.Vertices) < 3 {
			continue
		}

		for _, p := range path {
			if PointInPolygon(p, t.Vertices) {
				return CollisionResult{
					HasCollision: true,
					Kind:         CollisionPointInTerritory,
					Message:      "path enters another player's territory",
					Level:        LevelViolation,
				}
			}
		}

		nv := len(t.Vertices)
		for i := 1; i < len(path); i++ {
			for j := 0; j < nv; j++ {
				edgeStart := t.Vertices[j]
				edgeEnd := t.Vertices[(j+1)%nv]
				if segmentsCross(path[i-1], path[i], edgeStart, edgeEnd) {
					return CollisionResult{
						HasCollision: true,
						Kind:         CollisionPathCrossesBoundary,
						Message:      "path crosses another player's boundary",
						Level:        LevelViolation,
					}
				}
			}
		}
	}
	return CollisionResult{Level: LevelSafe, ClosestDistanceMeters: math.Inf(1)}
}

// MinDistanceToTerritories returns the minimum haversine distance from p to
// any vertex of any other owner's polygon, or +Inf if none exist.
//
// Vertex-only distance understates the true distance to an edge, which is
// fine for the advisory proximity bands; the hard violation checks above do
// real segment tests.
func (e *CollisionEngine) MinDistanceToTerritories(p geo.Point, userID string, territories []ClaimedTerritory) float64 {
	minDist := math.Inf(1)
	for _, t := range territories {
		if t.OwnerID == userID {
			continue
		}
		for _, v := range t.Vertices {
			if d := geo.DistanceMeters(p, v); d < minDist {
				minDist = d
			}
		}
	}
	return minDist
}

// ComprehensiveCheck runs the boundary-crossing test first (a hit
// short-circuits as a hard violation), then buckets the distance from the
// path's last point into the advisory proximity bands. Only actual crossing
// or containment is a hard failure; danger remains advisory.
func (e *CollisionEngine) ComprehensiveCheck(path []geo.Point, userID string, territories []ClaimedTerritory) CollisionResult {
	if len(path) == 0 {
		return CollisionResult{Level: LevelSafe, ClosestDistanceMeters: math.Inf(1)}
	}

	if result := e.CheckPathCrossesBoundary(path, userID, territories); result.HasCollision {
		return result
	}

	dist := e.MinDistanceToTerritories(path[len(path)-1], userID, territories)
	result := CollisionResult{ClosestDistanceMeters: dist}

	switch {
	case dist > e.cfg.SafeDistanceMeters:
		result.Level = LevelSafe
	case dist > e.cfg.CautionDistanceMeters:
		result.Level = LevelCaution
		result.Message = fmt.Sprintf("approaching another territory (%.0fm away)", dist)
	case dist > e.cfg.WarningDistanceMeters:
		result.Level = LevelWarning
		result.Message = fmt.Sprintf("close to another territory (%.0fm away)", dist)
	default:
		result.Level = LevelDanger
		result.Message = fmt.Sprintf("very close to another territory (%.0fm away)", dist)
	}
	return result
}
