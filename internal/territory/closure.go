package territory

import "github.com/walkabout-games/territory/internal/geo"

// ClosureDetector decides whether a path has looped back near its start.
// The detector itself is stateless; the session records the open/closed
// transition and guarantees idempotence (once closed, further checks are
// never made).
type ClosureDetector struct {
	minPoints       int
	thresholdMeters float64
}

// NewClosureDetector creates a detector with the given minimum point count
// and closure distance threshold.
func NewClosureDetector(minPoints int, thresholdMeters float64) *ClosureDetector {
	return &ClosureDetector{minPoints: minPoints, thresholdMeters: thresholdMeters}
}

// IsClosed reports whether the path's last point has returned to within the
// threshold of its first point. Paths shorter than the minimum point count
// are never closed.
func (d *ClosureDetector) IsClosed(path []geo.Point) bool {
	if len(path) < d.minPoints {
		return false
	}
	return geo.DistanceMeters(path[0], path[len(path)-1]) <= d.thresholdMeters
}
