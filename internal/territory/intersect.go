package territory

import "github.com/walkabout-games/territory/internal/geo"

// ccw reports whether the points a, b, c make a counter-clockwise turn,
// using longitude as x and latitude as y. At territory scale the geographic
// coordinates are close enough to planar for orientation tests.
func ccw(a, b, c geo.Point) bool {
	return (c.Latitude-a.Latitude)*(b.Longitude-a.Longitude) >
		(b.Latitude-a.Latitude)*(c.Longitude-a.Longitude)
}

// segmentsCross reports whether segments AB and CD properly intersect.
func segmentsCross(a, b, c, d geo.Point) bool {
	return ccw(a, c, d) != ccw(b, c, d) && ccw(a, b, c) != ccw(a, b, d)
}

// HasSelfIntersection reports whether any two non-adjacent segments of the
// path cross. Fewer than 4 points cannot self-intersect.
//
// Adjacent segments share a vertex and are skipped (j >= i+2). Exactly one
// additional pair is excluded: the first segment against the final segment,
// whose endpoints are necessarily near each other once the path has closed.
// No other pairs are excluded; over-excluding near-loop segments is how
// genuine mid-path crossings get missed.
func HasSelfIntersection(path []geo.Point) bool {
	n := len(path)
	if n < 4 {
		return false
	}

	segments := n - 1
	for i := 0; i < segments; i++ {
		for j := i + 2; j < segments; j++ {
			if i == 0 && j == segments-1 {
				continue
			}
			if segmentsCross(path[i], path[i+1], path[j], path[j+1]) {
				return true
			}
		}
	}
	return false
}
