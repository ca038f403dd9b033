package territory

import (
	"math"

	"github.com/walkabout-games/territory/internal/geo"
)


// TotalDistance returns the traversed length of the open path in meters: the
// sum over consecutive point pairs, not including the implicit closing
// segment back to the start.
func TotalDistance(path []geo.Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += geo.DistanceMeters(path[i-1], path[i])
	}
	return total
}

// EnclosedArea returns the area in square meters enclosed by the path,
// computed with the shoelace formula on a locally projected copy. The
// traversal direction and the choice of starting vertex do not affect the
// result.
func EnclosedArea(path []geo.Point) float64 {
	if len(path) < 3 {
		return 0
	}

	projected := geo.ProjectToLocalPlane(path, geo.Centroid(path))

	// Shoelace over every consecutive pair plus the wrap pair back to the
	// start. The closure detector certifies proximity, not equality, so the
	// ring is closed implicitly; the wrap term is zero when the last vertex
	// already repeats the first.
	var sum float64
	n := len(projected)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += projected[i].X*projected[j].Y - projected[j].X*projected[i].Y
	}
	return math.Abs(sum) / 2
}

// CompactnessRatio returns enclosed area divided by bounding-box area, as a
// percentage. A loop traced out-and-back along nearly the same line encloses
// almost nothing relative to its bounding box and scores near zero, which is
// the key defense against geometrically degenerate closed paths.
//
// All-collinear paths have a zero bounding-box area; compactness is defined
// as zero there, which the validator's minimum-ratio check rejects without a
// special case.
func CompactnessRatio(path []geo.Point) float64 {
	if len(path) < 3 {
		return 0
	}

	origin := geo.Centroid(path)
	projected := geo.ProjectToLocalPlane(path, origin)
	boxArea := geo.PlaneBounds(projected).Area()
	if boxArea <= 0 {
		return 0
	}
	return EnclosedArea(path) / boxArea * 100
}
