package territory

import (
	"math"
	"time"

	"github.com/walkabout-games/territory/internal/geo"
)

// testOrigin is an arbitrary mid-latitude reference point for synthetic paths.
var testOrigin = geo.Point{Latitude: 48.1000, Longitude: 11.5000}

// pointAt returns a point offset east/north from origin by the given meters.
func pointAt(origin geo.Point, eastM, northM float64) geo.Point {
	dLat := northM / geo.MetersPerDegreeLat
	dLon := eastM / (geo.MetersPerDegreeLat * math.Cos(origin.Latitude*math.Pi/180))
	return geo.Point{Latitude: origin.Latitude + dLat, Longitude: origin.Longitude + dLon}
}

// offsets builds a path from origin-relative (east, north) meter offsets.
func offsets(origin geo.Point, xy ...[2]float64) []geo.Point {
	path := make([]geo.Point, len(xy))
	for i, o := range xy {
		path[i] = pointAt(origin, o[0], o[1])
	}
	return path
}

// rectanglePath traces a 60m x 40m rectangle counter-clockwise from origin,
// sampled roughly every 20m: twelve points whose tail re-enters the closure
// threshold of the start. Perimeter ~200m, area 2400m².
func rectanglePath(origin geo.Point) []geo.Point {
	return offsets(origin,
		[2]float64{0, 0},
		[2]float64{20, 0},
		[2]float64{40, 0},
		[2]float64{60, 0},
		[2]float64{60, 20},
		[2]float64{60, 40},
		[2]float64{40, 40},
		[2]float64{20, 40},
		[2]float64{0, 40},
		[2]float64{0, 25},
		[2]float64{0, 12},
		[2]float64{0, 2},
	)
}

// figureEightPath crosses itself mid-path, away from the closing segment.
func figureEightPath(origin geo.Point) []geo.Point {
	return offsets(origin,
		[2]float64{0, 0},
		[2]float64{40, 0},
		[2]float64{40, 40},
		[2]float64{0, 40}, // segment 2->3 will cross segment 4->5
		[2]float64{0, 20},
		[2]float64{60, 20}, // crosses the right side of the first loop
		[2]float64{60, -20},
		[2]float64{0, -20},
		[2]float64{0, -5},
	)
}

// fixSeries converts points into fixes at a fixed cadence and accuracy.
func fixSeries(points []geo.Point, start time.Time, interval time.Duration, accuracyM float64) []Fix {
	fixes := make([]Fix, len(points))
	for i, p := range points {
		fixes[i] = Fix{
			Point:          p,
			Time:           start.Add(time.Duration(i) * interval),
			AccuracyMeters: accuracyM,
		}
	}
	return fixes
}

// collectSink records emitted events for assertions.
type collectSink struct {
	events []Event
}

func (c *collectSink) Emit(e Event) {
	c.events = append(c.events, e)
}

func (c *collectSink) byStage(stage Stage) []Event {
	var out []Event
	for _, e := range c.events {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}
