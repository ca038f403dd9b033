package territory

import (
	"time"

	"github.com/walkabout-games/territory/internal/monitoring"
)

// Stage identifies which part of the pipeline produced a diagnostic event.
type Stage string

const (
	StageAccuracy         Stage = "accuracy"          // horizontal accuracy filter
	StageJump             Stage = "jump"              // GPS teleport filter
	StageMinDistance      Stage = "min_distance"      // sub-threshold movement
	StageMinInterval      Stage = "min_interval"      // sub-threshold time between fixes
	StageAccept           Stage = "accept"            // fix accepted onto the path
	StageSpeed            Stage = "speed"             // per-sample speed classification
	StageClosure          Stage = "closure"           // loop-back detection
	StagePointCount       Stage = "point_count"       // validation: point count
	StageTotalDistance    Stage = "total_distance"    // validation: traversed length
	StageSelfIntersection Stage = "self_intersection" // validation: segment crossings
	StageArea             Stage = "area"              // validation: enclosed area
	StageCompactness      Stage = "compactness"       // validation: shape quality
	StageCollision        Stage = "collision"         // territory collision check
	StageProximity        Stage = "proximity"         // distance-to-territory warning
	StageExploration      Stage = "exploration"       // exploration over-speed machine
)

// Event is a structured diagnostic record. Every rejected fix and every
// validation stage emits one.
type Event struct {
	Stage       Stage     `json:"stage"`
	Passed      bool      `json:"passed"`
	Measurement float64   `json:"measurement"`
	Detail      string    `json:"detail,omitempty"`
	Time        time.Time `json:"time"`
}

// EventSink receives diagnostic events from the engine.
type EventSink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(e Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// LogSink writes events through the monitoring logger.
type LogSink struct{}

// Emit logs the event in a single line.
func (LogSink) Emit(e Event) {
	status := "fail"
	if e.Passed {
		status = "pass"
	}
	if e.Detail != "" {
		monitoring.Logf("territory: %s %s measurement=%.2f (%s)", e.Stage, status, e.Measurement, e.Detail)
		return
	}
	monitoring.Logf("territory: %s %s measurement=%.2f", e.Stage, status, e.Measurement)
}

// NullSink discards all events.
type NullSink struct{}

// Emit does nothing.
func (NullSink) Emit(Event) {}
