package territory

import (
	"fmt"
	"time"

	"github.com/walkabout-games/territory/internal/geo"
)

// Recorder turns a raw fix stream into a clean ordered path. It applies the
// accuracy, teleport and debounce filters; speed enforcement and closure
// detection happen downstream in the session.
//
// Invariant: no two consecutive recorded points are closer than
// Config.MinRecordMeters, except that the very first point is accepted
// unconditionally.
type Recorder struct {
	cfg  Config
	sink EventSink

	path     []geo.Point
	lastTime time.Time
}

// NewRecorder creates a recorder with the given tuning. A nil sink is
// replaced with NullSink.
func NewRecorder(cfg Config, sink EventSink) *Recorder {
	if sink == nil {
		sink = NullSink{}
	}
	return &Recorder{cfg: cfg, sink: sink}
}

// Decision is the outcome of offering one fix to the recorder.
type Decision struct {
	Accepted bool
	Reason   RejectReason
	// DistanceMeters and Elapsed describe the step from the previous accepted
	// point. Zero for the first accepted point.
	DistanceMeters float64
	Elapsed        time.Duration
}

// Observe offers a fix to the recorder. Rejected fixes are dropped with no
// state change; there is no buffering or retry.
func (r *Recorder) Observe(fix Fix) Decision {
	if fix.AccuracyMeters < 0 || fix.AccuracyMeters > r.cfg.MaxAccuracyMeters {
		r.sink.Emit(Event{
			Stage: StageAccuracy, Passed: false,
			Measurement: fix.AccuracyMeters,
			Detail:      fmt.Sprintf("max %v", r.cfg.MaxAccuracyMeters),
			Time:        fix.Time,
		})
		return Decision{Reason: RejectAccuracy}
	}

	if len(r.path) == 0 {
		r.path = append(r.path, fix.Point)
		r.lastTime = fix.Time
		r.sink.Emit(Event{Stage: StageAccept, Passed: true, Measurement: 0, Time: fix.Time})
		return Decision{Accepted: true}
	}

	last := r.path[len(r.path)-1]
	distance := geo.DistanceMeters(last, fix.Point)
	elapsed := fix.Time.Sub(r.lastTime)

	// Teleport artifacts are rejected on distance alone, before speed is even
	// evaluated: a 150m step is a bad fix regardless of the implied velocity.
	if distance > r.cfg.MaxJumpMeters {
		r.sink.Emit(Event{
			Stage: StageJump, Passed: false,
			Measurement: distance,
			Detail:      fmt.Sprintf("max %v", r.cfg.MaxJumpMeters),
			Time:        fix.Time,
		})
		return Decision{Reason: RejectJump, DistanceMeters: distance, Elapsed: elapsed}
	}

	if distance < r.cfg.MinRecordMeters {
		r.sink.Emit(Event{
			Stage: StageMinDistance, Passed: false,
			Measurement: distance,
			Time:        fix.Time,
		})
		return Decision{Reason: RejectMinDistance, DistanceMeters: distance, Elapsed: elapsed}
	}

	if elapsed < r.cfg.MinRecordInterval {
		r.sink.Emit(Event{
			Stage: StageMinInterval, Passed: false,
			Measurement: elapsed.Seconds(),
			Time:        fix.Time,
		})
		return Decision{Reason: RejectMinInterval, DistanceMeters: distance, Elapsed: elapsed}
	}

	r.path = append(r.path, fix.Point)
	r.lastTime = fix.Time
	r.sink.Emit(Event{Stage: StageAccept, Passed: true, Measurement: distance, Time: fix.Time})
	return Decision{Accepted: true, DistanceMeters: distance, Elapsed: elapsed}
}

// Undo removes the most recently accepted point. Used when a downstream check
// (speed violation) decides the triggering point must be discarded.
func (r *Recorder) Undo() {
	if len(r.path) > 0 {
		r.path = r.path[:len(r.path)-1]
	}
}

// Path returns a copy of the recorded points in acceptance order.
func (r *Recorder) Path() []geo.Point {
	out := make([]geo.Point, len(r.path))
	copy(out, r.path)
	return out
}

// Len returns the number of recorded points.
func (r *Recorder) Len() int {
	return len(r.path)
}

// LastTime returns the timestamp of the last accepted fix.
func (r *Recorder) LastTime() time.Time {
	return r.lastTime
}

// Reset clears the recorded path, returning the recorder to its initial state.
func (r *Recorder) Reset() {
	r.path = nil
	r.lastTime = time.Time{}
}
