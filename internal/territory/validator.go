package territory

import (
	"time"

	"github.com/walkabout-games/territory/internal/geo"
)

// FailureReason identifies the first validation stage a closed path failed.
type FailureReason string

const (
	ReasonPointCount       FailureReason = "point_count"
	ReasonTotalDistance    FailureReason = "total_distance"
	ReasonSelfIntersection FailureReason = "self_intersection"
	ReasonArea             FailureReason = "area"
	ReasonCompactness      FailureReason = "compactness"
)

// Verdict is the immutable result of validating one closed path. Measured
// values are populated regardless of pass/fail so the caller can build
// actionable messages ("need 43 more meters").
type Verdict struct {
	Passed           bool          `json:"passed"`
	Reason           FailureReason `json:"reason,omitempty"`
	PointCount       int           `json:"point_count"`
	DistanceMeters   float64       `json:"distance_m"`
	AreaSquareMeters float64       `json:"area_m2"`
	CompactnessRatio float64       `json:"compactness_pct"`
}

// Validator runs the fixed-order claim checks: point count, total distance,
// self-intersection, enclosed area, compactness. Cheap checks run first and
// the first failure short-circuits, so a verdict carries exactly one reason.
type Validator struct {
	cfg  Config
	sink EventSink
}

// NewValidator creates a validator. A nil sink is replaced with NullSink.
func NewValidator(cfg Config, sink EventSink) *Validator {
	if sink == nil {
		sink = NullSink{}
	}
	return &Validator{cfg: cfg, sink: sink}
}

// Validate checks a closed path and returns the verdict. The measured
// distance, area and compactness for stages that ran are always filled in;
// stages after the failing one are left at zero.
func (v *Validator) Validate(path []geo.Point, now time.Time) Verdict {
	verdict := Verdict{PointCount: len(path)}

	if !v.check(StagePointCount, float64(len(path)), len(path) >= v.cfg.MinPathPoints, now) {
		verdict.Reason = ReasonPointCount
		return verdict
	}

	verdict.DistanceMeters = TotalDistance(path)
	if !v.check(StageTotalDistance, verdict.DistanceMeters,
		verdict.DistanceMeters >= v.cfg.MinTotalDistanceMeters, now) {
		verdict.Reason = ReasonTotalDistance
		return verdict
	}

	crossed := HasSelfIntersection(path)
	if !v.check(StageSelfIntersection, boolMeasure(crossed), !crossed, now) {
		verdict.Reason = ReasonSelfIntersection
		return verdict
	}

	verdict.AreaSquareMeters = EnclosedArea(path)
	if !v.check(StageArea, verdict.AreaSquareMeters,
		verdict.AreaSquareMeters >= v.cfg.MinAreaSquareMeters, now) {
		verdict.Reason = ReasonArea
		return verdict
	}

	verdict.CompactnessRatio = CompactnessRatio(path)
	if !v.check(StageCompactness, verdict.CompactnessRatio,
		verdict.CompactnessRatio >= v.cfg.MinCompactnessPercent, now) {
		verdict.Reason = ReasonCompactness
		return verdict
	}

	verdict.Passed = true
	return verdict
}

func (v *Validator) check(stage Stage, measurement float64, passed bool, now time.Time) bool {
	v.sink.Emit(Event{Stage: stage, Passed: passed, Measurement: measurement, Time: now})
	return passed
}

func boolMeasure(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
