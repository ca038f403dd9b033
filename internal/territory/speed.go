package territory

import (
	"github.com/walkabout-games/territory/internal/units"
)

// SpeedBand classifies a per-sample speed measurement.
type SpeedBand string

const (
	SpeedNormal    SpeedBand = "normal"
	SpeedWarning   SpeedBand = "warning"
	SpeedViolation SpeedBand = "violation"
)

// GuardState is the lifecycle state of a SpeedGuard.
type GuardState string

const (
	GuardNormal        GuardState = "normal"
	GuardWarningActive GuardState = "warning_active"
	GuardStopped       GuardState = "violation_stopped"
)

// SpeedGuard classifies the instantaneous speed between consecutive accepted
// fixes. A violation is terminal: recording must stop and the triggering
// point is discarded. A warning clears automatically once a later sample
// falls back under the warning threshold.
type SpeedGuard struct {
	warningKmh   float64
	violationKmh float64
	state        GuardState
}

// NewSpeedGuard creates a guard with the given thresholds in km/h.
func NewSpeedGuard(warningKmh, violationKmh float64) *SpeedGuard {
	return &SpeedGuard{
		warningKmh:   warningKmh,
		violationKmh: violationKmh,
		state:        GuardNormal,
	}
}

// Classify computes speed from a distance/elapsed pair and updates the guard
// state. Zero or negative elapsed time classifies as normal; the recorder's
// minimum-interval debounce makes that unreachable in practice.
func (g *SpeedGuard) Classify(distanceMeters, elapsedSeconds float64) SpeedBand {
	if g.state == GuardStopped {
		return SpeedViolation
	}
	if elapsedSeconds <= 0 {
		return SpeedNormal
	}

	speedKmh := units.KmhFromMps(distanceMeters / elapsedSeconds)

	switch {
	case speedKmh > g.violationKmh:
		g.state = GuardStopped
		return SpeedViolation
	case speedKmh > g.warningKmh:
		g.state = GuardWarningActive
		return SpeedWarning
	default:
		g.state = GuardNormal
		return SpeedNormal
	}
}

// State returns the guard's current lifecycle state.
func (g *SpeedGuard) State() GuardState {
	return g.state
}

// Stopped reports whether a violation has hard-stopped the guard.
func (g *SpeedGuard) Stopped() bool {
	return g.state == GuardStopped
}
