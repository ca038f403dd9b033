package territory

import (
	"time"

	"github.com/walkabout-games/territory/internal/geo"
)

// Fix is a single GPS sample as delivered by the platform location layer.
// The engine never touches platform location types directly; the integration
// layer converts to this value before calling into a session.
type Fix struct {
	Point          geo.Point `json:"point"`
	Time           time.Time `json:"time"`
	AccuracyMeters float64   `json:"accuracy_m"`
	// SpeedMps is the sensor-reported speed, if any. The engine computes its
	// own speed from consecutive accepted fixes and uses this only as a hint
	// in diagnostics.
	SpeedMps *float64 `json:"speed_mps,omitempty"`
}

// RejectReason says why a fix was dropped by the recorder.
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectAccuracy    RejectReason = "low_accuracy"
	RejectJump        RejectReason = "gps_jump"
	RejectMinDistance RejectReason = "insufficient_movement"
	RejectMinInterval RejectReason = "too_frequent"
	RejectSpeed       RejectReason = "speed_violation"
	RejectClosed      RejectReason = "path_closed"
)
