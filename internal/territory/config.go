package territory

import (
	"fmt"
	"time"
)

// Config holds the tuning parameters for path recording, fraud detection and
// claim validation. All distance thresholds are meters, speeds are km/h.
type Config struct {
	// Fix filtering
	MaxAccuracyMeters float64       // Reject fixes with worse horizontal accuracy
	MaxJumpMeters     float64       // Reject fixes further than this from the last accepted point
	MinRecordMeters   float64       // Minimum movement between accepted points
	MinRecordInterval time.Duration // Minimum time between accepted points
	SampleInterval    time.Duration // Cadence at which Tick should be driven

	// Speed enforcement (per-sample)
	WarningSpeedKmh   float64 // Above this, surface a warning but keep recording
	ViolationSpeedKmh float64 // Above this, hard-stop the session

	// Closure detection
	MinPathPoints          int     // Points required before closure is considered
	ClosureThresholdMeters float64 // Last point within this distance of the first closes the loop

	// Claim validation
	MinTotalDistanceMeters float64 // Minimum traversed path length
	MinAreaSquareMeters    float64 // Minimum enclosed area
	MinCompactnessPercent  float64 // Minimum area / bounding-box-area ratio, in percent

	// Proximity warning bands, checked against other owners' territories.
	SafeDistanceMeters    float64
	CautionDistanceMeters float64
	WarningDistanceMeters float64
}

// DefaultConfig returns the production tuning values.
func DefaultConfig() Config {
	return Config{
		MaxAccuracyMeters: 50,
		MaxJumpMeters:     100,
		MinRecordMeters:   10,
		MinRecordInterval: time.Second,
		SampleInterval:    2 * time.Second,

		WarningSpeedKmh:   15,
		ViolationSpeedKmh: 30,

		MinPathPoints:          10,
		ClosureThresholdMeters: 30,

		MinTotalDistanceMeters: 50,
		MinAreaSquareMeters:    100,
		MinCompactnessPercent:  25,

		SafeDistanceMeters:    100,
		CautionDistanceMeters: 50,
		WarningDistanceMeters: 25,
	}
}

// Validate checks the configuration for internally inconsistent values.
func (c Config) Validate() error {
	if c.MaxAccuracyMeters <= 0 {
		return fmt.Errorf("MaxAccuracyMeters must be positive, got %v", c.MaxAccuracyMeters)
	}
	if c.MaxJumpMeters <= c.MinRecordMeters {
		return fmt.Errorf("MaxJumpMeters (%v) must exceed MinRecordMeters (%v)",
			c.MaxJumpMeters, c.MinRecordMeters)
	}
	if c.MinRecordMeters <= 0 {
		return fmt.Errorf("MinRecordMeters must be positive, got %v", c.MinRecordMeters)
	}
	if c.MinRecordInterval <= 0 {
		return fmt.Errorf("MinRecordInterval must be positive, got %v", c.MinRecordInterval)
	}
	if c.ViolationSpeedKmh <= c.WarningSpeedKmh {
		return fmt.Errorf("ViolationSpeedKmh (%v) must exceed WarningSpeedKmh (%v)",
			c.ViolationSpeedKmh, c.WarningSpeedKmh)
	}
	if c.MinPathPoints < 3 {
		return fmt.Errorf("MinPathPoints must be at least 3, got %d", c.MinPathPoints)
	}
	if c.ClosureThresholdMeters <= 0 {
		return fmt.Errorf("ClosureThresholdMeters must be positive, got %v", c.ClosureThresholdMeters)
	}
	if c.MinTotalDistanceMeters <= 0 {
		return fmt.Errorf("MinTotalDistanceMeters must be positive, got %v", c.MinTotalDistanceMeters)
	}
	if c.MinAreaSquareMeters <= 0 {
		return fmt.Errorf("MinAreaSquareMeters must be positive, got %v", c.MinAreaSquareMeters)
	}
	if c.MinCompactnessPercent <= 0 || c.MinCompactnessPercent > 100 {
		return fmt.Errorf("MinCompactnessPercent must be in (0, 100], got %v", c.MinCompactnessPercent)
	}
	if !(c.SafeDistanceMeters > c.CautionDistanceMeters &&
		c.CautionDistanceMeters > c.WarningDistanceMeters &&
		c.WarningDistanceMeters > 0) {
		return fmt.Errorf("proximity bands must be strictly decreasing and positive: %v > %v > %v",
			c.SafeDistanceMeters, c.CautionDistanceMeters, c.WarningDistanceMeters)
	}
	return nil
}
