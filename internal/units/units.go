// Package units provides shared constants and conversions for speed units.
//
// The engine and the database always work in meters per second; km/h and mph
// exist only at the API edge and in fraud thresholds, which are configured in
// km/h because that is how the product defines them.
package units

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values.
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages.
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from meters per second to the target units.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.23694 // m/s to mph
	case KMPH, KPH:
		return speedMPS * 3.6 // m/s to km/h
	case MPS:
		return speedMPS // no conversion needed
	default:
		return speedMPS // default to m/s if unknown unit
	}
}

// KmhFromMps converts meters per second to kilometers per hour.
func KmhFromMps(speedMPS float64) float64 {
	return speedMPS * 3.6
}

// MpsFromKmh converts kilometers per hour to meters per second.
func MpsFromKmh(speedKmh float64) float64 {
	return speedKmh / 3.6
}
