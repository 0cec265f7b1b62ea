package beacon

import "math"

// UnknownDistance is returned when no distance can be derived from a reading.
const UnknownDistance = -1.0

// Proximity class boundaries in meters.
const (
	ImmediateRange = 1.0
	NearRange      = 3.0
)

// Estimate converts a measured RSSI into an approximate distance using the
// beacon's calibrated RSSI at one meter (txPower). Both values are dBm.
//
// An RSSI of 0 is the platform's "no reading" marker, and a txPower of 0
// means the frame carried no calibration; both yield (UnknownDistance,
// ProximityUnknown), as do positive values, which no real radio reports.
func Estimate(rssi, txPower int) (float64, Proximity) {
	if rssi >= 0 || txPower >= 0 {
		return UnknownDistance, ProximityUnknown
	}

	ratio := float64(rssi) / float64(txPower)
	var d float64
	if ratio <= 1.0 {
		// Near field: stronger than the 1m reference.
		d = math.Pow(ratio, 10)
	} else {
		d = 0.89976*math.Pow(ratio, 7.7095) + 0.111
	}
	return d, Classify(d)
}

// Classify maps a distance in meters to a proximity class. The calibration
// point itself (exactly 1m) is Immediate.
func Classify(d float64) Proximity {
	switch {
	case d < 0 || math.IsNaN(d):
		return ProximityUnknown
	case d <= ImmediateRange:
		return ProximityImmediate
	case d < NearRange:
		return ProximityNear
	default:
		return ProximityFar
	}
}
