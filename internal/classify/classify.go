// Package classify labels road condition from accelerometer readings.
package classify

import "github.com/Artic67/iot-labs/internal/domain"

// Z-axis thresholds separating road states. The normal band is open on the
// low side and closed on the high side; the small-pit bands are open on
// both sides, so z == 14000 and z == 20000 fall through to large pits while
// z == 18000 stays normal.
const (
	smallPitsLow  = 12000.0
	normalLow     = 14000.0
	normalHigh    = 18000.0
	smallPitsHigh = 20000.0
)

// RoadState classifies one accelerometer sample by its z-axis value.
func RoadState(sample domain.Accelerometer) domain.RoadState {
	z := sample.Z
	switch {
	case normalLow < z && z <= normalHigh:
		return domain.RoadStateNormal
	case (smallPitsLow < z && z < normalLow) || (normalHigh < z && z < smallPitsHigh):
		return domain.RoadStateSmallPits
	default:
		return domain.RoadStateLargePits
	}
}
