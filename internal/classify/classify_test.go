package classify

import (
	"testing"

	"github.com/Artic67/iot-labs/internal/domain"
)

func TestRoadStateBands(t *testing.T) {
	cases := []struct {
		z    float64
		want domain.RoadState
	}{
		{15000, domain.RoadStateNormal},
		{14000.5, domain.RoadStateNormal},
		{17999.9, domain.RoadStateNormal},
		{13000, domain.RoadStateSmallPits},
		{12000.1, domain.RoadStateSmallPits},
		{19000, domain.RoadStateSmallPits},
		{19999.9, domain.RoadStateSmallPits},
		{11000, domain.RoadStateLargePits},
		{0, domain.RoadStateLargePits},
		{-5000, domain.RoadStateLargePits},
		{25000, domain.RoadStateLargePits},
	}
	for _, c := range cases {
		got := RoadState(domain.Accelerometer{Z: c.z})
		if got != c.want {
			t.Fatalf("z=%v: got %q, want %q", c.z, got, c.want)
		}
	}
}

// The interval ends are asymmetric: 18000 is inside the normal band, while
// 12000, 14000, and 20000 all fall through to large pits.
func TestRoadStateBoundaries(t *testing.T) {
	cases := []struct {
		z    float64
		want domain.RoadState
	}{
		{12000, domain.RoadStateLargePits},
		{14000, domain.RoadStateLargePits},
		{18000, domain.RoadStateNormal},
		{20000, domain.RoadStateLargePits},
	}
	for _, c := range cases {
		got := RoadState(domain.Accelerometer{Z: c.z})
		if got != c.want {
			t.Fatalf("z=%v: got %q, want %q", c.z, got, c.want)
		}
	}
}
