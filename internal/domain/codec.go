package domain

import (
	"fmt"
	"time"
)

// Raw* types mirror the store API JSON with every field optional and the
// timestamp still a string, so one malformed record can be rejected on its
// own instead of failing the decode of the whole batch. Parse converts a
// raw record into the typed form or reports a ValidationError.

type RawAccelerometer struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type RawGPS struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type RawAgentData struct {
	UserID        *int64            `json:"user_id"`
	Accelerometer *RawAccelerometer `json:"accelerometer"`
	GPS           *RawGPS           `json:"gps"`
	Timestamp     *string           `json:"timestamp"`
}

type RawProcessedAgentData struct {
	RoadState *string       `json:"road_state"`
	AgentData *RawAgentData `json:"agent_data"`
}

// Parse validates the raw record field by field and returns the typed form.
// Timestamps must be ISO-8601 with an explicit offset (RFC 3339).
func (r RawProcessedAgentData) Parse() (ProcessedAgentData, error) {
	if r.RoadState == nil || *r.RoadState == "" {
		return ProcessedAgentData{}, &ValidationError{Field: "road_state", Reason: "missing"}
	}
	if r.AgentData == nil {
		return ProcessedAgentData{}, &ValidationError{Field: "agent_data", Reason: "missing"}
	}
	agent, err := r.AgentData.parse()
	if err != nil {
		return ProcessedAgentData{}, err
	}
	return ProcessedAgentData{RoadState: RoadState(*r.RoadState), AgentData: agent}, nil
}

func (r RawAgentData) parse() (AgentData, error) {
	if r.UserID == nil {
		return AgentData{}, &ValidationError{Field: "agent_data.user_id", Reason: "missing"}
	}
	if *r.UserID < 0 {
		return AgentData{}, &ValidationError{Field: "agent_data.user_id", Reason: "must be >= 0"}
	}
	if r.Accelerometer == nil || r.Accelerometer.X == nil || r.Accelerometer.Y == nil || r.Accelerometer.Z == nil {
		return AgentData{}, &ValidationError{Field: "agent_data.accelerometer", Reason: "missing x/y/z"}
	}
	gps, err := parseGPS(r.GPS)
	if err != nil {
		return AgentData{}, err
	}
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return AgentData{}, err
	}
	return AgentData{
		UserID: *r.UserID,
		Accelerometer: Accelerometer{
			X: *r.Accelerometer.X,
			Y: *r.Accelerometer.Y,
			Z: *r.Accelerometer.Z,
		},
		GPS:       gps,
		Timestamp: ts,
	}, nil
}

func parseGPS(r *RawGPS) (GPS, error) {
	if r == nil || r.Latitude == nil || r.Longitude == nil {
		return GPS{}, &ValidationError{Field: "agent_data.gps", Reason: "missing latitude/longitude"}
	}
	if *r.Latitude < -90 || *r.Latitude > 90 {
		return GPS{}, &ValidationError{
			Field:  "agent_data.gps.latitude",
			Reason: fmt.Sprintf("%v outside [-90, 90]", *r.Latitude),
		}
	}
	if *r.Longitude < -180 || *r.Longitude > 180 {
		return GPS{}, &ValidationError{
			Field:  "agent_data.gps.longitude",
			Reason: fmt.Sprintf("%v outside [-180, 180]", *r.Longitude),
		}
	}
	return GPS{Latitude: *r.Latitude, Longitude: *r.Longitude}, nil
}

func parseTimestamp(raw *string) (time.Time, error) {
	if raw == nil || *raw == "" {
		return time.Time{}, &ValidationError{Field: "agent_data.timestamp", Reason: "missing"}
	}
	ts, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:  "agent_data.timestamp",
			Reason: fmt.Sprintf("%q is not an ISO-8601 instant with offset", *raw),
		}
	}
	return ts, nil
}
