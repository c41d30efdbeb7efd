// Package domain holds the data model shared by the agent and store sides
// of the road-surface telemetry pipeline.
package domain

import "time"

// RoadState is the classified condition of the road surface. The string
// values are part of the store API wire format.
type RoadState string

const (
	RoadStateNormal    RoadState = "normal"
	RoadStateSmallPits RoadState = "small pits"
	RoadStateLargePits RoadState = "large pits"
)

// Accelerometer is one raw accelerometer reading. Values are unbounded;
// classification thresholds live in the classify package.
type Accelerometer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// GPS is one positional fix in geographic degrees.
type GPS struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AgentData is a single capture from one producer: accelerometer + GPS plus
// the capture instant. Immutable after creation.
type AgentData struct {
	UserID        int64         `json:"user_id"`
	Accelerometer Accelerometer `json:"accelerometer"`
	GPS           GPS           `json:"gps"`
	Timestamp     time.Time     `json:"timestamp"`
}

// ProcessedAgentData is an AgentData with its classified road state. This is
// the unit the forwarder buffers and the store API ingests.
type ProcessedAgentData struct {
	RoadState RoadState `json:"road_state"`
	AgentData AgentData `json:"agent_data"`
}

// StoredRecord is the flattened, store-owned form of a ProcessedAgentData,
// identified by a store-assigned id. This is what reads, updates, deletes,
// and subscriber notifications carry.
type StoredRecord struct {
	ID        int64     `json:"id"`
	RoadState RoadState `json:"road_state"`
	UserID    int64     `json:"user_id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Flatten converts a processed record into its stored form with the given id.
func (p ProcessedAgentData) Flatten(id int64) StoredRecord {
	return StoredRecord{
		ID:        id,
		RoadState: p.RoadState,
		UserID:    p.AgentData.UserID,
		X:         p.AgentData.Accelerometer.X,
		Y:         p.AgentData.Accelerometer.Y,
		Z:         p.AgentData.Accelerometer.Z,
		Latitude:  p.AgentData.GPS.Latitude,
		Longitude: p.AgentData.GPS.Longitude,
		Timestamp: p.AgentData.Timestamp,
	}
}
