package roadlab

import (
	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

// ProcessedRecord is the classified sample that flows agent → forwarder →
// store. It is the unit the forwarder buffers and the store API ingests.
type ProcessedRecord = domain.ProcessedAgentData

// AgentData is a single raw capture: accelerometer + GPS + capture instant.
type AgentData = domain.AgentData

// Accelerometer is one raw accelerometer reading.
type Accelerometer = domain.Accelerometer

// GPS is one positional fix in geographic degrees.
type GPS = domain.GPS

// StoredRecord is the flattened, id-carrying form the store returns and
// pushes to subscribers.
type StoredRecord = domain.StoredRecord

// RoadState is the classified condition of the road surface.
type RoadState = domain.RoadState

const (
	RoadStateNormal    = domain.RoadStateNormal
	RoadStateSmallPits = domain.RoadStateSmallPits
	RoadStateLargePits = domain.RoadStateLargePits
)

// SampleSource streams raw captures into the agent loop.
type SampleSource = ports.SampleSource

// BatchSink consumes flushed batches and persists them to any downstream
// system.
type BatchSink = ports.BatchSink

// RecordBuffer is the in-memory buffer between producers and delivery.
type RecordBuffer = ports.RecordBuffer

// RecordStore is the durable home of ingested records.
type RecordStore = ports.RecordStore

// Observability emits metrics and logs about throughput, latency, and loss.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// WAL abstracts the write-ahead log used for durability across restarts.
type WAL = ports.WAL

// WALStats exposes WAL metadata for observability.
type WALStats = ports.WALStats

// WALEntryID uniquely identifies a WAL entry.
type WALEntryID = ports.WALEntryID

// Policy controls forwarder buffering and delivery thresholds.
type Policy = ports.Policy

// Overflow policies for a full forwarder buffer.
const (
	OnBufferFullReject     = ports.OnBufferFullReject
	OnBufferFullDropOldest = ports.OnBufferFullDropOldest
)
