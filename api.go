package iotlabs

import (
	base "github.com/Artic67/iot-labs/pkg/roadlab"
)

// Re-exported errors for convenience.
var ErrChannelSinkClosed = base.ErrChannelSinkClosed

// Type aliases so consumers can import github.com/Artic67/iot-labs directly.
type (
	Config          = base.Config
	AgentConfig     = base.AgentConfig
	StoreConfig     = base.StoreConfig
	MetricsConfig   = base.MetricsConfig
	Policy          = base.Policy
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	StreamInOption  = base.StreamInOption
	StreamOutOption = base.StreamOutOption
	AgentRuntime    = base.AgentRuntime
	AgentOption     = base.AgentOption
	StoreRuntime    = base.StoreRuntime
	StoreOption     = base.StoreOption
	ProcessedRecord = base.ProcessedRecord
	StoredRecord    = base.StoredRecord
	AgentData       = base.AgentData
	Accelerometer   = base.Accelerometer
	GPS             = base.GPS
	RoadState       = base.RoadState
	RecordBatchSink = base.RecordBatchSink
	SampleSource    = base.SampleSource
	BatchSink       = base.BatchSink
	RecordBuffer    = base.RecordBuffer
	RecordStore     = base.RecordStore
	WAL             = base.WAL
	WALStats        = base.WALStats
	WALEntryID      = base.WALEntryID
	Observability   = base.Observability
	Field           = base.Field
)

// Road states and overflow policies.
const (
	RoadStateNormal    = base.RoadStateNormal
	RoadStateSmallPits = base.RoadStateSmallPits
	RoadStateLargePits = base.RoadStateLargePits

	OnBufferFullReject     = base.OnBufferFullReject
	OnBufferFullDropOldest = base.OnBufferFullDropOldest
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...AgentOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInSource(src SampleSource) StreamInOption {
	return base.StreamInSource(src)
}

func StreamInBuffer(b RecordBuffer) StreamInOption {
	return base.StreamInBuffer(b)
}

func StreamInWAL(w WAL) StreamInOption {
	return base.StreamInWAL(w)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSink(s BatchSink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn RecordBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Agent runtime and options.
func NewAgentRuntime(cfg *Config, opts ...AgentOption) (*AgentRuntime, error) {
	return base.NewAgentRuntime(cfg, opts...)
}

func WithSource(src SampleSource) AgentOption {
	return base.WithSource(src)
}

func WithSink(s BatchSink) AgentOption {
	return base.WithSink(s)
}

func WithBuffer(b RecordBuffer) AgentOption {
	return base.WithBuffer(b)
}

func WithWAL(w WAL) AgentOption {
	return base.WithWAL(w)
}

func WithObservability(obs Observability) AgentOption {
	return base.WithObservability(obs)
}

// Store runtime and options.
func NewStoreRuntime(cfg *Config, opts ...StoreOption) (*StoreRuntime, error) {
	return base.NewStoreRuntime(cfg, opts...)
}

func WithRecordStore(st RecordStore) StoreOption {
	return base.WithRecordStore(st)
}

func WithStoreObservability(obs Observability) StoreOption {
	return base.WithStoreObservability(obs)
}

// Sink adapters.
func NewCallbackSink(name string, fn RecordBatchSink) BatchSink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (BatchSink, <-chan []ProcessedRecord, func()) {
	return base.NewChannelSink(name, buffer)
}
