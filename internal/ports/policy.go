package ports

import "time"

// Overflow policies for a full forwarder buffer.
const (
	OnBufferFullReject     = "reject"
	OnBufferFullDropOldest = "drop_oldest"
)

// Policy controls forwarder buffering and delivery thresholds.
type Policy struct {
	// FlushThreshold is the buffer length that triggers an automatic flush.
	FlushThreshold int `yaml:"flush_threshold"`
	// MaxBufferLen bounds the buffer; 0 means unbounded.
	MaxBufferLen int `yaml:"max_buffer_len"`
	// MaxWALSizeBytes bounds the on-disk WAL; 0 means unbounded.
	MaxWALSizeBytes int64 `yaml:"max_wal_size_bytes"`
	// SendTimeout bounds one delivery attempt.
	SendTimeout time.Duration `yaml:"send_timeout"`
	// OnBufferFull is "reject" or "drop_oldest".
	OnBufferFull string `yaml:"on_buffer_full"`
}
