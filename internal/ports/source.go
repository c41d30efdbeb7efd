package ports

import "github.com/Artic67/iot-labs/internal/domain"

// SampleSource is a restartable sequence of raw captures. Implementations
// never signal end-of-sequence: exhausting the underlying feed restarts it
// from the beginning (cyclic replay). Next returns an error only when the
// feed itself is broken.
type SampleSource interface {
	Next() (domain.AgentData, error)
	Close() error
}
