package observability

import (
	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

// Nop discards all logs and metrics. It is the default backend when a
// component is constructed without one, and keeps tests quiet.
type Nop struct{}

func (Nop) LogInfo(string, ...ports.Field)                      {}
func (Nop) LogError(string, error, ...ports.Field)              {}
func (Nop) IncCounter(string, float64)                          {}
func (Nop) ObserveLatency(string, float64)                      {}
func (Nop) SetGauge(string, float64)                            {}
func (Nop) RecordLoss(string, domain.ProcessedAgentData, error) {}

var _ ports.Observability = Nop{}
