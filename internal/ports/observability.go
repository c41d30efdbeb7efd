package ports

import "github.com/Artic67/iot-labs/internal/domain"

// Observability is the logging/metrics surface used across the pipeline.
type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)
	SetGauge(name string, v float64)

	// RecordLoss is called for every record dropped by an overflow policy,
	// so losses are always counted and logged, never silent.
	RecordLoss(reason string, rec domain.ProcessedAgentData, err error)
}

// Field is a structured log field.
type Field struct {
	Key   string
	Value any
}
