package ports

import (
	"context"

	"github.com/Artic67/iot-labs/internal/domain"
)

// BatchSink delivers an ordered batch of processed records to the ingestion
// endpoint. A nil return means the endpoint acknowledged the whole batch.
// Failures are reported as *domain.DeliveryError so callers can distinguish
// transient from permanent ones. The context bounds the delivery attempt.
type BatchSink interface {
	WriteBatch(ctx context.Context, batch []domain.ProcessedAgentData) error
	Name() string
}
