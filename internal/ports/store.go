package ports

import (
	"context"

	"github.com/Artic67/iot-labs/internal/domain"
)

// RecordStore is the durable home of processed records. Insert assigns the
// store-generated id and returns the flattened record. Get, Update, and
// Delete report domain.ErrNotFound for absent ids; Update returns the
// post-update record and Delete the pre-delete one.
type RecordStore interface {
	Insert(ctx context.Context, rec domain.ProcessedAgentData) (domain.StoredRecord, error)
	Get(ctx context.Context, id int64) (domain.StoredRecord, error)
	List(ctx context.Context) ([]domain.StoredRecord, error)
	Update(ctx context.Context, id int64, rec domain.ProcessedAgentData) (domain.StoredRecord, error)
	Delete(ctx context.Context, id int64) (domain.StoredRecord, error)
	Close() error
}
