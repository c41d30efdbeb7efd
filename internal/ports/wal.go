package ports

import "github.com/Artic67/iot-labs/internal/domain"

// WALEntryID identifies one appended record, monotonically increasing.
type WALEntryID uint64

// WAL is the write-ahead log backing the forwarder buffer. Records are
// appended before delivery and committed once the ingestion endpoint
// acknowledges them, so a crash replays only unacknowledged records.
type WAL interface {
	Append(rec domain.ProcessedAgentData) (WALEntryID, error)
	// Iterate replays entries with id >= from in append order.
	Iterate(from WALEntryID, fn func(id WALEntryID, rec domain.ProcessedAgentData) error) error
	// Commit marks all entries up to and including upto as delivered.
	Commit(upto WALEntryID) error
	// TruncateCommitted reclaims log space once every entry is committed.
	TruncateCommitted() error
	Stats() WALStats
	Close() error
}

// WALStats exposes WAL occupancy for capacity policies and gauges.
type WALStats struct {
	OldestUncommitted WALEntryID
	LatestAppended    WALEntryID
	SizeBytes         int64
}
