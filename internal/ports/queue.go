package ports

import "github.com/Artic67/iot-labs/internal/domain"

// BufferedRecord pairs a buffered record with its WAL entry id (zero when
// the forwarder runs without a WAL).
type BufferedRecord struct {
	ID     WALEntryID
	Record domain.ProcessedAgentData
}

// RecordBuffer is the forwarder's FIFO holding records awaiting delivery.
// Unlike a plain queue, records leave the buffer only after the sink
// confirms them: Peek exposes the head without removing it and Discard
// drops confirmed records, so a failed delivery retains the buffer
// unchanged.
type RecordBuffer interface {
	// Enqueue appends a record; false means the buffer is at capacity.
	Enqueue(id WALEntryID, rec domain.ProcessedAgentData) bool
	// Peek returns up to max records from the head without removing them.
	// max <= 0 means the whole buffer.
	Peek(max int) []BufferedRecord
	// Discard removes the first n records (those delivered successfully).
	Discard(n int)
	// EvictOldest drops the head record to make room, returning it.
	EvictOldest() (BufferedRecord, bool)
	Len() int
	// Cap reports the buffer's capacity; <= 0 means unbounded.
	Cap() int
}
