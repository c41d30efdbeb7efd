package queue

import (
	"sync"

	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

// MemBuffer is a bounded in-memory FIFO for records awaiting delivery.
// Records are removed only by Discard (after confirmed delivery) or
// EvictOldest (overflow policy), so a failed flush leaves the buffer
// unchanged.
type MemBuffer struct {
	mu   sync.Mutex
	data []ports.BufferedRecord
	cap  int
}

// NewMemBuffer creates a buffer holding at most capacity records;
// capacity <= 0 means unbounded.
func NewMemBuffer(capacity int) *MemBuffer {
	return &MemBuffer{cap: capacity}
}

func (b *MemBuffer) Enqueue(id ports.WALEntryID, rec domain.ProcessedAgentData) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cap > 0 && len(b.data) >= b.cap {
		return false
	}
	b.data = append(b.data, ports.BufferedRecord{ID: id, Record: rec})
	return true
}

func (b *MemBuffer) Peek(max int) []ports.BufferedRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(b.data) {
		max = len(b.data)
	}
	out := make([]ports.BufferedRecord, max)
	copy(out, b.data[:max])
	return out
}

func (b *MemBuffer) Discard(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 {
		return
	}
	if n > len(b.data) {
		n = len(b.data)
	}
	b.data = append(b.data[:0], b.data[n:]...)
}

func (b *MemBuffer) EvictOldest() (ports.BufferedRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 {
		return ports.BufferedRecord{}, false
	}
	head := b.data[0]
	b.data = append(b.data[:0], b.data[1:]...)
	return head, true
}

func (b *MemBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

func (b *MemBuffer) Cap() int { return b.cap }

var _ ports.RecordBuffer = (*MemBuffer)(nil)
