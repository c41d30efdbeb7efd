package wal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

func record(userID int64) domain.ProcessedAgentData {
	return domain.ProcessedAgentData{
		RoadState: domain.RoadStateNormal,
		AgentData: domain.AgentData{
			UserID:        userID,
			Accelerometer: domain.Accelerometer{Z: 15000},
			GPS:           domain.GPS{Latitude: 50, Longitude: 30},
			Timestamp:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestFileWALAppendIterateAndReplay(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}

	id1, err := w.Append(record(1))
	if err != nil || id1 == 0 {
		t.Fatalf("append record 1: %v id=%d", err, id1)
	}
	id2, err := w.Append(record(2))
	if err != nil || id2 != id1+1 {
		t.Fatalf("append record 2: %v id=%d", err, id2)
	}

	var users []int64
	if err := w.Iterate(1, func(id ports.WALEntryID, rec domain.ProcessedAgentData) error {
		users = append(users, rec.AgentData.UserID)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(users) != 2 || users[0] != 1 || users[1] != 2 {
		t.Fatalf("unexpected replay order: %v", users)
	}

	if err := w.Commit(id1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen: only the uncommitted tail should be pending.
	w2, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}
	defer w2.Close()

	stats := w2.Stats()
	if stats.LatestAppended != id2 {
		t.Fatalf("expected latest appended %d, got %d", id2, stats.LatestAppended)
	}
	if stats.OldestUncommitted != id1+1 {
		t.Fatalf("expected oldest uncommitted %d, got %d", id1+1, stats.OldestUncommitted)
	}

	var pending []int64
	if err := w2.Iterate(stats.OldestUncommitted, func(id ports.WALEntryID, rec domain.ProcessedAgentData) error {
		pending = append(pending, rec.AgentData.UserID)
		return nil
	}); err != nil {
		t.Fatalf("iterate pending: %v", err)
	}
	if len(pending) != 1 || pending[0] != 2 {
		t.Fatalf("expected only record 2 pending, got %v", pending)
	}
}

func TestFileWALTruncateCommitted(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	defer w.Close()

	id, err := w.Append(record(7))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	// Not everything committed yet: truncation is a no-op.
	if err := w.TruncateCommitted(); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if w.Stats().SizeBytes == 0 {
		t.Fatalf("truncate must not discard uncommitted entries")
	}

	if err := w.Commit(id); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := w.TruncateCommitted(); err != nil {
		t.Fatalf("truncate after commit: %v", err)
	}
	if got := w.Stats().SizeBytes; got != 0 {
		t.Fatalf("expected empty log after truncation, size=%d", got)
	}
}

func TestFileWALRecoversFromTornWrite(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	id, err := w.Append(record(1))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Simulate a crash mid-append with a truncated tail entry.
	path := filepath.Join(dir, logName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.Write([]byte{0xFF, 0xAA}); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()

	w2, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("reopen after torn write: %v", err)
	}
	defer w2.Close()

	if got := w2.Stats().LatestAppended; got != id {
		t.Fatalf("expected latest appended %d after recovery, got %d", id, got)
	}

	var count int
	if err := w2.Iterate(1, func(ports.WALEntryID, domain.ProcessedAgentData) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("iterate recovered log: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 intact entry, got %d", count)
	}
}
