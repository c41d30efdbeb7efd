package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS processed_agent_data (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    road_state TEXT NOT NULL,
    user_id    INTEGER NOT NULL,
    x          REAL NOT NULL,
    y          REAL NOT NULL,
    z          REAL NOT NULL,
    latitude   REAL NOT NULL,
    longitude  REAL NOT NULL,
    timestamp  TEXT NOT NULL
)`

// SQLite is the embedded record store used for local runs and tests.
// Timestamps are stored as RFC 3339 text.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database file and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Insert(ctx context.Context, rec domain.ProcessedAgentData) (domain.StoredRecord, error) {
	const q = `INSERT INTO processed_agent_data (road_state, user_id, x, y, z, latitude, longitude, timestamp)
		VALUES (?,?,?,?,?,?,?,?)`

	a := rec.AgentData
	res, err := s.db.ExecContext(ctx, q,
		string(rec.RoadState), a.UserID,
		a.Accelerometer.X, a.Accelerometer.Y, a.Accelerometer.Z,
		a.GPS.Latitude, a.GPS.Longitude, a.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.StoredRecord{}, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.StoredRecord{}, fmt.Errorf("insert record id: %w", err)
	}
	return rec.Flatten(id), nil
}

func (s *SQLite) Get(ctx context.Context, id int64) (domain.StoredRecord, error) {
	const q = "SELECT " + recordColumns + " FROM processed_agent_data WHERE id = ?"
	return scanSQLiteRecord(s.db.QueryRowContext(ctx, q, id))
}

func (s *SQLite) List(ctx context.Context) ([]domain.StoredRecord, error) {
	const q = "SELECT " + recordColumns + " FROM processed_agent_data ORDER BY id"
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredRecord
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Update(ctx context.Context, id int64, rec domain.ProcessedAgentData) (domain.StoredRecord, error) {
	const q = `UPDATE processed_agent_data
		SET road_state = ?, user_id = ?, x = ?, y = ?, z = ?, latitude = ?, longitude = ?, timestamp = ?
		WHERE id = ?`

	a := rec.AgentData
	res, err := s.db.ExecContext(ctx, q,
		string(rec.RoadState), a.UserID,
		a.Accelerometer.X, a.Accelerometer.Y, a.Accelerometer.Z,
		a.GPS.Latitude, a.GPS.Longitude, a.Timestamp.Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return domain.StoredRecord{}, fmt.Errorf("update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StoredRecord{}, err
	}
	if n == 0 {
		return domain.StoredRecord{}, domain.ErrNotFound
	}
	return rec.Flatten(id), nil
}

func (s *SQLite) Delete(ctx context.Context, id int64) (domain.StoredRecord, error) {
	prior, err := s.Get(ctx, id)
	if err != nil {
		return domain.StoredRecord{}, err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM processed_agent_data WHERE id = ?", id); err != nil {
		return domain.StoredRecord{}, fmt.Errorf("delete record: %w", err)
	}
	return prior, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func scanSQLiteRecord(row rowScanner) (domain.StoredRecord, error) {
	var rec domain.StoredRecord
	var state, ts string
	err := row.Scan(&rec.ID, &state, &rec.UserID, &rec.X, &rec.Y, &rec.Z,
		&rec.Latitude, &rec.Longitude, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StoredRecord{}, fmt.Errorf("scan record: %w", err)
	}
	rec.RoadState = domain.RoadState(state)
	rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return domain.StoredRecord{}, fmt.Errorf("stored timestamp: %w", err)
	}
	return rec, nil
}

var _ ports.RecordStore = (*SQLite)(nil)
