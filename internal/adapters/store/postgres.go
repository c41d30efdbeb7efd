// Package store provides the record stores backing the ingestion service.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS processed_agent_data (
    id         SERIAL PRIMARY KEY,
    road_state TEXT NOT NULL,
    user_id    BIGINT NOT NULL,
    x          DOUBLE PRECISION NOT NULL,
    y          DOUBLE PRECISION NOT NULL,
    z          DOUBLE PRECISION NOT NULL,
    latitude   DOUBLE PRECISION NOT NULL,
    longitude  DOUBLE PRECISION NOT NULL,
    timestamp  TIMESTAMPTZ NOT NULL
)`

const recordColumns = "id, road_state, user_id, x, y, z, latitude, longitude, timestamp"

// Postgres persists records in a processed_agent_data table.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects with the given DSN and ensures the schema exists.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing connection without touching the schema.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Insert(ctx context.Context, rec domain.ProcessedAgentData) (domain.StoredRecord, error) {
	const q = `INSERT INTO processed_agent_data (road_state, user_id, x, y, z, latitude, longitude, timestamp)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`

	a := rec.AgentData
	var id int64
	err := p.db.QueryRowContext(ctx, q,
		string(rec.RoadState), a.UserID,
		a.Accelerometer.X, a.Accelerometer.Y, a.Accelerometer.Z,
		a.GPS.Latitude, a.GPS.Longitude, a.Timestamp,
	).Scan(&id)
	if err != nil {
		return domain.StoredRecord{}, fmt.Errorf("insert record: %w", err)
	}
	return rec.Flatten(id), nil
}

func (p *Postgres) Get(ctx context.Context, id int64) (domain.StoredRecord, error) {
	const q = "SELECT " + recordColumns + " FROM processed_agent_data WHERE id = $1"
	return scanRecord(p.db.QueryRowContext(ctx, q, id))
}

func (p *Postgres) List(ctx context.Context) ([]domain.StoredRecord, error) {
	const q = "SELECT " + recordColumns + " FROM processed_agent_data ORDER BY id"
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Update(ctx context.Context, id int64, rec domain.ProcessedAgentData) (domain.StoredRecord, error) {
	const q = `UPDATE processed_agent_data
		SET road_state = $1, user_id = $2, x = $3, y = $4, z = $5, latitude = $6, longitude = $7, timestamp = $8
		WHERE id = $9 RETURNING ` + recordColumns

	a := rec.AgentData
	return scanRecord(p.db.QueryRowContext(ctx, q,
		string(rec.RoadState), a.UserID,
		a.Accelerometer.X, a.Accelerometer.Y, a.Accelerometer.Z,
		a.GPS.Latitude, a.GPS.Longitude, a.Timestamp, id,
	))
}

func (p *Postgres) Delete(ctx context.Context, id int64) (domain.StoredRecord, error) {
	const q = "DELETE FROM processed_agent_data WHERE id = $1 RETURNING " + recordColumns
	return scanRecord(p.db.QueryRowContext(ctx, q, id))
}

func (p *Postgres) Close() error { return p.db.Close() }

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.StoredRecord, error) {
	var rec domain.StoredRecord
	var state string
	err := row.Scan(&rec.ID, &state, &rec.UserID, &rec.X, &rec.Y, &rec.Z,
		&rec.Latitude, &rec.Longitude, &rec.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StoredRecord{}, fmt.Errorf("scan record: %w", err)
	}
	rec.RoadState = domain.RoadState(state)
	return rec, nil
}

var _ ports.RecordStore = (*Postgres)(nil)
