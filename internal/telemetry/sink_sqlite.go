package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS points (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	measurement TEXT NOT NULL,
	tags TEXT NOT NULL,
	fields TEXT NOT NULL,
	timestamp_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_points_measurement_ts ON points (measurement, timestamp_ns);
`

// SQLiteSink stores points in a local database for runs without an influx
// endpoint. Each batch is written in one transaction.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (and if needed creates) the database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: create schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) WriteBatch(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO points (measurement, tags, fields, timestamp_ns) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("telemetry: marshal tags: %w", err)
		}
		fields, err := json.Marshal(p.Fields)
		if err != nil {
			return fmt.Errorf("telemetry: marshal fields: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, p.Measurement, string(tags), string(fields), p.TimestampNS); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
