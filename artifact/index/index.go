// Package index keeps a SQLite catalogue of stored simulation records so
// listings do not have to parse every document.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hupe1980/commonpool/artifact"
	"github.com/hupe1980/commonpool/core"
)

// DB wraps a SQLite connection holding one row per record.
type DB struct {
	conn *sqlx.DB
}

var _ artifact.Indexer = (*DB)(nil)

// Open opens or creates the index database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS simulations (
		filename TEXT PRIMARY KEY,
		simulation_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		start_unix_nano INTEGER NOT NULL,
		participants_json TEXT NOT NULL,
		exchanges_count INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_simulations_start ON simulations(start_unix_nano);
	CREATE INDEX IF NOT EXISTS idx_simulations_id ON simulations(simulation_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type row struct {
	Filename         string `db:"filename"`
	SimulationID     string `db:"simulation_id"`
	StartTime        string `db:"start_time"`
	StartUnixNano    int64  `db:"start_unix_nano"`
	ParticipantsJSON string `db:"participants_json"`
	ExchangesCount   int    `db:"exchanges_count"`
}

const upsertRow = `
	INSERT INTO simulations (filename, simulation_id, start_time, start_unix_nano, participants_json, exchanges_count)
	VALUES (:filename, :simulation_id, :start_time, :start_unix_nano, :participants_json, :exchanges_count)
	ON CONFLICT(filename) DO UPDATE SET
		simulation_id = excluded.simulation_id,
		start_time = excluded.start_time,
		start_unix_nano = excluded.start_unix_nano,
		participants_json = excluded.participants_json,
		exchanges_count = excluded.exchanges_count`

// Put inserts or refreshes the row for s.Filename.
func (db *DB) Put(ctx context.Context, s core.RecordSummary) error {
	return put(ctx, db.conn, s)
}

func put(ctx context.Context, e sqlx.ExtContext, s core.RecordSummary) error {
	participants := s.Participants
	if participants == nil {
		participants = []string{}
	}
	pj, err := json.Marshal(participants)
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, e, upsertRow, row{
		Filename:         s.Filename,
		SimulationID:     s.ID,
		StartTime:        s.StartTime.Format(time.RFC3339Nano),
		StartUnixNano:    s.StartTime.UnixNano(),
		ParticipantsJSON: string(pj),
		ExchangesCount:   s.ExchangesCount,
	})
	if err != nil {
		return fmt.Errorf("index %s: %w", s.Filename, err)
	}
	return nil
}

// List returns every indexed summary, newest first.
func (db *DB) List(ctx context.Context) ([]core.RecordSummary, error) {
	var rows []row
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT * FROM simulations ORDER BY start_unix_nano DESC, filename ASC`)
	if err != nil {
		return nil, err
	}
	out := make([]core.RecordSummary, 0, len(rows))
	for _, r := range rows {
		s, err := r.summary()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Lookup returns the summaries recorded for one simulation id.
func (db *DB) Lookup(ctx context.Context, simulationID string) ([]core.RecordSummary, error) {
	var rows []row
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT * FROM simulations WHERE simulation_id = ? ORDER BY start_unix_nano DESC, filename ASC`, simulationID)
	if err != nil {
		return nil, err
	}
	out := make([]core.RecordSummary, 0, len(rows))
	for _, r := range rows {
		s, err := r.summary()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Rebuild replaces the index with one row per record src lists, in a single
// transaction. It returns the number of rows written.
func (db *DB) Rebuild(ctx context.Context, src core.RecordReader) (int, error) {
	list, err := src.List(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM simulations`); err != nil {
		return 0, err
	}
	for _, s := range list {
		if err := put(ctx, tx, s); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(list), nil
}

func (r row) summary() (core.RecordSummary, error) {
	start, err := time.Parse(time.RFC3339Nano, r.StartTime)
	if err != nil {
		return core.RecordSummary{}, fmt.Errorf("index row %s: %w", r.Filename, err)
	}
	var participants []string
	if err := json.Unmarshal([]byte(r.ParticipantsJSON), &participants); err != nil {
		return core.RecordSummary{}, fmt.Errorf("index row %s: %w", r.Filename, err)
	}
	return core.RecordSummary{
		ID:             r.SimulationID,
		StartTime:      start,
		Participants:   participants,
		ExchangesCount: r.ExchangesCount,
		Filename:       r.Filename,
	}, nil
}

// Reader serves listings from the index and documents from docs.
type Reader struct {
	db   *DB
	docs core.RecordReader
}

var _ core.RecordReader = (*Reader)(nil)

// NewReader returns a read contract whose List comes from db. Get is
// delegated to docs, which owns the stored documents.
func NewReader(db *DB, docs core.RecordReader) *Reader {
	return &Reader{db: db, docs: docs}
}

// List implements core.RecordReader.
func (r *Reader) List(ctx context.Context) ([]core.RecordSummary, error) {
	return r.db.List(ctx)
}

// Get implements core.RecordReader.
func (r *Reader) Get(ctx context.Context, filename string) ([]byte, error) {
	return r.docs.Get(ctx, filename)
}
