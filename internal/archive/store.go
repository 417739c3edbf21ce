// Package archive keeps a record of determinization runs in SQLite: the settings, the
// state counts before and after, and the determinized lattice in binary form.
package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	key         TEXT NOT NULL,
	delta       REAL NOT NULL,
	in_states   INTEGER NOT NULL,
	out_states  INTEGER NOT NULL,
	out_arcs    INTEGER NOT NULL,
	lattice     BLOB NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_key ON runs(key);
`

// createdAtLayout Fixed width, so created_at sorts as text in time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound indicates no run has the requested id.
var ErrNotFound = errors.New("archive: run not found")

// RunRecord One archived determinization run.
type RunRecord struct {
	RunID        string
	Key          string
	Delta        float32
	InputStates  int
	OutputStates int
	OutputArcs   int
	// Lattice The determinized lattice, encoded with latticeio.MarshalLattice.
	Lattice   []byte
	CreatedAt time.Time
}

// Store Archived runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open Opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save Stores rec under a new run id, which is returned. CreatedAt defaults to now.
func (s *Store) Save(rec RunRecord) (string, error) {
	rec.RunID = uuid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, key, delta, in_states, out_states, out_arcs, lattice, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Key, float64(rec.Delta), rec.InputStates, rec.OutputStates, rec.OutputArcs,
		rec.Lattice, rec.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return rec.RunID, nil
}

// Get Loads the run with the given id.
func (s *Store) Get(runID string) (RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT run_id, key, delta, in_states, out_states, out_arcs, lattice, created_at
		 FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return rec, err
}

// List Returns up to limit runs, newest first.
func (s *Store) List(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, key, delta, in_states, out_states, out_arcs, lattice, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunRecord, error) {
	var (
		rec       RunRecord
		delta     float64
		createdAt string
	)
	err := sc.Scan(&rec.RunID, &rec.Key, &delta, &rec.InputStates, &rec.OutputStates, &rec.OutputArcs, &rec.Lattice, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	rec.Delta = float32(delta)
	rec.CreatedAt, err = time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	return rec, nil
}
