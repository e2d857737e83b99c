// Package catalog indexes saved runs in SQLite so they can be listed and
// filtered without walking the run directories.
package catalog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/san-kum/fidsim/internal/storage"
)

// DefaultFile is the catalog name inside a run directory.
const DefaultFile = "catalog.db"

// DB wraps a SQLite connection holding the run index.
type DB struct {
	conn *sqlx.DB
}

// Entry is one indexed run.
type Entry struct {
	ID        string    `db:"id"`
	Probe     string    `db:"probe"`
	Material  string    `db:"material"`
	Mode      string    `db:"mode"`
	Seed      int64     `db:"seed"`
	Cells     int       `db:"cells"`
	B0        float64   `db:"b0"`
	MixDown   float64   `db:"mix_down"`
	Samples   int       `db:"samples"`
	T90       float64   `db:"t90"`
	Noise     bool      `db:"noise"`
	CreatedNS int64     `db:"created_ns"`
	Created   time.Time `db:"-"`
}

// Open opens or creates the catalog at path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		probe TEXT NOT NULL,
		material TEXT NOT NULL,
		mode TEXT NOT NULL,
		seed INTEGER NOT NULL,
		cells INTEGER NOT NULL,
		b0 REAL NOT NULL,
		mix_down REAL NOT NULL,
		samples INTEGER NOT NULL,
		t90 REAL NOT NULL,
		noise INTEGER NOT NULL,
		created_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_probe ON runs(probe);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_ns);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Record indexes a saved run, replacing any earlier entry with the same id.
func (db *DB) Record(meta *storage.RunMetadata) error {
	e := Entry{
		ID:        meta.ID,
		Probe:     meta.Probe,
		Material:  meta.Material,
		Mode:      meta.Mode,
		Seed:      int64(meta.Seed),
		Cells:     meta.Cells,
		B0:        meta.B0,
		MixDown:   meta.MixDown,
		Samples:   meta.Samples,
		T90:       meta.T90,
		Noise:     meta.Noise,
		CreatedNS: meta.Timestamp.UnixNano(),
	}
	_, err := db.conn.NamedExec(`
		INSERT OR REPLACE INTO runs
			(id, probe, material, mode, seed, cells, b0, mix_down, samples, t90, noise, created_ns)
		VALUES
			(:id, :probe, :material, :mode, :seed, :cells, :b0, :mix_down, :samples, :t90, :noise, :created_ns)`,
		e)
	if err != nil {
		return fmt.Errorf("record %s: %w", meta.ID, err)
	}
	slog.Debug("run indexed", "id", meta.ID)
	return nil
}

// List returns indexed runs, newest first. An empty probe lists all.
func (db *DB) List(probe string) ([]Entry, error) {
	query := "SELECT * FROM runs"
	var args []any
	if probe != "" {
		query += " WHERE probe = ?"
		args = append(args, probe)
	}
	query += " ORDER BY created_ns DESC, id"

	var entries []Entry
	if err := db.conn.Select(&entries, query, args...); err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Created = time.Unix(0, entries[i].CreatedNS).UTC()
	}
	return entries, nil
}

// Remove drops a run from the index.
func (db *DB) Remove(id string) error {
	_, err := db.conn.Exec("DELETE FROM runs WHERE id = ?", id)
	return err
}
