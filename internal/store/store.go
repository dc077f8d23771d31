// Package store mirrors each acquisition cycle's observing-log row into a
// local SQLite database, alongside a runs table keyed by a run UUID, per
// SPEC_FULL.md's storage section. Writes are fire-and-forget from the
// pipeline's point of view: AppendCycle failures are returned to the
// caller to log, never treated as fatal to the acquisition cycle.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/starcam/internal/pipeline"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// compile-time assertion: Store implements pipeline.Store.
var _ pipeline.Store = (*Store)(nil)

// Store is the SQLite-backed cycle mirror.
type Store struct {
	db    *sql.DB
	runID string
}

// Open creates or upgrades the database at path, runs pending migrations,
// and starts a new run row stamped with the current time.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, runID: uuid.NewString()}
	if _, err := db.Exec(`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`,
		s.runID, time.Now().UTC()); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: insert run row: %w", err)
	}
	return s, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("store: %s: %w", p, err)
		}
	}
	return nil
}

func migrateUp(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: iofs source: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("store: migrate instance: %w", err)
	}
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) { log.Printf("[store migrate] "+format, v...) }
func (migrateLogger) Verbose() bool                          { return false }

// AppendCycle inserts one observing-log row tied to this Store's run.
func (s *Store) AppendCycle(ctx context.Context, row pipeline.CycleRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (
			run_id, capture_unix, gmt, blob_count,
			ra, dec, ra_obs, dec_obs, field_rotation, pixel_scale,
			alt, az, image_rotation, solve_ms, sigma_as, camera_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, row.CaptureTime.Unix(), row.CaptureTime.UTC().Format(time.RFC3339), row.BlobCount,
		row.RA, row.Dec, row.RAObs, row.DecObs, row.FieldRotation, row.PixelScale,
		row.Alt, row.Az, row.ImageRotation, row.SolveMs, row.SigmaAs, row.CameraMs,
	)
	if err != nil {
		return fmt.Errorf("store: append cycle: %w", err)
	}
	return nil
}

// Close marks the current run ended and closes the database.
func (s *Store) Close() error {
	if _, err := s.db.Exec(`UPDATE runs SET ended_at = ? WHERE run_id = ?`,
		time.Now().UTC(), s.runID); err != nil {
		log.Printf("store: mark run ended: %v", err)
	}
	return s.db.Close()
}

// RunID returns the UUID of the currently open run.
func (s *Store) RunID() string { return s.runID }

// DB returns the underlying connection, for read-only diagnostics (tailsql,
// dashboard queries) that live outside this package.
func (s *Store) DB() *sql.DB { return s.db }

// MigrationsFS exposes the embedded migration filesystem for tooling (the
// migrate CLI, schema inspection) that needs the raw fs.FS.
func MigrationsFS() (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations")
}
