package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/starcam/internal/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesRunRow(t *testing.T) {
	s := openTestStore(t)
	if s.RunID() == "" {
		t.Fatal("expected a non-empty run ID")
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE run_id = ?`, s.RunID()).Scan(&count); err != nil {
		t.Fatalf("query runs: %v", err)
	}
	if count != 1 {
		t.Fatalf("runs count = %d, want 1", count)
	}
}

func TestAppendCycleInsertsRow(t *testing.T) {
	s := openTestStore(t)
	row := pipeline.CycleRow{
		CaptureTime: time.Date(2026, 7, 31, 4, 0, 0, 0, time.UTC),
		BlobCount:   5,
		RA:          123.456,
		Dec:         -12.3,
		SolveMs:     42,
	}

	if err := s.AppendCycle(context.Background(), row); err != nil {
		t.Fatalf("AppendCycle: %v", err)
	}

	var gotRA float64
	var gotBlobCount int
	if err := s.db.QueryRow(`SELECT ra, blob_count FROM cycles WHERE run_id = ?`, s.RunID()).Scan(&gotRA, &gotBlobCount); err != nil {
		t.Fatalf("query cycles: %v", err)
	}
	if gotRA != row.RA || gotBlobCount != row.BlobCount {
		t.Fatalf("got ra=%v blob_count=%v, want ra=%v blob_count=%v", gotRA, gotBlobCount, row.RA, row.BlobCount)
	}
}

func TestCloseMarksRunEnded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	runID := s.RunID()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	var endedAt *time.Time
	if err := s2.db.QueryRow(`SELECT ended_at FROM runs WHERE run_id = ?`, runID).Scan(&endedAt); err != nil {
		t.Fatalf("query ended_at: %v", err)
	}
	if endedAt == nil {
		t.Fatal("expected ended_at to be set after Close")
	}
}

func TestMigrationsApplyIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open (re-migrate): %v", err)
	}
	s2.Close()
}
