package pipeline

import (
	"context"
	"time"
)

// CameraDriver is the vendor camera SDK boundary: trigger/capture, the
// binning and exposure/gain writes the hardware-adjust step applies,
// and the SDK-internal hot-pixel list refresh, all modeled as one
// narrow interface per spec.md §1's "out of scope collaborators" note.
type CameraDriver interface {
	Trigger(ctx context.Context) error
	Capture(ctx context.Context) (raw []uint16, capturedAt time.Time, err error)
	SetBinning(ctx context.Context, binning int) error
	SetExposure(ctx context.Context, ms float64) error
	SetGain(ctx context.Context, gain float64) error
	RefreshHotPixelList(ctx context.Context) error
}

// Store mirrors one cycle's observing-log row into the SQLite
// diagnostics database. Failures are logged, never fatal, per
// SPEC_FULL.md §6: the database is a queryable mirror, not the
// spec-mandated source of truth (the CSV file is).
type Store interface {
	AppendCycle(ctx context.Context, row CycleRow) error
}

// noopStore is used when no Store is configured.
type noopStore struct{}

func (noopStore) AppendCycle(ctx context.Context, row CycleRow) error { return nil }
