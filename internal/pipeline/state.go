package pipeline

import "sync/atomic"

// State is the pipeline's solve-state enum from spec.md §3, strictly
// advanced by the pipeline goroutine and read by the telemetry emitter
// and diagnostics surface without a lock.
type State int32

const (
	StateUninit State = iota
	StateInit
	StateImageCap
	StateImageXfer
	StateHotpixMask
	StateFiltering
	StateAutofocus
	StateBlobFind
	StateAstrometry
)

func (s State) String() string {
	switch s {
	case StateUninit:
		return "UNINIT"
	case StateInit:
		return "INIT"
	case StateImageCap:
		return "IMAGE_CAP"
	case StateImageXfer:
		return "IMAGE_XFER"
	case StateHotpixMask:
		return "HOTPIX_MASK"
	case StateFiltering:
		return "FILTERING"
	case StateAutofocus:
		return "AUTOFOCUS"
	case StateBlobFind:
		return "BLOB_FIND"
	case StateAstrometry:
		return "ASTROMETRY"
	default:
		return "UNKNOWN"
	}
}

// AtomicState is a lock-free holder for State, read by telemetry and
// diagnostics goroutines while the pipeline goroutine is the sole
// writer.
type AtomicState struct {
	v atomic.Int32
}

// Store advances the state.
func (a *AtomicState) Store(s State) { a.v.Store(int32(s)) }

// Load returns the current state.
func (a *AtomicState) Load() State { return State(a.v.Load()) }
