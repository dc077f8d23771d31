// Package params holds the camera and blob-detection parameter block: the
// single piece of mutable state shared between the command-ingestion
// goroutines (single writer per field) and the pipeline and telemetry
// goroutines (readers). All access goes through Block, which snapshots a
// value copy under a read lock so readers never observe a torn update.
package params

import (
	"encoding/json"
	"os"
	"sync"
)

// CameraParams mirrors the lens/exposure/auto-focus portion of the
// parameter block from spec.md §3.
type CameraParams struct {
	FocusPosition   int     `json:"focus_position"`
	MinFocusPos     int     `json:"min_focus_pos"`
	MaxFocusPos     int     `json:"max_focus_pos"`
	ApertureSteps   int     `json:"aperture_steps"`
	CurrentAperture int     `json:"current_aperture"`
	MaxAperture     bool    `json:"max_aperture"`
	ExposureTimeMs  float64 `json:"exposure_time_ms"`
	ChangeExposure  bool    `json:"change_exposure_requested"`
	GainFactor      float64 `json:"gain_factor"`
	ChangeGain      bool    `json:"change_gain_requested"`

	FocusInf bool `json:"focus_inf"`

	BeginAutoFocus      bool `json:"begin_auto_focus"`
	FocusMode           bool `json:"focus_mode"`
	CancellingAutoFocus bool `json:"-"` // internal: set when focus_mode clears mid-sweep
	StartFocusPos       int  `json:"start_focus_pos"`
	EndFocusPos         int  `json:"end_focus_pos"`
	FocusStep           int  `json:"focus_step"`
	PhotosPerFocus      int  `json:"photos_per_focus"`
}

// BlobParams mirrors the blob-detection portion of the parameter block.
type BlobParams struct {
	SpikeLimit            float64 `json:"spike_limit"`
	DynamicHP             bool    `json:"dynamic_hp"`
	SmoothingRadius       int     `json:"smoothing_radius"`
	HighPass              bool    `json:"high_pass"`
	HighPassRadius        int     `json:"high_pass_radius"`
	CentroidBorder        int     `json:"centroid_border"`
	FilterReturnImage     bool    `json:"filter_return_image"`
	SigmaCutoff           float64 `json:"sigma_cutoff"`
	Spacing               int     `json:"spacing"`
	MakeStaticHPThreshold int     `json:"make_static_hp_threshold"`
	UseStaticHP           bool    `json:"use_static_hp"`
	MakeStaticHPRequested bool    `json:"-"` // internal: one-shot trigger to rebuild the static mask from the current dynamic mask
}

// SiteParams mirrors the solver/site portion of the parameter block.
type SiteParams struct {
	LatitudeDeg  float64 `json:"latitude_deg"`
	LongitudeDeg float64 `json:"longitude_deg"`
	HeightM      float64 `json:"height_m"`
	LogOdds      float64 `json:"log_odds"` // natural-log odds ratio threshold
	SolveTimeoutSec int  `json:"solve_timeout_sec"`
}

// TriggerParams mirrors the camera-trigger portion of the parameter block.
type TriggerParams struct {
	Mode       bool `json:"trigger_mode"`
	TimeoutUs  int  `json:"trigger_timeout_us"`
}

// State is the full parameter block value. It contains no pointers or
// slices, so copying it is always safe and race-free.
type State struct {
	Camera  CameraParams
	Blob    BlobParams
	Site    SiteParams
	Trigger TriggerParams
}

// Default returns the parameter block's startup defaults.
func Default() State {
	return State{
		Camera: CameraParams{
			MinFocusPos:    0,
			MaxFocusPos:    4000,
			GainFactor:     1.0,
			ExposureTimeMs: 100,
			PhotosPerFocus: 1,
		},
		Blob: BlobParams{
			SpikeLimit:      3.0,
			SmoothingRadius: 2,
			HighPassRadius:  8,
			CentroidBorder:  5,
			SigmaCutoff:     5.0,
			Spacing:         15,
		},
		Site: SiteParams{
			SolveTimeoutSec: 5,
		},
		Trigger: TriggerParams{
			TimeoutUs: 1_000_000,
		},
	}
}

// Block is the mutex-guarded, reader/writer-safe container for State.
type Block struct {
	mu    sync.RWMutex
	state State
}

// New creates a Block initialized with the given state.
func New(initial State) *Block {
	return &Block{state: initial}
}

// Snapshot returns a value copy of the current state, safe to read without
// further synchronization.
func (b *Block) Snapshot() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Mutate runs fn with exclusive access to the block's state. Callers
// should keep fn fast and allocation-free: it runs under the write lock
// and blocks all concurrent snapshots.
func (b *Block) Mutate(fn func(*State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.state)
}

// DumpJSON writes the current state to path as JSON. The format is left
// opaque to external consumers per spec.md; JSON is chosen for consistency
// with the rest of this module's configuration files.
func (b *Block) DumpJSON(path string) error {
	snap := b.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadJSON reads a previously dumped state from path and installs it.
func (b *Block) LoadJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b.Mutate(func(cur *State) { *cur = s })
	return nil
}
