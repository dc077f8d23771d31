// Package pipeline is the composition root for one acquisition cycle:
// trigger/capture, unpack, mask, filter, detect, centroid, solve, write
// FITS, and log — the single-threaded state machine of spec.md §4.5.
// It imports frame, mask, boxcar, blobs, solve, autofocus, fitsio, and
// lensctl; none of those packages import pipeline (internal/store
// imports pipeline, for CycleRow and the Store interface), mirroring
// the teacher's l2frames..l6objects layering under
// internal/lidar/pipeline.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/starcam/internal/autofocus"
	"github.com/banshee-data/starcam/internal/blobs"
	"github.com/banshee-data/starcam/internal/boxcar"
	"github.com/banshee-data/starcam/internal/fitsio"
	"github.com/banshee-data/starcam/internal/frame"
	"github.com/banshee-data/starcam/internal/lensctl"
	starmask "github.com/banshee-data/starcam/internal/mask"
	"github.com/banshee-data/starcam/internal/monitoring"
	"github.com/banshee-data/starcam/internal/params"
	"github.com/banshee-data/starcam/internal/solve"
)

// MinBlobs, together with solve.MaxBlobs, bounds the accepted blob count
// per cycle before the high-pass retry, per spec.md §4.2.
const MinBlobs = 4

// Config wires a Pipeline's hardware and collaborator dependencies.
type Config struct {
	Width, Height int

	Camera CameraDriver
	Lens   *lensctl.Controller

	SolveDriver *solve.Driver

	Params  *params.Block
	Display *frame.DisplayBuffer

	LogDir         string
	FitsDir        string
	StaticMaskPath string

	Store Store
}

// Pipeline runs the acquisition cycle loop described in spec.md §4.5 on
// a single goroutine.
type Pipeline struct {
	cfg Config

	state AtomicState
	gate  *Gate
	solved *solvedHolder

	rawCapture  []uint16 // sensor words straight off the camera, pre-unpack
	raw         *frame.Frame
	mask        *starmask.Mask
	maskBuilder *starmask.Builder

	obsLog *ObservingLog
}

// New builds a Pipeline ready to Run. Camera/Lens/SolveDriver/
// Params/Display are required; Store defaults to a
// no-op when nil.
func New(cfg Config) *Pipeline {
	if cfg.Store == nil {
		cfg.Store = noopStore{}
	}
	return &Pipeline{
		cfg:        cfg,
		gate:       NewGate(),
		solved:     &solvedHolder{},
		rawCapture: make([]uint16, cfg.Width*cfg.Height),
		raw:        frame.New(cfg.Width, cfg.Height),
		mask:       starmask.New(cfg.Width, cfg.Height),
		obsLog: NewObservingLog(cfg.LogDir),
		maskBuilder: &starmask.Builder{
			StaticFilePath: cfg.StaticMaskPath,
		},
	}
}

// State returns the pipeline's current solve-state, safe to call from
// any goroutine.
func (p *Pipeline) State() State { return p.state.Load() }

// Gate returns the taking_image gate, for wiring into
// commandproto.ListenerConfig.Gate.
func (p *Pipeline) Gate() *Gate { return p.gate }

// SolvedSource returns the telemetry-facing solved-flag holder, for
// wiring into telemetry.NewAstrometrySender.
func (p *Pipeline) SolvedSource() *solvedHolder { return p.solved }

// Run drives RunCycle in a loop until ctx is cancelled. Transient
// per-cycle errors are logged and the loop continues; only ctx
// cancellation stops it, per spec.md §7's recover-locally policy.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.obsLog.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.RunCycle(ctx); err != nil {
			monitoring.Logf("pipeline: cycle error: %v", err)
		}
	}
}

// RunCycle executes one full pass of spec.md §4.5's eleven steps.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	p.state.Store(StateInit)
	snap := p.cfg.Params.Snapshot()

	// Step 2: autofocus sweep on begin_auto_focus.
	if snap.Camera.BeginAutoFocus {
		if err := p.runAutofocus(ctx, snap); err != nil {
			return fmt.Errorf("pipeline: autofocus: %w", err)
		}
		p.cfg.Params.Mutate(func(s *params.State) {
			s.Camera.BeginAutoFocus = false
			s.Camera.FocusMode = false
			s.Camera.CancellingAutoFocus = false
		})
		snap = p.cfg.Params.Snapshot()
	}

	// Step 3: renew the SDK-internal hot-pixel list.
	p.state.Store(StateHotpixMask)
	if snap.Blob.MakeStaticHPRequested || snap.Blob.DynamicHP {
		if err := p.cfg.Camera.RefreshHotPixelList(ctx); err != nil {
			return fmt.Errorf("pipeline: refresh hot-pixel list: %w", err)
		}
		if snap.Blob.MakeStaticHPRequested {
			p.cfg.Params.Mutate(func(s *params.State) { s.Blob.MakeStaticHPRequested = false })
		}
	}

	// Step 4: trigger + capture.
	p.state.Store(StateImageCap)
	p.gate.BeginCapture()
	capturedAt, cameraElapsed, err := p.capture(ctx, snap)
	p.gate.EndCapture()
	if err != nil {
		return fmt.Errorf("pipeline: capture: %w", err)
	}

	// Step 5: unpack.
	p.state.Store(StateImageXfer)
	if err := p.raw.UnpackInto(p.rawCapture); err != nil {
		return fmt.Errorf("pipeline: unpack: %w", err)
	}

	// Hot-pixel mask (static + dynamic), part of step 3/6's input.
	region := starmask.Region{I0: 0, I1: p.cfg.Width, J0: 0, J1: p.cfg.Height}
	p.maskBuilder.SpikeLimit = snap.Blob.SpikeLimit
	p.maskBuilder.DynamicHP = snap.Blob.DynamicHP
	p.maskBuilder.Build(p.mask, p.raw.Pix, region)
	if snap.Blob.UseStaticHP {
		pts, err := starmask.LoadStaticFile(p.cfg.StaticMaskPath)
		if err == nil {
			starmask.ApplyStatic(p.mask, pts, p.cfg.Height)
		}
	}

	// Step 6: detect, retry once with high-pass if count is out of
	// range.
	p.state.Store(StateFiltering)
	blobCfg := blobs.Config{
		Sigma:      snap.Blob.SigmaCutoff,
		Spacing:    snap.Blob.Spacing,
		Border:     snap.Blob.CentroidBorder,
		Saturation: 4095,
	}
	found, _ := p.detect(snap, blobCfg, region)

	// Step 7: centroid refinement.
	p.state.Store(StateBlobFind)
	blobs.Refine(found, p.raw.Pix, p.cfg.Width, p.cfg.Height)

	// Step 8: publish the display buffer.
	p.cfg.Display.Publish(p.raw)

	// Step 9: solve, unless in focus mode.
	p.state.Store(StateAstrometry)
	// BlobCount joins the other eleven solve-derived fields at zero on a
	// no-solve cycle, per spec.md §8's "exactly one CSV line of 12
	// zero-valued fields" parity requirement (astrometry.c:362 zeroes
	// num_blobs along with the rest of the row).
	row := CycleRow{CaptureTime: capturedAt, CameraMs: cameraElapsed}
	if !snap.Camera.FocusMode {
		sol, ok, solveErr := p.solve(ctx, found, snap, capturedAt)
		if solveErr != nil {
			monitoring.Logf("pipeline: solve: %v", solveErr)
		} else if ok {
			row.BlobCount = len(found)
			row.RA, row.Dec = sol.RA, sol.Dec
			row.RAObs, row.DecObs = sol.ObservedRA, sol.ObservedDec
			row.FieldRotation = sol.FieldRotation
			row.PixelScale = sol.PixelScale
			row.Alt, row.Az = sol.Altitude, sol.Azimuth
			row.ImageRotation = sol.ImageRotation
			row.SolveMs = float64(sol.SolveDuration.Milliseconds())
			row.SigmaAs = sol.PointingRMS
			p.solved.Set(sol, float64(capturedAt.Unix()), float64(capturedAt.Unix()), len(found))
		}
	}

	// Step 10: write the FITS file.
	if err := p.writeFITS(snap, capturedAt); err != nil {
		monitoring.Logf("pipeline: write FITS: %v", err)
	}

	// Step 11: append the diagnostic observing-log row.
	if err := p.obsLog.Append(row); err != nil {
		monitoring.Logf("pipeline: append observing log: %v", err)
	}
	if err := p.cfg.Store.AppendCycle(ctx, row); err != nil {
		monitoring.Logf("pipeline: mirror cycle to store: %v", err)
	}

	return nil
}

// capture issues a software or hardware trigger and captures a frame
// into p.rawCapture, per spec.md §4.5 step 4.
func (p *Pipeline) capture(ctx context.Context, snap params.State) (capturedAt time.Time, cameraMs float64, err error) {
	if snap.Trigger.Mode {
		time.Sleep(time.Duration(snap.Trigger.TimeoutUs) * time.Microsecond)
	}
	if err := p.cfg.Camera.Trigger(ctx); err != nil {
		return time.Time{}, 0, err
	}
	start := time.Now()
	raw, t, err := p.cfg.Camera.Capture(ctx)
	if err != nil {
		return time.Time{}, 0, err
	}
	if len(raw) != len(p.rawCapture) {
		return time.Time{}, 0, fmt.Errorf("pipeline: captured %d samples, want %d", len(raw), len(p.rawCapture))
	}
	copy(p.rawCapture, raw)
	return t, float64(time.Since(start).Milliseconds()), nil
}

// detect runs blob detection, honoring the operator-controlled
// high-pass toggle (snap.Blob.HighPass) on the primary pass, per
// spec.md §3 ("if high-pass is enabled, the large-radius boxcar is
// subtracted") and camera.c:2989's `if (all_blob_params.high_pass_filter)`.
// It retries once more with high-pass filtering, independent of that
// toggle, if the count is outside [MinBlobs, MaxBlobs], per spec.md
// §4.2.
func (p *Pipeline) detect(snap params.State, cfg blobs.Config, region starmask.Region) (found []blobs.Blob, usedHighPass bool) {
	rawFloat := make([]float64, len(p.raw.Pix))
	for i, v := range p.raw.Pix {
		rawFloat[i] = float64(v)
	}

	runPrimary := func() *boxcar.Image {
		if snap.Blob.HighPass {
			return boxcar.HighPass(rawFloat, p.mask, snap.Blob.SmoothingRadius, snap.Blob.HighPassRadius, region)
		}
		return boxcar.Run(rawFloat, p.mask, snap.Blob.SmoothingRadius, region)
	}

	filtered := runPrimary()
	found = blobs.Detect(filtered.Pix, p.raw.Pix, p.mask, p.cfg.Width, p.cfg.Height, cfg)
	if len(found) >= MinBlobs && len(found) <= solve.MaxBlobs {
		return found, snap.Blob.HighPass
	}

	hp := boxcar.HighPass(rawFloat, p.mask, snap.Blob.SmoothingRadius, snap.Blob.HighPassRadius, region)
	return blobs.Detect(hp.Pix, p.raw.Pix, p.mask, p.cfg.Width, p.cfg.Height, cfg), true
}

// solve dispatches to the plate-solve driver, converting the current
// parameter snapshot into a SolveConfig/ObservationTime/SiteLocation.
// Reference-star correspondences for pointing RMS come back from the
// Solver itself (it alone knows the catalog match), threaded through
// solve.Driver.Solve rather than supplied here.
func (p *Pipeline) solve(ctx context.Context, found []blobs.Blob, snap params.State, capturedAt time.Time) (solve.Solution, bool, error) {
	cfg := solve.SolveConfig{
		Width:   p.cfg.Width,
		Height:  p.cfg.Height,
		Margin:  snap.Blob.CentroidBorder,
		LogOdds: snap.Site.LogOdds,
		TimeLimit: time.Duration(snap.Site.SolveTimeoutSec) * time.Second,
	}
	obsTime := ObservationTimeFromCapture(capturedAt, float64(snap.Camera.ExposureTimeMs)/1000)
	site := solve.SiteLocation{
		LatitudeDeg:  snap.Site.LatitudeDeg,
		LongitudeDeg: snap.Site.LongitudeDeg,
		HeightM:      snap.Site.HeightM,
	}
	return p.cfg.SolveDriver.Solve(ctx, found, cfg, obsTime, site)
}

// ObservationTimeFromCapture converts a capture wall-clock time into
// solve.ObservationTime's UTC calendar fields.
func ObservationTimeFromCapture(t time.Time, exposureSeconds float64) solve.ObservationTime {
	u := t.UTC()
	sec := float64(u.Second()) + float64(u.Nanosecond())/1e9
	return solve.ObservationTime{
		Year: u.Year(), Month: int(u.Month()), Day: u.Day(),
		Hour: u.Hour(), Minute: u.Minute(), Second: sec,
		ExposureSeconds: exposureSeconds,
	}
}

// writeFITS writes the current raw frame to the FITS output directory
// with metadata drawn from the parameter snapshot, per spec.md §4.5
// step 10 and §6's key list.
func (p *Pipeline) writeFITS(snap params.State, capturedAt time.Time) error {
	img := fitsio.Image{Width: p.cfg.Width, Height: p.cfg.Height, Pixels: p.raw.Pix}
	meta := fitsio.Metadata{
		Origin:   "starcamd",
		Instrume: "starcam",
		Filename: capturedAt.UTC().Format("20060102-150405.fits"),
		Date:     capturedAt.UTC().Format(time.RFC3339),
		UTCSec:   capturedAt.Unix(),
		UTCUsec:  int64(capturedAt.Nanosecond() / 1000),
		Focus:    snap.Camera.FocusPosition,
		Aperture: snap.Camera.CurrentAperture,
		ExpTime:  snap.Camera.ExposureTimeMs,
		Bunit:    "ADU",
		FZAlgor:  "RICE_1",
		FZTile:   "ROW",
		GainFact: snap.Camera.GainFactor,
	}
	path := fmt.Sprintf("%s/%s", p.cfg.FitsDir, meta.Filename)
	return fitsio.Write(path, img, meta)
}

// runAutofocus dispatches to the contrast-detect sweep using the
// current focus bounds and sweep parameters from the parameter block.
func (p *Pipeline) runAutofocus(ctx context.Context, snap params.State) error {
	bounds := autofocus.Bounds{MinFocus: snap.Camera.MinFocusPos, MaxFocus: snap.Camera.MaxFocusPos}
	lens := &lensDriver{lens: p.cfg.Lens, camera: p.cfg.Camera}
	ctrl := autofocus.NewController(lens)
	src := &sharpnessSource{camera: p.cfg.Camera, width: p.cfg.Width, height: p.cfg.Height, border: snap.Blob.CentroidBorder}

	_, _, err := ctrl.ContrastSweep(ctx, snap.Camera.StartFocusPos, snap.Camera.EndFocusPos, snap.Camera.FocusStep, bounds, src)
	return err
}
