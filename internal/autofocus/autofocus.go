// Package autofocus drives a focus sweep over a motorized lens, using
// either a contrast-detect sharpness score (preferred) or a legacy
// brightest-blob quadratic regression.
package autofocus

import (
	"context"
	"fmt"
)

// LensDriver is the motion surface a sweep needs: absolute focus moves
// and sensor binning changes (binning=4 during a sweep trades resolution
// for speed; binning=1 is the normal acquisition mode).
type LensDriver interface {
	MoveAbsolute(ctx context.Context, position int) error
	SetBinning(ctx context.Context, binning int) error
}

// SharpnessSource captures a frame at the current focus position and
// returns a Sobel-like sharpness score over an inset region of interest.
// Higher is sharper.
type SharpnessSource interface {
	CaptureSharpness(ctx context.Context) (float64, error)
}

// FluxSource captures a frame at the current focus position and returns
// the brightest detected blob's magnitude, for the legacy quadratic
// algorithm.
type FluxSource interface {
	CaptureBrightestMagnitude(ctx context.Context) (uint32, error)
}

// Bounds is the camera parameter block's focus range.
type Bounds struct {
	MinFocus, MaxFocus int
}

// Sample is one (position, score) point recorded during a sweep.
type Sample struct {
	Position int
	Score    float64
}

// Controller runs focus sweeps against a LensDriver.
type Controller struct {
	Lens LensDriver
}

// NewController builds a Controller bound to the given lens driver.
func NewController(lens LensDriver) *Controller {
	return &Controller{Lens: lens}
}

const sweepHardCap = 1600
const backoffMargin = 25

// ContrastSweep runs the contrast-detect auto-focus search: sweep from
// start to a clamped end in steps of step, tracking the best sharpness
// score, reverse once at the end of the forward leg, and finish by
// returning to start (to defeat backlash) before moving to the best
// position found. ctx cancellation (the pipeline's "cancelling_auto_focus"
// flag, surfaced as context cancellation) aborts the loop at the next
// iteration; binning is still restored and the best position found so
// far is still applied, since an aborted sweep should leave the lens in
// a usable state rather than mid-travel.
func (c *Controller) ContrastSweep(ctx context.Context, start, end, step int, bounds Bounds, src SharpnessSource) (best int, trace []Sample, err error) {
	if step <= 0 {
		return 0, nil, fmt.Errorf("autofocus: step must be positive, got %d", step)
	}

	if end > bounds.MaxFocus-backoffMargin {
		end = bounds.MaxFocus - backoffMargin
	}
	if start < bounds.MinFocus+backoffMargin {
		start = bounds.MinFocus + backoffMargin
	}

	if err := c.Lens.MoveAbsolute(ctx, start); err != nil {
		return 0, nil, fmt.Errorf("autofocus: move to start: %w", err)
	}
	if err := c.Lens.SetBinning(ctx, 4); err != nil {
		return 0, nil, fmt.Errorf("autofocus: set binning: %w", err)
	}

	direction := 1
	wentForwardOnce := false
	position := start
	bestScore := -1.0
	best = start

	for tries := 0; tries < sweepHardCap; tries++ {
		if ctx.Err() != nil {
			break
		}

		if position >= end && !wentForwardOnce {
			wentForwardOnce = true
			direction = -1
		}
		if wentForwardOnce && direction == -1 && position < start {
			break
		}

		if err := c.Lens.MoveAbsolute(ctx, position); err != nil {
			break
		}
		score, serr := src.CaptureSharpness(ctx)
		if serr != nil {
			break
		}
		if score >= bestScore {
			bestScore = score
			best = position
			trace = append(trace, Sample{Position: position, Score: score})
		}

		position += step * direction
	}

	if berr := c.Lens.SetBinning(ctx, 1); berr != nil && err == nil {
		err = fmt.Errorf("autofocus: restore binning: %w", berr)
	}

	if best < bounds.MinFocus {
		best = bounds.MinFocus
	}
	if best > bounds.MaxFocus {
		best = bounds.MaxFocus
	}

	if merr := c.Lens.MoveAbsolute(ctx, start); merr != nil && err == nil {
		err = fmt.Errorf("autofocus: return to start: %w", merr)
	}
	if merr := c.Lens.MoveAbsolute(ctx, best); merr != nil && err == nil {
		err = fmt.Errorf("autofocus: move to best: %w", merr)
	}

	return best, trace, err
}

// QuadraticSweep runs the legacy brightest-blob algorithm: at each step
// from start to end, capture photosPerFocus frames and keep the max
// brightest-blob magnitude; fit a parabola to the points whose flux is
// at least the midpoint between the overall max and min, and move to
// the vertex if it's a maximum (negative leading coefficient), else to
// a provided default.
func (c *Controller) QuadraticSweep(ctx context.Context, start, end, step, photosPerFocus, defaultFocus int, bounds Bounds, src FluxSource) (best int, trace []Sample, err error) {
	if step <= 0 {
		return 0, nil, fmt.Errorf("autofocus: step must be positive, got %d", step)
	}
	if photosPerFocus < 1 {
		photosPerFocus = 1
	}

	type point struct {
		position int
		flux     uint32
	}
	var points []point

	for position := start; position <= end; position += step {
		if ctx.Err() != nil {
			break
		}
		if err := c.Lens.MoveAbsolute(ctx, position); err != nil {
			return 0, nil, fmt.Errorf("autofocus: move to %d: %w", position, err)
		}
		var maxFlux uint32
		for i := 0; i < photosPerFocus; i++ {
			flux, ferr := src.CaptureBrightestMagnitude(ctx)
			if ferr != nil {
				return 0, nil, fmt.Errorf("autofocus: capture at %d: %w", position, ferr)
			}
			if flux > maxFlux {
				maxFlux = flux
			}
		}
		points = append(points, point{position: position, flux: maxFlux})
		trace = append(trace, Sample{Position: position, Score: float64(maxFlux)})
	}

	if len(points) == 0 {
		return clampFocus(defaultFocus, bounds), trace, nil
	}

	var maxFlux, minFlux uint32 = 0, points[0].flux
	for _, p := range points {
		if p.flux > maxFlux {
			maxFlux = p.flux
		}
		if p.flux < minFlux {
			minFlux = p.flux
		}
	}
	threshold := (float64(maxFlux) + float64(minFlux)) / 2

	var xs, ys []float64
	for _, p := range points {
		if float64(p.flux) >= threshold {
			xs = append(xs, float64(p.position))
			ys = append(ys, float64(p.flux))
		}
	}

	a, b, _, ferr := fitQuadratic(xs, ys)
	vertex := defaultFocus
	if ferr == nil && 2*a < 0 {
		vertex = int(-b/(2*a) + 0.5)
	}

	best = clampFocus(vertex, bounds)
	if merr := c.Lens.MoveAbsolute(ctx, best); merr != nil {
		return best, trace, merr
	}
	return best, trace, nil
}

func clampFocus(pos int, bounds Bounds) int {
	if pos < bounds.MinFocus {
		return bounds.MinFocus
	}
	if pos > bounds.MaxFocus {
		return bounds.MaxFocus
	}
	return pos
}
