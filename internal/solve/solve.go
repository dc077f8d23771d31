// Package solve dispatches a detected blob list to a plate solver and,
// on success, derives a pointing solution: celestial coordinates at the
// image centre, pixel scale, field/image rotation, observed alt/az, and
// pointing RMS.
package solve

import (
	"context"
	"math"
	"time"

	"github.com/banshee-data/starcam/internal/blobs"
)

// MaxBlobs bounds the number of sources handed to the solver per spec.md
// §4.2/§4.3.
const MaxBlobs = 300

// SolveConfig bounds one solve attempt.
type SolveConfig struct {
	Width, Height int
	Margin        int
	MinPixelScale float64 // arcsec/px
	MaxPixelScale float64
	LogOdds       float64 // natural-log odds-ratio acceptance threshold
	TimeLimit     time.Duration
}

// QuadSizeMin is the minimum quad size the solver should consider, per
// spec.md §4.3: 0.1 * min(usable width, usable height).
func (c SolveConfig) QuadSizeMin() float64 {
	usableW := c.Width - 2*c.Margin
	usableH := c.Height - 2*c.Margin
	return 0.1 * math.Min(float64(usableW), float64(usableH))
}

// Solver is the external plate-solver binding. Alongside the fitted WCS,
// it returns the catalog correspondences it matched during solving
// (each blob it paired with a reference star, with Theta < 0 marking
// blobs it could not match), so the driver can derive pointing RMS
// without a second, independent catalog lookup.
type Solver interface {
	Solve(ctx context.Context, stars []blobs.Blob, cfg SolveConfig) (wcs *WCS, refs []ReferenceStar, ok bool, err error)
}

// Solution is the full pointing solution for one solved cycle.
type Solution struct {
	RA, Dec                 float64 // J2000 ICRS, degrees
	ObservedRA, ObservedDec float64 // apparent, degrees
	FieldRotation           float64 // degrees
	PixelScale              float64 // arcsec/px
	ImageRotation           float64 // degrees
	Altitude, Azimuth       float64 // degrees
	PointingRMS             float64 // arcseconds
	SolveDuration           time.Duration
}

// TickBudget is the cooperative-cancellation capability passed to a
// Solver implementation in place of a C-style callback: the pipeline
// decrements it once per tick of its own clock, and the solver polls
// ShouldContinue between internal search steps. Replaces spec.md §4.3's
// "reinstall the timeout callback" step.
type TickBudget struct {
	remaining int
}

// NewTickBudget returns a budget that allows n further ticks.
func NewTickBudget(n int) *TickBudget {
	return &TickBudget{remaining: n}
}

// Tick decrements the remaining budget by one.
func (b *TickBudget) Tick() {
	if b.remaining > 0 {
		b.remaining--
	}
}

// ShouldContinue reports whether the budget has ticks remaining.
func (b *TickBudget) ShouldContinue() bool {
	return b.remaining > 0
}

// Stop immediately zeroes the budget, for use on shutdown.
func (b *TickBudget) Stop() {
	b.remaining = 0
}

// ReferenceStar is a catalog star matched against a detected blob, used
// to compute pointing RMS.
type ReferenceStar struct {
	RA, Dec  float64 // degrees
	PixelX   float64
	PixelY   float64
	Theta    float64 // match quality; only theta >= 0 correspondences count
}

// Driver orchestrates one solve attempt per cycle.
type Driver struct {
	Solver    Solver
	Ephemeris Ephemeris
}

// NewDriver builds a Driver with the given solver and ephemeris bindings.
func NewDriver(solver Solver, eph Ephemeris) *Driver {
	return &Driver{Solver: solver, Ephemeris: eph}
}

// ObservationTime is the UTC calendar timestamp and exposure duration
// used to convert a solve into an observed place.
type ObservationTime struct {
	Year, Month, Day, Hour, Minute int
	Second                         float64
	ExposureSeconds                float64
}

// SiteLocation is the observer's geodetic position.
type SiteLocation struct {
	LatitudeDeg, LongitudeDeg, HeightM float64
}

// Solve runs one solve attempt: it caps stars to MaxBlobs, calls the
// configured Solver, and on success derives the full Solution including
// observed alt/az and pointing RMS from the solver's own matched
// correspondences. ok is false (and Solution the zero value) when the
// solver found no match, matching spec.md's "append a line of zeros"
// behaviour.
func (d *Driver) Solve(ctx context.Context, stars []blobs.Blob, cfg SolveConfig, obsTime ObservationTime, site SiteLocation) (Solution, bool, error) {
	capped := stars
	if len(capped) > MaxBlobs {
		capped = capped[:MaxBlobs]
	}

	wcs, refs, ok, err := d.Solver.Solve(ctx, capped, cfg)
	if err != nil {
		return Solution{}, false, err
	}
	if !ok || wcs == nil {
		return Solution{}, false, nil
	}

	cx := float64(cfg.Width) / 2
	cy := float64(cfg.Height) / 2
	ra, dec := wcs.PixelToEquatorial(cx, cy)
	pixelScale := wcs.PixelScale()
	fieldRotation := wcs.FieldRotation()

	jd1, jd2, err := d.Ephemeris.DtfToJD(obsTime.Year, obsTime.Month, obsTime.Day, obsTime.Hour, obsTime.Minute, obsTime.Second)
	if err != nil {
		return Solution{}, false, err
	}
	jd2 += obsTime.ExposureSeconds / 2 / 86400

	const dut1 = 0.0
	observed, err := d.Ephemeris.ObservedPlace(jd1, jd2, ra, dec, site.LatitudeDeg, site.LongitudeDeg, site.HeightM, dut1)
	if err != nil {
		return Solution{}, false, err
	}

	altitude := 90 - observed.Zenith
	imageRotation := ParallacticAngle(observed.HourAngle, observed.ApparentDec, site.LatitudeDeg) - fieldRotation

	rms := pointingRMS(*wcs, refs, pixelScale)

	return Solution{
		RA:            ra,
		Dec:           dec,
		ObservedRA:    observed.ApparentRA,
		ObservedDec:   observed.ApparentDec,
		FieldRotation: fieldRotation,
		PixelScale:    pixelScale,
		ImageRotation: imageRotation,
		Altitude:      altitude,
		Azimuth:       observed.Azimuth,
		PointingRMS:   rms,
	}, true, nil
}

// pointingRMS reprojects each reference star's RA/Dec through wcs back to
// pixels, sums squared residuals against its matched blob pixel over
// correspondences with theta >= 0, and scales the RMS to arcseconds.
func pointingRMS(wcs WCS, refs []ReferenceStar, pixelScale float64) float64 {
	var sumSq float64
	var n int
	for _, r := range refs {
		if r.Theta < 0 {
			continue
		}
		px, py := wcs.EquatorialToPixel(r.RA, r.Dec)
		dx := px - r.PixelX
		dy := py - r.PixelY
		sumSq += dx*dx + dy*dy
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sumSq/float64(n)) * pixelScale
}
