package solve

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/banshee-data/starcam/internal/blobs"
)

func TestWCSPixelRoundTrip(t *testing.T) {
	w := WCS{
		CRPIX1: 512, CRPIX2: 512,
		CRVAL1: 180, CRVAL2: 45,
		CD1_1: -0.0005, CD1_2: 0,
		CD2_1: 0, CD2_2: 0.0005,
	}
	ra, dec := w.PixelToEquatorial(600, 480)
	x, y := w.EquatorialToPixel(ra, dec)
	if math.Abs(x-600) > 1e-6 || math.Abs(y-480) > 1e-6 {
		t.Fatalf("round trip = (%v,%v), want (600,480)", x, y)
	}
}

func TestPixelScalePositive(t *testing.T) {
	w := WCS{CD1_1: -0.0003, CD2_2: 0.0003}
	ps := w.PixelScale()
	if ps <= 0 {
		t.Fatalf("PixelScale() = %v, want positive", ps)
	}
}

func TestDtfToJDJ2000(t *testing.T) {
	eph := DefaultEphemeris{}
	jd1, jd2, err := eph.DtfToJD(2000, 1, 1, 12, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	jd := jd1 + jd2
	if math.Abs(jd-2451545.0) > 1e-6 {
		t.Fatalf("JD = %v, want 2451545.0 (J2000.0 epoch)", jd)
	}
}

func TestObservedPlaceZenithAtMeridianEquator(t *testing.T) {
	// A star on the celestial equator observed from the equator at the
	// moment it transits (hour angle 0) should sit at zenith (0 degrees).
	eph := DefaultEphemeris{}
	jd1, jd2, _ := eph.DtfToJD(2024, 3, 20, 0, 0, 0)
	gmst := greenwichMeanSiderealTime(jd1 + jd2)
	obs, err := eph.ObservedPlace(jd1, jd2, gmst, 0, 0, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(obs.Zenith) > 1 {
		t.Fatalf("zenith = %v, want ~0 at transit on the equator", obs.Zenith)
	}
}

func TestParallacticAngleZeroAtMeridian(t *testing.T) {
	// At hour angle 0 the parallactic angle is 0 or 180 depending on
	// whether the target is above or below the pole; for a target south
	// of the zenith at a northern site it should be 0.
	pa := ParallacticAngle(0, 10, 45)
	if math.Abs(pa) > 1e-9 {
		t.Fatalf("ParallacticAngle(0,...) = %v, want 0", pa)
	}
}

type stubSolver struct {
	wcs  *WCS
	refs []ReferenceStar
	ok   bool
}

func (s stubSolver) Solve(ctx context.Context, stars []blobs.Blob, cfg SolveConfig) (*WCS, []ReferenceStar, bool, error) {
	return s.wcs, s.refs, s.ok, nil
}

func TestDriverSolveNoMatchReturnsZero(t *testing.T) {
	d := NewDriver(stubSolver{ok: false}, DefaultEphemeris{})
	sol, ok, err := d.Solve(context.Background(), nil, SolveConfig{Width: 1024, Height: 1024}, ObservationTime{Year: 2024, Month: 1, Day: 1}, SiteLocation{})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected ok=false on no match")
	}
	if sol != (Solution{}) {
		t.Fatalf("expected zero Solution, got %+v", sol)
	}
}

func TestDriverSolveSuccessPopulatesSolution(t *testing.T) {
	w := &WCS{
		CRPIX1: 512, CRPIX2: 512,
		CRVAL1: 100, CRVAL2: 30,
		CD1_1: -0.0003, CD1_2: 0,
		CD2_1: 0, CD2_2: 0.0003,
	}
	d := NewDriver(stubSolver{wcs: w, ok: true}, DefaultEphemeris{})
	cfg := SolveConfig{Width: 1024, Height: 1024, Margin: 10, TimeLimit: time.Second}
	sol, ok, err := d.Solve(context.Background(), []blobs.Blob{{X: 500, Y: 500, Magnitude: 1000}}, cfg,
		ObservationTime{Year: 2024, Month: 6, Day: 15, Hour: 10, ExposureSeconds: 2},
		SiteLocation{LatitudeDeg: 35, LongitudeDeg: -106, HeightM: 2000})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if sol.RA != 100 || sol.Dec != 30 {
		t.Fatalf("RA/Dec at image centre = (%v,%v), want (100,30)", sol.RA, sol.Dec)
	}
	if sol.PixelScale <= 0 {
		t.Fatalf("PixelScale = %v, want positive", sol.PixelScale)
	}
}

func TestDriverSolvePopulatesPointingRMSFromSolverRefs(t *testing.T) {
	w := &WCS{
		CRPIX1: 0, CRPIX2: 0,
		CRVAL1: 0, CRVAL2: 0,
		CD1_1: -0.0003, CD1_2: 0,
		CD2_1: 0, CD2_2: 0.0003,
	}
	refs := []ReferenceStar{
		{RA: 0, Dec: 0, PixelX: 3, PixelY: 4, Theta: 1}, // exact pixel mismatch of 5px
	}
	d := NewDriver(stubSolver{wcs: w, refs: refs, ok: true}, DefaultEphemeris{})
	cfg := SolveConfig{Width: 1024, Height: 1024, Margin: 10, TimeLimit: time.Second}
	sol, ok, err := d.Solve(context.Background(), []blobs.Blob{{X: 500, Y: 500, Magnitude: 1000}}, cfg,
		ObservationTime{Year: 2024, Month: 6, Day: 15, Hour: 10, ExposureSeconds: 2},
		SiteLocation{LatitudeDeg: 35, LongitudeDeg: -106, HeightM: 2000})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if sol.PointingRMS <= 0 {
		t.Fatalf("PointingRMS = %v, want positive given a mismatched reference correspondence", sol.PointingRMS)
	}
}

func TestQuadSizeMin(t *testing.T) {
	cfg := SolveConfig{Width: 1024, Height: 768, Margin: 10}
	got := cfg.QuadSizeMin()
	want := 0.1 * math.Min(1004, 748)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("QuadSizeMin() = %v, want %v", got, want)
	}
}

func TestTickBudgetCountsDown(t *testing.T) {
	b := NewTickBudget(2)
	if !b.ShouldContinue() {
		t.Fatal("expected ShouldContinue() true with budget remaining")
	}
	b.Tick()
	b.Tick()
	if b.ShouldContinue() {
		t.Fatal("expected ShouldContinue() false after budget exhausted")
	}
}

func TestTickBudgetStopIsImmediate(t *testing.T) {
	b := NewTickBudget(100)
	b.Stop()
	if b.ShouldContinue() {
		t.Fatal("expected ShouldContinue() false immediately after Stop()")
	}
}

func TestPointingRMSIgnoresNegativeTheta(t *testing.T) {
	w := WCS{CRPIX1: 0, CRPIX2: 0, CRVAL1: 0, CRVAL2: 0, CD1_1: -0.0003, CD2_2: 0.0003}
	refs := []ReferenceStar{
		{RA: 0, Dec: 0, PixelX: 0, PixelY: 0, Theta: 1},
		{RA: 500, Dec: 500, PixelX: 0, PixelY: 0, Theta: -1}, // excluded
	}
	rms := pointingRMS(w, refs, 1)
	if rms != 0 {
		t.Fatalf("pointingRMS = %v, want 0 (only correspondence is exact and theta<0 excluded)", rms)
	}
}
