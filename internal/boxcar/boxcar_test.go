package boxcar

import (
	"math"
	"testing"

	starmask "github.com/banshee-data/starcam/internal/mask"
)

func allOnesMask(w, h int) *starmask.Mask {
	m := starmask.New(w, h)
	for i := range m.Pix {
		m.Pix[i] = 1
	}
	return m
}

func TestFluxPreservationOverConstantImage(t *testing.T) {
	w, h := 20, 20
	const c = 42.5
	input := make([]float64, w*h)
	for i := range input {
		input[i] = c
	}
	m := allOnesMask(w, h)
	region := Region{I0: 3, I1: w - 3, J0: 3, J1: h - 3}

	out := Run(input, m, 2, region)
	for j := region.J0; j < region.J1; j++ {
		for i := region.I0; i < region.I1; i++ {
			if math.Abs(out.At(i, j)-c) > 1e-9 {
				t.Fatalf("boxcar(%d,%d) = %v, want %v", i, j, out.At(i, j), c)
			}
		}
	}
}

func TestMaskedReuseNeverNaN(t *testing.T) {
	w, h := 10, 10
	input := make([]float64, w*h)
	for i := range input {
		input[i] = 5
	}
	m := starmask.New(w, h) // all zero = fully masked out
	region := Region{I0: 1, I1: w - 1, J0: 1, J1: h - 1}

	out := Run(input, m, 1, region)
	for j := region.J0; j < region.J1; j++ {
		for i := region.I0; i < region.I1; i++ {
			v := out.At(i, j)
			if math.IsNaN(v) {
				t.Fatalf("boxcar output is NaN at (%d,%d)", i, j)
			}
			if v != 0 {
				t.Fatalf("fully masked image should reuse initial zero value, got %v at (%d,%d)", v, i, j)
			}
		}
	}
}

func TestMaskedReuseWithinRow(t *testing.T) {
	w, h := 12, 6
	input := make([]float64, w*h)
	m := starmask.New(w, h)
	region := Region{I0: 1, I1: w - 1, J0: 1, J1: h - 1}

	// Include only the first half of each interior row.
	for j := region.J0; j < region.J1; j++ {
		for i := region.I0; i < region.I0+3; i++ {
			m.Set(i, j, 1)
			input[j*w+i] = 7
		}
	}

	out := Run(input, m, 1, region)
	for j := region.J0; j < region.J1; j++ {
		last := out.At(region.I0, j)
		for i := region.I0; i < region.I1; i++ {
			v := out.At(i, j)
			if math.IsNaN(v) {
				t.Fatalf("NaN at (%d,%d)", i, j)
			}
			if v != 0 {
				last = v
			} else if last != 0 && v != last {
				t.Fatalf("expected reuse of last valid value %v at (%d,%d), got %v", last, i, j, v)
			}
		}
	}
}

func TestHighPassSubtractsLargeRadius(t *testing.T) {
	w, h := 30, 30
	input := make([]float64, w*h)
	for i := range input {
		input[i] = 10
	}
	// A bright point source on a flat background.
	input[15*w+15] = 1000
	m := allOnesMask(w, h)
	region := Region{I0: 5, I1: w - 5, J0: 5, J1: h - 5}

	hp := HighPass(input, m, 1, 8, region)
	// Far from the star the small and large boxcars agree closely, so the
	// high-pass output should be close to zero.
	if math.Abs(hp.At(6, 6)) > 2 {
		t.Fatalf("high-pass far from source = %v, want near 0", hp.At(6, 6))
	}
}
