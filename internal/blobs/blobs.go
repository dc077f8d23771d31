// Package blobs finds and centroids stars ("blobs") in a filtered image.
package blobs

import (
	"math"

	starmask "github.com/banshee-data/starcam/internal/mask"
)

// Blob is one detected local maximum, with (x,y) in image-frame
// convention (y already flipped from memory order) and a magnitude
// proportional to its filtered brightness.
type Blob struct {
	X, Y      float64
	Magnitude uint32
}

// Config bounds a single detection pass.
type Config struct {
	Sigma      float64 // threshold multiplier k: accept filtered > mean + k*sigma
	Spacing    int     // minimum pixel separation between distinct blobs
	Border     int     // interior margin excluded from the search
	Saturation uint16  // sensor saturation value; any pixel >= this is always a candidate
}

// magnitudeOf converts a filtered value to the saturating blob magnitude:
// 100x the filtered value, rounded, saturating to MaxUint32 instead of
// wrapping when the value is negative (as can happen with high-pass
// filtering) or otherwise out of range.
func magnitudeOf(filtered float64) uint32 {
	v := math.Round(100 * filtered)
	if v < 0 || v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// Detect runs one blob-detection pass over filtered (the boxcar/high-pass
// output) using raw (the unfiltered, unpacked image, for the saturation
// test) and m (the hot-pixel mask), within the frame's full dimensions.
// Returned blobs have image-frame y and are sorted by magnitude descending.
func Detect(filtered []float64, raw []uint16, m *starmask.Mask, width, height int, cfg Config) []Blob {
	b := cfg.Border
	if b < 1 {
		b = 1
	}

	mean, sigma := stats(filtered, m, width, b, width-b, b, height-b)
	threshold := mean + cfg.Sigma*sigma

	var candidates []Blob
	for j := b; j < height-b; j++ {
		for i := b; i < width-b; i++ {
			if m.At(i, j) == 0 {
				continue
			}
			v := filtered[j*width+i]
			saturated := raw[j*width+i] >= cfg.Saturation
			if !saturated && v <= threshold {
				continue
			}
			if !saturated && !isLocalMax(filtered, width, height, i, j) {
				continue
			}
			candidates = append(candidates, Blob{X: float64(i), Y: float64(j), Magnitude: magnitudeOf(v)})
		}
	}

	accepted := dedupe(candidates, cfg.Spacing, uint32(cfg.Saturation)*100)

	for idx := range accepted {
		accepted[idx].Y = float64(height) - accepted[idx].Y
	}

	SortDescending(accepted)
	return accepted
}

// stats computes the mean and standard deviation of filtered over the
// masked interior [i0,i1) x [j0,j1).
func stats(filtered []float64, m *starmask.Mask, width, i0, i1, j0, j1 int) (mean, sigma float64) {
	var sum, sumSq float64
	var n float64
	for j := j0; j < j1; j++ {
		for i := i0; i < i1; i++ {
			if m.At(i, j) == 0 {
				continue
			}
			v := filtered[j*width+i]
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	mean = sum / n
	variance := (sumSq - sum*sum/n) / n
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// isLocalMax tests the strict-greater-right/down, greater-or-equal-left/up
// 3x3 predicate from spec.md.
func isLocalMax(filtered []float64, width, height, i, j int) bool {
	v := filtered[j*width+i]
	if i+1 < width && filtered[j*width+i+1] >= v {
		return false
	}
	if j+1 < height && filtered[(j+1)*width+i] >= v {
		return false
	}
	if i-1 >= 0 && filtered[j*width+i-1] > v {
		return false
	}
	if j-1 >= 0 && filtered[(j-1)*width+i] > v {
		return false
	}
	return true
}

// dedupe rejects a candidate blob if a brighter blob already exists within
// spacing pixels on both axes; if the new one is brighter, it replaces the
// existing blob in place. Candidates whose magnitude is at or above
// satThreshold use a 4x wider effective spacing.
func dedupe(candidates []Blob, spacing int, satThreshold uint32) []Blob {
	var accepted []Blob
	for _, c := range candidates {
		replaced := false
		dropped := false
		for idx := range accepted {
			eff := spacing
			if c.Magnitude >= satThreshold || accepted[idx].Magnitude >= satThreshold {
				eff *= 4
			}
			dx := math.Abs(c.X - accepted[idx].X)
			dy := math.Abs(c.Y - accepted[idx].Y)
			if dx < float64(eff) && dy < float64(eff) {
				if c.Magnitude > accepted[idx].Magnitude {
					accepted[idx] = c
					replaced = true
				} else {
					dropped = true
				}
				break
			}
		}
		if !replaced && !dropped {
			accepted = append(accepted, c)
		}
	}
	return accepted
}
