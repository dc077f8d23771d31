// Package boxcar implements the mask-aware separable boxcar (running mean)
// filter and the high-pass variant built from two boxcar passes.
package boxcar

import "github.com/banshee-data/starcam/internal/mask"

// Region bounds the active image area, matching mask.Region.
type Region = mask.Region

// Image is a filtered floating-point image the same size as the source
// frame, produced by Run.
type Image struct {
	Width, Height int
	Pix           []float64
}

func newImage(w, h int) *Image {
	return &Image{Width: w, Height: h, Pix: make([]float64, w*h)}
}

func (img *Image) At(i, j int) float64  { return img.Pix[j*img.Width+i] }
func (img *Image) set(i, j int, v float64) { img.Pix[j*img.Width+i] = v }

// Run computes the mask-aware boxcar average of input (a raw image
// converted to float64) over a square window of radius r, within region.
// Pixels outside region are left at zero.
//
// The implementation is separable: a horizontal running sum/count per row,
// then a vertical running sum/count of those per-row sums over the
// window's height. When a pixel's non-masked contributor count is zero the
// previous valid output in the same row is reused, scanning left to right;
// this keeps the filter deterministic and NaN-free even over fully masked
// rows, per the flux-preservation and masked-reuse invariants.
func Run(input []float64, m *mask.Mask, radius int, region Region) *Image {
	w, h := m.Width, m.Height
	out := newImage(w, h)
	if radius < 0 {
		radius = 0
	}

	rowSum := make([]float64, w*h)
	rowCnt := make([]int, w*h)

	// Horizontal pass: sliding sum/count of width 2r+1 per row.
	for j := region.J0; j < region.J1; j++ {
		var sum float64
		var cnt int
		for i := region.I0; i <= region.I0+radius && i < region.I1; i++ {
			if m.At(i, j) != 0 {
				sum += input[j*w+i]
				cnt++
			}
		}
		for i := region.I0; i < region.I1; i++ {
			// Advance the window by one column once it has filled, by
			// subtracting the column leaving on the left and adding the
			// column entering on the right.
			if i > region.I0 {
				leave := i - radius - 1
				enter := i + radius
				if leave >= region.I0 && m.At(leave, j) != 0 {
					sum -= input[j*w+leave]
					cnt--
				}
				if enter < region.I1 && m.At(enter, j) != 0 {
					sum += input[j*w+enter]
					cnt++
				}
			}
			rowSum[j*w+i] = sum
			rowCnt[j*w+i] = cnt
		}
	}

	// Vertical pass: sliding sum/count of height 2r+1 over the row sums,
	// then divide. When the window's count is zero, the last valid
	// output is reused, carried left-to-right within the same row (a
	// single scalar reset at the start of each row), not down a column
	// across rows — matching the original's single `last_ds` carry.
	colSum := make([]float64, w)
	colCnt := make([]int, w)
	for i := region.I0; i < region.I1; i++ {
		colSum[i] = 0
		colCnt[i] = 0
	}

	for j := region.J0; j < region.J1; j++ {
		var last float64
		for i := region.I0; i < region.I1; i++ {
			if j == region.J0 {
				colSum[i] = 0
				colCnt[i] = 0
				for jj := region.J0; jj <= region.J0+radius && jj < region.J1; jj++ {
					colSum[i] += rowSum[jj*w+i]
					colCnt[i] += rowCnt[jj*w+i]
				}
			} else {
				leave := j - radius - 1
				enter := j + radius
				if leave >= region.J0 {
					colSum[i] -= rowSum[leave*w+i]
					colCnt[i] -= rowCnt[leave*w+i]
				}
				if enter < region.J1 {
					colSum[i] += rowSum[enter*w+i]
					colCnt[i] += rowCnt[enter*w+i]
				}
			}

			var v float64
			if colCnt[i] > 0 {
				v = colSum[i] / float64(colCnt[i])
				last = v
			} else {
				v = last
			}
			out.set(i, j, v)
		}
	}

	return out
}

// HighPass subtracts a large-radius boxcar pass from a small-radius one,
// suppressing background gradients while retaining point-source flux.
func HighPass(input []float64, m *mask.Mask, smallRadius, largeRadius int, region Region) *Image {
	small := Run(input, m, smallRadius, region)
	large := Run(input, m, largeRadius, region)
	out := newImage(m.Width, m.Height)
	for j := region.J0; j < region.J1; j++ {
		for i := region.I0; i < region.I1; i++ {
			out.set(i, j, small.At(i, j)-large.At(i, j))
		}
	}
	return out
}
