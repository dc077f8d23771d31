package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/starcam/internal/blobs"
	starmask "github.com/banshee-data/starcam/internal/mask"
)

// sharpnessSource adapts a CameraDriver into autofocus.SharpnessSource,
// capturing a frame at the current focus position and scoring it with
// a Sobel-gradient contrast metric over an inset region of interest.
type sharpnessSource struct {
	camera        CameraDriver
	width, height int
	border        int
}

func (s *sharpnessSource) CaptureSharpness(ctx context.Context) (float64, error) {
	if err := s.camera.Trigger(ctx); err != nil {
		return 0, fmt.Errorf("pipeline: autofocus trigger: %w", err)
	}
	raw, _, err := s.camera.Capture(ctx)
	if err != nil {
		return 0, fmt.Errorf("pipeline: autofocus capture: %w", err)
	}
	return sobelContrast(raw, s.width, s.height, s.border), nil
}

// sobelContrast sums the gradient magnitude (math.Hypot of the horizontal
// and vertical central differences) over the image interior, excluding a
// border margin, as a contrast-detect
// sharpness score: higher means better focused.
func sobelContrast(raw []uint16, width, height, border int) float64 {
	if border < 1 {
		border = 1
	}
	var sum float64
	for j := border; j < height-border; j++ {
		for i := border; i < width-border; i++ {
			gx := float64(raw[j*width+i+1]) - float64(raw[j*width+i-1])
			gy := float64(raw[(j+1)*width+i]) - float64(raw[(j-1)*width+i])
			sum += math.Hypot(gx, gy)
		}
	}
	return sum
}

// fluxSource adapts a CameraDriver and mask into autofocus.FluxSource
// for the legacy quadratic sweep: capture, detect blobs against an
// unmasked interior, and return the brightest one's magnitude.
type fluxSource struct {
	camera        CameraDriver
	width, height int
	cfg           blobs.Config
}

func (s *fluxSource) CaptureBrightestMagnitude(ctx context.Context) (uint32, error) {
	if err := s.camera.Trigger(ctx); err != nil {
		return 0, fmt.Errorf("pipeline: autofocus trigger: %w", err)
	}
	raw, _, err := s.camera.Capture(ctx)
	if err != nil {
		return 0, fmt.Errorf("pipeline: autofocus capture: %w", err)
	}

	m := starmask.New(s.width, s.height)
	for j := 0; j < s.height; j++ {
		for i := 0; i < s.width; i++ {
			m.Set(i, j, 1)
		}
	}

	filtered := make([]float64, len(raw))
	for i, v := range raw {
		filtered[i] = float64(v)
	}

	found := blobs.Detect(filtered, raw, m, s.width, s.height, s.cfg)
	var best uint32
	for _, b := range found {
		if b.Magnitude > best {
			best = b.Magnitude
		}
	}
	return best, nil
}
