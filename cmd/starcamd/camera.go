package main

import (
	"context"
	"fmt"
	"time"
)

// unboundCamera satisfies pipeline.CameraDriver without talking to any
// hardware. The vendor camera SDK (IDS Peak / uEye in the original
// flight code) is an out-of-scope external collaborator per spec.md
// §1: this module defines the narrow interface the core depends on,
// but does not fabricate a binding to a proprietary SDK it was never
// given. A real deployment supplies its own CameraDriver, built
// against that vendor's Go (or cgo) binding, and passes it to
// newPipeline in place of this stub.
type unboundCamera struct{}

func (unboundCamera) Trigger(ctx context.Context) error { return errNoCameraBinding }

func (unboundCamera) Capture(ctx context.Context) ([]uint16, time.Time, error) {
	return nil, time.Time{}, errNoCameraBinding
}

func (unboundCamera) SetBinning(ctx context.Context, binning int) error { return errNoCameraBinding }
func (unboundCamera) SetExposure(ctx context.Context, ms float64) error { return errNoCameraBinding }
func (unboundCamera) SetGain(ctx context.Context, gain float64) error   { return errNoCameraBinding }
func (unboundCamera) RefreshHotPixelList(ctx context.Context) error     { return errNoCameraBinding }

var errNoCameraBinding = fmt.Errorf("starcamd: no CameraDriver wired; this build does not bundle a vendor camera SDK binding")
