package pipeline

import (
	"context"

	"github.com/banshee-data/starcam/internal/lensctl"
)

// lensDriver adapts lensctl.Controller (focus motion) and CameraDriver
// (sensor binning) together into autofocus.LensDriver: the sweep needs
// both a focus move and a binning change, but those live on two
// different hardware links.
type lensDriver struct {
	lens   *lensctl.Controller
	camera CameraDriver
}

func (l *lensDriver) MoveAbsolute(ctx context.Context, position int) error {
	return l.lens.MoveFocusAbsolute(ctx, position)
}

func (l *lensDriver) SetBinning(ctx context.Context, binning int) error {
	return l.camera.SetBinning(ctx, binning)
}
