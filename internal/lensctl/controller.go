package lensctl

import (
	"context"
	"fmt"

	"github.com/banshee-data/starcam/internal/params"
)

// LearnRange sends "la", the lens' range-learning command, and returns
// the reported focus-travel bounds and current position.
func (c *Controller) LearnRange(ctx context.Context) (fmin, fmax, current int, err error) {
	reply, err := c.exchangeCtx(ctx, "la")
	if err != nil {
		return 0, 0, 0, err
	}
	return parseRange(reply)
}

// MoveToInfinity sends "mi", driving the lens to its infinity stop.
func (c *Controller) MoveToInfinity(ctx context.Context) error {
	_, err := c.exchangeCtx(ctx, "mi")
	return err
}

// Initialize sends "in", the lens' post-homing initialization token.
func (c *Controller) Initialize(ctx context.Context) error {
	_, err := c.exchangeCtx(ctx, "in")
	return err
}

// OpenAperture sends "mo", driving the aperture fully open.
func (c *Controller) OpenAperture(ctx context.Context) error {
	_, err := c.exchangeCtx(ctx, "mo")
	return err
}

// MoveFocusRelative sends "mf <delta>", a relative focus move.
func (c *Controller) MoveFocusRelative(ctx context.Context, delta int) error {
	_, err := c.exchangeCtx(ctx, fmt.Sprintf("mf %d", delta))
	return err
}

// MoveApertureRelative sends "mn<delta>", a relative aperture step move.
func (c *Controller) MoveApertureRelative(ctx context.Context, delta int) error {
	_, err := c.exchangeCtx(ctx, fmt.Sprintf("mn%d", delta))
	return err
}

// MoveFocusAbsolute drives the lens to position by querying its current
// position and issuing the equivalent relative move, since the lens'
// own command set (spec.md §4.9) has no absolute-move token. Satisfies
// the focus half of autofocus.LensDriver.
func (c *Controller) MoveFocusAbsolute(ctx context.Context, position int) error {
	pos, _, err := c.QueryFocusPosition(ctx)
	if err != nil {
		return fmt.Errorf("lensctl: move to absolute position: %w", err)
	}
	delta := position - pos
	if delta == 0 {
		return nil
	}
	return c.MoveFocusRelative(ctx, delta)
}

// QueryFocusPosition sends "fp" and parses the reply.
func (c *Controller) QueryFocusPosition(ctx context.Context) (pos, fNumber int, err error) {
	reply, err := c.exchangeCtx(ctx, "fp")
	if err != nil {
		return 0, 0, err
	}
	return parsePosition(reply)
}

// QueryAperture sends "pa" and parses the reply.
func (c *Controller) QueryAperture(ctx context.Context) (pos, fNumber int, err error) {
	reply, err := c.exchangeCtx(ctx, "pa")
	if err != nil {
		return 0, 0, err
	}
	return parsePosition(reply)
}

// exchangeCtx is exchange with a context check before the write, so a
// cancelled pipeline never issues a new command it can't wait for.
func (c *Controller) exchangeCtx(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.exchange(token)
}

// Startup runs the lens' power-on sequence from spec.md §4.9: learn
// the focus range, drive to infinity, nudge off the stop, initialize,
// and open the aperture, recording the learned bounds and resulting
// position into block.
func (c *Controller) Startup(ctx context.Context, block *params.Block) error {
	fmin, fmax, current, err := c.LearnRange(ctx)
	if err != nil {
		return fmt.Errorf("lensctl: startup learn range: %w", err)
	}
	if err := c.MoveToInfinity(ctx); err != nil {
		return fmt.Errorf("lensctl: startup move to infinity: %w", err)
	}
	if err := c.MoveFocusRelative(ctx, -80); err != nil {
		return fmt.Errorf("lensctl: startup backoff move: %w", err)
	}
	if err := c.Initialize(ctx); err != nil {
		return fmt.Errorf("lensctl: startup initialize: %w", err)
	}
	if err := c.OpenAperture(ctx); err != nil {
		return fmt.Errorf("lensctl: startup open aperture: %w", err)
	}

	pos, _, err := c.QueryFocusPosition(ctx)
	if err != nil {
		return fmt.Errorf("lensctl: startup query focus position: %w", err)
	}
	aperturePos, _, err := c.QueryAperture(ctx)
	if err != nil {
		return fmt.Errorf("lensctl: startup query aperture: %w", err)
	}

	block.Mutate(func(s *params.State) {
		s.Camera.MinFocusPos = fmin
		s.Camera.MaxFocusPos = fmax
		s.Camera.FocusPosition = pos
		s.Camera.CurrentAperture = aperturePos
		s.Camera.MaxAperture = true
		_ = current
	})
	return nil
}

// SyncFocusPosition queries the lens' current focus position and
// writes it into block, as spec.md §4.9 requires after any focus
// motion command.
func (c *Controller) SyncFocusPosition(ctx context.Context, block *params.Block) error {
	pos, _, err := c.QueryFocusPosition(ctx)
	if err != nil {
		return err
	}
	block.Mutate(func(s *params.State) {
		s.Camera.FocusPosition = pos
	})
	return nil
}

// SyncAperture queries the lens' current aperture position and writes
// it into block, as spec.md §4.9 requires after any aperture motion
// command.
func (c *Controller) SyncAperture(ctx context.Context, block *params.Block) error {
	pos, _, err := c.QueryAperture(ctx)
	if err != nil {
		return err
	}
	block.Mutate(func(s *params.State) {
		s.Camera.CurrentAperture = pos
	})
	return nil
}
