package commandproto

import (
	"context"
	"errors"

	"github.com/banshee-data/starcam/internal/params"
)

// ErrNotInCharge is returned when a packet's InCharge field is unset;
// spec.md §4.6 requires rejecting such packets outright.
var ErrNotInCharge = errors.New("commandproto: packet rejected, inCharge not set")

// PipelineGate lets the command listener coordinate with the pipeline
// goroutine without blocking it on every receive: WaitIdle blocks until
// the pipeline is not mid-capture (taking_image), per spec.md §4.6's
// "the decoder never blocks the pipeline" rule, which pushes the wait
// onto command application instead of the socket read loop.
type PipelineGate interface {
	WaitIdle(ctx context.Context) error
}

// Apply copies every set update_* field from pkt into block and resolves
// the focus_mode/cancel-flag transition. It blocks on gate.WaitIdle so
// that field writes never race a capture in flight, then applies the
// packet under a single Mutate call.
func Apply(ctx context.Context, pkt CommandPacket, block *params.Block, gate PipelineGate) error {
	if !pkt.InCharge {
		return ErrNotInCharge
	}

	if err := gate.WaitIdle(ctx); err != nil {
		return err
	}

	snap := block.Snapshot()
	sweepActive := snap.Camera.FocusMode || snap.Camera.CancellingAutoFocus

	block.Mutate(func(s *params.State) {
		applySiteFields(s, pkt)
		applyLensFields(s, pkt, sweepActive)
		applyBlobFields(s, pkt)
		applyTriggerFields(s, pkt)

		if pkt.UpdateFocusMode {
			if pkt.FocusMode {
				s.Camera.FocusMode = true
				s.Camera.BeginAutoFocus = true
			} else {
				s.Camera.FocusMode = false
				if sweepActive {
					s.Camera.CancellingAutoFocus = true
				}
			}
		}
	})

	return nil
}

func applySiteFields(s *params.State, pkt CommandPacket) {
	if pkt.UpdateLogOdds {
		s.Site.LogOdds = pkt.LogOdds
	}
	if pkt.UpdateLatitude {
		s.Site.LatitudeDeg = pkt.Latitude
	}
	if pkt.UpdateLongitude {
		s.Site.LongitudeDeg = pkt.Longitude
	}
	if pkt.UpdateHeight {
		s.Site.HeightM = pkt.Height
	}
	if pkt.UpdateSolveTimeLimit {
		s.Site.SolveTimeoutSec = pkt.SolveTimeLimitSec
	}
}

// applyLensFields applies exposure, gain, focus and aperture fields.
// Per spec.md §4.6, lens/exposure/aperture commands are ignored while an
// auto-focus sweep is active or cancelling; sweep configuration fields
// (start/end/step/photos-per-step) are not lens motion commands and are
// always applied so a queued sweep can be reconfigured mid-flight.
func applyLensFields(s *params.State, pkt CommandPacket, sweepActive bool) {
	if !sweepActive {
		if pkt.UpdateExposure {
			s.Camera.ExposureTimeMs = pkt.ExposureMs
			s.Camera.ChangeExposure = true
		}
		if pkt.UpdateGain {
			s.Camera.GainFactor = pkt.GainFactor
			s.Camera.ChangeGain = true
		}
		if pkt.UpdateFocusPosition {
			s.Camera.FocusPosition = pkt.FocusPosition
		}
		if pkt.UpdateSetFocusInf {
			s.Camera.FocusInf = pkt.SetFocusInf
		}
		if pkt.UpdateApertureSteps {
			s.Camera.ApertureSteps = pkt.ApertureSteps
		}
		if pkt.UpdateMaxAperture {
			s.Camera.MaxAperture = pkt.MaxAperture
		}
	}

	if pkt.UpdateFocusStart {
		s.Camera.StartFocusPos = pkt.FocusStart
	}
	if pkt.UpdateFocusEnd {
		s.Camera.EndFocusPos = pkt.FocusEnd
	}
	if pkt.UpdateFocusStep {
		s.Camera.FocusStep = pkt.FocusStep
	}
	if pkt.UpdatePhotosPerStep {
		s.Camera.PhotosPerFocus = pkt.PhotosPerStep
	}
}

func applyBlobFields(s *params.State, pkt CommandPacket) {
	if pkt.UpdateMakeStaticHP {
		s.Blob.MakeStaticHPRequested = pkt.MakeStaticHP
	}
	if pkt.UpdateUseStaticHP {
		s.Blob.UseStaticHP = pkt.UseStaticHP
	}

	for i, set := range pkt.BlobUpdate {
		if !set {
			continue
		}
		v := pkt.BlobValue[i]
		switch i {
		case BlobSpikeLimit:
			s.Blob.SpikeLimit = v
		case BlobDynamicHP:
			s.Blob.DynamicHP = v != 0
		case BlobSmoothingRadius:
			s.Blob.SmoothingRadius = int(v)
		case BlobHighPass:
			s.Blob.HighPass = v != 0
		case BlobHighPassRadius:
			s.Blob.HighPassRadius = int(v)
		case BlobCentroidBorder:
			s.Blob.CentroidBorder = int(v)
		case BlobSigmaCutoff:
			s.Blob.SigmaCutoff = v
		case BlobSpacing:
			s.Blob.Spacing = int(v)
		case BlobMakeStaticHPThreshold:
			s.Blob.MakeStaticHPThreshold = int(v)
		}
	}
}

func applyTriggerFields(s *params.State, pkt CommandPacket) {
	if pkt.UpdateTriggerMode {
		s.Trigger.Mode = pkt.TriggerMode
	}
	if pkt.UpdateTriggerTimeoutUs {
		s.Trigger.TimeoutUs = pkt.TriggerTimeoutUs
	}
}
