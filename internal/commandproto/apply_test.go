package commandproto

import (
	"context"
	"testing"

	"github.com/banshee-data/starcam/internal/params"
)

func TestApplyRejectsNotInCharge(t *testing.T) {
	block := params.New(params.Default())
	err := Apply(context.Background(), CommandPacket{InCharge: false}, block, alwaysIdleGate{})
	if err != ErrNotInCharge {
		t.Fatalf("err = %v, want ErrNotInCharge", err)
	}
}

func TestApplySiteFields(t *testing.T) {
	block := params.New(params.Default())
	pkt := CommandPacket{
		InCharge:             true,
		UpdateLatitude:       true,
		Latitude:             37.7,
		UpdateLongitude:      true,
		Longitude:            -122.4,
		UpdateHeight:         true,
		Height:               30,
		UpdateLogOdds:        true,
		LogOdds:              9.0,
		UpdateSolveTimeLimit: true,
		SolveTimeLimitSec:    10,
	}
	if err := Apply(context.Background(), pkt, block, alwaysIdleGate{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := block.Snapshot()
	if s.Site.LatitudeDeg != 37.7 || s.Site.LongitudeDeg != -122.4 || s.Site.HeightM != 30 {
		t.Fatalf("site fields not applied: %+v", s.Site)
	}
	if s.Site.LogOdds != 9.0 || s.Site.SolveTimeoutSec != 10 {
		t.Fatalf("solver fields not applied: %+v", s.Site)
	}
}

func TestApplyEnterFocusModeSetsBeginAutoFocus(t *testing.T) {
	block := params.New(params.Default())
	pkt := CommandPacket{InCharge: true, UpdateFocusMode: true, FocusMode: true}
	if err := Apply(context.Background(), pkt, block, alwaysIdleGate{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := block.Snapshot()
	if !s.Camera.FocusMode || !s.Camera.BeginAutoFocus {
		t.Fatalf("expected FocusMode and BeginAutoFocus set, got %+v", s.Camera)
	}
}

func TestApplyClearFocusModeDuringSweepSetsCancel(t *testing.T) {
	block := params.New(params.Default())
	block.Mutate(func(s *params.State) { s.Camera.FocusMode = true })

	pkt := CommandPacket{InCharge: true, UpdateFocusMode: true, FocusMode: false}
	if err := Apply(context.Background(), pkt, block, alwaysIdleGate{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := block.Snapshot()
	if s.Camera.FocusMode {
		t.Fatal("expected FocusMode cleared")
	}
	if !s.Camera.CancellingAutoFocus {
		t.Fatal("expected CancellingAutoFocus set when clearing mid-sweep")
	}
}

func TestApplyClearFocusModeWhenIdleDoesNotSetCancel(t *testing.T) {
	block := params.New(params.Default())
	pkt := CommandPacket{InCharge: true, UpdateFocusMode: true, FocusMode: false}
	if err := Apply(context.Background(), pkt, block, alwaysIdleGate{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if block.Snapshot().Camera.CancellingAutoFocus {
		t.Fatal("did not expect CancellingAutoFocus when no sweep was active")
	}
}

func TestApplyLensCommandsIgnoredDuringActiveSweep(t *testing.T) {
	block := params.New(params.Default())
	block.Mutate(func(s *params.State) { s.Camera.FocusMode = true })

	pkt := CommandPacket{
		InCharge:            true,
		UpdateExposure:      true,
		ExposureMs:          500,
		UpdateFocusPosition: true,
		FocusPosition:       1234,
		UpdateApertureSteps: true,
		ApertureSteps:       3,
	}
	if err := Apply(context.Background(), pkt, block, alwaysIdleGate{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := block.Snapshot()
	def := params.Default()
	if s.Camera.ExposureTimeMs != def.Camera.ExposureTimeMs {
		t.Fatalf("exposure changed during active sweep: %v", s.Camera.ExposureTimeMs)
	}
	if s.Camera.FocusPosition != def.Camera.FocusPosition {
		t.Fatalf("focus position changed during active sweep: %v", s.Camera.FocusPosition)
	}
	if s.Camera.ApertureSteps != def.Camera.ApertureSteps {
		t.Fatalf("aperture changed during active sweep: %v", s.Camera.ApertureSteps)
	}
}

func TestApplyLensCommandsIgnoredWhileCancelling(t *testing.T) {
	block := params.New(params.Default())
	block.Mutate(func(s *params.State) { s.Camera.CancellingAutoFocus = true })

	pkt := CommandPacket{InCharge: true, UpdateExposure: true, ExposureMs: 500}
	if err := Apply(context.Background(), pkt, block, alwaysIdleGate{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if block.Snapshot().Camera.ChangeExposure {
		t.Fatal("exposure change should be suppressed while cancelling")
	}
}

func TestApplySweepConfigAppliedEvenDuringSweep(t *testing.T) {
	block := params.New(params.Default())
	block.Mutate(func(s *params.State) { s.Camera.FocusMode = true })

	pkt := CommandPacket{
		InCharge:            true,
		UpdateFocusStart:    true,
		FocusStart:          100,
		UpdateFocusEnd:      true,
		FocusEnd:            2000,
		UpdateFocusStep:     true,
		FocusStep:           25,
		UpdatePhotosPerStep: true,
		PhotosPerStep:       3,
	}
	if err := Apply(context.Background(), pkt, block, alwaysIdleGate{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := block.Snapshot()
	if s.Camera.StartFocusPos != 100 || s.Camera.EndFocusPos != 2000 || s.Camera.FocusStep != 25 || s.Camera.PhotosPerFocus != 3 {
		t.Fatalf("sweep config not applied: %+v", s.Camera)
	}
}

func TestApplyBlobArrayFields(t *testing.T) {
	block := params.New(params.Default())
	pkt := CommandPacket{InCharge: true}
	pkt.BlobUpdate[BlobSpikeLimit] = true
	pkt.BlobValue[BlobSpikeLimit] = 6.5
	pkt.BlobUpdate[BlobSpacing] = true
	pkt.BlobValue[BlobSpacing] = 20
	pkt.BlobUpdate[BlobHighPass] = true
	pkt.BlobValue[BlobHighPass] = 1

	if err := Apply(context.Background(), pkt, block, alwaysIdleGate{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := block.Snapshot()
	if s.Blob.SpikeLimit != 6.5 {
		t.Fatalf("SpikeLimit = %v, want 6.5", s.Blob.SpikeLimit)
	}
	if s.Blob.Spacing != 20 {
		t.Fatalf("Spacing = %v, want 20", s.Blob.Spacing)
	}
	if !s.Blob.HighPass {
		t.Fatal("expected HighPass true")
	}
}

func TestApplyMakeStaticHPRequestAndUseStaticHP(t *testing.T) {
	block := params.New(params.Default())
	pkt := CommandPacket{
		InCharge:           true,
		UpdateMakeStaticHP: true,
		MakeStaticHP:       true,
		UpdateUseStaticHP:  true,
		UseStaticHP:        true,
	}
	if err := Apply(context.Background(), pkt, block, alwaysIdleGate{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := block.Snapshot()
	if !s.Blob.MakeStaticHPRequested || !s.Blob.UseStaticHP {
		t.Fatalf("static HP fields not applied: %+v", s.Blob)
	}
}

func TestApplyTriggerFields(t *testing.T) {
	block := params.New(params.Default())
	pkt := CommandPacket{InCharge: true, UpdateTriggerMode: true, TriggerMode: true, UpdateTriggerTimeoutUs: true, TriggerTimeoutUs: 250000}
	if err := Apply(context.Background(), pkt, block, alwaysIdleGate{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := block.Snapshot()
	if !s.Trigger.Mode || s.Trigger.TimeoutUs != 250000 {
		t.Fatalf("trigger fields not applied: %+v", s.Trigger)
	}
}

type cancellingGate struct{}

func (cancellingGate) WaitIdle(ctx context.Context) error { return context.Canceled }

func TestApplyPropagatesGateError(t *testing.T) {
	block := params.New(params.Default())
	err := Apply(context.Background(), CommandPacket{InCharge: true}, block, cancellingGate{})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
