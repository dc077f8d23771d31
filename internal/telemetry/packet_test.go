package telemetry

import (
	"testing"

	"github.com/banshee-data/starcam/internal/params"
	"github.com/banshee-data/starcam/internal/solve"
)

func TestAstrometryPacketRoundTrip(t *testing.T) {
	sol := solve.Solution{
		RA: 10.5, Dec: -30.2, ObservedRA: 10.6, ObservedDec: -30.1,
		PointingRMS: 1.2, FieldRotation: 0.5, PixelScale: 1.9,
		ImageRotation: 12.0, Altitude: 45.0, Azimuth: 180.0,
	}
	pkt := NewAstrometryPacket(sol, 1700000000.5, 0.25, 7)

	data, err := EncodeAstrometry(pkt)
	if err != nil {
		t.Fatalf("EncodeAstrometry: %v", err)
	}
	out, err := DecodeAstrometry(data)
	if err != nil {
		t.Fatalf("DecodeAstrometry: %v", err)
	}
	if out != pkt {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, pkt)
	}
	if out.NumBlobs != 7 {
		t.Fatalf("NumBlobs = %d, want 7", out.NumBlobs)
	}
}

func TestParameterPacketRoundTrip(t *testing.T) {
	s := params.Default()
	s.Camera.FocusPosition = 2200
	s.Camera.CurrentAperture = 3
	s.Blob.Spacing = 22
	s.Site.LatitudeDeg = 51.5

	pkt := NewParameterPacket(s)
	data, err := EncodeParameter(pkt)
	if err != nil {
		t.Fatalf("EncodeParameter: %v", err)
	}
	out, err := DecodeParameter(data)
	if err != nil {
		t.Fatalf("DecodeParameter: %v", err)
	}
	if out != pkt {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, pkt)
	}
	if out.FocusPosition != 2200 || out.CurrentAperture != 3 || out.Spacing != 22 || out.LatitudeDeg != 51.5 {
		t.Fatalf("unexpected decoded fields: %+v", out)
	}
}

func TestDecodeAstrometryRejectsShortBuffer(t *testing.T) {
	if _, err := DecodeAstrometry([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error decoding a too-short astrometry packet")
	}
}
