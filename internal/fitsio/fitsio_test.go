package fitsio

import (
	"os"
	"path/filepath"
	"testing"
)

func sampleImage(width, height int) Image {
	px := make([]uint16, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// Smooth gradient plus a bright "star" so both the boring and
			// interesting parts of the Rice coder get exercised.
			v := uint16(1000 + x*2 + y)
			if x == width/2 && y == height/2 {
				v = 60000
			}
			px[y*width+x] = v
		}
	}
	return Image{Width: width, Height: height, Pixels: px}
}

func sampleMetadata() Metadata {
	return Metadata{
		Origin:   "starcam",
		Instrume: "starcam",
		Telescop: "alt-az",
		Observat: "site-1",
		Observer: "auto",
		Filename: "frame.fits",
		Date:     "2026-07-31T00:00:00",
		UTCSec:   1753920000,
		UTCUsec:  123456,
		Filter:   "clear",
		CCDTemp:  -5.5,
		Focus:    2048,
		Aperture: 4,
		ExpTime:  100,
		Bunit:    "ADU",
		FZAlgor:  "RICE_1",
		FZTile:   "ROW",
		Detector: "cmos",
		SensorID: "sn-01",
		BitDepth: 12,
		PixScale1: 1.2,
		PixScale2: 1.2,
		PixSize1:  3.75,
		PixSize2:  3.75,
		DarkCur:   0.1,
		RdNoise1:  2.5,
		CCDBin1:   1,
		CCDBin2:   1,
		PixelClk:  48.0,
		Framerte:  10.0,
		GainFact:  1.0,
		TrigDlay:  50,
		BlOffset:  64,
		AutoGain:  true,
		AutoExp:   false,
		AutoBlk:   true,
	}
}

func TestWriteReadRoundTripPixels(t *testing.T) {
	img := sampleImage(64, 48)
	meta := sampleMetadata()

	path := filepath.Join(t.TempDir(), "frame.fits")
	if err := Write(path, img, meta); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, gotMeta, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Width != img.Width || got.Height != img.Height {
		t.Fatalf("dims = %dx%d, want %dx%d", got.Width, got.Height, img.Width, img.Height)
	}
	for i := range img.Pixels {
		if got.Pixels[i] != img.Pixels[i] {
			t.Fatalf("pixel %d = %d, want %d", i, got.Pixels[i], img.Pixels[i])
		}
	}
	if gotMeta.Focus != meta.Focus || gotMeta.Aperture != meta.Aperture {
		t.Fatalf("metadata round trip mismatch: %+v", gotMeta)
	}
	if gotMeta.FZAlgor != "RICE_1" {
		t.Fatalf("FZAlgor = %q, want RICE_1", gotMeta.FZAlgor)
	}
}

func TestWriteRemovesTempFile(t *testing.T) {
	img := sampleImage(8, 8)
	meta := sampleMetadata()
	path := filepath.Join(t.TempDir(), "frame.fits")

	before, _ := os.ReadDir(os.TempDir())
	if err := Write(path, img, meta); err != nil {
		t.Fatalf("Write: %v", err)
	}
	after, _ := os.ReadDir(os.TempDir())

	var leaked int
	beforeNames := make(map[string]bool, len(before))
	for _, e := range before {
		beforeNames[e.Name()] = true
	}
	for _, e := range after {
		if beforeNames[e.Name()] {
			continue
		}
		if filepath.Ext(e.Name()) == ".tmp" {
			leaked++
		}
	}
	if leaked > 0 {
		t.Fatalf("found %d leaked starcam-fits temp files", leaked)
	}
}

func TestReadDetectsChecksumMismatch(t *testing.T) {
	img := sampleImage(4, 4)
	meta := sampleMetadata()
	path := filepath.Join(t.TempDir(), "frame.fits")
	if err := Write(path, img, meta); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// With this metadata the primary header fills two blocks; flip a byte
	// inside the first row tile of the payload that follows it.
	data[2*blockLen+7] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, _, err := Read(path); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}

func TestRiceRowRoundTrip(t *testing.T) {
	row := []uint16{100, 101, 102, 100, 99, 5000, 5001, 0, 65535, 1}
	k, data := encodeRiceRow(row)
	out, err := decodeRiceRow(k, data, len(row))
	if err != nil {
		t.Fatalf("decodeRiceRow: %v", err)
	}
	for i := range row {
		if out[i] != row[i] {
			t.Fatalf("pixel %d = %d, want %d", i, out[i], row[i])
		}
	}
}

func TestZigzagRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 2, -2, 32767, -32768} {
		if got := unzigzag(zigzag(v)); got != v {
			t.Fatalf("unzigzag(zigzag(%d)) = %d", v, got)
		}
	}
}

func TestWriteRejectsMismatchedPixelCount(t *testing.T) {
	img := Image{Width: 4, Height: 4, Pixels: make([]uint16, 10)}
	err := Write(filepath.Join(t.TempDir(), "bad.fits"), img, sampleMetadata())
	if err == nil {
		t.Fatal("expected error for mismatched pixel count")
	}
}
