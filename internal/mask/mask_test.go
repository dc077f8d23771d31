package mask

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildBorderAlwaysZero(t *testing.T) {
	w, h := 8, 8
	raw := make([]uint16, w*h)
	for i := range raw {
		raw[i] = 100
	}
	b := &Builder{DynamicHP: false}
	m := New(w, h)
	b.Build(m, raw, Region{I0: 0, I1: w, J0: 0, J1: h})

	for i := 0; i < w; i++ {
		if m.At(i, 0) != 0 || m.At(i, h-1) != 0 {
			t.Fatalf("border row not zeroed at column %d", i)
		}
	}
	for j := 0; j < h; j++ {
		if m.At(0, j) != 0 || m.At(w-1, j) != 0 {
			t.Fatalf("border column not zeroed at row %d", j)
		}
	}
	if m.At(4, 4) != 1 {
		t.Fatalf("interior pixel with dynamic-HP off should be included")
	}
}

func TestStaticMaskOverridesDynamicDecision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "static.txt")
	if err := os.WriteFile(path, []byte("8,8\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, h := 16, 16
	raw := make([]uint16, w*h)
	// Pixel (8,8) in image-frame convention is stored at memory row H-8=8.
	pts, err := LoadStaticFile(path)
	if err != nil {
		t.Fatal(err)
	}

	b := &Builder{DynamicHP: false}
	m := New(w, h)
	b.Build(m, raw, Region{I0: 0, I1: w, J0: 0, J1: h})
	if m.At(8, h-8) != 1 {
		t.Fatalf("expected pixel included before static override")
	}

	ApplyStatic(m, pts, h)
	if m.At(8, h-8) != 0 {
		t.Fatalf("static hot-pixel entry must force mask to 0 regardless of dynamic decision")
	}
}

func TestDynamicIncludeExcludesSpike(t *testing.T) {
	w, h := 8, 8
	raw := make([]uint16, w*h)
	for i := range raw {
		raw[i] = 10
	}
	// A large spike surrounded by dim neighbours should be excluded.
	raw[4*w+4] = 5000

	b := &Builder{DynamicHP: true, SpikeLimit: 1.0}
	m := New(w, h)
	b.Build(m, raw, Region{I0: 0, I1: w, J0: 0, J1: h})

	if m.At(4, 4) != 0 {
		t.Fatalf("spiking pixel should be excluded by dynamic hot-pixel test")
	}
	if m.At(3, 3) != 1 {
		t.Fatalf("non-spiking interior pixel should remain included")
	}
}

func TestAppendAndLoadCandidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candidates.txt")
	w, h := 4, 4
	raw := make([]uint16, w*h)
	raw[1*w+2] = 9000 // memory (i=2,j=1) -> image-frame y = h-1 = 3

	if err := AppendCandidates(path, raw, w, h, 1000); err != nil {
		t.Fatal(err)
	}
	pts, err := LoadStaticFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 1 || pts[0].X != 2 || pts[0].Y != h-1 {
		t.Fatalf("got %+v, want single point (2,%d)", pts, h-1)
	}
}
