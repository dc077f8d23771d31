package lensctl

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/starcam/internal/params"
)

// fakePort is an in-memory half-duplex stand-in for a serial.Port,
// patterned on the teacher's MockRadarPort but shaped for a
// request/response dialog rather than a broadcast scanner: each
// Write is matched to a canned reply looked up by the written token.
type fakePort struct {
	replies    map[string]string
	pending    []byte
	lastToken  string
	closed     bool
}

func newFakePort(replies map[string]string) *fakePort {
	return &fakePort{replies: replies}
}

func (p *fakePort) Write(b []byte) (int, error) {
	token := strings.TrimRight(string(b), "\r")
	p.lastToken = token
	reply, ok := p.replies[token]
	if !ok {
		reply = ""
	}
	p.pending = []byte(reply)
	return len(b), nil
}

func (p *fakePort) Read(buf []byte) (int, error) {
	if len(p.pending) == 0 {
		return 0, nil
	}
	n := copy(buf, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error { return nil }

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestExchangeRoundTrip(t *testing.T) {
	port := newFakePort(map[string]string{"fp": "2048,f4"})
	c := NewController(port)

	reply, err := c.exchange("fp")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if reply != "2048,f4" {
		t.Fatalf("reply = %q, want %q", reply, "2048,f4")
	}
}

func TestParseRange(t *testing.T) {
	fmin, fmax, current, err := parseRange("fmin:0 fmax:4095 current:2048")
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if fmin != 0 || fmax != 4095 || current != 2048 {
		t.Fatalf("got (%d, %d, %d)", fmin, fmax, current)
	}
}

func TestParseRangeMalformed(t *testing.T) {
	if _, _, _, err := parseRange("garbage"); err == nil {
		t.Fatal("expected error for malformed range reply")
	}
}

func TestParsePosition(t *testing.T) {
	pos, fNumber, err := parsePosition("2048,f4")
	if err != nil {
		t.Fatalf("parsePosition: %v", err)
	}
	if pos != 2048 || fNumber != 4 {
		t.Fatalf("got (%d, %d)", pos, fNumber)
	}
}

func TestStartupSequence(t *testing.T) {
	port := newFakePort(map[string]string{
		"la":      "fmin:0 fmax:4095 current:2048",
		"mi":      "ok",
		"mf -80":  "ok",
		"in":      "ok",
		"mo":      "ok",
		"fp":      "1968,f1",
		"pa":      "1,f1",
	})
	c := NewController(port)
	block := params.New(params.State{})

	if err := c.Startup(context.Background(), block); err != nil {
		t.Fatalf("Startup: %v", err)
	}

	snap := block.Snapshot()
	if snap.Camera.MinFocusPos != 0 || snap.Camera.MaxFocusPos != 4095 {
		t.Fatalf("focus range = [%d, %d], want [0, 4095]", snap.Camera.MinFocusPos, snap.Camera.MaxFocusPos)
	}
	if snap.Camera.FocusPosition != 1968 {
		t.Fatalf("FocusPosition = %d, want 1968", snap.Camera.FocusPosition)
	}
	if snap.Camera.CurrentAperture != 1 {
		t.Fatalf("CurrentAperture = %d, want 1", snap.Camera.CurrentAperture)
	}
	if !snap.Camera.MaxAperture {
		t.Fatal("MaxAperture = false, want true after startup open-aperture step")
	}
}

func TestSyncFocusPositionWritesBlock(t *testing.T) {
	port := newFakePort(map[string]string{"fp": "3000,f2"})
	c := NewController(port)
	block := params.New(params.State{})

	if err := c.SyncFocusPosition(context.Background(), block); err != nil {
		t.Fatalf("SyncFocusPosition: %v", err)
	}
	if got := block.Snapshot().Camera.FocusPosition; got != 3000 {
		t.Fatalf("FocusPosition = %d, want 3000", got)
	}
}

func TestExchangeCtxRejectsCancelledContext(t *testing.T) {
	port := newFakePort(map[string]string{"fp": "2048,f4"})
	c := NewController(port)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.exchangeCtx(ctx, "fp"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestMoveFocusAbsoluteComputesDelta(t *testing.T) {
	port := newFakePort(map[string]string{"fp": "2000,f4", "mf 50": "ok"})
	c := NewController(port)

	if err := c.MoveFocusAbsolute(context.Background(), 2050); err != nil {
		t.Fatalf("MoveFocusAbsolute: %v", err)
	}
	if port.lastToken != "mf 50" {
		t.Fatalf("last token = %q, want %q", port.lastToken, "mf 50")
	}
}

func TestMoveFocusAbsoluteNoopWhenAlreadyThere(t *testing.T) {
	port := newFakePort(map[string]string{"fp": "2000,f4"})
	c := NewController(port)

	if err := c.MoveFocusAbsolute(context.Background(), 2000); err != nil {
		t.Fatalf("MoveFocusAbsolute: %v", err)
	}
	if port.lastToken != "fp" {
		t.Fatalf("last token = %q, want %q (no relative move should be sent)", port.lastToken, "fp")
	}
}

func TestClosePropagatesToPort(t *testing.T) {
	port := newFakePort(nil)
	c := NewController(port)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !port.closed {
		t.Fatal("underlying port was not closed")
	}
}
