package commandproto

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/banshee-data/starcam/internal/params"
)

type mockStats struct {
	packets  int
	rejected int
	applied  int
}

func (m *mockStats) AddPacket(int)  { m.packets++ }
func (m *mockStats) AddRejected()   { m.rejected++ }
func (m *mockStats) AddApplied()    { m.applied++ }

type alwaysIdleGate struct{}

func (alwaysIdleGate) WaitIdle(ctx context.Context) error { return ctx.Err() }

func TestNoopStatsDoesNotPanic(t *testing.T) {
	var s noopStats
	s.AddPacket(10)
	s.AddRejected()
	s.AddApplied()
}

func TestListenerCloseNilConn(t *testing.T) {
	l := &Listener{}
	if err := l.Close(); err != nil {
		t.Errorf("Close on unstarted listener returned error: %v", err)
	}
}

func TestListenerReceivesAndAppliesInChargePacket(t *testing.T) {
	block := params.New(params.Default())
	stats := &mockStats{}

	l := NewListener(ListenerConfig{
		Address:  "127.0.0.1:0",
		PeerName: "test",
		Stats:    stats,
		Block:    block,
		Gate:     alwaysIdleGate{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	deadline := time.Now().Add(time.Second)
	for l.conn == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if l.conn == nil {
		t.Fatal("listener did not bind in time")
	}
	port := l.conn.LocalAddr().(*net.UDPAddr).Port

	pkt := CommandPacket{InCharge: true, UpdateExposure: true, ExposureMs: 42}
	data, err := Encode(pkt)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	conn, err := net.Dial("udp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline = time.Now().Add(time.Second)
	for stats.applied == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if stats.applied != 1 {
		t.Fatalf("applied = %d, want 1", stats.applied)
	}
	snap := block.Snapshot()
	if snap.Camera.ExposureTimeMs != 42 {
		t.Fatalf("ExposureTimeMs = %v, want 42", snap.Camera.ExposureTimeMs)
	}
	if !snap.Camera.ChangeExposure {
		t.Fatal("expected ChangeExposure to be set")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("listener did not stop after cancellation")
	}
}

func TestListenerRejectsNotInCharge(t *testing.T) {
	block := params.New(params.Default())
	stats := &mockStats{}

	l := NewListener(ListenerConfig{
		Address:  "127.0.0.1:0",
		PeerName: "test",
		Stats:    stats,
		Block:    block,
		Gate:     alwaysIdleGate{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Start(ctx)

	deadline := time.Now().Add(time.Second)
	for l.conn == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if l.conn == nil {
		t.Fatal("listener did not bind in time")
	}
	port := l.conn.LocalAddr().(*net.UDPAddr).Port

	data, err := Encode(CommandPacket{InCharge: false, UpdateExposure: true, ExposureMs: 99})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	conn, err := net.Dial("udp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.Write(data)

	deadline = time.Now().Add(time.Second)
	for stats.rejected == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if stats.rejected != 1 {
		t.Fatalf("rejected = %d, want 1", stats.rejected)
	}
	if block.Snapshot().Camera.ExposureTimeMs == 99 {
		t.Fatal("packet without InCharge must not be applied")
	}
}

func TestListenerHandlePacketMalformed(t *testing.T) {
	block := params.New(params.Default())
	stats := &mockStats{}
	l := NewListener(ListenerConfig{Address: "127.0.0.1:0", Stats: stats, Block: block, Gate: alwaysIdleGate{}})

	l.handlePacket(context.Background(), []byte("too short"))
	if stats.rejected != 1 {
		t.Fatalf("rejected = %d, want 1", stats.rejected)
	}
}
