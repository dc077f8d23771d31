package commandproto

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/banshee-data/starcam/internal/params"
)

// Stats receives counters about the packets a Listener has handled. A
// nil Stats is replaced with a no-op implementation.
type Stats interface {
	AddPacket(bytes int)
	AddRejected()
	AddApplied()
}

type noopStats struct{}

func (noopStats) AddPacket(int) {}
func (noopStats) AddRejected()  {}
func (noopStats) AddApplied()   {}

// ListenerConfig configures a single peer's command listener.
type ListenerConfig struct {
	// Address is a "host:port" UDP listen address for this peer.
	Address string
	// PeerName identifies the peer in log lines ("primary", "loopback", ...).
	PeerName string
	Stats    Stats
	Block    *params.Block
	Gate     PipelineGate
}

// Listener binds a single UDP socket and applies every well-formed,
// in-charge command packet it receives to a parameter block. Per
// spec.md §4.6, one Listener runs per flight-computer peer, plus an
// optional loopback instance; the receive loop rearms on a 500ms
// timeout so it can observe context cancellation promptly, following
// internal/lidar/network.UDPListener's Start loop shape.
type Listener struct {
	cfg  ListenerConfig
	conn *net.UDPConn
}

// NewListener constructs a Listener from cfg, defaulting Stats to a
// no-op implementation when unset.
func NewListener(cfg ListenerConfig) *Listener {
	if cfg.Stats == nil {
		cfg.Stats = noopStats{}
	}
	return &Listener{cfg: cfg}
}

// Start binds the UDP socket and runs the receive loop until ctx is
// cancelled. It returns ctx.Err() on clean shutdown.
func (l *Listener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.cfg.Address)
	if err != nil {
		return fmt.Errorf("commandproto: resolve %s: %w", l.cfg.Address, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("commandproto: listen on %s: %w", l.cfg.Address, err)
	}
	l.conn = conn
	defer conn.Close()

	log.Printf("commandproto: %s listener started on %s", l.cfg.PeerName, l.cfg.Address)

	buf := make([]byte, PacketSize+64)

	for {
		select {
		case <-ctx.Done():
			log.Printf("commandproto: %s listener stopping: %v", l.cfg.PeerName, ctx.Err())
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("commandproto: %s read error: %v", l.cfg.PeerName, err)
			continue
		}

		l.cfg.Stats.AddPacket(n)
		l.handlePacket(ctx, buf[:n])
	}
}

func (l *Listener) handlePacket(ctx context.Context, data []byte) {
	pkt, err := Decode(data)
	if err != nil {
		l.cfg.Stats.AddRejected()
		log.Printf("commandproto: %s decode error: %v", l.cfg.PeerName, err)
		return
	}

	if err := Apply(ctx, pkt, l.cfg.Block, l.cfg.Gate); err != nil {
		l.cfg.Stats.AddRejected()
		if err != ErrNotInCharge {
			log.Printf("commandproto: %s apply error: %v", l.cfg.PeerName, err)
		}
		return
	}

	l.cfg.Stats.AddApplied()
}

// Close releases the listener's socket.
func (l *Listener) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}
