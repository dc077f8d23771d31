package telemetry

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"
)

// Stats receives counters about a Sender's outbound packets.
type Stats interface {
	AddSent(bytes int)
	AddDropped()
}

type noopStats struct{}

func (noopStats) AddSent(int) {}
func (noopStats) AddDropped() {}

// Sender is a single-destination, non-blocking UDP packet sender,
// grounded on internal/lidar/network.PacketForwarder: a buffered
// channel decouples producers (the astrometry/parameter senders) from
// the socket write, and a full buffer drops the packet rather than
// blocking the caller.
type Sender struct {
	conn    *net.UDPConn
	ch      chan []byte
	stats   Stats
	address string
}

// NewSender dials addr (host:port) for sending and returns a Sender
// ready to have Start called on it.
func NewSender(address string, stats Stats) (*Sender, error) {
	if stats == nil {
		stats = noopStats{}
	}
	udpAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resolve %s: %w", address, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: dial %s: %w", address, err)
	}
	return &Sender{
		conn:    conn,
		ch:      make(chan []byte, 64),
		stats:   stats,
		address: address,
	}, nil
}

// Start runs the sender's write goroutine until ctx is cancelled.
func (s *Sender) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case packet := <-s.ch:
				n, err := s.conn.Write(packet)
				if err != nil {
					log.Printf("telemetry: send to %s failed: %v", s.address, err)
					continue
				}
				s.stats.AddSent(n)
			}
		}
	}()
}

// SendAsync queues packet for delivery without blocking the caller. If
// the send buffer is full the packet is dropped.
func (s *Sender) SendAsync(packet []byte) {
	select {
	case s.ch <- packet:
	default:
		s.stats.AddDropped()
	}
}

// Close releases the sender's socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}

// pollInterval is how often the astrometry sender checks the per-peer
// solved flag, tight enough to observe the flag well within one
// pipeline cycle without busy-spinning.
const pollInterval = 50 * time.Millisecond

// parameterInterval is the 1Hz cadence spec.md §4.7 requires for the
// parameter telemetry sender.
const parameterInterval = time.Second
