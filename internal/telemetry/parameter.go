package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/banshee-data/starcam/internal/params"
)

// ParameterSource supplies a read-only snapshot of the live parameter
// block. *params.Block satisfies this directly via its Snapshot method.
type ParameterSource interface {
	Snapshot() params.State
}

// ParameterSender snapshots the parameter block once per second and
// forwards it to its peer, per spec.md §4.7's parameter sender.
type ParameterSender struct {
	sender *Sender
	source ParameterSource
}

// NewParameterSender builds a sender that delivers a 1Hz parameter
// snapshot to its peer over sender's socket.
func NewParameterSender(sender *Sender, source ParameterSource) *ParameterSender {
	return &ParameterSender{sender: sender, source: source}
}

// Run sends one parameter packet per tick until ctx is cancelled.
func (p *ParameterSender) Run(ctx context.Context) error {
	ticker := time.NewTicker(parameterInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pkt := NewParameterPacket(p.source.Snapshot())
			data, err := EncodeParameter(pkt)
			if err != nil {
				log.Printf("telemetry: encode parameter packet: %v", err)
				continue
			}
			p.sender.SendAsync(data)
		}
	}
}
