package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/banshee-data/starcam/internal/solve"
)

// SolvedSource reports the latest solution for one flight-computer peer
// and atomically clears the per-peer solved flag, mirroring spec.md
// §4.7's "triggered by the per-peer solved flag ... clears the flag."
// TakeSolution returns ok=false when the flag was already clear.
type SolvedSource interface {
	TakeSolution() (sol solve.Solution, rawTimeUnixSec, photoTimeSec float64, numBlobs int, ok bool)
}

// AstrometrySender polls a SolvedSource and forwards each newly solved
// frame's astrometry packet to its peer.
type AstrometrySender struct {
	sender *Sender
	source SolvedSource
}

// NewAstrometrySender builds a sender that delivers solved-frame
// telemetry to sender's peer over sender's socket.
func NewAstrometrySender(sender *Sender, source SolvedSource) *AstrometrySender {
	return &AstrometrySender{sender: sender, source: source}
}

// Run polls source at pollInterval until ctx is cancelled, sending one
// packet per newly solved frame.
func (a *AstrometrySender) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sol, rawTime, photoTime, numBlobs, ok := a.source.TakeSolution()
			if !ok {
				continue
			}
			pkt := NewAstrometryPacket(sol, rawTime, photoTime, numBlobs)
			data, err := EncodeAstrometry(pkt)
			if err != nil {
				log.Printf("telemetry: encode astrometry packet: %v", err)
				continue
			}
			a.sender.SendAsync(data)
		}
	}
}
