package pipeline

import (
	"context"
	"sync"
)

// Gate tracks the pipeline's taking_image flag and lets command
// ingestion wait for it to clear without polling, replacing spec.md
// §9's broadcast global flag with a condition variable over a plain
// bool. Implements commandproto.PipelineGate.
type Gate struct {
	mu   sync.Mutex
	cond *sync.Cond
	busy bool
}

// NewGate returns an idle Gate.
func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// BeginCapture marks the pipeline as taking_image.
func (g *Gate) BeginCapture() {
	g.mu.Lock()
	g.busy = true
	g.mu.Unlock()
}

// EndCapture clears taking_image and wakes any waiters.
func (g *Gate) EndCapture() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
	g.cond.Broadcast()
}

// WaitIdle blocks until taking_image clears or ctx is done, per spec.md
// §4.6's "command application waits until the flag clears."
func (g *Gate) WaitIdle(ctx context.Context) error {
	stop := context.AfterFunc(ctx, g.cond.Broadcast)
	defer stop()

	g.mu.Lock()
	defer g.mu.Unlock()
	for g.busy {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.cond.Wait()
	}
	return nil
}
