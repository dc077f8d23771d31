package pipeline

import (
	"sync"

	"github.com/banshee-data/starcam/internal/solve"
)

// solvedHolder implements telemetry.SolvedSource: the pipeline goroutine
// records the latest solution and sets the flag; the astrometry sender
// goroutine takes it and clears the flag, per spec.md §4.7/§5's "solved
// flag" handoff and §9's replacement of the flag with a single-writer,
// single-reader guarded value instead of a bare global bool.
type solvedHolder struct {
	mu            sync.Mutex
	solved        bool
	solution      solve.Solution
	rawTimeUnix   float64
	photoTimeUnix float64
	numBlobs      int
}

// Set records a fresh solution and raises the solved flag.
func (h *solvedHolder) Set(sol solve.Solution, rawTimeUnix, photoTimeUnix float64, numBlobs int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.solved = true
	h.solution = sol
	h.rawTimeUnix = rawTimeUnix
	h.photoTimeUnix = photoTimeUnix
	h.numBlobs = numBlobs
}

// TakeSolution returns the latest solution and clears the flag. ok is
// false if nothing new has been solved since the last take.
func (h *solvedHolder) TakeSolution() (sol solve.Solution, rawTimeUnixSec, photoTimeSec float64, numBlobs int, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.solved {
		return solve.Solution{}, 0, 0, 0, false
	}
	h.solved = false
	return h.solution, h.rawTimeUnix, h.photoTimeUnix, h.numBlobs, true
}
