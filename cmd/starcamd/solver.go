package main

import (
	"context"
	"fmt"

	"github.com/banshee-data/starcam/internal/blobs"
	"github.com/banshee-data/starcam/internal/solve"
)

// unboundSolver satisfies solve.Solver without a plate-solving library
// behind it. Per spec.md §1 the solver is the other named external
// collaborator; this module owns the detect/centroid/solve-state
// machinery around it (internal/solve.Driver) but does not fabricate a
// star-matching implementation. A real deployment wires its own
// solve.Solver (an astrometry.net binding, a custom k-vector matcher,
// whatever the mission picks) in its place.
type unboundSolver struct{}

func (unboundSolver) Solve(ctx context.Context, stars []blobs.Blob, cfg solve.SolveConfig) (*solve.WCS, []solve.ReferenceStar, bool, error) {
	return nil, nil, false, errNoSolverBinding
}

var errNoSolverBinding = fmt.Errorf("starcamd: no solve.Solver wired; this build does not bundle a plate-solving library")
