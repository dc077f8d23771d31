package autofocus

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// fitQuadratic fits y = a*x^2 + b*x + c by least squares via the normal
// equations, solved with gonum/mat rather than hand-rolled Gaussian
// elimination.
func fitQuadratic(xs, ys []float64) (a, b, c float64, err error) {
	n := len(xs)
	if n < 3 {
		return 0, 0, 0, fmt.Errorf("autofocus: need at least 3 points to fit a quadratic, got %d", n)
	}

	design := mat.NewDense(n, 3, nil)
	for i, x := range xs {
		design.Set(i, 0, x*x)
		design.Set(i, 1, x)
		design.Set(i, 2, 1)
	}
	target := mat.NewVecDense(n, ys)

	var ata mat.Dense
	ata.Mul(design.T(), design)
	var atb mat.VecDense
	atb.MulVec(design.T(), target)

	var coeffs mat.VecDense
	if err := coeffs.SolveVec(&ata, &atb); err != nil {
		return 0, 0, 0, fmt.Errorf("autofocus: normal-equation solve: %w", err)
	}

	return coeffs.AtVec(0), coeffs.AtVec(1), coeffs.AtVec(2), nil
}
