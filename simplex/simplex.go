// Package simplex holds the weight-simplex constraints of a fully invested,
// long-only portfolio: weights sum to one and none is negative.
package simplex

import (
	"fmt"

	portfolio "github.com/MitchK/PortfolioOptimizer"
	"gonum.org/v1/gonum/mat"
)

// SumTol is how far the weights may drift from a total of one before a
// search stops.
const SumTol = 0.01

// eps is the slack allowed before a constraint counts as violated.
const eps = 1e-10

// Equal returns n equal weights summing to one.
func Equal(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

func Sum(w []float64) float64 {
	tot := 0.0
	for _, v := range w {
		tot += v
	}
	return tot
}

func Nonnegative(w []float64) bool {
	for _, v := range w {
		if v < 0 {
			return false
		}
	}
	return true
}

// Feasible reports whether w sums to within SumTol of one and has no negative
// weight.
func Feasible(w []float64) bool {
	sum := Sum(w)
	return sum >= 1-SumTol && sum <= 1+SumTol && Nonnegative(w)
}

// OrthoProj computes the orthogonal projection of x0 onto the affine subspace
// Ax=b, the intersection of the hyperplanes formed by the rows of A with
// shifts b:
//
//	proj = [I - A^T (A A^T)^-1 A] x0 + A^T (A A^T)^-1 b
//
// A is m by n with m <= n.  If m == n the result is the solution of Ax=b.
func OrthoProj(x0 []float64, A, b *mat.Dense) ([]float64, error) {
	m, n := A.Dims()
	if m == n {
		var proj mat.Dense
		if err := proj.Solve(A, b); err != nil {
			return nil, fmt.Errorf("simplex: solve active constraints: %v: %w", err, portfolio.ErrNumericalInstability)
		}
		return mat.Col(nil, 0, &proj), nil
	}

	var aat mat.Dense
	aat.Mul(A, A.T())

	var inv mat.Dense
	if err := inv.Inverse(&aat); err != nil {
		return nil, fmt.Errorf("simplex: invert constraint gram matrix: %v: %w", err, portfolio.ErrNumericalInstability)
	}

	// B = A^T (A A^T)^-1
	var B mat.Dense
	B.Mul(A.T(), &inv)

	var BA mat.Dense
	BA.Mul(&B, A)
	var P mat.Dense
	P.Sub(eye(n), &BA)

	x := mat.NewDense(n, 1, append([]float64{}, x0...))
	var px mat.Dense
	px.Mul(&P, x)

	var bb mat.Dense
	bb.Mul(&B, b)
	px.Add(&px, &bb)

	return mat.Col(nil, 0, &px), nil
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// constraints returns the simplex as the system Ax <= b: the two halves of
// sum(x) == 1 followed by -x_i <= 0 for every asset.
func constraints(n int) (A, b *mat.Dense) {
	A = mat.NewDense(n+2, n, nil)
	b = mat.NewDense(n+2, 1, nil)
	for j := 0; j < n; j++ {
		A.Set(0, j, 1)
		A.Set(1, j, -1)
		A.Set(j+2, j, -1)
	}
	b.Set(0, 0, 1)
	b.Set(1, 0, -1)
	return A, b
}

// Nearest returns the point closest to x0 with weights summing to one and no
// negative weight.  Violated constraints are made active one at a time, most
// violated first, and x0 is projected onto the intersection of the active
// constraint planes until nothing is violated.
func Nearest(x0 []float64) ([]float64, error) {
	n := len(x0)
	if n == 0 {
		return nil, fmt.Errorf("simplex: empty weight vector: %w", portfolio.ErrInvalidInput)
	}
	A, b := constraints(n)

	proj := append([]float64{}, x0...)
	var activeA, activeb *mat.Dense
	for k := 0; k <= n+1; k++ {
		row := mostViolated(proj, A, b)
		if row < 0 {
			return proj, nil
		}

		Arow := mat.NewDense(1, n, A.RawRowView(row))
		brow := mat.NewDense(1, 1, []float64{b.At(row, 0)})
		if activeA == nil {
			activeA, activeb = Arow, brow
		} else {
			var sa, sb mat.Dense
			sa.Stack(activeA, Arow)
			sb.Stack(activeb, brow)
			activeA, activeb = &sa, &sb
		}

		var err error
		proj, err = OrthoProj(x0, activeA, activeb)
		if err != nil {
			return nil, err
		}

		// projected onto a single point
		if m, _ := activeA.Dims(); m == n {
			return proj, nil
		}
	}
	return proj, nil
}

// mostViolated returns the row of the most violated constraint of Ax <= b at
// x, or -1 if x violates none of them.
func mostViolated(x []float64, A, b *mat.Dense) int {
	m, n := A.Dims()
	xv := mat.NewDense(n, 1, append([]float64{}, x...))
	var ax mat.Dense
	ax.Mul(A, xv)

	worst := eps
	worstRow := -1
	for i := 0; i < m; i++ {
		if diff := ax.At(i, 0) - b.At(i, 0); diff > worst {
			worst = diff
			worstRow = i
		}
	}
	return worstRow
}
