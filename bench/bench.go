// Package bench provides portfolios for measuring how close the greedy
// optimizer gets to the true minimum-variance allocation.
package bench

import (
	"fmt"
	"math"

	portfolio "github.com/MitchK/PortfolioOptimizer"
	"github.com/MitchK/PortfolioOptimizer/greedy"
	"gonum.org/v1/gonum/mat"
)

type Case struct {
	Name    string
	StdDevs []float64
	Corr    [][]float64
}

func (c Case) Problem() portfolio.Problem {
	return portfolio.Problem{StdDevs: c.StdDevs, Corr: c.Corr}
}

func identity(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}

var (
	TwoAsset = Case{
		Name:    "TwoAsset",
		StdDevs: []float64{0.2, 0.3},
		Corr:    identity(2),
	}
	EqualRisk = Case{
		Name:    "EqualRisk",
		StdDevs: []float64{0.25, 0.25, 0.25, 0.25},
		Corr:    identity(4),
	}
	Correlated3 = Case{
		Name:    "Correlated3",
		StdDevs: []float64{0.15, 0.2, 0.25},
		Corr: [][]float64{
			{1, .3, .2},
			{.3, 1, .5},
			{.2, .5, 1},
		},
	}
	Hedge = Case{
		Name:    "Hedge",
		StdDevs: []float64{0.2, 0.2},
		Corr: [][]float64{
			{1, -.5},
			{-.5, 1},
		},
	}
	Mixed5 = Case{
		Name:    "Mixed5",
		StdDevs: []float64{0.1, 0.15, 0.2, 0.25, 0.3},
		Corr: [][]float64{
			{1, .2, .1, 0, -.1},
			{.2, 1, .3, .1, 0},
			{.1, .3, 1, .2, .1},
			{0, .1, .2, 1, .3},
			{-.1, 0, .1, .3, 1},
		},
	}
)

var AllCases = []Case{
	TwoAsset,
	EqualRisk,
	Correlated3,
	Hedge,
	Mixed5,
}

// Covariance builds the covariance matrix s_i s_j corr_ij.  The diagonal of
// corr is taken to be one and only the upper triangle is read, matching how
// portfolio.Variance reads the matrix.
func Covariance(stddevs []float64, corr [][]float64) *mat.SymDense {
	n := len(stddevs)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, stddevs[i]*stddevs[i])
		for j := i + 1; j < n; j++ {
			cov.SetSym(i, j, stddevs[i]*stddevs[j]*corr[i][j])
		}
	}
	return cov
}

// Reference returns the closed-form minimum-variance weights
// S^-1 1 / (1' S^-1 1) for covariance S.  Short positions are allowed, so
// it is only a lower bound for the long-only search.
func Reference(c Case) (portfolio.Point, error) {
	if err := c.Problem().Validate(); err != nil {
		return portfolio.Point{}, err
	}
	n := len(c.StdDevs)
	var chol mat.Cholesky
	if ok := chol.Factorize(Covariance(c.StdDevs, c.Corr)); !ok {
		return portfolio.Point{}, fmt.Errorf("bench: %v covariance not positive definite: %w", c.Name, portfolio.ErrNumericalInstability)
	}

	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(n, ones)); err != nil {
		return portfolio.Point{}, fmt.Errorf("bench: %v: %v: %w", c.Name, err, portfolio.ErrNumericalInstability)
	}

	tot := mat.Sum(&x)
	w := make([]float64, n)
	for i := range w {
		w[i] = x.AtVec(i) / tot
	}
	return portfolio.NewPoint(w, 1/tot), nil
}

type Report struct {
	Case        string
	Weights     []float64
	Variance    float64
	Reference   []float64
	RefVariance float64
	// Gap is the variance excess over the reference, relative to it.
	Gap    float64
	Rounds int
	Evals  int
	Stop   error
}

func (r Report) String() string {
	return fmt.Sprintf("%v: variance %.10g (ref %.10g, gap %.3g) in %v rounds, %v evals: %v",
		r.Case, r.Variance, r.RefVariance, r.Gap, r.Rounds, r.Evals, r.Stop)
}

// Run solves c with the greedy optimizer and compares the result with the
// closed-form reference.
func Run(c Case, opts ...greedy.Option) (Report, error) {
	ref, err := Reference(c)
	if err != nil {
		return Report{}, err
	}
	res, err := greedy.Minimize(c.Problem(), opts...)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Case:        c.Name,
		Weights:     res.Weights,
		Variance:    res.Variance,
		Reference:   ref.Pos(),
		RefVariance: ref.Val,
		Gap:         (res.Variance - ref.Val) / math.Abs(ref.Val),
		Rounds:      res.Rounds,
		Evals:       res.Evals,
		Stop:        res.Stop,
	}, nil
}
