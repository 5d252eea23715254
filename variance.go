package portfolio

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput reports weights, standard deviations and correlations
	// whose dimensions do not line up.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDegenerateInput reports a portfolio with too few assets to
	// reallocate weight between.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrNumericalInstability reports a negative or non-finite variance,
	// usually the result of a correlation matrix that is not positive
	// semi-definite.
	ErrNumericalInstability = errors.New("numerical instability")
)

// pair is an unordered asset index pair stored with the lower index first.
type pair struct{ lo, hi int }

func newPair(i, j int) pair {
	if j < i {
		i, j = j, i
	}
	return pair{i, j}
}

// Variance returns the variance of the portfolio holding weights w of assets
// with standard deviations s and correlation matrix corr:
//
//	sum_i w_i^2 s_i^2 + sum_{i != j, unordered} 2 w_i w_j s_i s_j corr_ij
//
// corr is traversed row by row and each unordered pair is counted once, so
// for an asymmetric matrix corr[i][j] with i < j is the entry that is used.
// The diagonal of corr is ignored.
func Variance(w, s []float64, corr [][]float64) (float64, error) {
	if err := checkDims(w, s, corr); err != nil {
		return math.Inf(1), err
	}

	sum := 0.0
	for i := range s {
		sum += w[i] * w[i] * s[i] * s[i]
	}

	seen := make(map[pair]struct{}, len(s)*(len(s)-1)/2)
	for i := range corr {
		for j := range corr[i] {
			if i == j {
				continue
			}
			key := newPair(i, j)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			sum += 2 * w[i] * w[j] * s[i] * s[j] * corr[i][j]
		}
	}

	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return sum, fmt.Errorf("variance %v: %w", sum, ErrNumericalInstability)
	}
	return sum, nil
}

// StdDev returns the square root of the portfolio variance.  A negative
// variance is reported as ErrNumericalInstability rather than NaN.
func StdDev(w, s []float64, corr [][]float64) (float64, error) {
	v, err := Variance(w, s, corr)
	if err != nil {
		return math.NaN(), err
	}
	if v < 0 {
		return math.NaN(), fmt.Errorf("negative variance %v (correlation matrix not positive semi-definite?): %w", v, ErrNumericalInstability)
	}
	return math.Sqrt(v), nil
}

func checkDims(w, s []float64, corr [][]float64) error {
	n := len(s)
	if len(w) != n {
		return fmt.Errorf("%v weights for %v standard deviations: %w", len(w), n, ErrInvalidInput)
	}
	if len(corr) != n {
		return fmt.Errorf("correlation matrix has %v rows, want %v: %w", len(corr), n, ErrInvalidInput)
	}
	for i, row := range corr {
		if len(row) != n {
			return fmt.Errorf("correlation row %v has %v columns, want %v: %w", i, len(row), n, ErrInvalidInput)
		}
	}
	return nil
}

// Problem bundles the fixed inputs of a minimum-variance search.  It
// implements Objectiver with the portfolio variance as objective.
type Problem struct {
	StdDevs []float64
	Corr    [][]float64
}

func (p Problem) Len() int { return len(p.StdDevs) }

// Validate checks that the correlation matrix is square and matches the
// number of standard deviations, and that no standard deviation is negative
// or NaN.
func (p Problem) Validate() error {
	if err := checkDims(p.StdDevs, p.StdDevs, p.Corr); err != nil {
		return err
	}
	for i, s := range p.StdDevs {
		if s < 0 || math.IsNaN(s) {
			return fmt.Errorf("standard deviation %v of asset %v: %w", s, i, ErrInvalidInput)
		}
	}
	return nil
}

func (p Problem) Objective(w []float64) (float64, error) {
	return Variance(w, p.StdDevs, p.Corr)
}

// StdDev returns the portfolio standard deviation for weights w.
func (p Problem) StdDev(w []float64) (float64, error) {
	return StdDev(w, p.StdDevs, p.Corr)
}
