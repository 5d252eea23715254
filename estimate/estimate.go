// Package estimate derives the optimizer inputs, per-asset standard
// deviations and the correlation matrix, from historical returns.
package estimate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	portfolio "github.com/MitchK/PortfolioOptimizer"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Returns is a table of periodic returns, one row per observation and one
// column per asset.
type Returns struct {
	Assets []string
	Rows   [][]float64
}

func (r Returns) matrix() (*mat.Dense, error) {
	nobs := len(r.Rows)
	if nobs < 2 {
		return nil, fmt.Errorf("estimate: %v observations, need at least 2: %w", nobs, portfolio.ErrInvalidInput)
	}
	nasset := len(r.Rows[0])
	if nasset == 0 {
		return nil, fmt.Errorf("estimate: no assets: %w", portfolio.ErrInvalidInput)
	}
	if r.Assets != nil && len(r.Assets) != nasset {
		return nil, fmt.Errorf("estimate: %v asset names for %v columns: %w", len(r.Assets), nasset, portfolio.ErrInvalidInput)
	}

	data := make([]float64, 0, nobs*nasset)
	for i, row := range r.Rows {
		if len(row) != nasset {
			return nil, fmt.Errorf("estimate: row %v has %v returns, want %v: %w", i, len(row), nasset, portfolio.ErrInvalidInput)
		}
		data = append(data, row...)
	}
	return mat.NewDense(nobs, nasset, data), nil
}

// FromReturns computes the sample standard deviation of every asset and the
// sample correlation matrix between assets.  An asset whose returns never
// change has no defined correlation and is reported as
// portfolio.ErrNumericalInstability.
func FromReturns(r Returns) (portfolio.Problem, error) {
	x, err := r.matrix()
	if err != nil {
		return portfolio.Problem{}, err
	}
	_, n := x.Dims()

	stddevs := make([]float64, n)
	for j := 0; j < n; j++ {
		stddevs[j] = stat.StdDev(mat.Col(nil, j, x), nil)
		if stddevs[j] == 0 || math.IsNaN(stddevs[j]) {
			return portfolio.Problem{}, fmt.Errorf("estimate: asset %v has zero variance: %w", assetName(r.Assets, j), portfolio.ErrNumericalInstability)
		}
	}

	c := mat.NewSymDense(n, nil)
	stat.CorrelationMatrix(c, x, nil)

	corr := make([][]float64, n)
	for i := range corr {
		corr[i] = make([]float64, n)
		for j := range corr[i] {
			// rounding can leave coefficients just outside [-1, 1]
			corr[i][j] = math.Max(-1, math.Min(1, c.At(i, j)))
		}
		corr[i][i] = 1
	}
	return portfolio.Problem{StdDevs: stddevs, Corr: corr}, nil
}

func assetName(assets []string, i int) string {
	if i < len(assets) {
		return assets[i]
	}
	return strconv.Itoa(i)
}

// ReadCSV reads a header row of asset names followed by one row of returns
// per observation.  Blank lines are skipped.
func ReadCSV(r io.Reader) (Returns, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Returns{}, fmt.Errorf("estimate: empty returns file: %w", portfolio.ErrInvalidInput)
	} else if err != nil {
		return Returns{}, fmt.Errorf("estimate: read header: %w", err)
	}

	ret := Returns{Assets: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return Returns{}, fmt.Errorf("estimate: %w", err)
		}

		row := make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				line, col := cr.FieldPos(j)
				return Returns{}, fmt.Errorf("estimate: line %v column %v: %v: %w", line, col, err, portfolio.ErrInvalidInput)
			}
			row[j] = v
		}
		ret.Rows = append(ret.Rows, row)
	}
	return ret, nil
}
