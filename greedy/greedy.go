// Package greedy approximates the minimum-variance portfolio with a
// step-wise coordinate search.  Each round probes moving a fixed step of
// weight into one asset, taken evenly from all the others, and keeps the
// moves that reduce the portfolio variance.
package greedy

import (
	"database/sql"
	"fmt"
	"io"
	"math"

	portfolio "github.com/MitchK/PortfolioOptimizer"
	"github.com/MitchK/PortfolioOptimizer/simplex"
	"github.com/sirupsen/logrus"
)

const (
	DefaultStep       = 0.00001
	DefaultMinSavings = 0.0000000000001
)

var (
	// ErrConverged stops a search whose last round found no improving move.
	ErrConverged = fmt.Errorf("greedy: no improving move: %w", portfolio.ErrDone)
	// ErrInfeasible stops a search whose weights no longer sum to one or
	// went negative.
	ErrInfeasible = fmt.Errorf("greedy: weights left the simplex: %w", portfolio.ErrDone)
)

type Option func(*Iterator)

// Step sets the weight moved into the probed asset each round.
func Step(s float64) Option {
	return func(it *Iterator) {
		it.Step = s
	}
}

// MinSavings sets the smallest variance reduction that counts as an
// improvement.
func MinSavings(d float64) Option {
	return func(it *Iterator) {
		it.MinSavings = d
	}
}

// MaxRounds caps the number of rounds Minimize runs.  Zero means no cap.
func MaxRounds(n int) Option {
	return func(it *Iterator) {
		it.MaxRounds = n
	}
}

// Start makes Minimize search from w, moved to the nearest point of the
// weight simplex, instead of from equal weights.
func Start(w []float64) Option {
	return func(it *Iterator) {
		it.start = append([]float64{}, w...)
	}
}

// Evaler sets the evaluator used for probes.  The same ev is used by every
// iterator built with the option, so it must be safe for concurrent use if
// those iterators run concurrently.
func Evaler(ev portfolio.Evaler) Option {
	return func(it *Iterator) {
		it.ev = ev
	}
}

// Cache wraps the iterator's evaluator in its own portfolio.CacheEvaler so
// revisited weight vectors are not evaluated again.
func Cache() Option {
	return func(it *Iterator) {
		it.cache = true
	}
}

// Trace makes Minimize log every objective evaluation at trace level through
// the Logger.
func Trace() Option {
	return func(it *Iterator) {
		it.trace = true
	}
}

// RunID tags the rows written to the run log, so searches sharing one
// database can be told apart.
func RunID(id int) Option {
	return func(it *Iterator) {
		it.Run = id
	}
}

// DB records every probe and round in db.
func DB(db *sql.DB) Option {
	return func(it *Iterator) {
		it.Db = db
	}
}

func Logger(l logrus.FieldLogger) Option {
	return func(it *Iterator) {
		it.Log = l
	}
}

type probe struct {
	asset   int
	savings float64
	p       portfolio.Point
}

type Iterator struct {
	ev         portfolio.Evaler
	Step       float64
	MinSavings float64
	MaxRounds  int
	// Curr is the most recently adopted weight vector.
	Curr portfolio.Point
	// before is the vector held right before Curr was adopted.
	before    portfolio.Point
	hasBefore bool
	Db        *sql.DB
	dbready   bool
	// Run is written with every run log row.
	Run    int
	Log    logrus.FieldLogger
	probes []probe
	count  int
	start  []float64
	cache  bool
	trace  bool
}

func NewIterator(start portfolio.Point, opts ...Option) *Iterator {
	it := &Iterator{
		ev:         portfolio.SerialEvaler{},
		Step:       DefaultStep,
		MinSavings: DefaultMinSavings,
		Curr:       start,
	}
	for _, opt := range opts {
		opt(it)
	}
	if it.ev == nil {
		it.ev = portfolio.SerialEvaler{}
	}
	if it.cache {
		it.ev = portfolio.NewCacheEvaler(it.ev)
	}
	if it.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		it.Log = l
	}
	return it
}

// Result returns the weights the search settles on: the vector held right
// before the last adopted move, or the start vector if no move was ever
// adopted.
func (it *Iterator) Result() portfolio.Point {
	if it.hasBefore {
		return it.before
	}
	return it.Curr
}

// Rounds returns the number of rounds run so far, including a final round
// without improvement.
func (it *Iterator) Rounds() int { return it.count }

// Iterate runs one round.  It returns ErrInfeasible if the current weights
// fail the simplex guard and ErrConverged if no probe in the round improved
// the variance; both wrap portfolio.ErrDone.  The returned point is always
// Result().
func (it *Iterator) Iterate(obj portfolio.Objectiver) (best portfolio.Point, n int, err error) {
	ndim := it.Curr.Len()
	if ndim < 2 {
		return it.Result(), 0, fmt.Errorf("greedy: %v asset(s), need at least 2: %w", ndim, portfolio.ErrDegenerateInput)
	}
	if !simplex.Feasible(it.Curr.Pos()) {
		it.Log.WithFields(logrus.Fields{
			"round": it.count,
			"sum":   it.Curr.Sum(),
		}).Info("weights left the simplex, stopping")
		return it.Result(), 0, ErrInfeasible
	}

	it.count++
	if math.IsInf(it.Curr.Val, 1) || math.IsNaN(it.Curr.Val) {
		results, ne, err := it.ev.Eval(obj, it.Curr)
		n += ne
		if err != nil {
			return it.Result(), n, err
		}
		it.Curr = results[0]
	}
	varold := it.Curr.Val

	// Each probe starts from the current vector, which may already hold a
	// move adopted earlier in this round.  Savings are always measured
	// against the variance at the start of the round, and the first
	// improving probe sets the bar for the rest of the round.
	it.probes = it.probes[:0]
	share := it.Step / float64(ndim-1)
	improved := false
	maxsavings := 0.0
	adopted := 0
	for i := 0; i < ndim; i++ {
		pos := it.Curr.Pos()
		for j := range pos {
			if j == i {
				pos[j] += it.Step
			} else {
				pos[j] -= share
			}
		}

		results, ne, err := it.ev.Eval(obj, portfolio.NewPoint(pos, math.Inf(1)))
		n += ne
		if err != nil {
			return it.Result(), n, err
		}
		cand := results[0]
		savings := varold - cand.Val
		it.probes = append(it.probes, probe{asset: i, savings: savings, p: cand})

		if !(savings >= it.MinSavings) {
			continue
		}
		if !improved {
			improved = true
			maxsavings = savings
		} else if !(savings >= maxsavings) {
			continue
		}
		it.before = it.Curr
		it.hasBefore = true
		it.Curr = cand
		adopted++
	}

	if err := it.updateDb(adopted); err != nil {
		return it.Result(), n, err
	}

	if !improved {
		it.Log.WithFields(logrus.Fields{
			"round":    it.count,
			"variance": it.Result().Val,
		}).Info("no improving move, stopping")
		return it.Result(), n, ErrConverged
	}

	it.Log.WithFields(logrus.Fields{
		"round":    it.count,
		"adopted":  adopted,
		"savings":  maxsavings,
		"variance": it.Curr.Val,
	}).Debug("round complete")
	return it.Result(), n, nil
}

// Result is the outcome of a Minimize run.
type Result struct {
	Weights  []float64
	Variance float64
	Rounds   int
	Evals    int
	// Stop is why the search ended: ErrConverged, ErrInfeasible or
	// portfolio.ErrIterLimit.
	Stop error
}

// Minimize searches for the weights minimizing the variance of prob,
// starting from equal weights unless the Start option is given.
func Minimize(prob portfolio.Problem, opts ...Option) (Result, error) {
	if err := prob.Validate(); err != nil {
		return Result{}, err
	}
	n := prob.Len()
	if n < 2 {
		return Result{}, fmt.Errorf("greedy: %v asset(s), need at least 2: %w", n, portfolio.ErrDegenerateInput)
	}

	it := NewIterator(portfolio.NewPoint(simplex.Equal(n), math.Inf(1)), opts...)
	if it.start != nil {
		if len(it.start) != n {
			return Result{}, fmt.Errorf("greedy: %v start weights for %v assets: %w", len(it.start), n, portfolio.ErrInvalidInput)
		}
		pos, err := simplex.Nearest(it.start)
		if err != nil {
			return Result{}, err
		}
		it.Curr = portfolio.NewPoint(pos, math.Inf(1))
	}

	var obj portfolio.Objectiver = prob
	if it.trace {
		obj = portfolio.NewObjectiveLogger(prob, it.Log.WithField("run", it.Run))
	}

	s := &portfolio.Solver{
		Method:  it,
		Obj:     obj,
		MaxIter: it.MaxRounds,
	}
	if err := s.Run(); err != nil {
		return Result{}, err
	}

	best := s.Best()
	val := best.Val
	if math.IsInf(val, 1) {
		v, err := prob.Objective(best.Pos())
		if err != nil {
			return Result{}, err
		}
		val = v
	}
	return Result{
		Weights:  best.Pos(),
		Variance: val,
		Rounds:   it.Rounds(),
		Evals:    s.Neval(),
		Stop:     s.Stop(),
	}, nil
}

// MinimizeVariance returns the approximate minimum-variance weights for
// assets with standard deviations stddevs and correlation matrix corr.
func MinimizeVariance(stddevs []float64, corr [][]float64, opts ...Option) ([]float64, error) {
	r, err := Minimize(portfolio.Problem{StdDevs: stddevs, Corr: corr}, opts...)
	if err != nil {
		return nil, err
	}
	return r.Weights, nil
}
