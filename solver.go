package portfolio

import (
	"errors"
	"math"
)

var (
	// ErrDone is wrapped by the termination errors a Method returns once it
	// cannot make further progress.  It is not a failure.
	ErrDone = errors.New("search finished")
	// ErrIterLimit is the stop cause when Solver.MaxIter was reached.
	ErrIterLimit = errors.New("iteration limit reached")
	// ErrEvalLimit is the stop cause when Solver.MaxEval was reached.
	ErrEvalLimit = errors.New("evaluation limit reached")
)

// Method is a solver that improves its current point one iteration at a
// time.
type Method interface {
	// Iterate runs a single iteration and reports the best point and the
	// number of objective evaluations n it used.  An error wrapping ErrDone
	// signals normal termination.
	Iterate(obj Objectiver) (best Point, n int, err error)
}

// Solver drives a Method until it terminates or a limit is hit.  A zero
// MaxIter or MaxEval means no limit.
type Solver struct {
	Method  Method
	Obj     Objectiver
	MaxIter int
	MaxEval int

	best  Point
	niter int
	neval int
	stop  error
	err   error
}

// Next runs one iteration and reports whether the solver may continue.
func (s *Solver) Next() bool {
	if s.stop != nil {
		return false
	}
	if s.niter == 0 && s.best.Len() == 0 {
		s.best = Point{Val: math.Inf(1)}
	}
	if s.MaxIter > 0 && s.niter >= s.MaxIter {
		s.stop = ErrIterLimit
		return false
	}
	if s.MaxEval > 0 && s.neval >= s.MaxEval {
		s.stop = ErrEvalLimit
		return false
	}

	best, n, err := s.Method.Iterate(s.Obj)
	s.neval += n
	if best.Len() > 0 {
		s.best = best
	}
	if err != nil {
		s.stop = err
		if !errors.Is(err, ErrDone) {
			s.err = err
		}
		return false
	}
	s.niter++
	return true
}

// Run iterates until the solver stops and returns any failure.
func (s *Solver) Run() error {
	for s.Next() {
	}
	return s.err
}

func (s *Solver) Best() Point { return s.best }

// Niter returns the number of completed iterations.
func (s *Solver) Niter() int { return s.niter }

func (s *Solver) Neval() int { return s.neval }

// Err returns the failure that stopped the solver, or nil if it stopped
// because the method finished or a limit was reached.
func (s *Solver) Err() error { return s.err }

// Stop returns why the solver stopped, nil while it is still running.
func (s *Solver) Stop() error { return s.stop }
