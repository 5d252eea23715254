package portfolio

import (
	"errors"
	"fmt"
	"testing"
)

var errDown = errors.New("objective went away")

// countdown improves its point by one each iteration and finishes at zero.
type countdown struct {
	left int
	fail bool
}

func (c *countdown) Iterate(obj Objectiver) (Point, int, error) {
	if c.left == 0 {
		if c.fail {
			return Point{}, 0, errDown
		}
		return NewPoint([]float64{0}, 0), 1, fmt.Errorf("at zero: %w", ErrDone)
	}
	c.left--
	return NewPoint([]float64{float64(c.left)}, float64(c.left)), 2, nil
}

func TestSolverDone(t *testing.T) {
	s := &Solver{Method: &countdown{left: 5}}
	if err := s.Run(); err != nil {
		t.Fatalf("[ERROR] clean finish reported as failure: %v", err)
	}
	if s.Niter() != 5 {
		t.Errorf("[ERROR] want 5 iterations, got %v", s.Niter())
	}
	if s.Neval() != 11 {
		t.Errorf("[ERROR] want 11 evaluations, got %v", s.Neval())
	}
	if !errors.Is(s.Stop(), ErrDone) {
		t.Errorf("[ERROR] want stop %v, got %v", ErrDone, s.Stop())
	}
	if s.Best().Val != 0 {
		t.Errorf("[ERROR] want best 0, got %v", s.Best().Val)
	}
	if s.Next() {
		t.Errorf("[ERROR] stopped solver continued")
	}
}

func TestSolverLimits(t *testing.T) {
	s := &Solver{Method: &countdown{left: 100}, MaxIter: 3}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if s.Stop() != ErrIterLimit || s.Niter() != 3 || s.Best().Val != 97 {
		t.Errorf("[ERROR] iteration limit: stop=%v niter=%v best=%v", s.Stop(), s.Niter(), s.Best().Val)
	}

	s = &Solver{Method: &countdown{left: 100}, MaxEval: 5}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if s.Stop() != ErrEvalLimit || s.Neval() != 6 {
		t.Errorf("[ERROR] evaluation limit: stop=%v neval=%v", s.Stop(), s.Neval())
	}
}

func TestSolverFailure(t *testing.T) {
	s := &Solver{Method: &countdown{left: 2, fail: true}}
	if err := s.Run(); !errors.Is(err, errDown) {
		t.Errorf("[ERROR] want %v, got %v", errDown, err)
	}
	if s.Best().Val != 0 {
		t.Errorf("[ERROR] failed iteration should keep the last best, got %v", s.Best().Val)
	}
}
