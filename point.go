// Package portfolio evaluates the variance of weighted asset combinations and
// provides the objective plumbing shared by the minimum-variance solvers in
// its subpackages.
package portfolio

import (
	"crypto/sha1"
	"encoding/binary"
	"math"

	"github.com/sirupsen/logrus"
)

// Point is a weight vector together with its objective value (the portfolio
// variance for variance objectives).
type Point struct {
	pos []float64
	Val float64
}

// NewPoint copies pos so later changes by the caller do not leak in.
func NewPoint(pos []float64, val float64) Point {
	cpos := make([]float64, len(pos))
	copy(cpos, pos)
	return Point{pos: cpos, Val: val}
}

func (p Point) At(i int) float64 { return p.pos[i] }

func (p Point) Len() int { return len(p.pos) }

// Pos returns a copy of the point's weights.
func (p Point) Pos() []float64 {
	pos := make([]float64, len(p.pos))
	copy(pos, p.pos)
	return pos
}

// Sum returns the total weight held by the point.
func (p Point) Sum() float64 {
	tot := 0.0
	for _, w := range p.pos {
		tot += w
	}
	return tot
}

func (p Point) Hash() [sha1.Size]byte {
	data := make([]byte, p.Len()*8)
	for i := 0; i < p.Len(); i++ {
		binary.BigEndian.PutUint64(data[i*8:], math.Float64bits(p.At(i)))
	}
	return sha1.Sum(data)
}

type Objectiver interface {
	// Objective evaluates the weights in v and returns the objective
	// function value.  The objective must be framed so that lower values are
	// better.  If the evaluation fails, positive infinity should be returned
	// along with an error.
	Objective(v []float64) (float64, error)
}

type Evaler interface {
	// Eval evaluates each point using obj and returns the values and number
	// of function evaluations n.  Unevaluated points are not returned in the
	// results slice.
	Eval(obj Objectiver, points ...Point) (results []Point, n int, err error)
}

// Func adapts a plain function to the Objectiver interface.
type Func func([]float64) float64

func (f Func) Objective(v []float64) (float64, error) { return f(v), nil }

// SerialEvaler evaluates points one at a time and stops at the first error.
type SerialEvaler struct{}

func (ev SerialEvaler) Eval(obj Objectiver, points ...Point) (results []Point, n int, err error) {
	results = make([]Point, 0, len(points))
	for _, p := range points {
		p.Val, err = obj.Objective(p.pos)
		results = append(results, p)
		if err != nil {
			return results, len(results), err
		}
	}
	return results, len(results), nil
}

// CacheEvaler remembers objective values by point hash and only forwards
// unseen points to the wrapped Evaler.  The reported evaluation count only
// includes forwarded points.
type CacheEvaler struct {
	ev    Evaler
	cache map[[sha1.Size]byte]float64
}

func NewCacheEvaler(ev Evaler) *CacheEvaler {
	if ev == nil {
		ev = SerialEvaler{}
	}
	return &CacheEvaler{
		ev:    ev,
		cache: map[[sha1.Size]byte]float64{},
	}
}

func (ev *CacheEvaler) Eval(obj Objectiver, points ...Point) (results []Point, n int, err error) {
	fromnew := make([]int, 0, len(points))
	newp := make([]Point, 0, len(points))
	for i, p := range points {
		if val, ok := ev.cache[p.Hash()]; ok {
			points[i].Val = val
		} else {
			fromnew = append(fromnew, i)
			newp = append(newp, p)
		}
	}

	newresults, n, err := ev.ev.Eval(obj, newp...)
	for i, p := range newresults {
		if err == nil || i < len(newresults)-1 {
			ev.cache[p.Hash()] = p.Val
		}
		points[fromnew[i]].Val = p.Val
	}

	// shrink if an error resulted in fewer new results being returned
	if len(newresults) < len(newp) {
		if len(newresults) == 0 {
			points = points[:fromnew[0]]
		} else {
			points = points[:fromnew[len(newresults)-1]+1]
		}
	}

	return points, n, err
}

// Len reports the number of cached values.
func (ev *CacheEvaler) Len() int { return len(ev.cache) }

// ObjectiveLogger traces every objective evaluation at trace level.
type ObjectiveLogger struct {
	Objectiver
	Log   logrus.FieldLogger
	Count int
}

func NewObjectiveLogger(obj Objectiver, log logrus.FieldLogger) *ObjectiveLogger {
	return &ObjectiveLogger{Objectiver: obj, Log: log}
}

func (ol *ObjectiveLogger) Objective(v []float64) (float64, error) {
	val, err := ol.Objectiver.Objective(v)

	ol.Count++
	entry := ol.Log.WithFields(logrus.Fields{
		"eval":    ol.Count,
		"weights": v,
		"val":     val,
	})
	if err != nil {
		entry.WithError(err).Debug("objective evaluation failed")
	} else {
		entry.Trace("objective evaluated")
	}

	return val, err
}
