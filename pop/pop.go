// Package pop runs the greedy optimizer from a population of starting
// portfolios and ranks the results by variance.
package pop

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	portfolio "github.com/MitchK/PortfolioOptimizer"
	"github.com/MitchK/PortfolioOptimizer/greedy"
	"github.com/MitchK/PortfolioOptimizer/simplex"
	"github.com/petar/GoLLRB/llrb"
	"golang.org/x/sync/errgroup"
)

type Rng interface {
	Float64() float64
}

// New returns k starting portfolios of n assets.  The first is the equal
// weight portfolio; the rest are drawn uniformly from the weight simplex.  A
// nil rng uses a fixed seed.
func New(n, k int, rng Rng) [][]float64 {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if k <= 0 || n <= 0 {
		return nil
	}

	starts := make([][]float64, 0, k)
	starts = append(starts, simplex.Equal(n))
	for len(starts) < k {
		// normalized exponential draws are uniform on the simplex
		w := make([]float64, n)
		tot := 0.0
		for j := range w {
			w[j] = -math.Log(1 - rng.Float64())
			tot += w[j]
		}
		if tot == 0 {
			continue
		}
		for j := range w {
			w[j] /= tot
		}
		starts = append(starts, w)
	}
	return starts
}

// Ranked is a search result tagged with the index of the start it came from.
type Ranked struct {
	Start int
	greedy.Result
}

type item Ranked

func (r1 item) Less(than llrb.Item) bool {
	r2 := than.(item)
	if r1.Variance != r2.Variance {
		return r1.Variance < r2.Variance
	}
	return r1.Start < r2.Start
}

// Ranking keeps the best results seen, lowest variance first.  Ties are
// ordered by start index.
type Ranking struct {
	keep int
	tree *llrb.LLRB
}

// NewRanking returns a ranking holding at most keep results, or all of them
// if keep <= 0.
func NewRanking(keep int) *Ranking {
	return &Ranking{keep: keep, tree: llrb.New()}
}

func (r *Ranking) Add(start int, res greedy.Result) {
	r.tree.InsertNoReplace(item{Start: start, Result: res})
	for r.keep > 0 && r.tree.Len() > r.keep {
		r.tree.DeleteMax()
	}
}

func (r *Ranking) Len() int { return r.tree.Len() }

func (r *Ranking) Best() (Ranked, bool) {
	min := r.tree.Min()
	if min == nil {
		return Ranked{}, false
	}
	return Ranked(min.(item)), true
}

// Results returns the kept results in ascending order of variance.
func (r *Ranking) Results() []Ranked {
	results := make([]Ranked, 0, r.tree.Len())
	r.tree.AscendGreaterOrEqual(llrb.Inf(-1), func(i llrb.Item) bool {
		results = append(results, Ranked(i.(item)))
		return true
	})
	return results
}

// MultiStart minimizes prob from every start with at most limit searches
// running at once (limit <= 0 means no limit) and returns the best keep
// results.  Every search is tagged with its start index through
// greedy.RunID.  The searches share opts: a DB option needs a database that
// tolerates concurrent writers, and an Evaler option an evaluator that is
// safe for concurrent use.  greedy.Cache gives each search a cache of its
// own.
func MultiStart(ctx context.Context, prob portfolio.Problem, starts [][]float64, limit, keep int, opts ...greedy.Option) ([]Ranked, error) {
	if err := prob.Validate(); err != nil {
		return nil, err
	}
	if len(starts) == 0 {
		return nil, fmt.Errorf("pop: no starting portfolios: %w", portfolio.ErrInvalidInput)
	}

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	results := make([]greedy.Result, len(starts))
	for i, start := range starts {
		i, start := i, start
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			runopts := append(opts[:len(opts):len(opts)], greedy.Start(start), greedy.RunID(i))
			r, err := greedy.Minimize(prob, runopts...)
			if err != nil {
				return fmt.Errorf("pop: start %v: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rank := NewRanking(keep)
	for i, r := range results {
		rank.Add(i, r)
	}
	return rank.Results(), nil
}
