package simplex

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const tol = 1e-9

func near(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestFeasible(t *testing.T) {
	tests := []struct {
		w    []float64
		want bool
	}{
		{[]float64{0.5, 0.5}, true},
		{[]float64{0.995, 0}, true},
		{[]float64{0.6, 0.405}, true},
		{[]float64{0.6, 0.42}, false},
		{[]float64{0.5, 0.48}, false},
		{[]float64{1.0001, -0.0001}, false},
		{[]float64{0, 0, 1}, true},
	}

	for _, test := range tests {
		if got := Feasible(test.w); got != test.want {
			t.Errorf("[ERROR] Feasible(%v): want %v, got %v", test.w, test.want, got)
		}
	}
}

func TestEqual(t *testing.T) {
	w := Equal(4)
	if !near(w, []float64{.25, .25, .25, .25}) {
		t.Errorf("[ERROR] bad equal weights %v", w)
	}
	if s := Sum(Equal(3)); math.Abs(s-1) > tol {
		t.Errorf("[ERROR] equal weights sum to %v", s)
	}
}

func TestOrthoProj(t *testing.T) {
	// project onto the x+y=1 line
	A := mat.NewDense(1, 2, []float64{1, 1})
	b := mat.NewDense(1, 1, []float64{1})
	got, err := OrthoProj([]float64{1, 1}, A, b)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{.5, .5}; !near(got, want) {
		t.Errorf("[ERROR] want %v, got %v", want, got)
	}

	// square system is solved directly
	A = mat.NewDense(2, 2, []float64{1, 1, 0, -1})
	b = mat.NewDense(2, 1, []float64{1, 0})
	got, err = OrthoProj([]float64{3, 3}, A, b)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{1, 0}; !near(got, want) {
		t.Errorf("[ERROR] want %v, got %v", want, got)
	}
}

func TestNearest(t *testing.T) {
	tests := []struct {
		x0   []float64
		want []float64
	}{
		{[]float64{.3, .7}, []float64{.3, .7}},
		{[]float64{.7, .6}, []float64{.55, .45}},
		{[]float64{1.5, -.3}, []float64{1, 0}},
		{[]float64{2, -.1, -.2}, []float64{1, 0, 0}},
		{[]float64{.9, .9, -.5}, []float64{.5, .5, 0}},
		{[]float64{-1, -1}, []float64{.5, .5}},
		{[]float64{4}, []float64{1}},
	}

	for _, test := range tests {
		got, err := Nearest(test.x0)
		if err != nil {
			t.Errorf("[ERROR] Nearest(%v): %v", test.x0, err)
			continue
		}
		if !near(got, test.want) {
			t.Errorf("[ERROR] Nearest(%v): want %v, got %v", test.x0, test.want, got)
		}
		if !Feasible(got) {
			t.Errorf("[ERROR] Nearest(%v) = %v is not feasible", test.x0, got)
		}
	}
}

func TestNearestEmpty(t *testing.T) {
	if _, err := Nearest(nil); err == nil {
		t.Errorf("[ERROR] expected error for empty weights")
	}
}
