package popmath

import (
	"errors"
	"fmt"
	"math"
)

var ErrNotConverged = errors.New("bounded minimisation did not converge")

const (
	DefaultXTol    = 1e-5
	DefaultMaxEval = 500
)

var goldenMean = 0.5 * (3 - math.Sqrt(5))
var sqrtEps = math.Sqrt(2.2e-16)

// Bounded holds the settings for MinimizeBounded. The zero value uses
// DefaultXTol and DefaultMaxEval.
type Bounded struct {
	XTol    float64
	MaxEval int
}

type Result struct {
	X     float64
	F     float64
	Evals int
}

// MinimizeBounded finds a local minimum of f on [lo, hi] with Brent's method,
// alternating golden-section steps and parabolic interpolation. f is never
// evaluated outside the interval.
func (b Bounded) MinimizeBounded(f func(float64) float64, lo, hi float64) (Result, error) {
	xtol := b.XTol
	if xtol <= 0 {
		xtol = DefaultXTol
	}
	maxEval := b.MaxEval
	if maxEval <= 0 {
		maxEval = DefaultMaxEval
	}
	if !(lo < hi) {
		return Result{}, fmt.Errorf("invalid bounds [%v, %v]", lo, hi)
	}

	a, c := lo, hi
	fulc := a + goldenMean*(c-a)
	nfc, xf := fulc, fulc
	var rat, e float64
	fx := f(xf)
	evals := 1
	ffulc, fnfc := fx, fx
	xm := 0.5 * (a + c)
	tol1 := sqrtEps*math.Abs(xf) + xtol/3
	tol2 := 2 * tol1

	for math.Abs(xf-xm) > tol2-0.5*(c-a) {
		golden := true
		if math.Abs(e) > tol1 {
			// try a parabola through the three best points
			r := (xf - nfc) * (fx - ffulc)
			q := (xf - fulc) * (fx - fnfc)
			p := (xf-fulc)*q - (xf-nfc)*r
			q = 2 * (q - r)
			if q > 0 {
				p = -p
			}
			q = math.Abs(q)
			r = e
			e = rat

			if math.Abs(p) < math.Abs(0.5*q*r) && p > q*(a-xf) && p < q*(c-xf) {
				golden = false
				rat = p / q
				x := xf + rat
				if x-a < tol2 || c-x < tol2 {
					rat = tol1 * signOrOne(xm-xf)
				}
			}
		}
		if golden {
			if xf >= xm {
				e = a - xf
			} else {
				e = c - xf
			}
			rat = goldenMean * e
		}

		x := xf + signOrOne(rat)*math.Max(math.Abs(rat), tol1)
		fu := f(x)
		evals++

		if fu <= fx {
			if x >= xf {
				a = xf
			} else {
				c = xf
			}
			fulc, ffulc = nfc, fnfc
			nfc, fnfc = xf, fx
			xf, fx = x, fu
		} else {
			if x < xf {
				a = x
			} else {
				c = x
			}
			switch {
			case fu <= fnfc || nfc == xf:
				fulc, ffulc = nfc, fnfc
				nfc, fnfc = x, fu
			case fu <= ffulc || fulc == xf || fulc == nfc:
				fulc, ffulc = x, fu
			}
		}

		xm = 0.5 * (a + c)
		tol1 = sqrtEps*math.Abs(xf) + xtol/3
		tol2 = 2 * tol1

		if evals >= maxEval {
			return Result{X: xf, F: fx, Evals: evals}, fmt.Errorf("%w after %d evaluations", ErrNotConverged, evals)
		}
	}

	if math.IsNaN(fx) {
		return Result{X: xf, F: fx, Evals: evals}, fmt.Errorf("%w: objective is NaN", ErrNotConverged)
	}
	return Result{X: xf, F: fx, Evals: evals}, nil
}

// signOrOne is the sign of v, with zero mapped to +1.
func signOrOne(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// MinimizeBounded minimises f on [lo, hi] with the default settings.
func MinimizeBounded(f func(float64) float64, lo, hi float64) (Result, error) {
	return Bounded{}.MinimizeBounded(f, lo, hi)
}
