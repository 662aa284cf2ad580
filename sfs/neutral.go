package sfs

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Model generates the expected unfolded spectrum for n haploid samples, up
// to a scaling factor.
type Model interface {
	Generate(n int) (*Spectrum, error)
}

// StandardNeutral is the constant size, panmictic neutral model. Its expected
// spectrum is Theta/i for i in 1..n-1. A zero Theta is taken as 1.
type StandardNeutral struct {
	Theta float64
}

func (m StandardNeutral) Generate(n int) (*Spectrum, error) {
	if n < 2 {
		return nil, fmt.Errorf("neutral spectrum needs a sample size of at least 2, got %d", n)
	}
	theta := m.Theta
	if theta == 0 {
		theta = 1
	}
	s := New(make([]float64, n+1))
	for i := 1; i < n; i++ {
		s.Data[i] = theta / float64(i)
	}
	s.MaskCorners()
	return s, nil
}

// Scaling selects how a model spectrum is scaled to the data.
type Scaling int

const (
	// LeastSquares minimises the squared deviation between model and data.
	LeastSquares Scaling = iota
	// Poisson matches the totals, the maximum likelihood scale under a
	// Poisson random field.
	Poisson
)

func ParseScaling(name string) (Scaling, error) {
	switch name {
	case "ls", "least-squares":
		return LeastSquares, nil
	case "poisson":
		return Poisson, nil
	}
	return 0, fmt.Errorf("unknown scaling %q, want \"ls\" or \"poisson\"", name)
}

var errZeroModel = errors.New("model spectrum is zero on all unmasked entries")

// OptimallyScaled returns a copy of model multiplied by the factor that best
// fits data. Both spectra must have the same shape. The copy carries the
// union of both masks; masked entries do not inform the factor.
func OptimallyScaled(model, data *Spectrum, scaling Scaling) (*Spectrum, error) {
	if err := sameShape(model, data); err != nil {
		return nil, err
	}
	scaled := model.Clone()
	for i := range scaled.Mask {
		scaled.Mask[i] = model.Mask[i] || data.Mask[i]
	}
	m, d := scaled.Unmasked(), unmaskedBy(data, scaled.Mask)

	var factor float64
	switch scaling {
	case LeastSquares:
		mm := floats.Dot(m, m)
		if mm == 0 {
			return nil, errZeroModel
		}
		factor = floats.Dot(d, m) / mm
	case Poisson:
		sm := floats.Sum(m)
		if sm == 0 {
			return nil, errZeroModel
		}
		factor = floats.Sum(d) / sm
	default:
		return nil, fmt.Errorf("unknown scaling %d", scaling)
	}
	for i := range scaled.Data {
		if !scaled.Mask[i] {
			scaled.Data[i] *= factor
		}
	}
	return scaled, nil
}

func sameShape(a, b *Spectrum) error {
	if len(a.Data) != len(b.Data) || a.SampleSize != b.SampleSize || a.Folded != b.Folded {
		return fmt.Errorf("%w: %d entries (n=%d, folded=%t) vs %d entries (n=%d, folded=%t)",
			ErrShapeMismatch, len(a.Data), a.SampleSize, a.Folded, len(b.Data), b.SampleSize, b.Folded)
	}
	return nil
}

// unmaskedBy returns the entries of s not set in mask.
func unmaskedBy(s *Spectrum, mask []bool) []float64 {
	vals := make([]float64, 0, len(s.Data))
	for i, v := range s.Data {
		if !mask[i] {
			vals = append(vals, v)
		}
	}
	return vals
}
