package sfs

import (
	"fmt"
	"math"

	"github.com/eernst/sfskit/popmath"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Modify returns a copy of s in which a proportion p of every unmasked even
// class i is moved onto class i/2. Mass is not moved onto a masked class. s
// itself is left untouched.
func Modify(p float64, s *Spectrum) *Spectrum {
	fs := s.Clone()
	for i := range fs.Data {
		if fs.Mask[i] || i%2 != 0 {
			continue
		}
		j := i / 2
		if fs.Mask[j] {
			continue
		}
		deduct := fs.Data[i] * p
		fs.Data[i] -= deduct
		fs.Data[j] += deduct
	}
	return fs
}

// Cost is the sum of squared deviations between Modify(p, obs) and ref over
// the entries unmasked in both.
func Cost(p float64, ref, obs *Spectrum) float64 {
	fs := Modify(p, obs)
	mask := make([]bool, len(fs.Mask))
	for i := range mask {
		mask[i] = fs.Mask[i] || ref.Mask[i]
	}
	d := floats.Distance(unmaskedBy(fs, mask), unmaskedBy(ref, mask), 2)
	return d * d
}

// Correction is the outcome of fitting p to one spectrum.
type Correction struct {
	P         float64
	Cost      float64
	Evals     int
	Reference *Spectrum
	Spectrum  *Spectrum
}

// Annotation is the comment recorded with a corrected spectrum.
func (c *Correction) Annotation() string {
	return "Ludovics correction applied, p=" + FormatP(c.P)
}

// FormatP rounds p to two decimal places.
func FormatP(p float64) string {
	return FormatFloat(scalar.Round(p, 2))
}

// Corrector fits the proportion p in [0,1] of even-class mass to move onto
// the half-count classes so that the folded spectrum best matches the
// reference model.
type Corrector struct {
	Model     Model
	Scaling   Scaling
	Minimizer popmath.Bounded
}

// Correct fits p for the folded spectrum obs and returns the corrected
// spectrum. obs is not modified.
func (c Corrector) Correct(obs *Spectrum) (*Correction, error) {
	if !obs.Folded {
		return nil, fmt.Errorf("%w: correction needs a folded spectrum", ErrMalformedSpectrum)
	}
	if err := obs.validate(); err != nil {
		return nil, err
	}
	model := c.Model
	if model == nil {
		model = StandardNeutral{}
	}

	ref, err := model.Generate(obs.SampleSize)
	if err != nil {
		return nil, err
	}
	ref, err = ref.Fold()
	if err != nil {
		return nil, err
	}
	ref, err = OptimallyScaled(ref, obs, c.Scaling)
	if err != nil {
		return nil, err
	}

	res, err := c.Minimizer.MinimizeBounded(func(p float64) float64 { return Cost(p, ref, obs) }, 0, 1)
	if err != nil {
		return nil, err
	}
	if res.X < 0 || res.X > 1 || math.IsNaN(res.X) {
		return nil, fmt.Errorf("%w: p=%v outside [0,1]", popmath.ErrNotConverged, res.X)
	}
	return &Correction{
		P:         res.X,
		Cost:      res.F,
		Evals:     res.Evals,
		Reference: ref,
		Spectrum:  Modify(res.X, obs),
	}, nil
}
