// Package sfs folds one-dimensional site frequency spectra and fits the
// even-class ascertainment correction.
package sfs

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrMalformedSpectrum = errors.New("malformed spectrum")
	ErrShapeMismatch     = errors.New("spectra differ in shape")
)

// Spectrum is a one-dimensional SFS for SampleSize haploid samples. An
// unfolded spectrum has SampleSize+1 entries; a folded one SampleSize/2+1.
// Mask parallels Data; masked entries are skipped by all arithmetic.
type Spectrum struct {
	Data       []float64
	Mask       []bool
	SampleSize int
	Folded     bool
	PopIDs     []string
}

// New returns an unfolded, unmasked spectrum over data.
func New(data []float64) *Spectrum {
	return &Spectrum{
		Data:       data,
		Mask:       make([]bool, len(data)),
		SampleSize: len(data) - 1,
	}
}

func (s *Spectrum) Clone() *Spectrum {
	c := *s
	c.Data = append([]float64(nil), s.Data...)
	c.Mask = append([]bool(nil), s.Mask...)
	c.PopIDs = append([]string(nil), s.PopIDs...)
	return &c
}

// MaskCorners masks the entries for zero and SampleSize derived alleles that
// are present in the spectrum.
func (s *Spectrum) MaskCorners() {
	if len(s.Mask) == 0 {
		return
	}
	s.Mask[0] = true
	if !s.Folded {
		s.Mask[len(s.Mask)-1] = true
	}
}

// Unmasked returns the values of the unmasked entries in order.
func (s *Spectrum) Unmasked() []float64 {
	vals := make([]float64, 0, len(s.Data))
	for i, v := range s.Data {
		if !s.Mask[i] {
			vals = append(vals, v)
		}
	}
	return vals
}

// Sum adds up the unmasked entries.
func (s *Spectrum) Sum() float64 { return floats.Sum(s.Unmasked()) }

func (s *Spectrum) validate() error {
	switch {
	case len(s.Data) == 0:
		return fmt.Errorf("%w: no entries", ErrMalformedSpectrum)
	case len(s.Mask) != len(s.Data):
		return fmt.Errorf("%w: %d mask entries for %d values", ErrMalformedSpectrum, len(s.Mask), len(s.Data))
	case !s.Folded && len(s.Data) != s.SampleSize+1:
		return fmt.Errorf("%w: %d entries for sample size %d", ErrMalformedSpectrum, len(s.Data), s.SampleSize)
	case s.Folded && len(s.Data) != s.SampleSize/2+1:
		return fmt.Errorf("%w: %d folded entries for sample size %d", ErrMalformedSpectrum, len(s.Data), s.SampleSize)
	}
	return nil
}

// Fold combines the classes i and n-i of an unfolded spectrum raw with
// n = len(raw)-1, halving the middle class when n is even. The result has
// n/2+1 entries.
func Fold(raw []float64) []float64 {
	if len(raw) == 0 {
		return nil
	}
	n := len(raw) - 1
	folded := make([]float64, n/2+1)
	for i := range folded {
		folded[i] = raw[i] + raw[n-i]
		if i == n-i {
			folded[i] = folded[i] / 2
		}
	}
	return folded
}

// Fold returns the folded form of an unfolded spectrum. A folded class is
// masked if either of the classes it combines is masked.
func (s *Spectrum) Fold() (*Spectrum, error) {
	if s.Folded {
		return nil, fmt.Errorf("%w: spectrum is already folded", ErrMalformedSpectrum)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	n := s.SampleSize
	f := &Spectrum{
		Data:       Fold(s.Data),
		SampleSize: n,
		Folded:     true,
		PopIDs:     append([]string(nil), s.PopIDs...),
	}
	f.Mask = make([]bool, len(f.Data))
	for i := range f.Mask {
		f.Mask[i] = s.Mask[i] || s.Mask[n-i]
	}
	return f, nil
}

// ParseLine reads the whitespace separated values of a one line spectrum.
func ParseLine(line string) ([]float64, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedSpectrum)
	}
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %q", ErrMalformedSpectrum, i+1, f)
		}
		vals[i] = v
	}
	return vals, nil
}

// FormatLine joins vals with sep.
func FormatLine(vals []float64, sep string) string {
	strs := make([]string, len(vals))
	for i, v := range vals {
		strs[i] = FormatFloat(v)
	}
	return strings.Join(strs, sep)
}

// FormatFloat writes v in the shortest form that parses back to v. Values in
// [1e-4, 1e16) are written without exponent and always carry a decimal point.
func FormatFloat(v float64) string {
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) || math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
