package sfs

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var popIDPattern = regexp.MustCompile(`"([^"]*)"`)

// Read parses a one-dimensional spectrum in dadi's text format: optional '#'
// comment lines, a header with the number of entries, an optional
// folded/unfolded marker and quoted population ids, a data line and an
// optional mask line of 0/1. Without a mask line the corner entries are
// masked. Folded spectra are returned with SampleSize/2+1 entries.
func Read(r io.Reader) (*Spectrum, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var lines []string
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: want header and data lines", ErrMalformedSpectrum)
	}

	size, folded, pops, err := parseHeader(lines[0])
	if err != nil {
		return nil, err
	}
	data, err := ParseLine(lines[1])
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, fmt.Errorf("%w: header gives %d entries, data line has %d", ErrMalformedSpectrum, size, len(data))
	}

	mask := make([]bool, size)
	if len(lines) > 2 {
		fields := strings.Fields(lines[2])
		if len(fields) != size {
			return nil, fmt.Errorf("%w: mask line has %d entries, want %d", ErrMalformedSpectrum, len(fields), size)
		}
		for i, f := range fields {
			switch f {
			case "0":
			case "1":
				mask[i] = true
			default:
				return nil, fmt.Errorf("%w: mask entry %q", ErrMalformedSpectrum, f)
			}
		}
	} else {
		mask[0] = true
		mask[size-1] = true
	}

	sp := &Spectrum{Data: data, Mask: mask, SampleSize: size - 1, PopIDs: pops}
	if folded {
		keep := sp.SampleSize/2 + 1
		sp.Data = sp.Data[:keep]
		sp.Mask = sp.Mask[:keep]
		sp.Folded = true
	}
	return sp, nil
}

func parseHeader(line string) (size int, folded bool, pops []string, err error) {
	for _, m := range popIDPattern.FindAllStringSubmatch(line, -1) {
		pops = append(pops, m[1])
	}
	fields := strings.Fields(popIDPattern.ReplaceAllString(line, ""))

	var dims []int
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			break
		}
		dims = append(dims, n)
	}
	switch {
	case len(dims) == 0:
		return 0, false, nil, fmt.Errorf("%w: header %q has no dimensions", ErrMalformedSpectrum, line)
	case len(dims) > 1:
		return 0, false, nil, fmt.Errorf("%w: only one-dimensional spectra are supported, got %d dimensions", ErrMalformedSpectrum, len(dims))
	case dims[0] < 2:
		return 0, false, nil, fmt.Errorf("%w: spectrum needs at least 2 entries, got %d", ErrMalformedSpectrum, dims[0])
	}
	for _, f := range fields[len(dims):] {
		switch f {
		case "folded":
			folded = true
		case "unfolded":
			folded = false
		default:
			return 0, false, nil, fmt.Errorf("%w: unexpected header field %q", ErrMalformedSpectrum, f)
		}
	}
	return dims[0], folded, pops, nil
}

// Write stores s in dadi's text format, preceded by the comment lines. A
// folded spectrum is written with SampleSize+1 entries, the upper half masked.
func Write(w io.Writer, s *Spectrum, comments ...string) error {
	if err := s.validate(); err != nil {
		return err
	}
	n := s.SampleSize
	data := make([]float64, n+1)
	mask := make([]bool, n+1)
	copy(data, s.Data)
	copy(mask, s.Mask)
	marker := "unfolded"
	if s.Folded {
		marker = "folded"
		for i := len(s.Data); i <= n; i++ {
			mask[i] = true
		}
	}

	bw := bufio.NewWriter(w)
	for _, c := range comments {
		fmt.Fprintf(bw, "# %s\n", c)
	}
	fmt.Fprintf(bw, "%d %s", n+1, marker)
	for _, p := range s.PopIDs {
		fmt.Fprintf(bw, " %q", p)
	}
	fmt.Fprintf(bw, "\n%s\n", FormatLine(data, " "))
	for i, m := range mask {
		if i > 0 {
			bw.WriteByte(' ')
		}
		if m {
			bw.WriteByte('1')
		} else {
			bw.WriteByte('0')
		}
	}
	bw.WriteByte('\n')
	return bw.Flush()
}
