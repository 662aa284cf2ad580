package coverage

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/eernst/sfskit/popmath"
)

// ContigCoverage holds per-contig read counts for a set of individuals and
// their across-sample totals. Contigs absent from an individual's counts have
// zero coverage in that individual.
type ContigCoverage struct {
	Individuals []map[string]int
	Totals      map[string]int
}

func NewContigCoverage(individuals []map[string]int) *ContigCoverage {
	c := &ContigCoverage{Individuals: individuals, Totals: make(map[string]int)}
	for _, counts := range individuals {
		for contig, n := range counts {
			c.Totals[contig] += n
		}
	}
	return c
}

// Contigs returns every contig observed in any individual, sorted.
func (c *ContigCoverage) Contigs() []string {
	contigs := make([]string, 0, len(c.Totals))
	for contig := range c.Totals {
		contigs = append(contigs, contig)
	}
	sort.Strings(contigs)
	return contigs
}

// ContigThresholds are the lower order statistics of the individual and
// across-sample contig coverage distributions. Zero counts are not part of
// the distributions.
type ContigThresholds struct {
	Global      int
	Individuals []int
}

// Thresholds computes the percentile thresholds. An individual without any
// observed contig gets a zero threshold, which none of its (zero) counts can
// exceed.
func (c *ContigCoverage) Thresholds(percentile float64) (ContigThresholds, error) {
	var t ContigThresholds
	if err := ValidatePercentile(percentile); err != nil {
		return t, err
	}
	if len(c.Totals) == 0 {
		return t, ErrEmptyDistribution
	}

	var err error
	t.Global, err = popmath.PercentileLower(values(c.Totals), percentile)
	if err != nil {
		return t, fmt.Errorf("across sample coverage: %w", err)
	}
	t.Individuals = make([]int, len(c.Individuals))
	for i, counts := range c.Individuals {
		if len(counts) == 0 {
			continue
		}
		t.Individuals[i], err = popmath.PercentileLower(values(counts), percentile)
		if err != nil {
			return t, fmt.Errorf("individual %d coverage: %w", i+1, err)
		}
	}
	return t, nil
}

// Keep returns the contigs whose across-sample coverage does not exceed the
// global threshold and whose coverage in no individual exceeds that
// individual's threshold.
func (c *ContigCoverage) Keep(t ContigThresholds) map[string]bool {
	keep := make(map[string]bool)
	for contig, total := range c.Totals {
		if total > t.Global {
			continue
		}
		excess := false
		for i, counts := range c.Individuals {
			if counts[contig] > t.Individuals[i] {
				excess = true
				break
			}
		}
		if !excess {
			keep[contig] = true
		}
	}
	return keep
}

func values(m map[string]int) []int {
	vals := make([]int, 0, len(m))
	for _, v := range m {
		vals = append(vals, v)
	}
	return vals
}

// FilterRegions copies the lines of a BED-like stream whose first field is a
// kept contig to w, verbatim and in input order. Blank lines are dropped.
func FilterRegions(r io.Reader, keep map[string]bool, w io.Writer) (kept int, err error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for s.Scan() {
		line++
		text := strings.TrimRight(s.Text(), "\r\n")
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return kept, fmt.Errorf("line %d: %w: want at least 3 fields, got %d", line, ErrMalformedRow, len(fields))
		}
		if !keep[fields[0]] {
			continue
		}
		if _, err := io.WriteString(w, text+"\n"); err != nil {
			return kept, err
		}
		kept++
	}
	return kept, s.Err()
}
