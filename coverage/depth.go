package coverage

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Row is one site of a samtools depth table: contig, position and one depth
// per individual. Line holds the original text without trailing whitespace.
type Row struct {
	Contig   string
	Position int
	Depths   []int
	Line     string
}

// Sum is the across-sample depth of the site.
func (r Row) Sum() (sum int) {
	for _, d := range r.Depths {
		sum += d
	}
	return sum
}

// ParseRow splits a tab or whitespace delimited depth table line.
func ParseRow(line string) (Row, error) {
	line = strings.TrimRight(line, " \t\r\n")
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Row{}, fmt.Errorf("%w: want contig, position and at least one depth, got %d fields", ErrMalformedRow, len(fields))
	}
	pos, err := strconv.Atoi(fields[1])
	if err != nil {
		return Row{}, fmt.Errorf("%w: position %q", ErrMalformedRow, fields[1])
	}
	row := Row{Contig: fields[0], Position: pos, Depths: make([]int, len(fields)-2), Line: line}
	for i, f := range fields[2:] {
		d, err := strconv.Atoi(f)
		if err != nil || d < 0 {
			return Row{}, fmt.Errorf("%w: depth %q of individual %d", ErrMalformedRow, f, i+1)
		}
		row.Depths[i] = d
	}
	return row, nil
}

// RowSource yields depth table rows in order.
type RowSource interface {
	Next() bool
	Row() Row
	Err() error
}

// RowReader reads a depth table, skipping blank lines. Every row must carry
// the same number of depths as the first one.
type RowReader struct {
	s      *bufio.Scanner
	line   int
	row    Row
	err    error
	nDepth int
}

func NewRowReader(r io.Reader) *RowReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &RowReader{s: s}
}

func (r *RowReader) Next() bool {
	if r.err != nil {
		return false
	}
	for r.s.Scan() {
		r.line++
		text := r.s.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		row, err := ParseRow(text)
		if err != nil {
			r.err = fmt.Errorf("line %d: %w", r.line, err)
			return false
		}
		switch {
		case r.nDepth == 0:
			r.nDepth = len(row.Depths)
		case len(row.Depths) != r.nDepth:
			r.err = fmt.Errorf("line %d: %w: want %d, got %d", r.line, ErrInconsistentFields, r.nDepth, len(row.Depths))
			return false
		}
		r.row = row
		return true
	}
	r.err = r.s.Err()
	return false
}

func (r *RowReader) Row() Row   { return r.row }
func (r *RowReader) Err() error { return r.err }

// Config holds the depth filter parameters.
type Config struct {
	GlobalPercentile     float64
	IndividualPercentile float64
	MinimumCoverage      int
	MinimumIndividual    int
}

func DefaultConfig() Config {
	return Config{
		GlobalPercentile:     99,
		IndividualPercentile: 99,
		MinimumCoverage:      1,
		MinimumIndividual:    15,
	}
}

func (c Config) Validate() error {
	if err := ValidatePercentile(c.GlobalPercentile); err != nil {
		return fmt.Errorf("global coverage percentile: %w", err)
	}
	if err := ValidatePercentile(c.IndividualPercentile); err != nil {
		return fmt.Errorf("individual coverage percentile: %w", err)
	}
	if c.MinimumCoverage < 0 {
		return fmt.Errorf("minimum coverage must not be negative, got %d", c.MinimumCoverage)
	}
	if c.MinimumIndividual < 0 {
		return fmt.Errorf("minimum individual must not be negative, got %d", c.MinimumIndividual)
	}
	return nil
}

// Distributions are the coverage distributions gathered in the first pass
// over a depth table.
type Distributions struct {
	Global      Distribution
	Individuals []Distribution
	Sites       int
}

func NewDistributions(individuals int) *Distributions {
	d := &Distributions{Global: make(Distribution), Individuals: make([]Distribution, individuals)}
	for i := range d.Individuals {
		d.Individuals[i] = make(Distribution)
	}
	return d
}

// Add counts the global and individual depths of row. The distributions are
// sized by the first row added.
func (d *Distributions) Add(row Row) error {
	if d.Sites == 0 && len(d.Individuals) == 0 {
		*d = *NewDistributions(len(row.Depths))
	}
	if len(row.Depths) != len(d.Individuals) {
		return fmt.Errorf("%w: want %d, got %d", ErrInconsistentFields, len(d.Individuals), len(row.Depths))
	}
	d.Global.Add(row.Sum())
	for i, depth := range row.Depths {
		d.Individuals[i].Add(depth)
	}
	d.Sites++
	return nil
}

// Collect runs the first pass over rows.
func Collect(rows RowSource) (*Distributions, error) {
	d := &Distributions{}
	for rows.Next() {
		if err := d.Add(rows.Row()); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if d.Sites == 0 {
		return nil, ErrEmptyDistribution
	}
	return d, nil
}

// Thresholds are the upper depth bounds derived from Distributions.
type Thresholds struct {
	Global      int
	Individuals []int
}

func (d *Distributions) Thresholds(cfg Config) (Thresholds, error) {
	var t Thresholds
	var err error
	t.Global, err = d.Global.Threshold(cfg.GlobalPercentile)
	if err != nil {
		return t, fmt.Errorf("global coverage: %w", err)
	}
	t.Individuals = make([]int, len(d.Individuals))
	for i, dist := range d.Individuals {
		t.Individuals[i], err = dist.Threshold(cfg.IndividualPercentile)
		if err != nil {
			return t, fmt.Errorf("individual %d coverage: %w", i+1, err)
		}
	}
	return t, nil
}

// Keep reports whether a site passes the excess coverage thresholds and has
// at least cfg.MinimumCoverage depth in cfg.MinimumIndividual individuals.
func (t Thresholds) Keep(row Row, cfg Config) bool {
	if row.Sum() > t.Global {
		return false
	}
	sufficient := 0
	for i, d := range row.Depths {
		switch {
		case d > t.Individuals[i]:
			return false
		case d >= cfg.MinimumCoverage:
			sufficient++
		}
	}
	return sufficient >= cfg.MinimumIndividual
}

// Filter runs the second pass, calling emit with every row Keep accepts.
func Filter(rows RowSource, t Thresholds, cfg Config, emit func(Row) error) error {
	for rows.Next() {
		row := rows.Row()
		if len(row.Depths) != len(t.Individuals) {
			return fmt.Errorf("%w: want %d, got %d", ErrInconsistentFields, len(t.Individuals), len(row.Depths))
		}
		if !t.Keep(row, cfg) {
			continue
		}
		if err := emit(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// MeetsMinimum reports whether at least minIndividual depths of row are
// minCoverage or more.
func MeetsMinimum(row Row, minCoverage, minIndividual int) bool {
	n := 0
	for _, d := range row.Depths {
		if d >= minCoverage {
			n++
		}
	}
	return n >= minIndividual
}
