// Package coverage implements percentile-based read depth filters for
// samtools depth tables and for per-contig alignment counts.
package coverage

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrInvalidPercentile  = errors.New("percentile must be a number between 0 and 100")
	ErrEmptyDistribution  = errors.New("empty coverage distribution")
	ErrMalformedRow       = errors.New("malformed row")
	ErrInconsistentFields = errors.New("inconsistent number of depth fields")
)

// ValidatePercentile reports an error unless 0 < p < 100.
func ValidatePercentile(p float64) error {
	if math.IsNaN(p) || p <= 0 || p >= 100 {
		return fmt.Errorf("%w (exclusive), got %v", ErrInvalidPercentile, p)
	}
	return nil
}

// Distribution maps an observed depth to the number of times it was seen.
type Distribution map[int]int

func (d Distribution) Add(depth int) { d[depth]++ }

// Total is the sum of all counts.
func (d Distribution) Total() (total int) {
	for _, n := range d {
		total += n
	}
	return total
}

// Threshold searches the distribution from its upper tail and returns the
// first depth at which the accumulated counts reach (100-percentile)% of the
// total. Depths above the returned value make up less than that share.
func (d Distribution) Threshold(percentile float64) (int, error) {
	if err := ValidatePercentile(percentile); err != nil {
		return 0, err
	}
	total := d.Total()
	if total == 0 {
		return 0, ErrEmptyDistribution
	}

	depths := make([]int, 0, len(d))
	for depth := range d {
		depths = append(depths, depth)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(depths)))

	var cum int
	for _, depth := range depths {
		cum += d[depth]
		if float64(cum)/float64(total)*100 >= 100-percentile {
			return depth, nil
		}
	}
	// unreachable: the last depth always accumulates 100%
	return depths[len(depths)-1], nil
}
