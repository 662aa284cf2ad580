package popmath

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrInvalidPercentile = errors.New("percentile out of range")
	ErrEmpty             = errors.New("no values")
)

// PercentileLower returns the order statistic at the given percentile of vals,
// taking the lower of the two neighbouring values whenever the percentile falls
// between them (numpy's interpolation='lower'). The percentile must lie in
// [0,100]. vals is not modified.
func PercentileLower(vals []int, percentile float64) (int, error) {
	switch {
	case math.IsNaN(percentile) || percentile < 0 || percentile > 100:
		return 0, fmt.Errorf("%w: %v not in [0,100]", ErrInvalidPercentile, percentile)
	case len(vals) == 0:
		return 0, ErrEmpty
	}

	sorted := make([]int, len(vals))
	copy(sorted, vals)
	sort.Ints(sorted)

	pos := percentile / 100 * float64(len(sorted)-1)
	return sorted[int(math.Floor(pos))], nil
}
