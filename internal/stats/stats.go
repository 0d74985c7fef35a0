// Package stats derives the mutant ratio from recorded outcome counts.
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrDivisionUndefined is returned when no outcomes have been recorded.
	ErrDivisionUndefined = errors.New("ratio is undefined: no evaluated samples")
	// ErrNegativeCount is returned when a supplied count is negative.
	ErrNegativeCount = errors.New("outcome counts must be non-negative")
)

// Stats is the aggregate over all distinct evaluated grids.
type Stats struct {
	Qualifying    int64
	NonQualifying int64
	Total         int64
	// Ratio is Qualifying / Total.
	Ratio float64
}

// Compute builds Stats from the number of qualifying and non-qualifying
// samples. It never returns NaN or Inf.
func Compute(qualifying, nonQualifying int64) (Stats, error) {
	if qualifying < 0 || nonQualifying < 0 {
		return Stats{}, fmt.Errorf("%w: qualifying=%d non_qualifying=%d", ErrNegativeCount, qualifying, nonQualifying)
	}
	total := qualifying + nonQualifying
	if total == 0 {
		return Stats{}, ErrDivisionUndefined
	}
	return Stats{
		Qualifying:    qualifying,
		NonQualifying: nonQualifying,
		Total:         total,
		Ratio:         float64(qualifying) / float64(total),
	}, nil
}

// FromCounts folds grouped counts keyed by outcome, as returned by the
// outcome store, into Stats.
func FromCounts(counts map[bool]int64) (Stats, error) {
	return Compute(counts[true], counts[false])
}

// Interval returns the Wilson score interval for Ratio at the given
// confidence level (for example 0.95).
func (s Stats) Interval(confidence float64) (lo, hi float64, err error) {
	if s.Total == 0 {
		return 0, 0, ErrDivisionUndefined
	}
	if confidence <= 0 || confidence >= 1 {
		return 0, 0, fmt.Errorf("confidence must be in (0, 1), got %v", confidence)
	}

	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	n := float64(s.Total)
	p := s.Ratio
	z2 := z * z

	centre := (p + z2/(2*n)) / (1 + z2/n)
	half := z / (1 + z2/n) * math.Sqrt(p*(1-p)/n+z2/(4*n*n))
	return math.Max(0, centre-half), math.Min(1, centre+half), nil
}
