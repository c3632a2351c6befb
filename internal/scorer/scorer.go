// Package scorer computes the completeness score that drives table
// selection. The formula keeps its asymmetric mixed scales and max(·, 1)
// zero-row guards intentionally: normalizing them would change which
// table the scheduler picks next.
package scorer

import (
	"math"

	"github.com/relsubset/subsetter/internal/target"
)

// maxInt64 returns the larger of v and floor, used for the zero-row
// division guards the formula requires.
func maxInt64(v, floor int64) int64 {
	if v > floor {
		return v
	}
	return floor
}

// Score computes a target table's completeness score. Lower means less
// complete; the scheduler always works on the table with the minimum
// score.
func Score(t *target.Table) float64 {
	if t.FetchAll && t.NRows < t.NRowsDesired {
		return 1 + float64(maxInt64(t.NRows, 1)) - float64(maxInt64(t.NRowsDesired, 1))
	}

	score := -(float64(t.RequestedLen()) / float64(maxInt64(t.NRows, 1))) - float64(t.RequiredLen())
	if t.RequiredLen() == 0 {
		progress := float64(t.NRows) / float64(maxInt64(t.NRowsDesired, 1))
		score += math.Pow(progress, 0.33)
	}
	return score
}
