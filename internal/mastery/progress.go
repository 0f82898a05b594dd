package mastery

import (
	"math"
	"strings"

	"github.com/sbs-helper/certification-backend/internal/models"
)

const (
	progressBarCells = 10
	filledCell       = "■"
	emptyCell        = "□"
)

// AggregatePoints sums the best scores of currently-valid categories. Each
// category contributes at most 100; fractional scores are summed first and
// rounded once at the end so per-term rounding error cannot compound.
func AggregatePoints(standings map[int64]models.CategoryStanding) int {
	var sum float64
	for _, s := range standings {
		if !s.ValidPass {
			continue
		}
		score := s.BestScore
		if score > 100 {
			score = 100
		}
		sum += score
	}
	return int(math.Round(sum))
}

// OverallPercent converts points into a 0-100 progress percentage.
// A zero maximum is defined as 0%.
func OverallPercent(points, maxPoints int) int {
	if maxPoints <= 0 {
		return 0
	}
	percent := int(math.Round(float64(points) / float64(maxPoints) * 100))
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// ProgressBar renders the fixed 10-cell gauge. Filled cells are
// round(percent/10) — rounding, not floor: 5% already shows one filled cell.
func ProgressBar(percent int) string {
	filled := int(math.Round(float64(percent) / 10))
	if filled < 0 {
		filled = 0
	}
	if filled > progressBarCells {
		filled = progressBarCells
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.Repeat(filledCell, filled))
	b.WriteString(strings.Repeat(emptyCell, progressBarCells-filled))
	b.WriteString("]")
	return b.String()
}
