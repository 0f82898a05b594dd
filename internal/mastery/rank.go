package mastery

import (
	"errors"
	"fmt"
	"math"

	"github.com/sbs-helper/certification-backend/internal/models"
)

// ErrInvalidLadder means the configured rank ladder is empty, unsorted, has
// duplicate thresholds, or does not start at zero. This is a configuration
// defect and fails fast instead of degrading to an unknown rank.
var ErrInvalidLadder = errors.New("invalid rank ladder")

// MaterializeLadder turns the configured fraction-of-max thresholds into
// point thresholds for the current category set. The ladder must be
// recomputed whenever the maximum achievable points changes.
func MaterializeLadder(fractions []models.RankFraction, maxPoints int) []models.Rank {
	ladder := make([]models.Rank, 0, len(fractions))
	for _, f := range fractions {
		ladder = append(ladder, models.Rank{
			Name:      f.Name,
			Icon:      f.Icon,
			MinPoints: int(math.Round(f.MinFraction * float64(maxPoints))),
		})
	}
	return ladder
}

// ValidateLadder checks the materialized ladder invariants: non-empty,
// first threshold zero, thresholds strictly ascending.
func ValidateLadder(ladder []models.Rank) error {
	if len(ladder) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidLadder)
	}
	if ladder[0].MinPoints != 0 {
		return fmt.Errorf("%w: first threshold is %d, want 0", ErrInvalidLadder, ladder[0].MinPoints)
	}
	for i := 1; i < len(ladder); i++ {
		if ladder[i].MinPoints <= ladder[i-1].MinPoints {
			return fmt.Errorf("%w: threshold %d (%q) not above %d (%q)",
				ErrInvalidLadder, ladder[i].MinPoints, ladder[i].Name,
				ladder[i-1].MinPoints, ladder[i-1].Name)
		}
	}
	return nil
}

// ResolveRank returns the highest ladder entry whose threshold the points
// total meets, the entry above it (nil at the top), and the points still
// needed to reach it.
func ResolveRank(points int, ladder []models.Rank) (current models.Rank, next *models.Rank, pointsToNext int, err error) {
	if err := ValidateLadder(ladder); err != nil {
		return models.Rank{}, nil, 0, err
	}

	idx := 0
	for i, r := range ladder {
		if r.MinPoints <= points {
			idx = i
		}
	}
	current = ladder[idx]

	if idx+1 < len(ladder) {
		n := ladder[idx+1]
		next = &n
		pointsToNext = n.MinPoints - points
		if pointsToNext < 0 {
			pointsToNext = 0
		}
	}
	return current, next, pointsToNext, nil
}
