package assessment

import "github.com/sbs-helper/certification-backend/internal/models"

// TargetQuota splits a test size into per-difficulty quotas as evenly as
// possible. The remainder goes one unit at a time to the easiest buckets
// first, so a 10-question test targets {easy:4, medium:3, hard:3}.
func TargetQuota(total int) models.DifficultySplit {
	if total <= 0 {
		return models.DifficultySplit{}
	}
	base := total / 3
	rem := total % 3

	var target models.DifficultySplit
	for i, d := range models.AscendingDifficulties {
		n := base
		if i < rem {
			n++
		}
		setCount(&target, d, n)
	}
	return target
}

// PlanDraw decides how many questions to draw from each difficulty pool.
// Buckets short of their quota leave a deficit, which is filled from the
// remaining pools' spare capacity in ascending difficulty order so the test
// stays as approachable as possible. The planned total is always
// min(quota total, pool total).
func PlanDraw(target models.DifficultySplit, pool models.DifficultySplit) (draw models.DifficultySplit, fallbackUsed bool) {
	deficit := 0
	for _, d := range models.AscendingDifficulties {
		n := count(target, d)
		have := count(pool, d)
		if have < n {
			deficit += n - have
			n = have
		}
		setCount(&draw, d, n)
	}

	if deficit == 0 {
		return draw, false
	}

	for _, d := range models.AscendingDifficulties {
		if deficit == 0 {
			break
		}
		spare := count(pool, d) - count(draw, d)
		if spare <= 0 {
			continue
		}
		take := spare
		if take > deficit {
			take = deficit
		}
		setCount(&draw, d, count(draw, d)+take)
		deficit -= take
	}

	return draw, true
}

func count(s models.DifficultySplit, d models.Difficulty) int {
	switch d {
	case models.DifficultyEasy:
		return s.Easy
	case models.DifficultyMedium:
		return s.Medium
	case models.DifficultyHard:
		return s.Hard
	}
	return 0
}

func setCount(s *models.DifficultySplit, d models.Difficulty, n int) {
	switch d {
	case models.DifficultyEasy:
		s.Easy = n
	case models.DifficultyMedium:
		s.Medium = n
	case models.DifficultyHard:
		s.Hard = n
	}
}

func splitTotal(s models.DifficultySplit) int {
	return s.Easy + s.Medium + s.Hard
}
