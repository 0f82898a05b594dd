package mastery

import (
	"time"

	"github.com/sbs-helper/certification-backend/internal/models"
)

// EvaluateResults decides, per category, whether the latest pass still
// counts. A pass is valid while now − lastPassedAt < validity; a valid pass
// is expiring soon when less than warning remains before expiry. Expired
// passes stay in the map with the best score withheld so callers can warn
// about them; categories never passed are simply absent.
func EvaluateResults(results []models.CategoryResult, now time.Time, validity, warning time.Duration) map[int64]models.CategoryStanding {
	standings := make(map[int64]models.CategoryStanding, len(results))
	for _, r := range results {
		standing := models.CategoryStanding{
			CategoryID:   r.CategoryID,
			LastPassedAt: r.LastPassedAt,
		}
		if now.Sub(r.LastPassedAt) < validity {
			standing.ValidPass = true
			standing.BestScore = r.BestScorePercent
			standing.ExpiringSoon = r.LastPassedAt.Add(validity).Sub(now) < warning
		}
		standings[r.CategoryID] = standing
	}
	return standings
}
