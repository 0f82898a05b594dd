package models

import "time"

// CategoryResult is the per-(user, category) best-score record for the
// current validity window. A pass after the previous window lapsed starts a
// fresh window; the stored best never blends with a stale one.
type CategoryResult struct {
	UserID           int64     `json:"user_id"`
	CategoryID       int64     `json:"category_id"`
	BestScorePercent float64   `json:"best_score_percent"`
	LastPassedAt     time.Time `json:"last_passed_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CategoryStanding is the tracker's verdict for one category.
// BestScore is withheld (zero) when the last pass has expired.
type CategoryStanding struct {
	CategoryID   int64     `json:"category_id"`
	ValidPass    bool      `json:"valid_pass"`
	ExpiringSoon bool      `json:"expiring_soon"`
	BestScore    float64   `json:"best_score,omitempty"`
	LastPassedAt time.Time `json:"last_passed_at"`
}

// RankFraction is a ladder row as configured: the threshold is a fraction of
// the maximum achievable points, so named ranks stay meaningful as the
// active category count changes.
type RankFraction struct {
	Name        string  `json:"name"`
	Icon        string  `json:"icon"`
	MinFraction float64 `json:"min_fraction"`
}

// Rank is a materialized ladder entry with the threshold in points.
type Rank struct {
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	MinPoints int    `json:"min_points"`
}
