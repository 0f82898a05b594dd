package models

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

// ── Request Types ─────────────────────────────────────────

type StartTestRequest struct {
	QuestionCount int    `json:"question_count,omitempty"` // 0 = configured default
	CategoryID    *int64 `json:"category_id,omitempty"`
	Interleave    bool   `json:"interleave,omitempty"` // shuffle across difficulty groups for presentation
}

type SubmitAnswerRequest struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"` // displayed label A-D
}

// ── Response Types ────────────────────────────────────────

// TestQuestion is a presented question: options already shuffled, correct
// label withheld.
type TestQuestion struct {
	QuestionID int64      `json:"question_id"`
	Position   int        `json:"position"`
	Text       string     `json:"text"`
	Options    [4]string  `json:"options"` // texts in display order A-D
	Difficulty Difficulty `json:"difficulty"`
}

type DifficultySplit struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

type StartTestResponse struct {
	AttemptToken     string          `json:"attempt_token"`
	Questions        []TestQuestion  `json:"questions"`
	Target           DifficultySplit `json:"target_distribution"`
	Actual           DifficultySplit `json:"actual_distribution"`
	FallbackUsed     bool            `json:"fallback_used"`
	TimeLimitSeconds int             `json:"time_limit_seconds"`
	StartedAt        time.Time       `json:"started_at"`
}

type SubmitAnswerResponse struct {
	QuestionID    int64   `json:"question_id"`
	IsCorrect     bool    `json:"is_correct"`
	CorrectOption *string `json:"correct_option,omitempty"` // displayed label, only when reveal is enabled
	Answered      int     `json:"answered"`
	Total         int     `json:"total"`
}

type CompleteTestResponse struct {
	AttemptToken     string        `json:"attempt_token"`
	Status           AttemptStatus `json:"status"`
	CorrectAnswers   int           `json:"correct_answers"`
	TotalQuestions   int           `json:"total_questions"`
	ScorePercent     float64       `json:"score_percent"`
	Passed           bool          `json:"passed"`
	NewBestScore     bool          `json:"new_best_score"`
	TimeSpentSeconds int           `json:"time_spent_seconds"`
}

type AttemptHistoryEntry struct {
	AttemptToken   string        `json:"attempt_token"`
	CategoryID     *int64        `json:"category_id,omitempty"`
	CategoryName   string        `json:"category_name,omitempty"`
	ScorePercent   float64       `json:"score_percent"`
	Passed         bool          `json:"passed"`
	Status         AttemptStatus `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	TotalQuestions int           `json:"total_questions"`
}

type HistoryResponse struct {
	Attempts []AttemptHistoryEntry `json:"attempts"`
}

type ProfileSummaryResponse struct {
	RankName            string  `json:"rank_name"`
	RankIcon            string  `json:"rank_icon"`
	CertificationPoints int     `json:"certification_points"`
	MaxAchievablePoints int     `json:"max_achievable_points"`
	ProgressPercent     int     `json:"overall_progress_percent"`
	ProgressBar         string  `json:"overall_progress_bar"`
	PassedCategories    int     `json:"passed_categories"`
	ExpiringSoon        []int64 `json:"expiring_soon,omitempty"` // category ids
	Expired             []int64 `json:"expired,omitempty"`       // previously passed, window lapsed
	NextRankName        string  `json:"next_rank_name,omitempty"`
	NextRankIcon        string  `json:"next_rank_icon,omitempty"`
	PointsToNextRank    int     `json:"points_to_next_rank,omitempty"`
}

type CategoryStandingEntry struct {
	CategoryID   int64      `json:"category_id"`
	CategoryName string     `json:"category_name"`
	ValidPass    bool       `json:"valid_pass"`
	ExpiringSoon bool       `json:"expiring_soon"`
	BestScore    float64    `json:"best_score,omitempty"`
	LastPassedAt *time.Time `json:"last_passed_at,omitempty"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
}

type CategoryStandingsResponse struct {
	Categories []CategoryStandingEntry `json:"categories"`
}
