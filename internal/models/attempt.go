package models

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptCancelled  AttemptStatus = "cancelled"
	AttemptExpired    AttemptStatus = "expired"
)

var ValidAttemptStatuses = map[AttemptStatus]bool{
	AttemptInProgress: true,
	AttemptCompleted:  true,
	AttemptCancelled:  true,
	AttemptExpired:    true,
}

// Terminal reports whether the status ends the attempt lifecycle.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptCompleted || s == AttemptCancelled || s == AttemptExpired
}

type Attempt struct {
	ID               int64         `json:"id"`
	Token            string        `json:"token"` // public uuid handle for transport layers
	UserID           int64         `json:"user_id"`
	CategoryID       *int64        `json:"category_id,omitempty"` // nil = all categories
	TotalQuestions   int           `json:"total_questions"`
	CorrectAnswers   int           `json:"correct_answers"`
	ScorePercent     float64       `json:"score_percent"`
	Passed           bool          `json:"passed"`
	Status           AttemptStatus `json:"status"`
	TimeLimitSeconds int           `json:"time_limit_seconds"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}

// AttemptQuestion is one presented question of an attempt, with the
// display-to-canonical option mapping frozen at presentation time.
// DisplayOrder holds the canonical labels in display order: DisplayOrder[0]
// is the canonical label shown as "A", and so on.
type AttemptQuestion struct {
	AttemptID    int64     `json:"attempt_id"`
	QuestionID   int64     `json:"question_id"`
	Position     int       `json:"position"` // 1-based order within the test
	DisplayOrder [4]string `json:"display_order"`
}

// ResolveDisplayLabel maps a displayed label back to the canonical label.
// Returns "" for labels outside A-D.
func (aq *AttemptQuestion) ResolveDisplayLabel(display string) string {
	for i, label := range OptionLabels {
		if label == display {
			return aq.DisplayOrder[i]
		}
	}
	return ""
}

type Answer struct {
	AttemptID  int64      `json:"attempt_id"`
	QuestionID int64      `json:"question_id"`
	Position   int        `json:"position"`
	UserAnswer *string    `json:"user_answer,omitempty"` // canonical label, nil if timed out
	IsCorrect  bool       `json:"is_correct"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}
