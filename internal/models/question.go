package models

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

// AscendingDifficulties orders the buckets from most to least approachable.
// Quota remainders and deficit fills walk this slice front to back.
var AscendingDifficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// OptionLabels are the canonical answer labels, in canonical order.
var OptionLabels = [4]string{"A", "B", "C", "D"}

type Question struct {
	ID            int64      `json:"id"`
	Text          string     `json:"text"`
	OptionA       string     `json:"option_a"`
	OptionB       string     `json:"option_b"`
	OptionC       string     `json:"option_c"`
	OptionD       string     `json:"option_d"`
	CorrectOption string     `json:"correct_option"` // canonical label A-D
	Difficulty    Difficulty `json:"difficulty"`
	Active        bool       `json:"active"`
	RelevantUntil *time.Time `json:"relevant_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Option returns the option text for a canonical label, or "" for an unknown label.
func (q *Question) Option(label string) string {
	switch label {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	DisplayOrder int       `json:"display_order"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
