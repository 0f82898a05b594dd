package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sbs-helper/certification-backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// FetchPool returns the eligible questions for one difficulty bucket:
// active, not past their relevance date, optionally scoped to a category.
func (s *Store) FetchPool(ctx context.Context, categoryID *int64, difficulty models.Difficulty) ([]models.Question, error) {
	query := `
		SELECT q.id, q.question_text, q.option_a, q.option_b, q.option_c, q.option_d,
		       q.correct_option, q.difficulty, q.active, q.relevant_until,
		       q.created_at, q.updated_at
		FROM certification_questions q
		WHERE q.active
		  AND (q.relevant_until IS NULL OR q.relevant_until >= CURRENT_DATE)
		  AND q.difficulty = $1`
	args := []interface{}{string(difficulty)}

	if categoryID != nil {
		query += `
		  AND EXISTS (
		      SELECT 1 FROM certification_question_categories qc
		      WHERE qc.question_id = q.id AND qc.category_id = $2
		  )`
		args = append(args, *categoryID)
	}
	query += `
		ORDER BY q.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s pool: %w", difficulty, err)
	}
	defer rows.Close()

	var pool []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectOption, &q.Difficulty, &q.Active, &q.RelevantUntil,
			&q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		pool = append(pool, q)
	}
	return pool, rows.Err()
}

func (s *Store) Question(ctx context.Context, id int64) (*models.Question, error) {
	var q models.Question
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question_text, option_a, option_b, option_c, option_d,
		        correct_option, difficulty, active, relevant_until, created_at, updated_at
		 FROM certification_questions WHERE id = $1`,
		id,
	).Scan(&q.ID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
		&q.CorrectOption, &q.Difficulty, &q.Active, &q.RelevantUntil, &q.CreatedAt, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return &q, nil
}

// CreateAttempt inserts the attempt and its presented questions in one
// transaction, so a half-written test never becomes visible.
func (s *Store) CreateAttempt(ctx context.Context, attempt *models.Attempt, questions []models.AttemptQuestion) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attempt tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO certification_attempts
		     (token, userid, category_id, total_questions, time_limit_seconds, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		attempt.Token, attempt.UserID, attempt.CategoryID, attempt.TotalQuestions,
		attempt.TimeLimitSeconds, string(attempt.Status), attempt.StartedAt,
	).Scan(&attempt.ID)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	for i := range questions {
		questions[i].AttemptID = attempt.ID
		q := &questions[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO certification_attempt_questions (attempt_id, question_id, position, display_order)
			 VALUES ($1, $2, $3, $4)`,
			q.AttemptID, q.QuestionID, q.Position, packDisplayOrder(q.DisplayOrder),
		)
		if err != nil {
			return fmt.Errorf("insert attempt question: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) AttemptByToken(ctx context.Context, token string) (*models.Attempt, error) {
	var a models.Attempt
	err := s.db.QueryRowContext(ctx,
		`SELECT id, token, userid, category_id, total_questions, correct_answers,
		        score_percent, passed, status, time_limit_seconds, started_at, completed_at
		 FROM certification_attempts WHERE token = $1`,
		token,
	).Scan(&a.ID, &a.Token, &a.UserID, &a.CategoryID, &a.TotalQuestions, &a.CorrectAnswers,
		&a.ScorePercent, &a.Passed, &a.Status, &a.TimeLimitSeconds, &a.StartedAt, &a.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return &a, nil
}

func (s *Store) AttemptQuestion(ctx context.Context, attemptID, questionID int64) (*models.AttemptQuestion, error) {
	var aq models.AttemptQuestion
	var packed string
	err := s.db.QueryRowContext(ctx,
		`SELECT attempt_id, question_id, position, display_order
		 FROM certification_attempt_questions
		 WHERE attempt_id = $1 AND question_id = $2`,
		attemptID, questionID,
	).Scan(&aq.AttemptID, &aq.QuestionID, &aq.Position, &packed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt question: %w", err)
	}
	order, err := unpackDisplayOrder(packed)
	if err != nil {
		return nil, err
	}
	aq.DisplayOrder = order
	return &aq, nil
}

// SaveAnswer records an answer, overwriting any previous answer to the same
// question within the attempt.
func (s *Store) SaveAnswer(ctx context.Context, ans *models.Answer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO certification_answers (attempt_id, question_id, position, user_answer, is_correct, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE SET
		     user_answer = EXCLUDED.user_answer,
		     is_correct = EXCLUDED.is_correct,
		     answered_at = EXCLUDED.answered_at`,
		ans.AttemptID, ans.QuestionID, ans.Position, ans.UserAnswer, ans.IsCorrect, ans.AnsweredAt,
	)
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

func (s *Store) CountAnswers(ctx context.Context, attemptID int64) (answered, correct int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_correct)
		 FROM certification_answers WHERE attempt_id = $1`,
		attemptID,
	).Scan(&answered, &correct)
	if err != nil {
		return 0, 0, fmt.Errorf("count answers: %w", err)
	}
	return answered, correct, nil
}

// FinishAttempt moves an in-progress attempt to a terminal status. Returns
// false when another writer already finished it.
func (s *Store) FinishAttempt(ctx context.Context, a *models.Attempt) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE certification_attempts SET
		     correct_answers = $2, score_percent = $3, passed = $4,
		     status = $5, completed_at = $6
		 WHERE id = $1 AND status = 'in_progress'`,
		a.ID, a.CorrectAnswers, a.ScorePercent, a.Passed, string(a.Status), a.CompletedAt,
	)
	if err != nil {
		return false, fmt.Errorf("finish attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finish attempt rows: %w", err)
	}
	return n > 0, nil
}

// CancelInProgress cancels every in-progress attempt of a user and returns
// how many were cancelled. Starting a fresh test calls this first.
func (s *Store) CancelInProgress(ctx context.Context, userID int64) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE certification_attempts
		 SET status = 'cancelled', completed_at = $2
		 WHERE userid = $1 AND status = 'in_progress'`,
		userID, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("cancel attempts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel attempts rows: %w", err)
	}
	return int(n), nil
}

func (s *Store) History(ctx context.Context, userID int64, limit int) ([]models.AttemptHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.token, a.category_id, COALESCE(c.name, ''), a.score_percent, a.passed,
		        a.status, a.started_at, a.completed_at, a.total_questions
		 FROM certification_attempts a
		 LEFT JOIN certification_categories c ON c.id = a.category_id
		 WHERE a.userid = $1 AND a.status != 'in_progress'
		 ORDER BY a.started_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []models.AttemptHistoryEntry
	for rows.Next() {
		var e models.AttemptHistoryEntry
		if err := rows.Scan(&e.AttemptToken, &e.CategoryID, &e.CategoryName, &e.ScorePercent,
			&e.Passed, &e.Status, &e.StartedAt, &e.CompletedAt, &e.TotalQuestions); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func packDisplayOrder(order [4]string) string {
	return order[0] + order[1] + order[2] + order[3]
}

func unpackDisplayOrder(packed string) ([4]string, error) {
	var order [4]string
	if len(packed) != 4 {
		return order, errors.New("malformed display order mapping")
	}
	for i := 0; i < 4; i++ {
		order[i] = string(packed[i])
	}
	return order, nil
}
