package assessment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sbs-helper/certification-backend/internal/models"
	"github.com/sbs-helper/certification-backend/internal/settings"
)

var (
	// ErrEmptyPool means no eligible questions exist for the requested
	// scope. A test is never silently started short.
	ErrEmptyPool = errors.New("no questions available")

	ErrAttemptNotFound = errors.New("attempt not found")

	// ErrAttemptFinished means the attempt already reached a terminal status.
	ErrAttemptFinished = errors.New("attempt already finished")

	ErrQuestionNotInAttempt = errors.New("question is not part of this attempt")

	ErrInvalidAnswer = errors.New("answer must be one of A, B, C, D")
)

// Storage is the attempt and question-pool persistence the assembler needs.
// Implemented by *Store; tests substitute an in-memory fake.
type Storage interface {
	FetchPool(ctx context.Context, categoryID *int64, difficulty models.Difficulty) ([]models.Question, error)
	Question(ctx context.Context, id int64) (*models.Question, error)
	CreateAttempt(ctx context.Context, attempt *models.Attempt, questions []models.AttemptQuestion) error
	AttemptByToken(ctx context.Context, token string) (*models.Attempt, error)
	AttemptQuestion(ctx context.Context, attemptID, questionID int64) (*models.AttemptQuestion, error)
	SaveAnswer(ctx context.Context, ans *models.Answer) error
	CountAnswers(ctx context.Context, attemptID int64) (answered, correct int, err error)
	FinishAttempt(ctx context.Context, a *models.Attempt) (bool, error)
	CancelInProgress(ctx context.Context, userID int64) (int, error)
	History(ctx context.Context, userID int64, limit int) ([]models.AttemptHistoryEntry, error)
}

// PassRecorder receives passing category-scoped results. Implemented by the
// mastery store's atomic best-score upsert.
type PassRecorder interface {
	RecordPass(ctx context.Context, userID, categoryID int64, scorePercent float64, now time.Time) (bool, error)
}

type Service struct {
	store    Storage
	mastery  PassRecorder
	settings *settings.Provider
}

func NewService(store Storage, mastery PassRecorder, provider *settings.Provider) *Service {
	return &Service{store: store, mastery: mastery, settings: provider}
}

// BuildTest assembles a balanced test and opens an attempt for it.
//
// The three difficulty pools are fetched concurrently; the draw targets an
// even easy/medium/hard split, filling any bucket's shortfall from the other
// pools in ascending difficulty order. Questions come back grouped by
// ascending difficulty with each question's options freshly shuffled.
// The randomness source is supplied by the caller so tests can seed it.
func (s *Service) BuildTest(ctx context.Context, rng *rand.Rand, userID int64, totalCount int, categoryID *int64) (*models.StartTestResponse, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if totalCount <= 0 {
		totalCount = cfg.QuestionsCount
	}

	pools, err := s.fetchPools(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	var poolSizes models.DifficultySplit
	for d, pool := range pools {
		setCount(&poolSizes, d, len(pool))
	}
	if splitTotal(poolSizes) == 0 {
		return nil, ErrEmptyPool
	}

	target := TargetQuota(totalCount)
	draw, fallbackUsed := PlanDraw(target, poolSizes)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("test assembly cancelled: %w", err)
	}

	// Stale in-progress attempts are superseded by the new test.
	if n, err := s.store.CancelInProgress(ctx, userID); err != nil {
		return nil, err
	} else if n > 0 {
		log.Printf("assessment: cancelled %d stale attempt(s) for user %d", n, userID)
	}

	attempt := &models.Attempt{
		Token:            uuid.NewString(),
		UserID:           userID,
		CategoryID:       categoryID,
		TotalQuestions:   splitTotal(draw),
		Status:           models.AttemptInProgress,
		TimeLimitSeconds: int(cfg.TimeLimit / time.Second),
		StartedAt:        time.Now(),
	}

	var presented []models.TestQuestion
	var attemptQuestions []models.AttemptQuestion
	position := 0
	for _, d := range models.AscendingDifficulties {
		for _, q := range samplePool(rng, pools[d], count(draw, d)) {
			position++
			options, displayOrder := ShuffleOptions(rng, &q)
			presented = append(presented, models.TestQuestion{
				QuestionID: q.ID,
				Position:   position,
				Text:       q.Text,
				Options:    options,
				Difficulty: q.Difficulty,
			})
			attemptQuestions = append(attemptQuestions, models.AttemptQuestion{
				QuestionID:   q.ID,
				Position:     position,
				DisplayOrder: displayOrder,
			})
		}
	}

	if err := s.store.CreateAttempt(ctx, attempt, attemptQuestions); err != nil {
		return nil, err
	}

	return &models.StartTestResponse{
		AttemptToken:     attempt.Token,
		Questions:        presented,
		Target:           target,
		Actual:           draw,
		FallbackUsed:     fallbackUsed,
		TimeLimitSeconds: attempt.TimeLimitSeconds,
		StartedAt:        attempt.StartedAt,
	}, nil
}

// fetchPools issues the three per-difficulty reads concurrently. They are
// independent read-only queries; results are keyed by difficulty so the
// merge does not depend on arrival order.
func (s *Service) fetchPools(ctx context.Context, categoryID *int64) (map[models.Difficulty][]models.Question, error) {
	fetched := make([][]models.Question, len(models.AscendingDifficulties))
	g, gctx := errgroup.WithContext(ctx)

	for i, d := range models.AscendingDifficulties {
		i, d := i, d
		g.Go(func() error {
			pool, err := s.store.FetchPool(gctx, categoryID, d)
			if err != nil {
				return err
			}
			fetched[i] = pool
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("test assembly cancelled: %w", err)
		}
		return nil, err
	}

	pools := make(map[models.Difficulty][]models.Question, len(fetched))
	for i, d := range models.AscendingDifficulties {
		pools[d] = fetched[i]
	}
	return pools, nil
}

// samplePool draws a uniform random sample without replacement.
func samplePool(rng *rand.Rand, pool []models.Question, n int) []models.Question {
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}
	sample := make([]models.Question, 0, n)
	for _, idx := range rng.Perm(len(pool))[:n] {
		sample = append(sample, pool[idx])
	}
	return sample
}

// SubmitAnswer resolves the chosen display label through the attempt's
// stored mapping back to the canonical label before scoring it.
func (s *Service) SubmitAnswer(ctx context.Context, userID int64, token string, questionID int64, displayAnswer string) (*models.SubmitAnswerResponse, error) {
	attempt, err := s.ownedAttempt(ctx, userID, token)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptFinished
	}

	aq, err := s.store.AttemptQuestion(ctx, attempt.ID, questionID)
	if err != nil {
		return nil, err
	}
	if aq == nil {
		return nil, ErrQuestionNotInAttempt
	}

	canonical := aq.ResolveDisplayLabel(displayAnswer)
	if canonical == "" {
		return nil, ErrInvalidAnswer
	}

	question, err := s.store.Question(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, ErrQuestionNotInAttempt
	}

	now := time.Now()
	isCorrect := canonical == question.CorrectOption
	if err := s.store.SaveAnswer(ctx, &models.Answer{
		AttemptID:  attempt.ID,
		QuestionID: questionID,
		Position:   aq.Position,
		UserAnswer: &canonical,
		IsCorrect:  isCorrect,
		AnsweredAt: &now,
	}); err != nil {
		return nil, err
	}

	answered, _, err := s.store.CountAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	resp := &models.SubmitAnswerResponse{
		QuestionID: questionID,
		IsCorrect:  isCorrect,
		Answered:   answered,
		Total:      attempt.TotalQuestions,
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.ShowCorrectAnswer {
		display := DisplayLabelFor(aq.DisplayOrder, question.CorrectOption)
		resp.CorrectOption = &display
	}
	return resp, nil
}

// CompleteAttempt scores and closes an attempt. Completion past the time
// limit records the attempt as expired: it is kept for audit but never feeds
// category mastery. A completed passing attempt scoped to a category records
// its score through the mastery upsert.
func (s *Service) CompleteAttempt(ctx context.Context, userID int64, token string) (*models.CompleteTestResponse, error) {
	attempt, err := s.ownedAttempt(ctx, userID, token)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptFinished
	}

	_, correct, err := s.store.CountAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	deadline := attempt.StartedAt.Add(time.Duration(attempt.TimeLimitSeconds) * time.Second)

	status := models.AttemptCompleted
	if now.After(deadline) {
		status = models.AttemptExpired
	}

	var score float64
	if attempt.TotalQuestions > 0 {
		score = float64(correct) / float64(attempt.TotalQuestions) * 100
	}
	score = math.Round(score*100) / 100

	passed := status == models.AttemptCompleted && score >= float64(cfg.PassingScorePercent)

	attempt.CorrectAnswers = correct
	attempt.ScorePercent = score
	attempt.Passed = passed
	attempt.Status = status
	attempt.CompletedAt = &now

	updated, err := s.store.FinishAttempt(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrAttemptFinished
	}

	newBest := false
	if passed && attempt.CategoryID != nil {
		newBest, err = s.mastery.RecordPass(ctx, userID, *attempt.CategoryID, score, now)
		if err != nil {
			return nil, fmt.Errorf("record category pass: %w", err)
		}
	}

	return &models.CompleteTestResponse{
		AttemptToken:     attempt.Token,
		Status:           status,
		CorrectAnswers:   correct,
		TotalQuestions:   attempt.TotalQuestions,
		ScorePercent:     score,
		Passed:           passed,
		NewBestScore:     newBest,
		TimeSpentSeconds: int(now.Sub(attempt.StartedAt) / time.Second),
	}, nil
}

// CancelAttempt abandons an in-progress attempt. Cancelled attempts are
// retained for audit and never scored.
func (s *Service) CancelAttempt(ctx context.Context, userID int64, token string) error {
	attempt, err := s.ownedAttempt(ctx, userID, token)
	if err != nil {
		return err
	}
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptFinished
	}

	now := time.Now()
	attempt.Status = models.AttemptCancelled
	attempt.CompletedAt = &now

	updated, err := s.store.FinishAttempt(ctx, attempt)
	if err != nil {
		return err
	}
	if !updated {
		return ErrAttemptFinished
	}
	return nil
}

func (s *Service) History(ctx context.Context, userID int64, limit int) (*models.HistoryResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	attempts, err := s.store.History(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return &models.HistoryResponse{Attempts: attempts}, nil
}

func (s *Service) ownedAttempt(ctx context.Context, userID int64, token string) (*models.Attempt, error) {
	attempt, err := s.store.AttemptByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if attempt == nil || attempt.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}
