package assessment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/sbs-helper/certification-backend/internal/models"
	"github.com/sbs-helper/certification-backend/internal/settings"
)

// ── Fakes ─────────────────────────────────────────────────

type fakeLoader struct {
	values map[string]string
}

func (l *fakeLoader) LoadSettings(ctx context.Context) (map[string]string, error) {
	return l.values, nil
}

func (l *fakeLoader) LoadLadder(ctx context.Context) ([]models.RankFraction, error) {
	return nil, nil
}

type fakeStore struct {
	pools            map[models.Difficulty][]models.Question
	attempts         map[string]models.Attempt
	attemptQuestions map[int64][]models.AttemptQuestion
	answers          map[int64]map[int64]models.Answer
	nextID           int64
	fetchCalls       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pools:            map[models.Difficulty][]models.Question{},
		attempts:         map[string]models.Attempt{},
		attemptQuestions: map[int64][]models.AttemptQuestion{},
		answers:          map[int64]map[int64]models.Answer{},
	}
}

func (s *fakeStore) addQuestions(difficulty models.Difficulty, count int, correct string) {
	for i := 0; i < count; i++ {
		s.nextID++
		s.pools[difficulty] = append(s.pools[difficulty], models.Question{
			ID:            s.nextID,
			Text:          fmt.Sprintf("question %d", s.nextID),
			OptionA:       "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectOption: correct,
			Difficulty:    difficulty,
			Active:        true,
		})
	}
}

func (s *fakeStore) FetchPool(ctx context.Context, categoryID *int64, difficulty models.Difficulty) ([]models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.fetchCalls++
	return s.pools[difficulty], nil
}

func (s *fakeStore) Question(ctx context.Context, id int64) (*models.Question, error) {
	for _, pool := range s.pools {
		for _, q := range pool {
			if q.ID == id {
				return &q, nil
			}
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateAttempt(ctx context.Context, attempt *models.Attempt, questions []models.AttemptQuestion) error {
	s.nextID++
	attempt.ID = s.nextID
	for i := range questions {
		questions[i].AttemptID = attempt.ID
	}
	s.attempts[attempt.Token] = *attempt
	s.attemptQuestions[attempt.ID] = questions
	return nil
}

func (s *fakeStore) AttemptByToken(ctx context.Context, token string) (*models.Attempt, error) {
	a, ok := s.attempts[token]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *fakeStore) AttemptQuestion(ctx context.Context, attemptID, questionID int64) (*models.AttemptQuestion, error) {
	for _, aq := range s.attemptQuestions[attemptID] {
		if aq.QuestionID == questionID {
			return &aq, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SaveAnswer(ctx context.Context, ans *models.Answer) error {
	if s.answers[ans.AttemptID] == nil {
		s.answers[ans.AttemptID] = map[int64]models.Answer{}
	}
	s.answers[ans.AttemptID][ans.QuestionID] = *ans
	return nil
}

func (s *fakeStore) CountAnswers(ctx context.Context, attemptID int64) (int, int, error) {
	answered, correct := 0, 0
	for _, a := range s.answers[attemptID] {
		answered++
		if a.IsCorrect {
			correct++
		}
	}
	return answered, correct, nil
}

func (s *fakeStore) FinishAttempt(ctx context.Context, a *models.Attempt) (bool, error) {
	stored, ok := s.attempts[a.Token]
	if !ok || stored.Status != models.AttemptInProgress {
		return false, nil
	}
	s.attempts[a.Token] = *a
	return true, nil
}

func (s *fakeStore) CancelInProgress(ctx context.Context, userID int64) (int, error) {
	n := 0
	for token, a := range s.attempts {
		if a.UserID == userID && a.Status == models.AttemptInProgress {
			a.Status = models.AttemptCancelled
			s.attempts[token] = a
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) History(ctx context.Context, userID int64, limit int) ([]models.AttemptHistoryEntry, error) {
	var out []models.AttemptHistoryEntry
	for _, a := range s.attempts {
		if a.UserID == userID && a.Status != models.AttemptInProgress {
			out = append(out, models.AttemptHistoryEntry{AttemptToken: a.Token, Status: a.Status})
		}
	}
	return out, nil
}

type fakeRecorder struct {
	calls []recordedPass
}

type recordedPass struct {
	userID     int64
	categoryID int64
	score      float64
}

func (r *fakeRecorder) RecordPass(ctx context.Context, userID, categoryID int64, score float64, now time.Time) (bool, error) {
	r.calls = append(r.calls, recordedPass{userID, categoryID, score})
	return true, nil
}

func newTestService(store *fakeStore, recorder *fakeRecorder) *Service {
	loader := &fakeLoader{values: map[string]string{
		"questions_count":       "10",
		"time_limit_minutes":    "15",
		"passing_score_percent": "80",
	}}
	return NewService(store, recorder, settings.NewProvider(loader, time.Minute))
}

// ── BuildTest ─────────────────────────────────────────────

func TestBuildTestExactCount(t *testing.T) {
	store := newFakeStore()
	store.addQuestions(models.DifficultyEasy, 10, "A")
	store.addQuestions(models.DifficultyMedium, 10, "B")
	store.addQuestions(models.DifficultyHard, 10, "C")
	svc := newTestService(store, &fakeRecorder{})

	rng := rand.New(rand.NewSource(1))
	resp, err := svc.BuildTest(context.Background(), rng, 7, 10, nil)
	if err != nil {
		t.Fatalf("BuildTest: %v", err)
	}

	if len(resp.Questions) != 10 {
		t.Fatalf("got %d questions, want 10", len(resp.Questions))
	}
	if resp.FallbackUsed {
		t.Error("fallback used with ample pools")
	}
	if resp.Target != (models.DifficultySplit{Easy: 4, Medium: 3, Hard: 3}) {
		t.Errorf("target = %+v", resp.Target)
	}
	if resp.Actual != resp.Target {
		t.Errorf("actual %+v != target %+v with ample pools", resp.Actual, resp.Target)
	}

	seen := map[int64]bool{}
	rank := map[models.Difficulty]int{models.DifficultyEasy: 0, models.DifficultyMedium: 1, models.DifficultyHard: 2}
	lastRank := 0
	for i, q := range resp.Questions {
		if seen[q.QuestionID] {
			t.Errorf("duplicate question id %d", q.QuestionID)
		}
		seen[q.QuestionID] = true
		if r := rank[q.Difficulty]; r < lastRank {
			t.Errorf("question %d breaks ascending difficulty grouping", i)
		} else {
			lastRank = r
		}
		if q.Position != i+1 {
			t.Errorf("question %d has position %d", i, q.Position)
		}
	}
}

func TestBuildTestFallback(t *testing.T) {
	store := newFakeStore()
	store.addQuestions(models.DifficultyEasy, 10, "A")
	store.addQuestions(models.DifficultyMedium, 10, "A")
	store.addQuestions(models.DifficultyHard, 1, "A")
	svc := newTestService(store, &fakeRecorder{})

	resp, err := svc.BuildTest(context.Background(), rand.New(rand.NewSource(2)), 7, 9, nil)
	if err != nil {
		t.Fatalf("BuildTest: %v", err)
	}

	if !resp.FallbackUsed {
		t.Error("fallback not flagged")
	}
	if len(resp.Questions) != 9 {
		t.Errorf("got %d questions, want 9", len(resp.Questions))
	}
	if resp.Actual.Hard != 1 {
		t.Errorf("actual hard = %d, want the whole pool of 1", resp.Actual.Hard)
	}
	if got := resp.Actual.Easy + resp.Actual.Medium + resp.Actual.Hard; got != 9 {
		t.Errorf("actual sums to %d, want 9", got)
	}
}

func TestBuildTestEmptyPool(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeRecorder{})

	_, err := svc.BuildTest(context.Background(), rand.New(rand.NewSource(3)), 7, 10, nil)
	if !errors.Is(err, ErrEmptyPool) {
		t.Errorf("err = %v, want ErrEmptyPool", err)
	}
}

func TestBuildTestCancelled(t *testing.T) {
	store := newFakeStore()
	store.addQuestions(models.DifficultyEasy, 5, "A")
	svc := newTestService(store, &fakeRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.BuildTest(ctx, rand.New(rand.NewSource(4)), 7, 10, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(store.attempts) != 0 {
		t.Error("cancelled build still created an attempt")
	}
}

func TestBuildTestSupersedesStaleAttempt(t *testing.T) {
	store := newFakeStore()
	store.addQuestions(models.DifficultyEasy, 10, "A")
	svc := newTestService(store, &fakeRecorder{})
	ctx := context.Background()

	first, err := svc.BuildTest(ctx, rand.New(rand.NewSource(5)), 7, 3, nil)
	if err != nil {
		t.Fatalf("first BuildTest: %v", err)
	}
	if _, err := svc.BuildTest(ctx, rand.New(rand.NewSource(6)), 7, 3, nil); err != nil {
		t.Fatalf("second BuildTest: %v", err)
	}

	if got := store.attempts[first.AttemptToken].Status; got != models.AttemptCancelled {
		t.Errorf("first attempt status = %s, want cancelled", got)
	}
}

// ── Answer and completion flow ────────────────────────────

func TestSubmitAndCompleteFlow(t *testing.T) {
	store := newFakeStore()
	store.addQuestions(models.DifficultyEasy, 2, "B")
	store.addQuestions(models.DifficultyMedium, 2, "B")
	store.addQuestions(models.DifficultyHard, 2, "B")
	recorder := &fakeRecorder{}
	svc := newTestService(store, recorder)
	ctx := context.Background()

	categoryID := int64(3)
	resp, err := svc.BuildTest(ctx, rand.New(rand.NewSource(7)), 7, 6, &categoryID)
	if err != nil {
		t.Fatalf("BuildTest: %v", err)
	}

	attempt := store.attempts[resp.AttemptToken]
	for _, aq := range store.attemptQuestions[attempt.ID] {
		// Answer with the display label behind which canonical B hides.
		display := DisplayLabelFor(aq.DisplayOrder, "B")
		ansResp, err := svc.SubmitAnswer(ctx, 7, resp.AttemptToken, aq.QuestionID, display)
		if err != nil {
			t.Fatalf("SubmitAnswer(%d): %v", aq.QuestionID, err)
		}
		if !ansResp.IsCorrect {
			t.Errorf("answer to question %d scored incorrect", aq.QuestionID)
		}
	}

	result, err := svc.CompleteAttempt(ctx, 7, resp.AttemptToken)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if result.Status != models.AttemptCompleted {
		t.Errorf("status = %s, want completed", result.Status)
	}
	if result.ScorePercent != 100 {
		t.Errorf("score = %v, want 100", result.ScorePercent)
	}
	if !result.Passed {
		t.Error("perfect score did not pass")
	}
	if len(recorder.calls) != 1 {
		t.Fatalf("RecordPass called %d times, want 1", len(recorder.calls))
	}
	if recorder.calls[0].categoryID != categoryID || recorder.calls[0].score != 100 {
		t.Errorf("RecordPass got %+v", recorder.calls[0])
	}

	// Completing again is a conflict, not a rescore.
	if _, err := svc.CompleteAttempt(ctx, 7, resp.AttemptToken); !errors.Is(err, ErrAttemptFinished) {
		t.Errorf("second complete err = %v, want ErrAttemptFinished", err)
	}
}

func TestCompleteFailingScoreDoesNotRecord(t *testing.T) {
	store := newFakeStore()
	store.addQuestions(models.DifficultyEasy, 4, "A")
	recorder := &fakeRecorder{}
	svc := newTestService(store, recorder)
	ctx := context.Background()

	categoryID := int64(1)
	resp, err := svc.BuildTest(ctx, rand.New(rand.NewSource(8)), 9, 4, &categoryID)
	if err != nil {
		t.Fatalf("BuildTest: %v", err)
	}

	// Answer nothing: score 0, below the 80% pass mark.
	result, err := svc.CompleteAttempt(ctx, 9, resp.AttemptToken)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if result.Passed {
		t.Error("zero score passed")
	}
	if len(recorder.calls) != 0 {
		t.Errorf("RecordPass called for a failing attempt")
	}
}

func TestCompleteAfterDeadlineExpires(t *testing.T) {
	store := newFakeStore()
	store.addQuestions(models.DifficultyEasy, 4, "A")
	recorder := &fakeRecorder{}
	svc := newTestService(store, recorder)
	ctx := context.Background()

	categoryID := int64(1)
	resp, err := svc.BuildTest(ctx, rand.New(rand.NewSource(9)), 9, 4, &categoryID)
	if err != nil {
		t.Fatalf("BuildTest: %v", err)
	}

	// Backdate the attempt past its time limit.
	attempt := store.attempts[resp.AttemptToken]
	attempt.StartedAt = attempt.StartedAt.Add(-time.Hour)
	store.attempts[resp.AttemptToken] = attempt

	for _, aq := range store.attemptQuestions[attempt.ID] {
		if _, err := svc.SubmitAnswer(ctx, 9, resp.AttemptToken, aq.QuestionID, "A"); err != nil {
			t.Fatalf("SubmitAnswer: %v", err)
		}
	}

	result, err := svc.CompleteAttempt(ctx, 9, resp.AttemptToken)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if result.Status != models.AttemptExpired {
		t.Errorf("status = %s, want expired", result.Status)
	}
	if result.Passed {
		t.Error("expired attempt passed")
	}
	if len(recorder.calls) != 0 {
		t.Error("expired attempt fed mastery")
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	store := newFakeStore()
	store.addQuestions(models.DifficultyEasy, 4, "A")
	svc := newTestService(store, &fakeRecorder{})
	ctx := context.Background()

	resp, err := svc.BuildTest(ctx, rand.New(rand.NewSource(10)), 11, 4, nil)
	if err != nil {
		t.Fatalf("BuildTest: %v", err)
	}
	questionID := resp.Questions[0].QuestionID

	if _, err := svc.SubmitAnswer(ctx, 11, "no-such-token", questionID, "A"); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("unknown token err = %v, want ErrAttemptNotFound", err)
	}
	if _, err := svc.SubmitAnswer(ctx, 99, resp.AttemptToken, questionID, "A"); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("foreign user err = %v, want ErrAttemptNotFound", err)
	}
	if _, err := svc.SubmitAnswer(ctx, 11, resp.AttemptToken, 9999, "A"); !errors.Is(err, ErrQuestionNotInAttempt) {
		t.Errorf("foreign question err = %v, want ErrQuestionNotInAttempt", err)
	}
	if _, err := svc.SubmitAnswer(ctx, 11, resp.AttemptToken, questionID, "E"); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("bad label err = %v, want ErrInvalidAnswer", err)
	}
}
