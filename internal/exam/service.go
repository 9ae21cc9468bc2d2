package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mockme/mockme/internal/grading"
	"github.com/mockme/mockme/internal/metrics"
	syncx "github.com/mockme/mockme/internal/sync"
)

// Entitlements answers whether a learner bought a test. Purchases live
// outside this service.
type Entitlements interface {
	HasPurchased(ctx context.Context, userID, testID string) (bool, error)
}

type EntitlementsFunc func(ctx context.Context, userID, testID string) (bool, error)

func (f EntitlementsFunc) HasPurchased(ctx context.Context, userID, testID string) (bool, error) {
	return f(ctx, userID, testID)
}

// AllowAll treats every test as purchased.
var AllowAll = EntitlementsFunc(func(context.Context, string, string) (bool, error) { return true, nil })

type Service struct {
	store   Store
	grader  *grading.Grader
	access  Entitlements
	events  syncx.Publisher
	metrics *metrics.Metrics
	log     *zap.Logger
}

type Option func(*Service)

func WithEntitlements(e Entitlements) Option { return func(s *Service) { s.access = e } }
func WithPublisher(p syncx.Publisher) Option { return func(s *Service) { s.events = p } }
func WithMetrics(m *metrics.Metrics) Option  { return func(s *Service) { s.metrics = m } }
func WithLogger(l *zap.Logger) Option        { return func(s *Service) { s.log = l } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		grader: grading.NewDefaultGrader(),
		access: AllowAll,
		events: syncx.Nop{},
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Store() Store { return s.store }

// Submit grades a submission against the stored answer key, ranks it against
// every earlier attempt of the same test and records it. Reading the score
// history and appending the new attempt are not serialized: two concurrent
// submissions may not see each other.
func (s *Service) Submit(ctx context.Context, userID, testID string, sub Submission) (Summary, error) {
	if sub.TimeSpentSec < 0 {
		s.metrics.ObserveSubmission("invalid", testID, 0)
		return Summary{}, fmt.Errorf("%w: negative time spent", ErrInvalidSubmission)
	}
	questions, err := s.store.LoadQuestions(ctx, testID)
	if err != nil {
		s.metrics.ObserveSubmission(outcomeOf(err), testID, 0)
		return Summary{}, err
	}
	if err := checkShapes(questions, sub.Answers); err != nil {
		s.metrics.ObserveSubmission("invalid", testID, 0)
		return Summary{}, err
	}

	out := s.grader.Grade(gradingKey(questions), responses(sub.Answers))

	history, err := s.store.ListScores(ctx, testID)
	if err != nil {
		s.metrics.ObserveSubmission("error", testID, 0)
		return Summary{}, fmt.Errorf("list scores: %w", err)
	}
	percentile := grading.Rank(out.Score, history)

	a, err := s.store.RecordAttempt(ctx, Attempt{
		UserID:       userID,
		TestID:       testID,
		Answers:      gradedAnswers(out.Results),
		Score:        out.Score,
		Accuracy:     out.Accuracy,
		TimeSpentSec: sub.TimeSpentSec,
		Percentile:   percentile,
	})
	if err != nil {
		s.metrics.ObserveSubmission("error", testID, 0)
		return Summary{}, fmt.Errorf("record attempt: %w", err)
	}
	s.metrics.ObserveSubmission("ok", testID, out.Accuracy)
	s.publishSubmitted(ctx, a)

	s.log.Info("attempt recorded",
		zap.String("attempt_id", a.ID),
		zap.String("test_id", testID),
		zap.String("user_id", userID),
		zap.Float64("score", a.Score),
		zap.Int("correct", out.Correct),
		zap.Int("total", out.Total),
		zap.Float64("percentile", percentile),
	)
	return Summary{
		Score:       a.Score,
		Percentile:  grading.Round2(a.Percentile),
		Accuracy:    grading.Round2(a.Accuracy),
		AIAvailable: true,
		AttemptID:   a.ID,
	}, nil
}

// Result returns a recorded attempt together with its test and the full
// answer key. Only the learner who made the attempt may read it.
func (s *Service) Result(ctx context.Context, userID, attemptID string) (Result, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Result{}, err
	}
	if a.UserID != userID {
		return Result{}, fmt.Errorf("attempt %q: %w", attemptID, ErrForbidden)
	}
	t, err := s.store.GetTest(ctx, a.TestID)
	if err != nil {
		return Result{}, err
	}
	qs, err := s.store.LoadQuestions(ctx, a.TestID)
	if err != nil {
		return Result{}, err
	}
	return Result{Attempt: a, Test: t, Questions: qs}, nil
}

// TestForLearner returns the test with answer keys and explanations removed.
// Learners who have not purchased it get the metadata only, marked locked.
func (s *Service) TestForLearner(ctx context.Context, userID, testID string) (TestWithQuestions, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return TestWithQuestions{}, err
	}
	ok, err := s.access.HasPurchased(ctx, userID, testID)
	if err != nil {
		return TestWithQuestions{}, err
	}
	if !ok {
		return TestWithQuestions{Test: t, Questions: []Question{}, Locked: true}, nil
	}
	qs, err := s.store.LoadQuestions(ctx, testID)
	if err != nil {
		return TestWithQuestions{}, err
	}
	for i := range qs {
		qs[i] = qs[i].Redacted()
	}
	return TestWithQuestions{Test: t, Questions: qs}, nil
}

// StartTest checks that the learner may sit the test.
func (s *Service) StartTest(ctx context.Context, userID, testID string) (Test, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return Test{}, err
	}
	ok, err := s.access.HasPurchased(ctx, userID, testID)
	if err != nil {
		return Test{}, err
	}
	if !ok {
		return Test{}, fmt.Errorf("test %q not purchased: %w", testID, ErrForbidden)
	}
	return t, nil
}

// Explain returns the stored explanation of a question, or a generic one
// naming the correct answer when none was uploaded.
func (s *Service) Explain(ctx context.Context, questionID string) (string, error) {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return "", err
	}
	if q.Explanation != "" {
		return q.Explanation, nil
	}
	key, err := json.Marshal(q.Correct)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("The correct answer is %s. This question requires understanding of the fundamental concepts. "+
		"Review the related topics for better clarity.", key), nil
}

func (s *Service) UserStats(ctx context.Context, userID string) (UserStats, error) {
	attempts, err := s.store.ListAttemptsByUser(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}
	st := UserStats{AccuracyTrend: []float64{}, TimeEfficiency: []int{}}
	if len(attempts) == 0 {
		return st, nil
	}
	sum := 0.0
	st.BestScore = attempts[0].Score
	for _, a := range attempts {
		sum += a.Score
		if a.Score > st.BestScore {
			st.BestScore = a.Score
		}
		st.AccuracyTrend = append(st.AccuracyTrend, grading.Round2(a.Accuracy))
		st.TimeEfficiency = append(st.TimeEfficiency, a.TimeSpentSec)
	}
	st.TestsAttempted = len(attempts)
	st.AverageScore = grading.Round2(sum / float64(len(attempts)))
	return st, nil
}

func (s *Service) publishSubmitted(ctx context.Context, a Attempt) {
	data, _ := json.Marshal(map[string]any{
		"attemptId":  a.ID,
		"userId":     a.UserID,
		"testId":     a.TestID,
		"score":      a.Score,
		"accuracy":   a.Accuracy,
		"percentile": a.Percentile,
	})
	err := s.events.Publish(ctx, syncx.Event{
		Type:      syncx.TypeAttemptSubmitted,
		Key:       a.ID,
		DataJSON:  string(data),
		CreatedAt: a.CreatedAt.Unix(),
	})
	if err != nil {
		// the attempt is already recorded; publish errors are only logged
		s.log.Warn("publish attempt event", zap.String("attempt_id", a.ID), zap.Error(err))
	}
}

// checkShapes rejects answers whose shape contradicts the question type.
// Blank answers and answers to unknown questions are always accepted.
func checkShapes(questions []Question, answers []SubmittedAnswer) error {
	types := make(map[string]QuestionType, len(questions))
	for _, q := range questions {
		types[q.ID] = q.Type
	}
	for _, ans := range answers {
		typ, ok := types[ans.QuestionID]
		if !ok {
			continue
		}
		switch {
		case typ == TypeMCQ && ans.Chosen.Kind == grading.KindMulti,
			typ == TypeMSQ && ans.Chosen.Kind == grading.KindSingle:
			return fmt.Errorf("%w: answer to %s does not match question type %s", ErrInvalidSubmission, ans.QuestionID, typ)
		}
	}
	return nil
}

func gradingKey(qs []Question) []grading.Q {
	out := make([]grading.Q, 0, len(qs))
	for _, q := range qs {
		out = append(out, grading.Q{ID: q.ID, Type: q.Type, Correct: q.Correct, Marks: q.Marks, NegativeMarks: q.NegativeMarks})
	}
	return out
}

func responses(answers []SubmittedAnswer) []grading.Response {
	out := make([]grading.Response, 0, len(answers))
	for _, a := range answers {
		out = append(out, grading.Response{QuestionID: a.QuestionID, Chosen: a.Chosen})
	}
	return out
}

func gradedAnswers(rs []grading.Result) []GradedAnswer {
	out := make([]GradedAnswer, 0, len(rs))
	for _, r := range rs {
		out = append(out, GradedAnswer{QuestionID: r.QuestionID, Chosen: r.Chosen, Verdict: r.Verdict, Points: r.Points})
	}
	return out
}

func outcomeOf(err error) string {
	if errors.Is(err, ErrNotFound) {
		return "not_found"
	}
	return "error"
}
