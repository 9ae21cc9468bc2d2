package exam_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockme/mockme/internal/db"
	"github.com/mockme/mockme/internal/exam"
	"github.com/mockme/mockme/internal/grading"
)

func newSQLStore(t *testing.T) *exam.SQLStore {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })
	return exam.NewSQLStore(dbh, string(db.DriverSQLite))
}

func TestSQLStoreTestsAndQuestions(t *testing.T) {
	s := newSQLStore(t)
	ctx := context.Background()

	saved, err := s.PutTest(ctx, sampleTest())
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, saved.QuestionIDs)

	got, err := s.GetTest(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "GATE CS Mock 1", got.Title)
	assert.Equal(t, 180, got.DurationMin)
	assert.Equal(t, []string{"q1", "q2"}, got.QuestionIDs)

	qs, err := s.LoadQuestions(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, grading.Single(1), qs[0].Correct)
	assert.Equal(t, grading.Multi(0, 2), qs[1].Correct)
	assert.Equal(t, exam.TypeMSQ, qs[1].Type)
	assert.Equal(t, 0.33, qs[0].NegativeMarks)
	assert.Equal(t, []string{"2", "4", "5"}, qs[1].Options)

	list, err := s.ListTests(ctx, exam.ListOpts{ExamType: "GATE"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = s.ListTests(ctx, exam.ListOpts{ExamType: "CAT"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLStoreLoadQuestionsEdgeCases(t *testing.T) {
	s := newSQLStore(t)
	ctx := context.Background()

	_, err := s.LoadQuestions(ctx, "missing")
	assert.True(t, errors.Is(err, exam.ErrNotFound))

	_, err = s.PutTest(ctx, exam.TestWithQuestions{Test: exam.Test{ID: "empty", Title: "Empty", DurationMin: 30}})
	require.NoError(t, err)
	qs, err := s.LoadQuestions(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, qs)
	assert.Empty(t, qs)
}

func TestSQLStoreDeleteCascades(t *testing.T) {
	s := newSQLStore(t)
	ctx := context.Background()
	_, err := s.PutTest(ctx, sampleTest())
	require.NoError(t, err)

	require.NoError(t, s.DeleteTest(ctx, "t1"))
	_, err = s.GetTest(ctx, "t1")
	assert.True(t, errors.Is(err, exam.ErrNotFound))

	// question ids are primary keys, so reusing them proves the cascade ran
	again := sampleTest()
	again.ID = "t2"
	_, err = s.PutTest(ctx, again)
	require.NoError(t, err)

	assert.True(t, errors.Is(s.DeleteTest(ctx, "nope"), exam.ErrNotFound))
}

func TestSQLStoreAttempts(t *testing.T) {
	s := newSQLStore(t)
	ctx := context.Background()

	rec, err := s.RecordAttempt(ctx, exam.Attempt{
		UserID: "u1",
		TestID: "t1",
		Answers: []exam.GradedAnswer{
			{QuestionID: "q1", Chosen: grading.Single(0), Verdict: grading.VerdictIncorrect, Points: -0.33},
			{QuestionID: "q2", Chosen: grading.None(), Verdict: grading.VerdictUnattempted},
		},
		Score:        -0.33,
		TimeSpentSec: 42,
		Percentile:   12.5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	got, err := s.GetAttempt(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, -0.33, got.Score)
	assert.Equal(t, 12.5, got.Percentile)
	assert.Equal(t, 42, got.TimeSpentSec)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Millisecond)
	require.Len(t, got.Answers, 2)
	assert.Equal(t, grading.Single(0), got.Answers[0].Chosen)
	assert.True(t, got.Answers[1].Chosen.IsNone())

	_, err = s.RecordAttempt(ctx, exam.Attempt{UserID: "u2", TestID: "t1", Score: 2})
	require.NoError(t, err)
	_, err = s.RecordAttempt(ctx, exam.Attempt{UserID: "u1", TestID: "t2", Score: 7})
	require.NoError(t, err)

	scores, err := s.ListScores(ctx, "t1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []float64{-0.33, 2}, scores)

	mine, err := s.ListAttemptsByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = s.GetAttempt(ctx, "missing")
	assert.True(t, errors.Is(err, exam.ErrNotFound))
}

func TestSQLStoreRejectsInvalidQuestion(t *testing.T) {
	s := newSQLStore(t)
	tw := sampleTest()
	tw.Questions[0].Correct = grading.Single(7)
	_, err := s.PutTest(context.Background(), tw)
	assert.True(t, errors.Is(err, exam.ErrInvalidQuestion))
}

func TestServiceOnSQLStore(t *testing.T) {
	s := newSQLStore(t)
	ctx := context.Background()
	_, err := s.PutTest(ctx, sampleTest())
	require.NoError(t, err)
	svc := exam.NewService(s)

	sum, err := svc.Submit(ctx, "u1", "t1", exam.Submission{
		Answers: []exam.SubmittedAnswer{
			{QuestionID: "q1", Chosen: grading.Single(1)},
			{QuestionID: "q2", Chosen: grading.Multi(2, 0)},
		},
		TimeSpentSec: 60,
	})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, sum.Score, 1e-9)

	res, err := svc.Result(ctx, "u1", sum.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Accuracy)
	assert.Len(t, res.Questions, 2)
}

func TestSQLStoreGetQuestion(t *testing.T) {
	s := newSQLStore(t)
	ctx := context.Background()
	_, err := s.PutTest(ctx, sampleTest())
	require.NoError(t, err)

	q, err := s.GetQuestion(ctx, "q2")
	require.NoError(t, err)
	assert.Equal(t, "t1", q.TestID)
	assert.Equal(t, grading.Multi(0, 2), q.Correct)

	_, err = s.GetQuestion(ctx, "missing")
	assert.True(t, errors.Is(err, exam.ErrNotFound))
}

func TestSQLStoreKeepsEmptyMSQKey(t *testing.T) {
	s := newSQLStore(t)
	ctx := context.Background()
	_, err := s.PutTest(ctx, exam.TestWithQuestions{
		Test: exam.Test{ID: "e", Title: "e", DurationMin: 5},
		Questions: []exam.Question{
			{ID: "e1", Options: []string{"a"}, Correct: grading.Multi(), Type: exam.TypeMSQ, Marks: 2},
		},
	})
	require.NoError(t, err)
	q, err := s.GetQuestion(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, grading.KindMulti, q.Correct.Kind)
	assert.Empty(t, q.Correct.Indices)
}
