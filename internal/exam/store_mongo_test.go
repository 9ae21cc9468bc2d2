package exam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mockme/mockme/internal/grading"
)

func TestAttemptDocKeepsAnswerShapes(t *testing.T) {
	a := Attempt{
		ID:     "a1",
		UserID: "u1",
		TestID: "t1",
		Answers: []GradedAnswer{
			{QuestionID: "q1", Chosen: grading.Single(0), Verdict: grading.VerdictCorrect, Points: 1},
			{QuestionID: "q2", Chosen: grading.Multi(0, 2), Verdict: grading.VerdictIncorrect},
			{QuestionID: "q3", Chosen: grading.None(), Verdict: grading.VerdictUnattempted},
		},
		Score:     1,
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	raw, err := bson.Marshal(toAttemptDoc(a))
	require.NoError(t, err)

	var doc attemptDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := doc.attempt()
	assert.Equal(t, a.Answers, got.Answers)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))
}
