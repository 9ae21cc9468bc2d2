package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleKey() []Q {
	return []Q{
		{ID: "q1", Type: TypeMCQ, Correct: Single(1), Marks: 1.0, NegativeMarks: 0.33},
		{ID: "q2", Type: TypeMSQ, Correct: Multi(0, 2), Marks: 2.0},
	}
}

func TestGradeMCQ(t *testing.T) {
	q := Q{ID: "q", Type: TypeMCQ, Correct: Single(2), Marks: 4, NegativeMarks: 1}
	tests := []struct {
		name    string
		chosen  Answer
		points  float64
		verdict Verdict
	}{
		{name: "correct", chosen: Single(2), points: 4, verdict: VerdictCorrect},
		{name: "wrong", chosen: Single(0), points: -1, verdict: VerdictIncorrect},
		{name: "out of range", chosen: Single(9), points: -1, verdict: VerdictIncorrect},
		{name: "blank", chosen: None(), points: 0, verdict: VerdictUnattempted},
		{name: "empty list", chosen: Multi(), points: 0, verdict: VerdictUnattempted},
		{name: "list instead of index", chosen: Multi(2), points: -1, verdict: VerdictIncorrect},
	}
	g := NewDefaultGrader()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := g.Grade([]Q{q}, []Response{{QuestionID: "q", Chosen: tc.chosen}})
			require.Len(t, out.Results, 1)
			assert.Equal(t, tc.verdict, out.Results[0].Verdict)
			assert.InDelta(t, tc.points, out.Score, 1e-9)
		})
	}
}

func TestGradeMSQ(t *testing.T) {
	q := Q{ID: "q", Type: TypeMSQ, Correct: Multi(0, 2), Marks: 2, NegativeMarks: 5}
	tests := []struct {
		name    string
		chosen  Answer
		points  float64
		verdict Verdict
	}{
		{name: "exact", chosen: Multi(0, 2), points: 2, verdict: VerdictCorrect},
		{name: "order and duplicates ignored", chosen: Multi(2, 0, 2), points: 2, verdict: VerdictCorrect},
		{name: "subset", chosen: Multi(0), points: 0, verdict: VerdictIncorrect},
		{name: "superset", chosen: Multi(0, 1, 2), points: 0, verdict: VerdictIncorrect},
		{name: "blank", chosen: None(), points: 0, verdict: VerdictUnattempted},
		{name: "scalar", chosen: Single(0), points: 0, verdict: VerdictIncorrect},
	}
	g := NewDefaultGrader()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := g.Grade([]Q{q}, []Response{{QuestionID: "q", Chosen: tc.chosen}})
			assert.Equal(t, tc.verdict, out.Results[0].Verdict)
			assert.InDelta(t, tc.points, out.Score, 1e-9)
		})
	}
}

func TestGradeMSQEmptyKey(t *testing.T) {
	q := Q{ID: "q", Type: TypeMSQ, Correct: Multi(), Marks: 2}
	tests := []struct {
		name    string
		chosen  Answer
		points  float64
		verdict Verdict
	}{
		{name: "empty set", chosen: Multi(), points: 2, verdict: VerdictCorrect},
		{name: "blank", chosen: None(), points: 2, verdict: VerdictCorrect},
		{name: "any option", chosen: Multi(1), points: 0, verdict: VerdictIncorrect},
		{name: "scalar", chosen: Single(0), points: 0, verdict: VerdictIncorrect},
	}
	g := NewDefaultGrader()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := g.Grade([]Q{q}, []Response{{QuestionID: "q", Chosen: tc.chosen}})
			assert.Equal(t, tc.verdict, out.Results[0].Verdict)
			assert.InDelta(t, tc.points, out.Score, 1e-9)
		})
	}
}

func TestGradeAllCorrect(t *testing.T) {
	out := NewDefaultGrader().Grade(sampleKey(), []Response{
		{QuestionID: "q1", Chosen: Single(1)},
		{QuestionID: "q2", Chosen: Multi(0, 2)},
	})
	assert.InDelta(t, 3.0, out.Score, 1e-9)
	assert.Equal(t, 2, out.Correct)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, 1.0, out.Accuracy)
}

func TestGradeAllWrong(t *testing.T) {
	out := NewDefaultGrader().Grade(sampleKey(), []Response{
		{QuestionID: "q1", Chosen: Single(0)},
		{QuestionID: "q2", Chosen: Multi(0)},
	})
	assert.InDelta(t, -0.33, out.Score, 1e-9)
	assert.Equal(t, 0, out.Correct)
	assert.Equal(t, 0.0, out.Accuracy)
}

func TestGradeIgnoresUnknownQuestions(t *testing.T) {
	out := NewDefaultGrader().Grade(sampleKey(), []Response{
		{QuestionID: "q1", Chosen: Single(1)},
		{QuestionID: "other-test-q", Chosen: Single(0)},
	})
	assert.InDelta(t, 1.0, out.Score, 1e-9)
	assert.Equal(t, 1, out.Correct)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, 0.5, out.Accuracy)
	require.Len(t, out.Results, 2)
	assert.Equal(t, VerdictUnattempted, out.Results[1].Verdict)
}

func TestGradeDuplicateResponseLastWins(t *testing.T) {
	out := NewDefaultGrader().Grade(sampleKey()[:1], []Response{
		{QuestionID: "q1", Chosen: Single(1)},
		{QuestionID: "q1", Chosen: Single(1)},
		{QuestionID: "q1", Chosen: Single(3)},
	})
	assert.InDelta(t, -0.33, out.Score, 1e-9)
	assert.Equal(t, 0, out.Correct)
}

func TestGradeEmptyTest(t *testing.T) {
	out := NewDefaultGrader().Grade(nil, []Response{{QuestionID: "q1", Chosen: Single(1)}})
	assert.Equal(t, Outcome{Results: []Result{}}, out)
}

func TestGradeScoreCanGoNegative(t *testing.T) {
	key := []Q{
		{ID: "a", Type: TypeMCQ, Correct: Single(0), Marks: 1, NegativeMarks: 0.5},
		{ID: "b", Type: TypeMCQ, Correct: Single(0), Marks: 1, NegativeMarks: 0.5},
	}
	out := NewDefaultGrader().Grade(key, []Response{
		{QuestionID: "a", Chosen: Single(1)},
		{QuestionID: "b", Chosen: Single(2)},
	})
	assert.InDelta(t, -1.0, out.Score, 1e-9)
}

func TestGradeUnknownTypeIsUnattempted(t *testing.T) {
	out := NewDefaultGrader().Grade([]Q{{ID: "x", Type: "essay", Marks: 3}}, []Response{{QuestionID: "x", Chosen: Single(0)}})
	assert.Equal(t, 0.0, out.Score)
	assert.Equal(t, VerdictUnattempted, out.Results[0].Verdict)
}
