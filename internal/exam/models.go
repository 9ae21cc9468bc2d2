package exam

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mockme/mockme/internal/grading"
)

type (
	QuestionType = grading.QuestionType
	Answer       = grading.Answer
	Verdict      = grading.Verdict
)

const (
	TypeMCQ = grading.TypeMCQ
	TypeMSQ = grading.TypeMSQ
)

const (
	DefaultMarks         = 1.0
	DefaultNegativeMarks = 0.33
	DefaultPrice         = 30.0
)

type Question struct {
	ID            string       `json:"id"`
	TestID        string       `json:"testId"`
	Text          string       `json:"text"`
	Options       []string     `json:"options"`
	Correct       Answer       `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
	Type          QuestionType `json:"questionType"`
	Marks         float64      `json:"marks"`
	NegativeMarks float64      `json:"negativeMarks"`
}

// Validate checks that the answer key's shape matches the question type and
// that every index points into Options.
func (q Question) Validate() error {
	if q.Marks < 0 || q.NegativeMarks < 0 {
		return fmt.Errorf("%w: question %q has negative marks", ErrInvalidQuestion, q.ID)
	}
	switch q.Type {
	case TypeMCQ:
		if q.Correct.Kind != grading.KindSingle {
			return fmt.Errorf("%w: question %q: MCQ needs a single correct index", ErrInvalidQuestion, q.ID)
		}
	case TypeMSQ:
		if q.Correct.Kind != grading.KindMulti {
			return fmt.Errorf("%w: question %q: MSQ needs a set of correct indices", ErrInvalidQuestion, q.ID)
		}
	default:
		return fmt.Errorf("%w: question %q: unknown type %q", ErrInvalidQuestion, q.ID, q.Type)
	}
	for _, i := range q.Correct.All() {
		if i < 0 || i >= len(q.Options) {
			return fmt.Errorf("%w: question %q: index %d out of range", ErrInvalidQuestion, q.ID, i)
		}
	}
	return nil
}

// UnmarshalJSON fills in the defaults for fields an uploaded question leaves
// out: type MCQ and 1 mark. Only MCQ questions carry a default penalty.
func (q *Question) UnmarshalJSON(b []byte) error {
	type plain Question
	aux := struct {
		*plain
		Marks         *float64 `json:"marks"`
		NegativeMarks *float64 `json:"negativeMarks"`
	}{plain: (*plain)(q)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if q.Type == "" {
		q.Type = TypeMCQ
	}
	q.Marks = DefaultMarks
	if aux.Marks != nil {
		q.Marks = *aux.Marks
	}
	q.NegativeMarks = 0
	if aux.NegativeMarks != nil {
		q.NegativeMarks = *aux.NegativeMarks
	} else if q.Type == TypeMCQ {
		q.NegativeMarks = DefaultNegativeMarks
	}
	return nil
}

// Redacted returns a copy safe to show before the test is attempted.
func (q Question) Redacted() Question {
	q.Correct = Answer{}
	q.Explanation = ""
	return q
}

type Test struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Kind        string    `json:"type"` // mock | previousPaper
	ExamType    string    `json:"examType"`
	DurationMin int       `json:"duration"`
	QuestionIDs []string  `json:"questions,omitempty"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TestWithQuestions is what admins upload and what students fetch
// (with redacted questions).
type TestWithQuestions struct {
	Test
	Questions []Question `json:"questions"`
	Locked    bool       `json:"locked,omitempty"`
}

// UnmarshalJSON prices uploads that leave the price out at DefaultPrice.
// An explicit 0 makes the test free.
func (tw *TestWithQuestions) UnmarshalJSON(b []byte) error {
	type plain TestWithQuestions
	aux := struct {
		*plain
		Price *float64 `json:"price"`
	}{plain: (*plain)(tw)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	tw.Price = DefaultPrice
	if aux.Price != nil {
		tw.Price = *aux.Price
	}
	return nil
}

type SubmittedAnswer struct {
	QuestionID string `json:"qId"`
	Chosen     Answer `json:"chosen"`
}

type Submission struct {
	Answers      []SubmittedAnswer `json:"answers"`
	TimeSpentSec int               `json:"timeSpent"`
}

type GradedAnswer struct {
	QuestionID string  `json:"qId"`
	Chosen     Answer  `json:"chosen"`
	Verdict    Verdict `json:"verdict"`
	Points     float64 `json:"points"`
}

// Attempt is written once per submission and never updated. Percentile is
// the rank at the moment of submission.
type Attempt struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	TestID       string         `json:"testId"`
	Answers      []GradedAnswer `json:"answers"`
	Score        float64        `json:"score"`
	Accuracy     float64        `json:"accuracy"`
	TimeSpentSec int            `json:"timeSpent"`
	Percentile   float64        `json:"percentile"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type Summary struct {
	Score       float64 `json:"score"`
	Percentile  float64 `json:"percentile"`
	Accuracy    float64 `json:"accuracy"`
	AIAvailable bool    `json:"aiAvailable"`
	AttemptID   string  `json:"attemptId"`
}

type Result struct {
	Attempt
	Test      Test       `json:"test"`
	Questions []Question `json:"questions"`
}

type UserStats struct {
	AverageScore   float64   `json:"averageScore"`
	TestsAttempted int       `json:"testsAttempted"`
	AccuracyTrend  []float64 `json:"accuracyTrend"`
	TimeEfficiency []int     `json:"timeEfficiency"`
	BestScore      float64   `json:"bestScore"`
}
