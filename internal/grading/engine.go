package grading

// Q is a minimal view of a question needed for grading.
// Keep this in sync with whatever fields the stores use.
type Q struct {
	ID            string
	Type          QuestionType
	Correct       Answer
	Marks         float64
	NegativeMarks float64
}

// Response is one learner answer to one question.
type Response struct {
	QuestionID string
	Chosen     Answer
}

type Verdict string

const (
	VerdictCorrect     Verdict = "correct"
	VerdictIncorrect   Verdict = "incorrect"
	VerdictUnattempted Verdict = "unattempted"
)

// Result is the outcome of grading a single question response.
type Result struct {
	QuestionID string
	Chosen     Answer
	Verdict    Verdict
	Points     float64 // may be negative
}

// Outcome is the outcome of grading a whole test.
type Outcome struct {
	Score    float64
	Correct  int
	Total    int
	Accuracy float64
	Results  []Result // one per question, in question order
}

// Strategy grades a single question.
type Strategy interface {
	Grade(q Q, chosen Answer) Result
}

// Grader routes by question type to the correct Strategy.
type Grader struct {
	strategies map[QuestionType]Strategy
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader() *Grader {
	return &Grader{
		strategies: map[QuestionType]Strategy{
			TypeMCQ: mcqStrategy{},
			TypeMSQ: msqStrategy{},
		},
	}
}

// Grade scores responses against the authoritative question list.
// Responses for questions outside the list are ignored; when a question is
// answered more than once the last response wins. Questions without a
// response are graded as unattempted.
func (g *Grader) Grade(questions []Q, responses []Response) Outcome {
	chosen := make(map[string]Answer, len(responses))
	for _, r := range responses {
		chosen[r.QuestionID] = r.Chosen
	}

	out := Outcome{Total: len(questions), Results: make([]Result, 0, len(questions))}
	for _, q := range questions {
		res := g.gradeOne(q, chosen[q.ID])
		out.Score += res.Points
		if res.Verdict == VerdictCorrect {
			out.Correct++
		}
		out.Results = append(out.Results, res)
	}
	out.Accuracy = Accuracy(out.Correct, out.Total)
	return out
}

func (g *Grader) gradeOne(q Q, chosen Answer) Result {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{QuestionID: q.ID, Chosen: chosen, Verdict: VerdictUnattempted}
	}
	res := s.Grade(q, chosen)
	res.QuestionID = q.ID
	res.Chosen = chosen
	return res
}

// Accuracy is the share of fully correct answers over all questions.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// --- Strategies ---

// mcqStrategy awards marks for the right option and deducts negative marks
// for any other attempted option. Blank answers score nothing.
type mcqStrategy struct{}

func (mcqStrategy) Grade(q Q, chosen Answer) Result {
	switch {
	case !attempted(chosen):
		return Result{Verdict: VerdictUnattempted}
	case chosen.Kind == KindSingle && q.Correct.Kind == KindSingle && chosen.Index == q.Correct.Index:
		return Result{Verdict: VerdictCorrect, Points: q.Marks}
	default:
		return Result{Verdict: VerdictIncorrect, Points: -q.NegativeMarks}
	}
}

// msqStrategy is all-or-nothing and never negative. The set comparison comes
// first: an empty choice matches an empty key.
type msqStrategy struct{}

func (msqStrategy) Grade(q Q, chosen Answer) Result {
	switch {
	case q.Correct.Kind == KindMulti && chosen.Kind != KindSingle && chosen.SameSet(q.Correct):
		return Result{Verdict: VerdictCorrect, Points: q.Marks}
	case !attempted(chosen):
		return Result{Verdict: VerdictUnattempted}
	default:
		return Result{Verdict: VerdictIncorrect}
	}
}

func attempted(a Answer) bool {
	switch a.Kind {
	case KindSingle:
		return true
	case KindMulti:
		return len(a.Indices) > 0
	}
	return false
}
