package exam

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AnswerKeyLoader returns the authoritative questions of a test in
// presentation order. It fails with ErrNotFound when the test does not exist
// and returns an empty slice when it has no questions yet.
type AnswerKeyLoader interface {
	LoadQuestions(ctx context.Context, testID string) ([]Question, error)
}

// AttemptRecorder appends finalized attempts and exposes the score history
// used for percentiles.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, a Attempt) (Attempt, error)
	ListScores(ctx context.Context, testID string) ([]float64, error)
}

type ListOpts struct {
	ExamType string
	Kind     string
}

type Store interface {
	AnswerKeyLoader
	AttemptRecorder

	PutTest(ctx context.Context, t TestWithQuestions) (Test, error)
	GetTest(ctx context.Context, id string) (Test, error)
	DeleteTest(ctx context.Context, id string) error
	ListTests(ctx context.Context, opts ListOpts) ([]Test, error)
	GetQuestion(ctx context.Context, id string) (Question, error)

	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttemptsByUser(ctx context.Context, userID string) ([]Attempt, error)
}

// prepareTest assigns missing ids and timestamps, normalizes answer keys and
// validates every question. The returned test lists question ids in order.
func prepareTest(in TestWithQuestions) (TestWithQuestions, error) {
	if in.DurationMin <= 0 {
		return TestWithQuestions{}, fmt.Errorf("%w: duration must be positive", ErrInvalidQuestion)
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	qs := make([]Question, 0, len(in.Questions))
	ids := make([]string, 0, len(in.Questions))
	for _, q := range in.Questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.TestID = in.ID
		q.Correct = q.Correct.Normalize()
		if err := q.Validate(); err != nil {
			return TestWithQuestions{}, err
		}
		qs = append(qs, q)
		ids = append(ids, q.ID)
	}
	in.Questions = qs
	in.QuestionIDs = ids
	return in, nil
}

func prepareAttempt(a Attempt) Attempt {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return a
}

type memoryStore struct {
	mu        sync.RWMutex
	tests     map[string]Test
	questions map[string]Question
	attempts  map[string]Attempt
	order     []string // attempt ids in insertion order
}

func NewInMemoryStore() Store {
	return &memoryStore{
		tests:     map[string]Test{},
		questions: map[string]Question{},
		attempts:  map[string]Attempt{},
	}
}

func (m *memoryStore) PutTest(_ context.Context, in TestWithQuestions) (Test, error) {
	t, err := prepareTest(in)
	if err != nil {
		return Test{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.tests[t.ID]; ok {
		for _, qid := range old.QuestionIDs {
			delete(m.questions, qid)
		}
	}
	for _, q := range t.Questions {
		m.questions[q.ID] = q
	}
	m.tests[t.ID] = t.Test
	return t.Test, nil
}

func (m *memoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, fmt.Errorf("test %q: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *memoryStore) DeleteTest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[id]
	if !ok {
		return fmt.Errorf("test %q: %w", id, ErrNotFound)
	}
	for _, qid := range t.QuestionIDs {
		delete(m.questions, qid)
	}
	delete(m.tests, id)
	return nil
}

func (m *memoryStore) ListTests(_ context.Context, opts ListOpts) ([]Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Test, 0, len(m.tests))
	for _, t := range m.tests {
		if opts.ExamType != "" && t.ExamType != opts.ExamType {
			continue
		}
		if opts.Kind != "" && t.Kind != opts.Kind {
			continue
		}
		// listings carry no question ids
		t.QuestionIDs = nil
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) LoadQuestions(_ context.Context, testID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[testID]
	if !ok {
		return nil, fmt.Errorf("test %q: %w", testID, ErrNotFound)
	}
	out := make([]Question, 0, len(t.QuestionIDs))
	for _, qid := range t.QuestionIDs {
		if q, ok := m.questions[qid]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, fmt.Errorf("question %q: %w", id, ErrNotFound)
	}
	return q, nil
}

func (m *memoryStore) RecordAttempt(_ context.Context, a Attempt) (Attempt, error) {
	a = prepareAttempt(a)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.attempts[a.ID]; dup {
		return Attempt{}, fmt.Errorf("attempt %q already recorded", a.ID)
	}
	m.attempts[a.ID] = a
	m.order = append(m.order, a.ID)
	return a, nil
}

func (m *memoryStore) ListScores(_ context.Context, testID string) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []float64
	for _, id := range m.order {
		if a := m.attempts[id]; a.TestID == testID {
			out = append(out, a.Score)
		}
	}
	return out, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, fmt.Errorf("attempt %q: %w", id, ErrNotFound)
	}
	return a, nil
}

func (m *memoryStore) ListAttemptsByUser(_ context.Context, userID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, id := range m.order {
		if a := m.attempts[id]; a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}
