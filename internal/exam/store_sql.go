package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutTest(ctx context.Context, in TestWithQuestions) (Test, error) {
	t, err := prepareTest(in)
	if err != nil {
		return Test{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Test{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO tests (id,title,subject,kind,exam_type,duration_min,price,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, subject=EXCLUDED.subject, kind=EXCLUDED.kind,
		  exam_type=EXCLUDED.exam_type, duration_min=EXCLUDED.duration_min, price=EXCLUDED.price`,
		t.ID, t.Title, t.Subject, t.Kind, t.ExamType, t.DurationMin, t.Price, t.CreatedAt.UnixMilli())
	if err != nil {
		return Test{}, fmt.Errorf("upsert test: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE test_id=$1`, t.ID); err != nil {
		return Test{}, fmt.Errorf("replace questions: %w", err)
	}
	for i, q := range t.Questions {
		opts, _ := json.Marshal(q.Options)
		key, _ := json.Marshal(q.Correct)
		_, err := tx.ExecContext(ctx, `INSERT INTO questions
			(id,test_id,position,text,options_json,correct_json,explanation,question_type,marks,negative_marks)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			q.ID, t.ID, i, q.Text, string(opts), string(key), q.Explanation, string(q.Type), q.Marks, q.NegativeMarks)
		if err != nil {
			return Test{}, fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Test{}, err
	}
	return t.Test, nil
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,subject,kind,exam_type,duration_min,price,created_at FROM tests WHERE id=$1`, id)
	t, err := scanTest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Test{}, fmt.Errorf("test %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Test{}, err
	}
	ids, err := s.questionIDs(ctx, id)
	if err != nil {
		return Test{}, err
	}
	t.QuestionIDs = ids
	return t, nil
}

func (s *SQLStore) questionIDs(ctx context.Context, testID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM questions WHERE test_id=$1 ORDER BY position`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) DeleteTest(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("test %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) ListTests(ctx context.Context, opts ListOpts) ([]Test, error) {
	var (
		where []string
		args  []any
	)
	if opts.ExamType != "" {
		args = append(args, opts.ExamType)
		where = append(where, fmt.Sprintf("exam_type=$%d", len(args)))
	}
	if opts.Kind != "" {
		args = append(args, opts.Kind)
		where = append(where, fmt.Sprintf("kind=$%d", len(args)))
	}
	q := `SELECT id,title,subject,kind,exam_type,duration_min,price,created_at FROM tests`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) LoadQuestions(ctx context.Context, testID string) ([]Question, error) {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tests WHERE id=$1`, testID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("test %q: %w", testID, ErrNotFound)
		}
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+questionCols+` FROM questions WHERE test_id=$1 ORDER BY position`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, fmt.Errorf("question %q: %w", id, ErrNotFound)
	}
	return q, err
}

const questionCols = `id,test_id,text,options_json,correct_json,explanation,question_type,marks,negative_marks`

func scanQuestion(sc scanner) (Question, error) {
	var q Question
	var opts, key, qtype string
	if err := sc.Scan(&q.ID, &q.TestID, &q.Text, &opts, &key, &q.Explanation, &qtype, &q.Marks, &q.NegativeMarks); err != nil {
		return Question{}, err
	}
	q.Type = QuestionType(qtype)
	if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
		return Question{}, fmt.Errorf("question %s options: %w", q.ID, err)
	}
	if err := json.Unmarshal([]byte(key), &q.Correct); err != nil {
		return Question{}, fmt.Errorf("question %s answer key: %w", q.ID, err)
	}
	return q, nil
}

// RecordAttempt is a single INSERT; there is no read-modify-write here.
func (s *SQLStore) RecordAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	a = prepareAttempt(a)
	buf, err := json.Marshal(a.Answers)
	if err != nil {
		return Attempt{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts
		(id,user_id,test_id,answers_json,score,accuracy,time_spent_sec,percentile,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.UserID, a.TestID, string(buf), a.Score, a.Accuracy, a.TimeSpentSec, a.Percentile, a.CreatedAt.UnixMilli())
	if err != nil {
		return Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return a, nil
}

func (s *SQLStore) ListScores(ctx context.Context, testID string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT score FROM attempts WHERE test_id=$1`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const attemptCols = `id,user_id,test_id,answers_json,score,accuracy,time_spent_sec,percentile,created_at`

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, fmt.Errorf("attempt %q: %w", id, ErrNotFound)
	}
	return a, err
}

func (s *SQLStore) ListAttemptsByUser(ctx context.Context, userID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attemptCols+` FROM attempts WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTest(sc scanner) (Test, error) {
	var (
		t       Test
		created int64
	)
	if err := sc.Scan(&t.ID, &t.Title, &t.Subject, &t.Kind, &t.ExamType, &t.DurationMin, &t.Price, &created); err != nil {
		return Test{}, err
	}
	t.CreatedAt = time.UnixMilli(created).UTC()
	return t, nil
}

func scanAttempt(sc scanner) (Attempt, error) {
	var (
		a       Attempt
		answers string
		created int64
	)
	if err := sc.Scan(&a.ID, &a.UserID, &a.TestID, &answers, &a.Score, &a.Accuracy, &a.TimeSpentSec, &a.Percentile, &created); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil {
		a.Answers = nil
	}
	a.CreatedAt = time.UnixMilli(created).UTC()
	return a, nil
}
