package exam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mockme/mockme/internal/grading"
)

// answerDoc is the BSON form of an Answer.
type answerDoc struct {
	Kind    int   `bson:"kind"`
	Index   int   `bson:"index,omitempty"`
	Indices []int `bson:"indices,omitempty"`
}

func toAnswerDoc(a Answer) answerDoc {
	return answerDoc{Kind: int(a.Kind), Index: a.Index, Indices: a.Indices}
}

func (d answerDoc) answer() Answer {
	switch grading.AnswerKind(d.Kind) {
	case grading.KindSingle:
		return grading.Single(d.Index)
	case grading.KindMulti:
		return grading.Multi(d.Indices...)
	}
	return grading.None()
}

type questionDoc struct {
	ID            string    `bson:"id"`
	TestID        string    `bson:"testId"`
	Position      int       `bson:"position"`
	Text          string    `bson:"text"`
	Options       []string  `bson:"options"`
	Correct       answerDoc `bson:"correctAnswer"`
	Explanation   string    `bson:"explanation"`
	Type          string    `bson:"questionType"`
	Marks         float64   `bson:"marks"`
	NegativeMarks float64   `bson:"negativeMarks"`
}

type testDoc struct {
	ID          string    `bson:"id"`
	Title       string    `bson:"title"`
	Subject     string    `bson:"subject"`
	Kind        string    `bson:"type"`
	ExamType    string    `bson:"examType"`
	DurationMin int       `bson:"duration"`
	QuestionIDs []string  `bson:"questions"`
	Price       float64   `bson:"price"`
	CreatedAt   time.Time `bson:"createdAt"`
}

type gradedDoc struct {
	QuestionID string    `bson:"qId"`
	Chosen     answerDoc `bson:"chosen"`
	Verdict    string    `bson:"verdict"`
	Points     float64   `bson:"points"`
}

type attemptDoc struct {
	ID           string      `bson:"id"`
	UserID       string      `bson:"userId"`
	TestID       string      `bson:"testId"`
	Answers      []gradedDoc `bson:"answers"`
	Score        float64     `bson:"score"`
	Accuracy     float64     `bson:"accuracy"`
	TimeSpentSec int         `bson:"timeSpent"`
	Percentile   float64     `bson:"percentile"`
	CreatedAt    time.Time   `bson:"createdAt"`
}

func (d testDoc) test() Test {
	return Test{ID: d.ID, Title: d.Title, Subject: d.Subject, Kind: d.Kind, ExamType: d.ExamType,
		DurationMin: d.DurationMin, QuestionIDs: d.QuestionIDs, Price: d.Price, CreatedAt: d.CreatedAt.UTC()}
}

func (d questionDoc) question() Question {
	return Question{ID: d.ID, TestID: d.TestID, Text: d.Text, Options: d.Options, Correct: d.Correct.answer(),
		Explanation: d.Explanation, Type: QuestionType(d.Type), Marks: d.Marks, NegativeMarks: d.NegativeMarks}
}

func toAttemptDoc(a Attempt) attemptDoc {
	d := attemptDoc{ID: a.ID, UserID: a.UserID, TestID: a.TestID, Score: a.Score, Accuracy: a.Accuracy,
		TimeSpentSec: a.TimeSpentSec, Percentile: a.Percentile, CreatedAt: a.CreatedAt}
	for _, g := range a.Answers {
		d.Answers = append(d.Answers, gradedDoc{QuestionID: g.QuestionID, Chosen: toAnswerDoc(g.Chosen),
			Verdict: string(g.Verdict), Points: g.Points})
	}
	return d
}

func (d attemptDoc) attempt() Attempt {
	a := Attempt{ID: d.ID, UserID: d.UserID, TestID: d.TestID, Score: d.Score, Accuracy: d.Accuracy,
		TimeSpentSec: d.TimeSpentSec, Percentile: d.Percentile, CreatedAt: d.CreatedAt.UTC()}
	for _, g := range d.Answers {
		a.Answers = append(a.Answers, GradedAnswer{QuestionID: g.QuestionID, Chosen: g.Chosen.answer(),
			Verdict: Verdict(g.Verdict), Points: g.Points})
	}
	return a
}

// MongoStore keeps tests, questions and attempts in three collections keyed
// by the string "id" field.
type MongoStore struct {
	tests     *mongo.Collection
	questions *mongo.Collection
	attempts  *mongo.Collection
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		tests:     db.Collection("tests"),
		questions: db.Collection("questions"),
		attempts:  db.Collection("attempts"),
	}
}

// EnsureIndexes creates the lookup indexes used by the store.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	if _, err := s.tests.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique}); err != nil {
		return err
	}
	if _, err := s.questions.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "testId", Value: 1}, {Key: "position", Value: 1}}}); err != nil {
		return err
	}
	_, err := s.attempts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "testId", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	return err
}

func (s *MongoStore) PutTest(ctx context.Context, in TestWithQuestions) (Test, error) {
	t, err := prepareTest(in)
	if err != nil {
		return Test{}, err
	}
	doc := testDoc{ID: t.ID, Title: t.Title, Subject: t.Subject, Kind: t.Kind, ExamType: t.ExamType,
		DurationMin: t.DurationMin, QuestionIDs: t.QuestionIDs, Price: t.Price, CreatedAt: t.CreatedAt}

	if _, err := s.questions.DeleteMany(ctx, bson.M{"testId": t.ID}); err != nil {
		return Test{}, fmt.Errorf("replace questions: %w", err)
	}
	if len(t.Questions) > 0 {
		docs := make([]interface{}, 0, len(t.Questions))
		for i, q := range t.Questions {
			docs = append(docs, questionDoc{ID: q.ID, TestID: t.ID, Position: i, Text: q.Text, Options: q.Options,
				Correct: toAnswerDoc(q.Correct), Explanation: q.Explanation, Type: string(q.Type),
				Marks: q.Marks, NegativeMarks: q.NegativeMarks})
		}
		if _, err := s.questions.InsertMany(ctx, docs); err != nil {
			return Test{}, fmt.Errorf("insert questions: %w", err)
		}
	}
	_, err = s.tests.ReplaceOne(ctx, bson.M{"id": t.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return Test{}, fmt.Errorf("upsert test: %w", err)
	}
	return t.Test, nil
}

func (s *MongoStore) GetTest(ctx context.Context, id string) (Test, error) {
	var doc testDoc
	err := s.tests.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Test{}, fmt.Errorf("test %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Test{}, err
	}
	return doc.test(), nil
}

func (s *MongoStore) DeleteTest(ctx context.Context, id string) error {
	res, err := s.tests.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("test %q: %w", id, ErrNotFound)
	}
	_, err = s.questions.DeleteMany(ctx, bson.M{"testId": id})
	return err
}

func (s *MongoStore) ListTests(ctx context.Context, opts ListOpts) ([]Test, error) {
	filter := bson.M{}
	if opts.ExamType != "" {
		filter["examType"] = opts.ExamType
	}
	if opts.Kind != "" {
		filter["type"] = opts.Kind
	}
	cursor, err := s.tests.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetProjection(bson.M{"questions": 0}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []testDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Test, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.test())
	}
	return out, nil
}

func (s *MongoStore) LoadQuestions(ctx context.Context, testID string) ([]Question, error) {
	t, err := s.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if len(t.QuestionIDs) == 0 {
		return []Question{}, nil
	}
	cursor, err := s.questions.Find(ctx, bson.M{"id": bson.M{"$in": t.QuestionIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []questionDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	byID := make(map[string]Question, len(docs))
	for _, d := range docs {
		byID[d.ID] = d.question()
	}
	// order comes from the test document, not from the collection scan
	out := make([]Question, 0, len(t.QuestionIDs))
	for _, id := range t.QuestionIDs {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *MongoStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	var doc questionDoc
	err := s.questions.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Question{}, fmt.Errorf("question %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Question{}, err
	}
	return doc.question(), nil
}

func (s *MongoStore) RecordAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	a = prepareAttempt(a)
	if _, err := s.attempts.InsertOne(ctx, toAttemptDoc(a)); err != nil {
		return Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return a, nil
}

func (s *MongoStore) ListScores(ctx context.Context, testID string) ([]float64, error) {
	cursor, err := s.attempts.Find(ctx, bson.M{"testId": testID}, options.Find().SetProjection(bson.M{"score": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Score float64 `bson:"score"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Score)
	}
	return out, nil
}

func (s *MongoStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	var doc attemptDoc
	err := s.attempts.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Attempt{}, fmt.Errorf("attempt %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Attempt{}, err
	}
	return doc.attempt(), nil
}

func (s *MongoStore) ListAttemptsByUser(ctx context.Context, userID string) ([]Attempt, error) {
	cursor, err := s.attempts.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []attemptDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Attempt, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.attempt())
	}
	return out, nil
}
