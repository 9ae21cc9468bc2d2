package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auth "github.com/mockme/mockme/internal/auth/middleware"
	"github.com/mockme/mockme/internal/exam"
)

// GET /api/tests?examType=GATE&type=mock&limit=50&offset=0
func ListTestsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.Store().ListTests(r.Context(), exam.ListOpts{
			ExamType: strings.TrimSpace(q.Get("examType")),
			Kind:     strings.TrimSpace(q.Get("type")),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []exam.Test{}
		}
		limit := parseIntDefault(q.Get("limit"), 50)
		offset := parseIntDefault(q.Get("offset"), 0)
		if offset > len(list) {
			offset = len(list)
		}
		list = list[offset:]
		if limit > 0 && limit < len(list) {
			list = list[:limit]
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tw, err := svc.TestForLearner(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "testID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tw)
	}
}

func StartTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.StartTest(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "testID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "Test started",
			"testId":   t.ID,
			"duration": t.DurationMin,
		})
	}
}

// POST /api/tests/submit/{testID}  {"answers":[{"qId":"..","chosen":1}],"timeSpent":600}
func SubmitTestHandler(svc *exam.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub exam.Submission
		if !decodeJSON(w, r, &sub) {
			return
		}
		testID := chi.URLParam(r, "testID")
		sum, err := svc.Submit(r.Context(), auth.SubjectFromContext(r.Context()), testID, sub)
		if err != nil {
			log.Warn("submit failed", zap.String("test_id", testID), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func ResultHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Result(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "attemptID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /api/ai/explain  {"questionId":"..","userAnswer":1}
func ExplainHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionID string      `json:"questionId"`
			UserAnswer exam.Answer `json:"userAnswer"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.QuestionID == "" {
			http.Error(w, "questionId required", http.StatusBadRequest)
			return
		}
		text, err := svc.Explain(r.Context(), req.QuestionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"explanation": text})
	}
}

func UserAnalyticsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.UserStats(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
