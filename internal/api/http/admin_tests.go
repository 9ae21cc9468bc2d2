package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mockme/mockme/internal/exam"
)

// POST /api/admin/tests  TestWithQuestions; questions default to 1 mark and,
// for MCQ, a 0.33 penalty.
func UploadTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.TestWithQuestions
		if !decodeJSON(w, r, &in) {
			return
		}
		t, err := svc.Store().PutTest(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func DeleteTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Store().DeleteTest(r.Context(), chi.URLParam(r, "testID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
