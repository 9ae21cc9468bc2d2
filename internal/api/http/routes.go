package http

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auth "github.com/mockme/mockme/internal/auth/middleware"
	"github.com/mockme/mockme/internal/exam"
	"github.com/mockme/mockme/internal/rbac"
)

// Mount registers the /api routes on r.
func Mount(r chi.Router, svc *exam.Service, authSvc *auth.AuthService, creds auth.Credentials, log *zap.Logger) {
	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", auth.LoginHandler(authSvc, creds))

		api.Group(func(pr chi.Router) {
			pr.Use(auth.JWTMiddleware(authSvc))

			pr.With(rbac.Require(rbac.PermTestView)).Get("/tests", ListTestsHandler(svc))
			pr.With(rbac.Require(rbac.PermTestView)).Get("/tests/{testID}", GetTestHandler(svc))
			pr.With(rbac.Require(rbac.PermTestStart)).Post("/tests/start/{testID}", StartTestHandler(svc))
			pr.With(rbac.Require(rbac.PermAttemptSubmit)).Post("/tests/submit/{testID}", SubmitTestHandler(svc, log))
			pr.With(rbac.Require(rbac.PermAttemptViewOwn)).Get("/tests/results/{attemptID}", ResultHandler(svc))
			pr.With(rbac.Require(rbac.PermAttemptViewOwn)).Post("/ai/explain", ExplainHandler(svc))
			pr.With(rbac.Require(rbac.PermAnalyticsViewOwn)).Get("/analytics/user", UserAnalyticsHandler(svc))

			pr.Route("/admin", func(ar chi.Router) {
				ar.Use(rbac.Require(rbac.PermTestManage))
				ar.Post("/tests", UploadTestHandler(svc))
				ar.Delete("/tests/{testID}", DeleteTestHandler(svc))
			})
		})
	})
}
