package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/ifcore/checkd/internal/api/middleware"
	"github.com/ifcore/checkd/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler        http.HandlerFunc
	StartJobHandler      http.HandlerFunc
	GetJobHandler        http.HandlerFunc
	CompleteCheckHandler http.HandlerFunc
	ListChecksHandler    http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Get("/api/v1/checks", orNotImplemented(deps.ListChecksHandler))

		r.Post("/api/v1/jobs", orNotImplemented(deps.StartJobHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))
		r.Post("/api/v1/jobs/{jobID}/checks/{checkName}/complete", orNotImplemented(deps.CompleteCheckHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
