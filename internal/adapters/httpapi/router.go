package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
)

type RouterOptions struct {
	// AuthMiddleware authenticates /cashcards requests. Without it every request is 401.
	AuthMiddleware func(http.Handler) http.Handler
	// Authorizer decides role checks; nil falls back to the principal's own roles.
	Authorizer RoleAuthorizer
	Logger     *slog.Logger
}

// NewRouterWithOptions constructs the API HTTP router.
func NewRouterWithOptions(api *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewRequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	// Unauthenticated infra check.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/cashcards", func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}
		r.Use(RequireRole(opts.Authorizer, domain.RoleCardOwner))

		r.Post("/", api.CreateCashCard)
		r.Get("/", api.ListCashCards)
		r.Get("/{id}", api.GetCashCard)
		r.Put("/{id}", api.UpdateCashCard)
		r.Delete("/{id}", api.DeleteCashCard)
	})
	return r
}
