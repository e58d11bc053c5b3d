package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/taskmanager/taskmanager-go/internal/metrics"
	"github.com/taskmanager/taskmanager-go/internal/middleware"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

// Deps are the services the router exposes.
type Deps struct {
	Credentials *service.CredentialStore
	Sessions    *service.SessionManager
	Tokens      *service.TokenIssuer
	Auth        *service.AuthService
	Lists       *service.ListService
	Tasks       *service.TaskService
	Metrics     *metrics.Metrics

	CORSOrigins   []string
	AuthRateRPS   float64
	AuthRateBurst int
}

// sessionChecker joins the credential lookup and the expiry check the
// session guard needs.
type sessionChecker struct {
	*service.CredentialStore
	*service.SessionManager
}

// NewRouter builds the HTTP API. ctx bounds background work such as the rate
// limiter's sweeper.
func NewRouter(ctx context.Context, d Deps) http.Handler {
	authHandler := NewAuthHandler(d.Auth)
	listHandler := NewListHandler(d.Lists)
	taskHandler := NewTaskHandler(d.Tasks)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(d.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "HEAD", "OPTIONS", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept",
			"X-Access-Token", "X-Refresh-Token", middleware.HeaderUserID},
		ExposedHeaders: []string{middleware.HeaderAccessToken, middleware.HeaderRefreshToken},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, d.AuthRateRPS, d.AuthRateBurst))
		r.Post("/users", authHandler.HandleSignUp)
		r.Post("/users/login", authHandler.HandleLogin)
	})

	r.With(middleware.SessionGuard(sessionChecker{d.Credentials, d.Sessions}, d.Metrics)).
		Get("/users/me/access-token", authHandler.HandleAccessToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AccessGuard(d.Tokens, d.Metrics))

		r.Get("/lists", listHandler.HandleList)
		r.Post("/lists", listHandler.HandleCreate)
		r.Patch("/lists/{listId}", listHandler.HandleUpdate)
		r.Delete("/lists/{listId}", listHandler.HandleDelete)

		r.Get("/lists/{listId}/tasks", taskHandler.HandleList)
		r.Post("/lists/{listId}/tasks", taskHandler.HandleCreate)
		r.Patch("/lists/{listId}/tasks/{taskId}", taskHandler.HandleUpdate)
		r.Delete("/lists/{listId}/tasks/{taskId}", taskHandler.HandleDelete)
	})

	return r
}
