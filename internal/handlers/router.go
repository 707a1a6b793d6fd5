package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/passvault-io/passvault/internal/config"
	"github.com/passvault-io/passvault/internal/database"
	"github.com/passvault-io/passvault/internal/middleware"
	"github.com/passvault-io/passvault/internal/services"
)

// Dependencies holds all the dependencies needed for handlers.
type Dependencies struct {
	Config         *config.Config
	DB             *database.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	UserService    *services.UserService
	EntryService   *services.EntryService
	SessionService *services.SessionService
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Metrics())
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(chimiddleware.Timeout(deps.Config.Server.RequestTimeout))
	r.Use(middleware.SecurityHeaders(deps.Config.IsProduction()))
	r.Use(middleware.MaxBodySize(deps.Config.Security.MaxRequestBodySize))

	rateLimiter := middleware.NewRateLimiter(
		deps.Redis,
		deps.Config.RateLimit.Requests,
		deps.Config.RateLimit.Window,
	)

	healthHandler := NewHealthHandler(deps.DB, deps.Redis)
	authHandler := NewAuthHandler(
		deps.UserService,
		deps.SessionService,
		deps.Config.Security.MaxRequestBodySize,
		deps.Config.IsProduction(),
	)
	apiHandler := NewAPIHandler(
		deps.UserService,
		deps.EntryService,
		deps.Config.Security.MaxRequestBodySize,
	)

	r.NotFound(NotFoundHandler)
	r.MethodNotAllowed(MethodNotAllowedHandler)

	// Health checks and metrics (no auth, no rate limit)
	r.Get("/health", healthHandler.Liveness)
	r.Get("/ready", healthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Auth routes (rate limited to slow down credential stuffing)
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(rateLimiter))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.APIAuth(deps.SessionService)).Post("/change-password", authHandler.ChangePassword)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(rateLimiter))
		r.Use(middleware.APIAuth(deps.SessionService))

		r.Get("/me", apiHandler.GetCurrentUser)

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", apiHandler.ListEntries)
			r.Post("/", apiHandler.CreateEntry)
			r.Patch("/{id}", apiHandler.UpdateEntry)
			r.Delete("/{id}", apiHandler.DeleteEntry)
		})
	})

	// Browser routes redirect to the login page when unauthenticated.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rateLimiter))
		r.Use(middleware.SessionAuth(deps.SessionService))
		r.Get("/vault", apiHandler.ListEntries)
	})

	return r
}
