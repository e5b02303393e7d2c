package api

import (
	"net/http"

	"github.com/dom/sleeplog/internal/api/handlers"
	"github.com/dom/sleeplog/internal/api/middleware"
	"github.com/dom/sleeplog/internal/config"
	"github.com/dom/sleeplog/internal/service"
	"github.com/dom/sleeplog/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(services *service.Services, hub *websocket.Hub, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth)
	sleepHandler := handlers.NewSleepHandler(services.Sleep)
	userHandler := handlers.NewUserHandler(services.Users, services.Following)
	feedHandler := handlers.NewFeedHandler(services.Feed)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Get("/me", authHandler.Me)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))

			// Sleep session routes
			r.Route("/sleep-sessions", func(r chi.Router) {
				r.Get("/", sleepHandler.List)
				r.With(limiter.Limit).Post("/clock-in", sleepHandler.ClockIn)
				r.With(limiter.Limit).Post("/clock-out", sleepHandler.ClockOut)
			})

			// User and following routes
			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Get("/{id}", userHandler.Get)
				r.Post("/{id}/follow", userHandler.Follow)
				r.Delete("/{id}/follow", userHandler.Unfollow)
			})

			r.Get("/feed", feedHandler.Get)
		})

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
