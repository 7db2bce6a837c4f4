package routes

import (
	"github.com/academyops/backoffice/internal/gate"
	"github.com/academyops/backoffice/internal/handlers"
	"github.com/academyops/backoffice/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	paymentsHandler *handlers.PaymentsHandler,
	accessHandler *handlers.AccessHandler,
	tokenManager *gate.TokenManager,
) {
	// Rate limiting config for the login endpoint
	rateLimitConfig := middleware.DefaultLoginRateLimit()

	// Public routes - no session required
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)

	// Page gates authenticate with the caller's own platform token.
	router.Get("/access/courses/{courseID}", accessHandler.CheckCourse)

	// Protected routes - valid session required
	router.Group(func(r chi.Router) {
		r.Use(gate.SessionMiddleware(tokenManager))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/session", authHandler.Session)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/payments", paymentsHandler.List)
			r.Put("/payments/pending", paymentsHandler.SetPending)
			r.Delete("/payments/pending/{changeKey}", paymentsHandler.DiscardPending)
			r.Post("/payments/pending/{changeKey}/commit", paymentsHandler.Commit)
			r.Post("/refresh", paymentsHandler.Refresh)
		})
	})
}
