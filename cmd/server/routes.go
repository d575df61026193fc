package main

import (
	"github.com/gin-gonic/gin"

	"github.com/carewell/medfeedback/backend/internal/middleware"
	"github.com/carewell/medfeedback/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for the public submission endpoint
	submitLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
		}

		// Patient submission (public, rate limited)
		api.POST("/feedback", submitLimiter.Middleware(), svc.feedbackHandler.Create)

		// SSE events (public route with internal token validation)
		api.GET("/events", svc.eventsHandler.Stream)

		// Protected routes (staff)
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)

			// Feedback
			protected.GET("/feedback", svc.feedbackHandler.List)
			protected.GET("/feedback/departments", svc.feedbackHandler.Departments)
			protected.GET("/feedback/failed", svc.feedbackHandler.FailedAnalysis)
			protected.GET("/feedback/:id", svc.feedbackHandler.Get)
			protected.PUT("/feedback/:id/status", svc.feedbackHandler.UpdateStatus)
			protected.POST("/feedback/:id/retry-analysis", svc.feedbackHandler.RetryAnalysis)

			// Analytics
			protected.GET("/analytics/summary", svc.analyticsHandler.Summary)
			protected.GET("/analytics/trends", svc.analyticsHandler.Trends)
			protected.GET("/analytics/departments", svc.analyticsHandler.Departments)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.POST("/feedback/retry-failed", svc.feedbackHandler.RetryFailed)
		}
	}
}
