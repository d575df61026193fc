package main

import (
	"github.com/carewell/medfeedback/backend/internal/config"
	"github.com/carewell/medfeedback/backend/internal/handlers"
	"github.com/carewell/medfeedback/backend/internal/models"
	"github.com/carewell/medfeedback/backend/internal/services"
	"github.com/carewell/medfeedback/backend/internal/utils"
	"github.com/carewell/medfeedback/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	hub              *services.EventHub
	feedbackService  *services.FeedbackService
	enrichment       *services.EnrichmentService
	notifier         services.Notifier
	analytics        *services.AnalyticsService
	taskQueue        services.TaskQueue
	worker           *services.Worker
	retrySweeper     *services.RetrySweeper
	authHandler      *handlers.AuthHandler
	feedbackHandler  *handlers.FeedbackHandler
	analyticsHandler *handlers.AnalyticsHandler
	eventsHandler    *handlers.EventsHandler
	healthHandler    *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Event hub and notification fan-out
	hub := services.NewEventHub()
	notifier := services.NewNotificationService(models.GetDB(), hub)
	if err := notifier.SeedDefaultAlertChannel(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed alert channel")
	}

	// Classification pipeline
	classifier := services.NewClassifierService(&cfg.Classifier)
	enrichment := services.NewEnrichmentService(models.GetDB(), classifier, notifier)

	// Task queue (uses Redis if enabled, otherwise sync mode)
	taskQueue := services.InitTaskQueue(cfg)
	enrichment.SetTaskQueue(taskQueue)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(enrichment.ProcessAnalysisTask)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(enrichment.ProcessAnalysisTask)
			worker.Start()
		}
	}

	// Retry sweep for records stuck in analysis_failed
	retrySweeper, err := services.NewRetrySweeper(enrichment, cfg.Retry.SweepCron, cfg.Retry.BatchSize)
	if err != nil {
		logger.Fatalf("Failed to schedule retry sweep: %v", err)
	}
	retrySweeper.Start()

	// Create default admin user
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	feedbackService := services.NewFeedbackService(models.GetDB())
	analytics := services.NewAnalyticsService(models.GetDB())

	return &appServices{
		hub:              hub,
		feedbackService:  feedbackService,
		enrichment:       enrichment,
		notifier:         notifier,
		analytics:        analytics,
		taskQueue:        taskQueue,
		worker:           worker,
		retrySweeper:     retrySweeper,
		authHandler:      authHandler,
		feedbackHandler:  handlers.NewFeedbackHandler(feedbackService, enrichment, notifier),
		analyticsHandler: handlers.NewAnalyticsHandler(analytics),
		eventsHandler:    handlers.NewEventsHandler(hub),
		healthHandler:    handlers.NewHealthHandler(hub),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.retrySweeper.Stop()
	logger.Info().Msg("Retry sweep stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
