package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carewell/medfeedback/backend/internal/models"
	"github.com/carewell/medfeedback/backend/pkg/logger"

	"gorm.io/gorm"
)

// ErrAnalysisFailed marks a record whose enrichment exhausted its attempts or
// hit a permanent failure. The record surfaces as analysis_failed, never as a
// hung or dropped record.
var ErrAnalysisFailed = errors.New("analysis failed")

// sleeper suspends the current enrichment only; injectable for tests.
type sleeper func(ctx context.Context, d time.Duration) error

func defaultSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EnrichmentService drives the analysis state machine for feedback records:
// classify with retries, normalize, persist, transition status, notify.
type EnrichmentService struct {
	db         *gorm.DB
	classifier Classifier
	notifier   Notifier
	policy     retryPolicy
	sleep      sleeper
	queue      TaskQueue
}

func NewEnrichmentService(db *gorm.DB, classifier Classifier, notifier Notifier) *EnrichmentService {
	return &EnrichmentService{
		db:         db,
		classifier: classifier,
		notifier:   notifier,
		policy:     newRetryPolicy(),
		sleep:      defaultSleeper,
	}
}

// SetTaskQueue wires the queue used by EnrichAsync. Set once at startup.
func (s *EnrichmentService) SetTaskQueue(queue TaskQueue) {
	s.queue = queue
}

// Enrich runs the full pipeline for one record. Idempotent: a record that
// already owns an analysis returns it unchanged without calling the
// classifier.
func (s *EnrichmentService) Enrich(ctx context.Context, feedbackID uint) (*models.Analysis, error) {
	var fb models.Feedback
	if err := s.db.Preload("Analysis").First(&fb, feedbackID).Error; err != nil {
		return nil, fmt.Errorf("feedback %d not found: %w", feedbackID, err)
	}

	if fb.Analysis != nil {
		logger.Debugf("[Enrichment] Feedback %d already analyzed, returning existing result", fb.ID)
		return fb.Analysis, nil
	}

	raw, cerr := s.classifyWithRetry(ctx, &fb)
	if cerr != nil {
		s.markFailed(fb.ID)
		return nil, fmt.Errorf("%w: feedback %d: %v", ErrAnalysisFailed, fb.ID, cerr)
	}

	analysis, err := NormalizeAnalysis(raw)
	if err != nil {
		logger.Warnf("[Enrichment] Feedback %d: %v", fb.ID, err)
		s.markFailed(fb.ID)
		return nil, fmt.Errorf("%w: feedback %d: %v", ErrAnalysisFailed, fb.ID, err)
	}
	analysis.FeedbackID = fb.ID

	// Analysis insert and status transition commit together; notifications
	// only fire after the commit.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(analysis).Error; err != nil {
			return err
		}
		return tx.Model(&models.Feedback{}).
			Where("id = ?", fb.ID).
			Update("status", models.StatusReviewed).Error
	})
	if err != nil {
		// A unique-constraint violation on feedback_id means a concurrent
		// enrichment won the race; its result is the one to return.
		if existing, lookupErr := s.existingAnalysis(fb.ID); lookupErr == nil {
			logger.Infof("[Enrichment] Feedback %d analyzed concurrently, returning winner", fb.ID)
			return existing, nil
		}
		s.markFailed(fb.ID)
		return nil, fmt.Errorf("%w: feedback %d: persist: %v", ErrAnalysisFailed, fb.ID, err)
	}

	fb.Status = models.StatusReviewed

	logger.Infof("[Enrichment] Feedback %d analyzed: sentiment=%s urgency=%s",
		fb.ID, analysis.Sentiment, analysis.Urgency)

	s.notifier.NotifyAnalysisComplete(&fb, analysis)
	if analysis.Urgency == models.UrgencyCritical {
		s.notifier.NotifyUrgentAlert(&fb, analysis)
	}

	return analysis, nil
}

// classifyWithRetry runs the attempt loop under the retry policy. Attempts
// for one record are strictly sequential; the backoff sleep suspends only
// this enrichment.
func (s *EnrichmentService) classifyWithRetry(ctx context.Context, fb *models.Feedback) (string, *ClassifyError) {
	req := &ClassifyRequest{
		FeedbackText: fb.FeedbackText,
		Department:   fb.Department,
		DoctorName:   fb.DoctorName,
		VisitDate:    fb.VisitDate,
		Rating:       fb.Rating,
	}

	for attempt := 0; ; attempt++ {
		raw, err := s.classifier.Classify(ctx, req)
		if err == nil {
			return raw, nil
		}

		var cerr *ClassifyError
		if !errors.As(err, &cerr) {
			cerr = &ClassifyError{Kind: ClassifyTransient, Reason: err.Error()}
		}

		action := s.policy.NextAction(attempt, cerr)
		if !action.Retry {
			logger.Warnf("[Enrichment] Feedback %d: giving up after attempt %d: %v", fb.ID, attempt+1, cerr)
			return "", cerr
		}

		logger.Infof("[Enrichment] Feedback %d: attempt %d failed (%s), retrying in %s",
			fb.ID, attempt+1, cerr.Kind, action.Wait)
		if sleepErr := s.sleep(ctx, action.Wait); sleepErr != nil {
			return "", &ClassifyError{Kind: ClassifyTransient, Reason: sleepErr.Error()}
		}
	}
}

func (s *EnrichmentService) existingAnalysis(feedbackID uint) (*models.Analysis, error) {
	var analysis models.Analysis
	if err := s.db.Where("feedback_id = ?", feedbackID).First(&analysis).Error; err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (s *EnrichmentService) markFailed(feedbackID uint) {
	if err := s.db.Model(&models.Feedback{}).
		Where("id = ?", feedbackID).
		Update("status", models.StatusAnalysisFailed).Error; err != nil {
		logger.Errorf("[Enrichment] Failed to mark feedback %d as analysis_failed: %v", feedbackID, err)
	}
}

// EnrichAsync enqueues enrichment for the record onto the task queue.
func (s *EnrichmentService) EnrichAsync(feedbackID uint) error {
	if s.queue == nil {
		return errors.New("task queue not configured")
	}
	return s.queue.Enqueue(&AnalysisTask{FeedbackID: feedbackID})
}

// ProcessAnalysisTask is the queue/worker processor. Pipeline failures are
// already captured as the analysis_failed transition, so they are not
// surfaced to the queue for re-delivery.
func (s *EnrichmentService) ProcessAnalysisTask(ctx context.Context, task *AnalysisTask) error {
	if _, err := s.Enrich(ctx, task.FeedbackID); err != nil {
		logger.Errorf("[Enrichment] Task for feedback %d failed: %v", task.FeedbackID, err)
	}
	return nil
}

// RequestRetry resets a failed record and enqueues a fresh enrichment. The
// conditional update doubles as the claim against a concurrent sweep.
func (s *EnrichmentService) RequestRetry(feedbackID uint) error {
	res := s.db.Model(&models.Feedback{}).
		Where("id = ? AND status = ?", feedbackID, models.StatusAnalysisFailed).
		Update("status", models.StatusPendingAnalysis)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("feedback %d is not in %s status", feedbackID, models.StatusAnalysisFailed)
	}
	return s.EnrichAsync(feedbackID)
}

// RetryFailed re-runs enrichment for up to maxCount records stuck in
// analysis_failed and reports how many succeeded. Each record is claimed via
// an atomic conditional update before work is dispatched, so a concurrent
// foreground trigger never processes the same record twice.
func (s *EnrichmentService) RetryFailed(ctx context.Context, maxCount int) (int, error) {
	if maxCount <= 0 {
		return 0, nil
	}

	var failed []models.Feedback
	err := s.db.Where("status = ?", models.StatusAnalysisFailed).
		Order("created_at ASC, id ASC").
		Limit(maxCount).
		Find(&failed).Error
	if err != nil {
		return 0, fmt.Errorf("list failed analyses: %w", err)
	}

	succeeded := 0
	for _, fb := range failed {
		res := s.db.Model(&models.Feedback{}).
			Where("id = ? AND status = ?", fb.ID, models.StatusAnalysisFailed).
			Update("status", models.StatusPendingAnalysis)
		if res.Error != nil || res.RowsAffected == 0 {
			// Claimed elsewhere in the meantime
			continue
		}

		if _, err := s.Enrich(ctx, fb.ID); err != nil {
			logger.Warnf("[Enrichment] Retry for feedback %d failed: %v", fb.ID, err)
			continue
		}
		succeeded++
	}

	if len(failed) > 0 {
		logger.Infof("[Enrichment] Retry sweep processed %d records, %d succeeded", len(failed), succeeded)
	}
	return succeeded, nil
}
