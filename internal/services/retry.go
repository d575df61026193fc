package services

import (
	"context"
	"time"

	"github.com/carewell/medfeedback/backend/pkg/logger"

	"github.com/robfig/cron/v3"
)

// MaxClassifyAttempts bounds the attempt loop for one enrichment run.
const MaxClassifyAttempts = 3

// retryAction tells the orchestrator what to do after a failed attempt.
type retryAction struct {
	Retry bool
	Wait  time.Duration
}

// retryPolicy decides whether and when a failed classification call is
// re-attempted. Pure; the orchestrator owns the actual sleeping.
type retryPolicy struct {
	maxAttempts int
}

func newRetryPolicy() retryPolicy {
	return retryPolicy{maxAttempts: MaxClassifyAttempts}
}

// NextAction inspects the outcome of attempt (0-based) and returns either a
// stop or a wait-then-retry. NotConfigured and Permanent outcomes stop
// immediately; RateLimited waits exactly the supplied hint; Transient backs
// off exponentially (1s, 2s, ...).
func (p retryPolicy) NextAction(attempt int, cerr *ClassifyError) retryAction {
	if cerr == nil || !cerr.Retryable() {
		return retryAction{}
	}
	if attempt+1 >= p.maxAttempts {
		return retryAction{}
	}

	if cerr.Kind == ClassifyRateLimited {
		wait := cerr.RetryAfter
		if wait <= 0 {
			wait = defaultRateLimitWait
		}
		return retryAction{Retry: true, Wait: wait}
	}

	return retryAction{Retry: true, Wait: time.Duration(1<<attempt) * time.Second}
}

// RetrySweeper periodically re-runs enrichment for records stuck in
// analysis_failed.
type RetrySweeper struct {
	cron       *cron.Cron
	enrichment *EnrichmentService
	batchSize  int
}

// NewRetrySweeper schedules the failed-analysis sweep with the given cron
// spec (e.g. "@every 5m").
func NewRetrySweeper(enrichment *EnrichmentService, spec string, batchSize int) (*RetrySweeper, error) {
	s := &RetrySweeper{
		cron:       cron.New(),
		enrichment: enrichment,
		batchSize:  batchSize,
	}

	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *RetrySweeper) Start() {
	s.cron.Start()
	logger.Infof("[RetrySweep] Scheduler started, batch size: %d", s.batchSize)
}

func (s *RetrySweeper) Stop() {
	s.cron.Stop()
}

func (s *RetrySweeper) sweep() {
	succeeded, err := s.enrichment.RetryFailed(context.Background(), s.batchSize)
	if err != nil {
		logger.Errorf("[RetrySweep] Sweep failed: %v", err)
		return
	}
	if succeeded > 0 {
		logger.Infof("[RetrySweep] Recovered %d failed analyses", succeeded)
	}
}
