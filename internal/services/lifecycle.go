package services

import (
	"github.com/carewell/medfeedback/backend/internal/models"
)

// legalTransitions is the authoritative status graph for a feedback record.
// The enrichment pipeline drives pending_analysis into reviewed or
// analysis_failed; everything downstream of reviewed is staff-driven.
// analysis_failed is re-enterable via an explicit retry reset.
var legalTransitions = map[string][]string{
	models.StatusPendingAnalysis: {models.StatusReviewed, models.StatusAnalysisFailed},
	models.StatusAnalysisFailed:  {models.StatusPendingAnalysis},
	models.StatusReviewed:        {models.StatusInProgress, models.StatusResolved},
	models.StatusInProgress:      {models.StatusReviewed, models.StatusResolved},
	models.StatusResolved:        {models.StatusReviewed, models.StatusInProgress},
}

// ValidStatus reports whether s is part of the status vocabulary.
func ValidStatus(s string) bool {
	switch s {
	case models.StatusPendingAnalysis, models.StatusReviewed, models.StatusInProgress,
		models.StatusResolved, models.StatusAnalysisFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from one status to another is legal.
// It only classifies legality; callers decide what to do with an illegal move.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
