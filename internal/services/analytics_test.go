package services

import (
	"testing"

	"github.com/carewell/medfeedback/backend/internal/models"
)

func TestAnalyticsSummary(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db)

	critical := seedFeedback(t, db, models.StatusReviewed)
	db.Create(&models.Analysis{
		FeedbackID:      critical.ID,
		Sentiment:       models.SentimentNegative,
		ConfidenceScore: 0.9,
		Urgency:         models.UrgencyCritical,
		PrimaryCategory: "medical_care_quality",
	})

	resolved := seedFeedback(t, db, models.StatusResolved)
	db.Create(&models.Analysis{
		FeedbackID:      resolved.ID,
		Sentiment:       models.SentimentNegative,
		ConfidenceScore: 0.7,
		Urgency:         models.UrgencyCritical,
	})

	seedFeedback(t, db, models.StatusPendingAnalysis)

	summary, err := svc.Summary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.TotalFeedback != 3 {
		t.Errorf("TotalFeedback = %d, expected 3", summary.TotalFeedback)
	}
	if summary.AverageRating != 1.0 {
		t.Errorf("AverageRating = %f, expected 1.0", summary.AverageRating)
	}
	if summary.ByStatus[models.StatusReviewed] != 1 {
		t.Errorf("ByStatus[reviewed] = %d, expected 1", summary.ByStatus[models.StatusReviewed])
	}
	if summary.BySentiment[models.SentimentNegative] != 2 {
		t.Errorf("BySentiment[negative] = %d, expected 2", summary.BySentiment[models.SentimentNegative])
	}
	if summary.ByUrgency[models.UrgencyCritical] != 2 {
		t.Errorf("ByUrgency[critical] = %d, expected 2", summary.ByUrgency[models.UrgencyCritical])
	}
	// The resolved critical record no longer counts as pending
	if summary.CriticalPending != 1 {
		t.Errorf("CriticalPending = %d, expected 1", summary.CriticalPending)
	}
}

func TestAnalyticsSummary_EmptyDatabase(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db)

	summary, err := svc.Summary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalFeedback != 0 {
		t.Errorf("TotalFeedback = %d, expected 0", summary.TotalFeedback)
	}
	if summary.AverageRating != 0 {
		t.Errorf("AverageRating = %f, expected 0", summary.AverageRating)
	}
}

func TestAnalyticsTrends_FillsMissingDays(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db)

	seedFeedback(t, db, models.StatusReviewed)

	points, err := svc.Trends(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("points = %d, expected 7", len(points))
	}

	var totalCount int64
	for _, p := range points {
		totalCount += p.Count
	}
	if totalCount != 1 {
		t.Errorf("total count across days = %d, expected 1", totalCount)
	}

	// Today is the last point
	if points[len(points)-1].Count != 1 {
		t.Errorf("today count = %d, expected 1", points[len(points)-1].Count)
	}
}

func TestAnalyticsTrends_SentimentBreakdown(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db)

	fb := seedFeedback(t, db, models.StatusReviewed)
	db.Create(&models.Analysis{
		FeedbackID:      fb.ID,
		Sentiment:       models.SentimentNegative,
		ConfidenceScore: 0.9,
		Urgency:         models.UrgencyHigh,
	})

	points, err := svc.Trends(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	today := points[len(points)-1]
	if today.BySentiment[models.SentimentNegative] != 1 {
		t.Errorf("today sentiment breakdown = %v", today.BySentiment)
	}
	// Days without analyses carry an empty map, not nil
	if points[0].BySentiment == nil {
		t.Error("empty day should have a non-nil sentiment map")
	}
}

func TestAnalyticsDepartmentPerformance(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db)

	critical := seedFeedback(t, db, models.StatusReviewed)
	db.Create(&models.Analysis{
		FeedbackID:      critical.ID,
		Sentiment:       models.SentimentNegative,
		ConfidenceScore: 0.9,
		Urgency:         models.UrgencyCritical,
	})
	seedFeedback(t, db, models.StatusReviewed)

	stats, err := svc.DepartmentPerformance()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("departments = %d, expected 1", len(stats))
	}
	if stats[0].Department != "Cardiology" {
		t.Errorf("department = %q", stats[0].Department)
	}
	if stats[0].Count != 2 {
		t.Errorf("count = %d, expected 2", stats[0].Count)
	}
	if stats[0].CriticalCount != 1 {
		t.Errorf("critical count = %d, expected 1", stats[0].CriticalCount)
	}
}

func TestAnalyticsTrends_ClampsDays(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db)

	points, err := svc.Trends(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 7 {
		t.Errorf("points = %d, expected default 7", len(points))
	}

	points, err = svc.Trends(500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 90 {
		t.Errorf("points = %d, expected cap 90", len(points))
	}
}
