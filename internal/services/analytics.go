package services

import (
	"fmt"
	"time"

	"github.com/carewell/medfeedback/backend/internal/models"

	"gorm.io/gorm"
)

// AnalyticsSummary aggregates the current state of the feedback corpus.
type AnalyticsSummary struct {
	TotalFeedback   int64            `json:"total_feedback"`
	AverageRating   float64          `json:"average_rating"`
	ByStatus        map[string]int64 `json:"by_status"`
	BySentiment     map[string]int64 `json:"by_sentiment"`
	ByUrgency       map[string]int64 `json:"by_urgency"`
	ByDepartment    map[string]int64 `json:"by_department"`
	ByCategory      map[string]int64 `json:"by_category"`
	CriticalPending int64            `json:"critical_pending"`
}

// TrendPoint is one day's submission volume, average rating and sentiment mix.
type TrendPoint struct {
	Date          string           `json:"date"`
	Count         int64            `json:"count"`
	AverageRating float64          `json:"average_rating"`
	BySentiment   map[string]int64 `json:"by_sentiment"`
}

// DepartmentStats summarizes one department's feedback load.
type DepartmentStats struct {
	Department    string  `json:"department"`
	Count         int64   `json:"count"`
	AverageRating float64 `json:"average_rating"`
	CriticalCount int64   `json:"critical_count"`
}

// AnalyticsService computes aggregate views over feedback and analysis rows.
type AnalyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

type bucketRow struct {
	Key   string
	Count int64
}

func (s *AnalyticsService) countBy(model interface{}, column string) (map[string]int64, error) {
	var rows []bucketRow
	err := s.db.Model(model).
		Select(fmt.Sprintf("%s AS key, COUNT(*) AS count", column)).
		Where(fmt.Sprintf("%s <> ''", column)).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]int64, len(rows))
	for _, row := range rows {
		buckets[row.Key] = row.Count
	}
	return buckets, nil
}

// Summary computes the dashboard aggregates in one pass per dimension.
func (s *AnalyticsService) Summary() (*AnalyticsSummary, error) {
	summary := &AnalyticsSummary{}

	if err := s.db.Model(&models.Feedback{}).Count(&summary.TotalFeedback).Error; err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}

	if summary.TotalFeedback > 0 {
		var avg float64
		err := s.db.Model(&models.Feedback{}).
			Select("AVG(rating)").
			Scan(&avg).Error
		if err != nil {
			return nil, fmt.Errorf("analytics summary: %w", err)
		}
		summary.AverageRating = avg
	}

	var err error
	if summary.ByStatus, err = s.countBy(&models.Feedback{}, "status"); err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}
	if summary.ByDepartment, err = s.countBy(&models.Feedback{}, "department"); err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}
	if summary.BySentiment, err = s.countBy(&models.Analysis{}, "sentiment"); err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}
	if summary.ByUrgency, err = s.countBy(&models.Analysis{}, "urgency"); err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}
	if summary.ByCategory, err = s.countBy(&models.Analysis{}, "primary_category"); err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}

	// Critical analyses whose record has not been resolved yet.
	err = s.db.Model(&models.Feedback{}).
		Joins("JOIN analysis ON analysis.feedback_id = feedback.id").
		Where("analysis.urgency = ?", models.UrgencyCritical).
		Where("feedback.status <> ?", models.StatusResolved).
		Count(&summary.CriticalPending).Error
	if err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}

	return summary, nil
}

// Trends returns daily submission counts and average ratings for the last
// days calendar days, oldest first. Days without submissions are filled with
// zero counts so charts have a continuous axis.
func (s *AnalyticsService) Trends(days int) ([]TrendPoint, error) {
	if days < 1 {
		days = 7
	}
	if days > 90 {
		days = 90
	}

	since := time.Now().AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)

	type dayRow struct {
		Day           string
		Count         int64
		AverageRating float64
	}
	var rows []dayRow
	err := s.db.Model(&models.Feedback{}).
		Select("DATE(created_at) AS day, COUNT(*) AS count, AVG(rating) AS average_rating").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("analytics trends: %w", err)
	}

	byDay := make(map[string]dayRow, len(rows))
	for _, row := range rows {
		byDay[row.Day] = row
	}

	type sentimentRow struct {
		Day       string
		Sentiment string
		Count     int64
	}
	var sentimentRows []sentimentRow
	err = s.db.Model(&models.Feedback{}).
		Select("DATE(feedback.created_at) AS day, analysis.sentiment AS sentiment, COUNT(*) AS count").
		Joins("JOIN analysis ON analysis.feedback_id = feedback.id").
		Where("feedback.created_at >= ?", since).
		Group("DATE(feedback.created_at), analysis.sentiment").
		Scan(&sentimentRows).Error
	if err != nil {
		return nil, fmt.Errorf("analytics trends: %w", err)
	}

	sentimentByDay := make(map[string]map[string]int64)
	for _, row := range sentimentRows {
		if sentimentByDay[row.Day] == nil {
			sentimentByDay[row.Day] = make(map[string]int64)
		}
		sentimentByDay[row.Day][row.Sentiment] = row.Count
	}

	points := make([]TrendPoint, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		point := TrendPoint{Date: day, BySentiment: map[string]int64{}}
		if row, ok := byDay[day]; ok {
			point.Count = row.Count
			point.AverageRating = row.AverageRating
		}
		if sentiments, ok := sentimentByDay[day]; ok {
			point.BySentiment = sentiments
		}
		points = append(points, point)
	}

	return points, nil
}

// DepartmentPerformance returns per-department volume, average rating and the
// number of critical analyses, busiest departments first.
func (s *AnalyticsService) DepartmentPerformance() ([]DepartmentStats, error) {
	var stats []DepartmentStats
	err := s.db.Model(&models.Feedback{}).
		Select("feedback.department AS department, COUNT(*) AS count, AVG(feedback.rating) AS average_rating").
		Group("feedback.department").
		Order("count DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("department performance: %w", err)
	}

	type criticalRow struct {
		Department string
		Count      int64
	}
	var criticals []criticalRow
	err = s.db.Model(&models.Feedback{}).
		Select("feedback.department AS department, COUNT(*) AS count").
		Joins("JOIN analysis ON analysis.feedback_id = feedback.id").
		Where("analysis.urgency = ?", models.UrgencyCritical).
		Group("feedback.department").
		Scan(&criticals).Error
	if err != nil {
		return nil, fmt.Errorf("department performance: %w", err)
	}

	criticalByDept := make(map[string]int64, len(criticals))
	for _, row := range criticals {
		criticalByDept[row.Department] = row.Count
	}
	for i := range stats {
		stats[i].CriticalCount = criticalByDept[stats[i].Department]
	}

	return stats, nil
}
