package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/carewell/medfeedback/backend/internal/models"
	"github.com/carewell/medfeedback/backend/pkg/logger"

	"gorm.io/gorm"
)

// Preview limits for outbound event payloads.
const (
	previewLimit       = 100
	urgentPreviewLimit = 200
)

// Preview truncates feedback text for notification payloads.
func Preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// Notifier fans out feedback events to the staff audience. Delivery is
// fire-and-forget: failures never roll back the state transition that
// triggered them.
type Notifier interface {
	NotifyNewFeedback(fb *models.Feedback)
	NotifyAnalysisComplete(fb *models.Feedback, analysis *models.Analysis)
	NotifyUrgentAlert(fb *models.Feedback, analysis *models.Analysis)
}

// NotificationService publishes events to the staff hub and pushes urgent
// alerts to configured webhook channels.
type NotificationService struct {
	db         *gorm.DB
	hub        *EventHub
	httpClient *http.Client
}

func NewNotificationService(db *gorm.DB, hub *EventHub) *NotificationService {
	return &NotificationService{
		db:         db,
		hub:        hub,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyNewFeedback is emitted when a feedback record is created.
func (s *NotificationService) NotifyNewFeedback(fb *models.Feedback) {
	s.hub.Publish(Event{
		Kind: EventNewFeedback,
		Payload: map[string]interface{}{
			"id":           fb.ID,
			"patient_name": fb.PatientName,
			"department":   fb.Department,
			"rating":       fb.Rating,
			"status":       fb.Status,
			"created_at":   fb.CreatedAt,
			"preview":      Preview(fb.FeedbackText, previewLimit),
		},
	})
	logger.Debugf("[Notification] new_feedback emitted for feedback %d", fb.ID)
}

// NotifyAnalysisComplete is emitted after the analysis commit.
func (s *NotificationService) NotifyAnalysisComplete(fb *models.Feedback, analysis *models.Analysis) {
	s.hub.Publish(Event{
		Kind: EventAnalysisComplete,
		Payload: map[string]interface{}{
			"feedback_id":      fb.ID,
			"sentiment":        analysis.Sentiment,
			"urgency":          analysis.Urgency,
			"primary_category": analysis.PrimaryCategory,
			"confidence_score": analysis.ConfidenceScore,
			"preview":          Preview(fb.FeedbackText, previewLimit),
		},
	})
	logger.Debugf("[Notification] analysis_complete emitted for feedback %d", fb.ID)
}

// NotifyUrgentAlert is emitted for critical-urgency analyses, in addition to
// analysis_complete. Also pushed to active alert channels.
func (s *NotificationService) NotifyUrgentAlert(fb *models.Feedback, analysis *models.Analysis) {
	s.hub.Publish(Event{
		Kind: EventUrgentAlert,
		Payload: map[string]interface{}{
			"feedback_id":      fb.ID,
			"patient_name":     fb.PatientName,
			"department":       fb.Department,
			"urgency":          analysis.Urgency,
			"urgency_reason":   analysis.UrgencyReason,
			"urgency_flags":    analysis.UrgencyFlags,
			"sentiment":        analysis.Sentiment,
			"primary_category": analysis.PrimaryCategory,
			"feedback_preview": Preview(fb.FeedbackText, urgentPreviewLimit),
			"created_at":       fb.CreatedAt,
		},
	})
	logger.Infof("[Notification] urgent_alert emitted for feedback %d", fb.ID)

	s.pushToAlertChannels(fb, analysis)
}

// SeedDefaultAlertChannel creates an alert channel from the ALERT_WEBHOOK_URL
// environment variable when no channels exist yet. ALERT_WEBHOOK_TYPE selects
// the payload format (slack or generic, default slack).
func (s *NotificationService) SeedDefaultAlertChannel() error {
	webhookURL := os.Getenv("ALERT_WEBHOOK_URL")
	if webhookURL == "" || s.db == nil {
		return nil
	}

	var count int64
	if err := s.db.Model(&models.AlertChannel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	channelType := os.Getenv("ALERT_WEBHOOK_TYPE")
	if channelType != "generic" {
		channelType = "slack"
	}

	channel := models.AlertChannel{
		Name:       "default",
		Type:       channelType,
		WebhookURL: webhookURL,
		IsActive:   true,
	}
	if err := s.db.Create(&channel).Error; err != nil {
		return err
	}

	logger.Infof("[Notification] Seeded default %s alert channel", channelType)
	return nil
}

// pushToAlertChannels sends the urgent alert to every active webhook channel.
// Errors are logged and swallowed.
func (s *NotificationService) pushToAlertChannels(fb *models.Feedback, analysis *models.Analysis) {
	if s.db == nil {
		return
	}

	var channels []models.AlertChannel
	if err := s.db.Where("is_active = ?", true).Find(&channels).Error; err != nil {
		logger.Errorf("[Notification] Failed to load alert channels: %v", err)
		return
	}

	for _, channel := range channels {
		var err error
		switch channel.Type {
		case "slack":
			err = s.sendSlackAlert(&channel, fb, analysis)
		default:
			err = s.sendGenericAlert(&channel, fb, analysis)
		}
		if err != nil {
			logger.Errorf("[Notification] Alert push to %s failed: %v", channel.Name, err)
		}
	}
}

func buildAlertMessage(fb *models.Feedback, analysis *models.Analysis) string {
	reason := analysis.UrgencyReason
	if reason == "" {
		reason = "not specified"
	}

	return fmt.Sprintf(`🚨 *Urgent Patient Feedback*

*Department*: %s
*Rating*: %d/5
*Urgency*: %s
*Reason*: %s

%s`, fb.Department, fb.Rating, analysis.Urgency, reason, Preview(fb.FeedbackText, urgentPreviewLimit))
}

func (s *NotificationService) postJSON(webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

func (s *NotificationService) sendSlackAlert(channel *models.AlertChannel, fb *models.Feedback, analysis *models.Analysis) error {
	payload := map[string]interface{}{
		"text": buildAlertMessage(fb, analysis),
	}
	return s.postJSON(channel.WebhookURL, payload)
}

func (s *NotificationService) sendGenericAlert(channel *models.AlertChannel, fb *models.Feedback, analysis *models.Analysis) error {
	payload := map[string]interface{}{
		"event":            EventUrgentAlert,
		"feedback_id":      fb.ID,
		"department":       fb.Department,
		"rating":           fb.Rating,
		"urgency":          analysis.Urgency,
		"urgency_reason":   analysis.UrgencyReason,
		"urgency_flags":    analysis.UrgencyFlags,
		"feedback_preview": Preview(fb.FeedbackText, urgentPreviewLimit),
	}
	return s.postJSON(channel.WebhookURL, payload)
}
