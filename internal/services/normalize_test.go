package services

import (
	"errors"
	"testing"

	"github.com/carewell/medfeedback/backend/internal/models"
)

func TestNormalizeAnalysis_FullPayload(t *testing.T) {
	raw := `{
		"sentiment": "negative",
		"confidence_score": 0.92,
		"emotions": ["frustrated", "worried"],
		"urgency": {
			"level": "critical",
			"reason": "patient reports severe chest pain",
			"flags": ["severe_pain", "medical_complications"]
		},
		"categories": {
			"primary": "medical_care_quality",
			"subcategories": ["diagnosis", "follow_up"]
		},
		"medical_concerns": {
			"symptoms": ["chest pain"],
			"complications": ["arrhythmia"],
			"treatment_side_effects": [],
			"medication_issues": ["dosage confusion"]
		},
		"actionable_insights": "Escalate to cardiology immediately",
		"key_points": ["severe pain reported", "medication unclear"]
	}`

	analysis, err := NormalizeAnalysis(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.Sentiment != "negative" {
		t.Errorf("Sentiment = %q, expected negative", analysis.Sentiment)
	}
	if analysis.ConfidenceScore != 0.92 {
		t.Errorf("ConfidenceScore = %f, expected 0.92", analysis.ConfidenceScore)
	}
	if len(analysis.Emotions) != 2 || analysis.Emotions[0] != "frustrated" {
		t.Errorf("Emotions = %v", analysis.Emotions)
	}
	if analysis.Urgency != models.UrgencyCritical {
		t.Errorf("Urgency = %q, expected critical", analysis.Urgency)
	}
	if analysis.UrgencyReason != "patient reports severe chest pain" {
		t.Errorf("UrgencyReason = %q", analysis.UrgencyReason)
	}
	if len(analysis.UrgencyFlags) != 2 {
		t.Errorf("UrgencyFlags = %v", analysis.UrgencyFlags)
	}
	if analysis.PrimaryCategory != "medical_care_quality" {
		t.Errorf("PrimaryCategory = %q", analysis.PrimaryCategory)
	}
	if len(analysis.Subcategories) != 2 {
		t.Errorf("Subcategories = %v", analysis.Subcategories)
	}
	if len(analysis.MedicalConcerns.Symptoms) != 1 || analysis.MedicalConcerns.Symptoms[0] != "chest pain" {
		t.Errorf("Symptoms = %v", analysis.MedicalConcerns.Symptoms)
	}
	if analysis.ActionableInsights != "Escalate to cardiology immediately" {
		t.Errorf("ActionableInsights = %q", analysis.ActionableInsights)
	}
	if len(analysis.KeyPoints) != 2 {
		t.Errorf("KeyPoints = %v", analysis.KeyPoints)
	}
}

func TestNormalizeAnalysis_StripsCodeFences(t *testing.T) {
	tests := []string{
		"```json\n{\"sentiment\": \"positive\"}\n```",
		"```\n{\"sentiment\": \"positive\"}\n```",
		"  ```json{\"sentiment\": \"positive\"}```  ",
	}

	for _, raw := range tests {
		analysis, err := NormalizeAnalysis(raw)
		if err != nil {
			t.Errorf("payload %q: unexpected error: %v", raw, err)
			continue
		}
		if analysis.Sentiment != "positive" {
			t.Errorf("payload %q: Sentiment = %q", raw, analysis.Sentiment)
		}
	}
}

func TestNormalizeAnalysis_Defaults(t *testing.T) {
	analysis, err := NormalizeAnalysis(`{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.Sentiment != models.SentimentNeutral {
		t.Errorf("Sentiment = %q, expected neutral", analysis.Sentiment)
	}
	if analysis.ConfidenceScore != 0.5 {
		t.Errorf("ConfidenceScore = %f, expected 0.5", analysis.ConfidenceScore)
	}
	if analysis.Urgency != models.UrgencyLow {
		t.Errorf("Urgency = %q, expected low", analysis.Urgency)
	}
	if analysis.Emotions == nil || len(analysis.Emotions) != 0 {
		t.Errorf("Emotions = %v, expected empty list", analysis.Emotions)
	}
	if analysis.UrgencyFlags == nil || len(analysis.UrgencyFlags) != 0 {
		t.Errorf("UrgencyFlags = %v, expected empty list", analysis.UrgencyFlags)
	}
	if analysis.KeyPoints == nil || len(analysis.KeyPoints) != 0 {
		t.Errorf("KeyPoints = %v, expected empty list", analysis.KeyPoints)
	}
	if analysis.MedicalConcerns.Symptoms == nil {
		t.Error("MedicalConcerns.Symptoms should be an empty list, not nil")
	}
	if analysis.PrimaryCategory != "" {
		t.Errorf("PrimaryCategory = %q, expected empty", analysis.PrimaryCategory)
	}
}

func TestNormalizeAnalysis_BareUrgencyScalar(t *testing.T) {
	analysis, err := NormalizeAnalysis(`{"urgency": "high"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.Urgency != models.UrgencyHigh {
		t.Errorf("Urgency = %q, expected high", analysis.Urgency)
	}
	if analysis.UrgencyReason != "" {
		t.Errorf("UrgencyReason = %q, expected empty", analysis.UrgencyReason)
	}
}

func TestNormalizeAnalysis_WrongFieldTypes(t *testing.T) {
	// Wrong-typed fields fall back to defaults rather than failing
	raw := `{
		"sentiment": 5,
		"confidence_score": "high",
		"emotions": "angry",
		"urgency": 3,
		"categories": "billing",
		"medical_concerns": []
	}`

	analysis, err := NormalizeAnalysis(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.Sentiment != models.SentimentNeutral {
		t.Errorf("Sentiment = %q, expected neutral fallback", analysis.Sentiment)
	}
	if analysis.ConfidenceScore != 0.5 {
		t.Errorf("ConfidenceScore = %f, expected 0.5 fallback", analysis.ConfidenceScore)
	}
	if analysis.Urgency != models.UrgencyLow {
		t.Errorf("Urgency = %q, expected low fallback", analysis.Urgency)
	}
	if len(analysis.Emotions) != 0 {
		t.Errorf("Emotions = %v, expected empty", analysis.Emotions)
	}
	if analysis.PrimaryCategory != "" {
		t.Errorf("PrimaryCategory = %q, expected empty", analysis.PrimaryCategory)
	}
}

func TestNormalizeAnalysis_MalformedPayload(t *testing.T) {
	tests := []string{
		"",
		"not json at all",
		"```json\nnot json\n```",
		`[1, 2, 3]`,
	}

	for _, raw := range tests {
		if _, err := NormalizeAnalysis(raw); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("payload %q: expected ErrMalformedPayload, got %v", raw, err)
		}
	}
}
