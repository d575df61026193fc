package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/carewell/medfeedback/backend/internal/models"
)

// ErrMalformedPayload marks a classifier payload that is not valid JSON even
// after stripping markdown fences. This is a pipeline failure, not a
// call-level retry trigger.
var ErrMalformedPayload = errors.New("malformed classifier payload")

var codeFenceRegex = regexp.MustCompile("```(?:json)?\\s*")

// stripCodeFences removes markdown code-fence markers the classifier sometimes
// wraps its JSON in.
func stripCodeFences(raw string) string {
	return strings.TrimSpace(codeFenceRegex.ReplaceAllString(raw, ""))
}

// NormalizeAnalysis parses the raw classifier payload into a strict Analysis.
// Missing or malformed fields fall back to defaults rather than failing; only
// a structurally unparseable payload returns ErrMalformedPayload.
func NormalizeAnalysis(raw string) (*models.Analysis, error) {
	cleaned := stripCodeFences(raw)

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	level, reason, flags := extractUrgency(data["urgency"])
	primary, subcategories := extractCategories(data["categories"])

	analysis := &models.Analysis{
		Sentiment:          stringField(data, "sentiment", models.SentimentNeutral),
		ConfidenceScore:    floatField(data, "confidence_score", 0.5),
		Emotions:           stringListField(data, "emotions"),
		Urgency:            level,
		UrgencyReason:      reason,
		UrgencyFlags:       flags,
		PrimaryCategory:    primary,
		Subcategories:      subcategories,
		MedicalConcerns:    extractMedicalConcerns(data["medical_concerns"]),
		ActionableInsights: stringField(data, "actionable_insights", ""),
		KeyPoints:          stringListField(data, "key_points"),
	}

	return analysis, nil
}

func stringField(data map[string]interface{}, key, fallback string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func floatField(data map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := data[key].(float64); ok {
		return v
	}
	return fallback
}

func stringListField(data map[string]interface{}, key string) models.StringList {
	return toStringList(data[key])
}

func toStringList(value interface{}) models.StringList {
	items, ok := value.([]interface{})
	if !ok {
		return models.StringList{}
	}
	list := make(models.StringList, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			list = append(list, s)
		}
	}
	return list
}

// extractUrgency accepts either a structured object with level/reason/flags
// or a bare scalar level.
func extractUrgency(value interface{}) (level, reason string, flags models.StringList) {
	level = models.UrgencyLow
	flags = models.StringList{}

	switch v := value.(type) {
	case map[string]interface{}:
		if l, ok := v["level"].(string); ok && l != "" {
			level = l
		}
		if r, ok := v["reason"].(string); ok {
			reason = r
		}
		flags = toStringList(v["flags"])
	case string:
		if v != "" {
			level = v
		}
	}

	return level, reason, flags
}

// extractCategories pulls primary and subcategories from a structured object;
// absent data yields ("", []).
func extractCategories(value interface{}) (string, models.StringList) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return "", models.StringList{}
	}

	primary, _ := obj["primary"].(string)
	return primary, toStringList(obj["subcategories"])
}

// extractMedicalConcerns defaults every sub-list to empty rather than failing.
func extractMedicalConcerns(value interface{}) models.MedicalConcerns {
	concerns := models.MedicalConcerns{
		Symptoms:             []string{},
		Complications:        []string{},
		TreatmentSideEffects: []string{},
		MedicationIssues:     []string{},
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return concerns
	}

	concerns.Symptoms = toStringList(obj["symptoms"])
	concerns.Complications = toStringList(obj["complications"])
	concerns.TreatmentSideEffects = toStringList(obj["treatment_side_effects"])
	concerns.MedicationIssues = toStringList(obj["medication_issues"])
	return concerns
}
