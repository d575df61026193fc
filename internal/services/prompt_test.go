package services

import (
	"strings"
	"testing"
	"time"
)

func TestBuildAnalysisPrompt(t *testing.T) {
	req := &ClassifyRequest{
		FeedbackText: "The wait time was far too long.",
		Department:   "Cardiology",
		DoctorName:   "Dr. Chen",
		VisitDate:    time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Rating:       2,
	}

	prompt := BuildAnalysisPrompt(req)

	for _, want := range []string{
		"The wait time was far too long.",
		"Department: Cardiology",
		"Doctor: Dr. Chen",
		"Visit Date: 2026-03-14",
		"Rating: 2/5",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if strings.Contains(prompt, "{{") {
		t.Error("prompt still contains unfilled placeholders")
	}
}

func TestBuildAnalysisPrompt_MissingFields(t *testing.T) {
	req := &ClassifyRequest{
		FeedbackText: "Great care.",
		Department:   "Oncology",
	}

	prompt := BuildAnalysisPrompt(req)

	if !strings.Contains(prompt, "Doctor: Not specified") {
		t.Error("missing doctor should render as Not specified")
	}
	if !strings.Contains(prompt, "Visit Date: Not specified") {
		t.Error("zero visit date should render as Not specified")
	}
	if !strings.Contains(prompt, "Rating: Not specified/5") {
		t.Error("zero rating should render as Not specified")
	}
}
