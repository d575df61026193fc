package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carewell/medfeedback/backend/internal/config"
)

func geminiTestConfig(baseURL string) *config.ClassifierConfig {
	return &config.ClassifierConfig{
		Provider:       "gemini",
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Model:          "gemini-2.5-flash",
		TimeoutSeconds: 5,
	}
}

func testClassifyRequest() *ClassifyRequest {
	return &ClassifyRequest{
		FeedbackText: "The nurse was very attentive.",
		Department:   "Pediatrics",
		Rating:       5,
	}
}

func TestClassify_NotConfigured(t *testing.T) {
	svc := NewClassifierService(&config.ClassifierConfig{Provider: "gemini"})

	_, err := svc.Classify(context.Background(), testClassifyRequest())

	var cerr *ClassifyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ClassifyError, got %v", err)
	}
	if cerr.Kind != ClassifyNotConfigured {
		t.Errorf("Kind = %q, expected not_configured", cerr.Kind)
	}
	if cerr.Retryable() {
		t.Error("not_configured must not be retryable")
	}
}

func TestClassify_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing API key header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"sentiment\":\"positive\"}"}]}}]}`))
	}))
	defer server.Close()

	svc := NewClassifierService(geminiTestConfig(server.URL))

	raw, err := svc.Classify(context.Background(), testClassifyRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != `{"sentiment":"positive"}` {
		t.Errorf("raw = %q", raw)
	}
}

func TestClassify_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	svc := NewClassifierService(geminiTestConfig(server.URL))

	_, err := svc.Classify(context.Background(), testClassifyRequest())

	var cerr *ClassifyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ClassifyError, got %v", err)
	}
	if cerr.Kind != ClassifyRateLimited {
		t.Errorf("Kind = %q, expected rate_limited", cerr.Kind)
	}
	if cerr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %s, expected 7s from the header", cerr.RetryAfter)
	}
	if !cerr.Retryable() {
		t.Error("rate_limited must be retryable")
	}
}

func TestClassify_RateLimitedWithoutHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := NewClassifierService(geminiTestConfig(server.URL))

	_, err := svc.Classify(context.Background(), testClassifyRequest())

	var cerr *ClassifyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ClassifyError, got %v", err)
	}
	if cerr.RetryAfter != defaultRateLimitWait {
		t.Errorf("RetryAfter = %s, expected default %s", cerr.RetryAfter, defaultRateLimitWait)
	}
}

func TestClassify_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := NewClassifierService(geminiTestConfig(server.URL))

	_, err := svc.Classify(context.Background(), testClassifyRequest())

	var cerr *ClassifyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ClassifyError, got %v", err)
	}
	if cerr.Kind != ClassifyTransient {
		t.Errorf("Kind = %q, expected transient", cerr.Kind)
	}
	if cerr.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, expected 503", cerr.Status)
	}
}

func TestClassify_ClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid request"}}`))
	}))
	defer server.Close()

	svc := NewClassifierService(geminiTestConfig(server.URL))

	_, err := svc.Classify(context.Background(), testClassifyRequest())

	var cerr *ClassifyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ClassifyError, got %v", err)
	}
	if cerr.Kind != ClassifyPermanent {
		t.Errorf("Kind = %q, expected permanent", cerr.Kind)
	}
	if cerr.Retryable() {
		t.Error("permanent must not be retryable")
	}
}

func TestClassify_TimeoutIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	cfg := geminiTestConfig(server.URL)
	cfg.TimeoutSeconds = 1
	svc := NewClassifierService(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.Classify(ctx, testClassifyRequest())

	var cerr *ClassifyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ClassifyError, got %v", err)
	}
	if cerr.Kind != ClassifyTransient {
		t.Errorf("Kind = %q, expected transient", cerr.Kind)
	}
}

func TestClassify_EmptyCandidatesIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	svc := NewClassifierService(geminiTestConfig(server.URL))

	_, err := svc.Classify(context.Background(), testClassifyRequest())

	var cerr *ClassifyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ClassifyError, got %v", err)
	}
	if cerr.Kind != ClassifyPermanent {
		t.Errorf("Kind = %q, expected permanent", cerr.Kind)
	}
}

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		status int
		kind   string
	}{
		{429, ClassifyRateLimited},
		{500, ClassifyTransient},
		{502, ClassifyTransient},
		{400, ClassifyPermanent},
		{404, ClassifyPermanent},
	}

	for _, tt := range tests {
		cerr := fromStatusCode(tt.status, "boom")
		if cerr.Kind != tt.kind {
			t.Errorf("fromStatusCode(%d) kind = %q, expected %q", tt.status, cerr.Kind, tt.kind)
		}
	}
}
