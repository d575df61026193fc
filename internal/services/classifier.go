package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/carewell/medfeedback/backend/internal/config"
	"github.com/carewell/medfeedback/backend/pkg/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
)

// Classification failure kinds. The retry policy keys off these.
const (
	ClassifyNotConfigured = "not_configured" // missing credential, never retried
	ClassifyRateLimited   = "rate_limited"   // 429, wait hint authoritative
	ClassifyTransient     = "transient"      // 5xx, timeout, transport fault
	ClassifyPermanent     = "permanent"      // other 4xx, never retried
)

const defaultRateLimitWait = 60 * time.Second

// ClassifyError is the typed outcome of a failed classifier call.
type ClassifyError struct {
	Kind       string
	Status     int // HTTP status when applicable, 0 otherwise
	Reason     string
	RetryAfter time.Duration // set for rate_limited
}

func (e *ClassifyError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("classifier %s (%d): %s", e.Kind, e.Status, e.Reason)
	}
	return fmt.Sprintf("classifier %s: %s", e.Kind, e.Reason)
}

// Retryable reports whether the retry policy may re-attempt the call.
func (e *ClassifyError) Retryable() bool {
	return e.Kind == ClassifyTransient || e.Kind == ClassifyRateLimited
}

// ClassifyRequest carries the feedback text and visit metadata for one call.
type ClassifyRequest struct {
	FeedbackText string
	Department   string
	DoctorName   string
	VisitDate    time.Time
	Rating       int
}

// Classifier wraps a single call to the external text-classification service.
// The returned string is the raw, unparsed payload; on failure the error is
// always a *ClassifyError.
type Classifier interface {
	Classify(ctx context.Context, req *ClassifyRequest) (string, error)
}

// ClassifierService dispatches to the configured provider.
type ClassifierService struct {
	cfg        *config.ClassifierConfig
	httpClient *http.Client
}

func NewClassifierService(cfg *config.ClassifierConfig) *ClassifierService {
	return &ClassifierService{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

func (s *ClassifierService) timeout() time.Duration {
	if s.cfg.TimeoutSeconds > 0 {
		return time.Duration(s.cfg.TimeoutSeconds) * time.Second
	}
	return 30 * time.Second
}

// Classify performs one outbound call to the classifier. No local state is
// mutated; retrying is the caller's concern.
func (s *ClassifierService) Classify(ctx context.Context, req *ClassifyRequest) (string, error) {
	if s.cfg.APIKey == "" && s.cfg.Provider != "ollama" {
		return "", &ClassifyError{Kind: ClassifyNotConfigured, Reason: "classifier API key is not set"}
	}

	prompt := BuildAnalysisPrompt(req)

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	logger.Debugf("[Classifier] provider=%s model=%s prompt=%d chars", s.cfg.Provider, s.cfg.Model, len(prompt))

	switch s.cfg.Provider {
	case "openai", "azure":
		return s.callOpenAI(ctx, prompt)
	case "anthropic":
		return s.callAnthropic(ctx, prompt)
	case "ollama":
		return s.callOllama(ctx, prompt)
	default:
		// gemini is the default provider, spoken over the REST API directly
		// so status codes and Retry-After survive into the error taxonomy
		return s.callGemini(ctx, prompt)
	}
}

// --- Gemini (REST) ---

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (s *ClassifierService) callGemini(ctx context.Context, prompt string) (string, error) {
	baseURL := s.cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := s.cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(baseURL, "/"), model)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", &ClassifyError{Kind: ClassifyPermanent, Reason: fmt.Sprintf("encode request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &ClassifyError{Kind: ClassifyPermanent, Reason: fmt.Sprintf("build request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", s.cfg.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ClassifyError{Kind: ClassifyTransient, Reason: fmt.Sprintf("decode response: %v", err)}
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &ClassifyError{Kind: ClassifyPermanent, Reason: "no candidates in response"}
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	logger.Debugf("[Classifier] Gemini response length: %d chars", len(text))
	return text, nil
}

// transportError maps connection-level failures. Timeouts and refused
// connections are transient.
func transportError(err error) *ClassifyError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClassifyError{Kind: ClassifyTransient, Reason: "request timed out"}
	}
	if errors.Is(err, context.Canceled) {
		return &ClassifyError{Kind: ClassifyTransient, Reason: "request canceled"}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &ClassifyError{Kind: ClassifyTransient, Reason: "request timed out"}
	}
	return &ClassifyError{Kind: ClassifyTransient, Reason: err.Error()}
}

// statusError maps a non-200 HTTP response into the failure taxonomy.
func statusError(resp *http.Response) *ClassifyError {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
	reason := strings.TrimSpace(string(snippet))
	if reason == "" {
		reason = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := defaultRateLimitWait
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		return &ClassifyError{Kind: ClassifyRateLimited, Status: resp.StatusCode, Reason: reason, RetryAfter: wait}
	case resp.StatusCode >= 500:
		return &ClassifyError{Kind: ClassifyTransient, Status: resp.StatusCode, Reason: reason}
	default:
		return &ClassifyError{Kind: ClassifyPermanent, Status: resp.StatusCode, Reason: reason}
	}
}

// fromStatusCode maps an SDK-reported status code, without header access.
func fromStatusCode(status int, reason string) *ClassifyError {
	switch {
	case status == http.StatusTooManyRequests:
		return &ClassifyError{Kind: ClassifyRateLimited, Status: status, Reason: reason, RetryAfter: defaultRateLimitWait}
	case status >= 500:
		return &ClassifyError{Kind: ClassifyTransient, Status: status, Reason: reason}
	case status >= 400:
		return &ClassifyError{Kind: ClassifyPermanent, Status: status, Reason: reason}
	default:
		return &ClassifyError{Kind: ClassifyTransient, Status: status, Reason: reason}
	}
}

// --- OpenAI and OpenAI-compatible (including Azure) ---

func (s *ClassifierService) callOpenAI(ctx context.Context, prompt string) (string, error) {
	var clientConfig openai.ClientConfig
	if s.cfg.Provider == "azure" {
		clientConfig = openai.DefaultAzureConfig(s.cfg.APIKey, s.cfg.BaseURL)
	} else {
		clientConfig = openai.DefaultConfig(s.cfg.APIKey)
		if s.cfg.BaseURL != "" {
			clientConfig.BaseURL = s.cfg.BaseURL
		}
	}
	client := openai.NewClientWithConfig(clientConfig)

	temperature := float32(0.3)
	if s.cfg.Temperature > 0 {
		temperature = float32(s.cfg.Temperature)
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fromStatusCode(apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", transportError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &ClassifyError{Kind: ClassifyPermanent, Reason: "no choices in response"}
	}

	return resp.Choices[0].Message.Content, nil
}

// --- Anthropic ---

func (s *ClassifierService) callAnthropic(ctx context.Context, prompt string) (string, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(s.cfg.APIKey),
	)

	maxTokens := int64(s.cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	model := s.cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", fromStatusCode(apiErr.StatusCode, apiErr.Error())
		}
		return "", transportError(err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return content.String(), nil
}

// --- Ollama ---

func (s *ClassifierService) callOllama(ctx context.Context, prompt string) (string, error) {
	baseURL := s.cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", &ClassifyError{Kind: ClassifyNotConfigured, Reason: fmt.Sprintf("invalid Ollama base URL: %v", err)}
	}
	client := api.NewClient(u, http.DefaultClient)

	model := s.cfg.Model
	if model == "" {
		model = "llama3"
	}

	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Options: map[string]interface{}{
			"temperature": s.cfg.Temperature,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", fromStatusCode(statusErr.StatusCode, statusErr.ErrorMessage)
		}
		return "", transportError(err)
	}

	return content.String(), nil
}
