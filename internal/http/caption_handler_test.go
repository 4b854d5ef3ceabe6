package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"caption-llm/internal/domain"
	"caption-llm/internal/llm"
	"caption-llm/internal/service"
)

const captionPath = "/api/openai/responses"

func setupCaptionRouter(mock *llm.MockClient, limit int) *gin.Engine {
	return setupCaptionRouterWithLogger(mock, limit, zap.NewNop())
}

func setupCaptionRouterWithLogger(mock *llm.MockClient, limit int, handlerLogger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewCaptionService(
		zap.NewNop(),
		service.NewMemoryRateLimiter(time.Minute, limit),
		mock,
		mock,
		nil,
		service.CaptionOptions{Model: "gpt-test", MaxInputLength: 2000},
	)
	return NewRouter(
		zap.NewNop(),
		[]string{"*"},
		NewCaptionHandler(handlerLogger, svc),
		NewHealthHandler("memory", nil),
	)
}

func postCaption(r http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, captionPath, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

const textOnlyBody = `{"input":[{"role":"user","content":[{"type":"input_text","text":"What is the capital of France?"}]}]}`

const imageBody = `{"input":[{"role":"user","content":[
	{"type":"input_text","text":"Describe this image in 20 words or less. Use a Fun tone."},
	{"type":"input_image","image_url":"https://example.com/cat.jpg"}]}]}`

func completedMock(text string) *llm.MockClient {
	return &llm.MockClient{
		Response:          llm.CompletionResponse{Status: llm.StatusCompleted, OutputText: text},
		ModerationResults: []domain.ModerationResult{{Flagged: false}},
	}
}

func TestGenerateCaption_TextOnlySuccess(t *testing.T) {
	r := setupCaptionRouter(completedMock("Paris is the capital of France."), 5)

	rec := postCaption(r, textOnlyBody, map[string]string{"X-Forwarded-For": "198.51.100.1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["response"] != "Paris is the capital of France." {
		t.Fatalf("unexpected response %v", body["response"])
	}
	if body["remainingRequests"] != float64(4) {
		t.Fatalf("expected 4 remaining, got %v", body["remainingRequests"])
	}
	original, ok := body["originalInput"].([]any)
	if !ok || len(original) != 1 {
		t.Fatalf("expected originalInput echo, got %v", body["originalInput"])
	}
}

func TestGenerateCaption_ImageSuccess(t *testing.T) {
	mock := completedMock("A curious cat peeks over a sunny windowsill.")
	r := setupCaptionRouter(mock, 5)

	rec := postCaption(r, imageBody, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(mock.ModeratedInputs) != 1 || mock.ModeratedInputs[0][0] != "https://example.com/cat.jpg" {
		t.Fatalf("expected image to be moderated, got %+v", mock.ModeratedInputs)
	}
}

func TestGenerateCaption_LogsImageClassification(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := setupCaptionRouterWithLogger(completedMock("A cat."), 5, zap.New(core))

	if rec := postCaption(r, imageBody, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec := postCaption(r, textOnlyBody, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	entries := logs.FilterMessage("caption generated").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 caption log entries, got %d", len(entries))
	}
	if entries[0].ContextMap()["has_image"] != true || entries[1].ContextMap()["has_image"] != false {
		t.Fatalf("unexpected has_image fields: %v / %v", entries[0].ContextMap(), entries[1].ContextMap())
	}
}

func TestGenerateCaption_EmptyInput(t *testing.T) {
	r := setupCaptionRouter(completedMock("x"), 5)

	for _, body := range []string{`{"input":[]}`, `{}`, `{"input":null}`, `{"input":"hello"}`, `not json`} {
		rec := postCaption(r, body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
		if got := decodeBody(t, rec)["error"]; got != "Invalid input format" {
			t.Fatalf("body %s: unexpected error %v", body, got)
		}
	}
}

func TestGenerateCaption_RateLimited(t *testing.T) {
	r := setupCaptionRouter(completedMock("ok"), 2)
	headers := map[string]string{"X-Real-IP": "192.0.2.10"}

	for i := 0; i < 2; i++ {
		if rec := postCaption(r, textOnlyBody, headers); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := postCaption(r, textOnlyBody, headers)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Rate limit exceeded. Please try again later." {
		t.Fatalf("unexpected error %v", got)
	}

	other := postCaption(r, textOnlyBody, map[string]string{"X-Real-IP": "192.0.2.11"})
	if other.Code != http.StatusOK {
		t.Fatalf("expected other identity to pass, got %d", other.Code)
	}
}

func TestGenerateCaption_RateLimitAppliesBeforeParsing(t *testing.T) {
	r := setupCaptionRouter(completedMock("ok"), 1)
	postCaption(r, `{"input":[]}`, nil)

	rec := postCaption(r, `{"input":[]}`, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 even for malformed body, got %d", rec.Code)
	}
}

func TestGenerateCaption_TextValidation(t *testing.T) {
	r := setupCaptionRouter(completedMock("ok"), 5)

	long := strings.Repeat("a", 2001)
	rec := postCaption(r, `{"input":[{"role":"user","content":[{"type":"input_text","text":"`+long+`"}]}]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = postCaption(r, `{"input":[{"role":"user","content":[{"type":"input_image","image_url":"https://x/y.png"}]}]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for image without text, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Input cannot be empty" {
		t.Fatalf("unexpected error %v", got)
	}
}

func TestGenerateCaption_MissingCredential(t *testing.T) {
	mock := completedMock("ok")
	mock.NotConfigured = true
	r := setupCaptionRouter(mock, 5)

	rec := postCaption(r, textOnlyBody, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	msg, _ := decodeBody(t, rec)["error"].(string)
	if msg != "Caption service temporarily unavailable" {
		t.Fatalf("unexpected error %q", msg)
	}
	if strings.Contains(strings.ToLower(msg), "key") {
		t.Fatalf("error leaks credential details: %q", msg)
	}
}

func TestGenerateCaption_FlaggedContent(t *testing.T) {
	mock := completedMock("never")
	mock.ModerationResults = []domain.ModerationResult{{
		Flagged:    true,
		Categories: domain.ModerationCategories{{Name: "violence", Flagged: true}, {Name: "sexual", Flagged: false}},
	}}
	r := setupCaptionRouter(mock, 5)

	rec := postCaption(r, imageBody, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	msg, _ := decodeBody(t, rec)["error"].(string)
	if !strings.Contains(msg, "violence") || strings.Contains(msg, "sexual") {
		t.Fatalf("unexpected error %q", msg)
	}
	if len(mock.CompleteCalls) != 0 {
		t.Fatalf("expected no completion call")
	}
}

func TestGenerateCaption_UpstreamNotCompleted(t *testing.T) {
	mock := &llm.MockClient{Response: llm.CompletionResponse{Status: "incomplete"}}
	r := setupCaptionRouter(mock, 5)

	rec := postCaption(r, textOnlyBody, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Responses API error: incomplete" {
		t.Fatalf("unexpected error %v", got)
	}
}

func TestGenerateCaption_UnhandledError(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("do request: context deadline exceeded")}
	r := setupCaptionRouter(mock, 5)

	rec := postCaption(r, textOnlyBody, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "do request: context deadline exceeded" {
		t.Fatalf("unexpected error %v", got)
	}
}

func TestResolveIdentity(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "forwarded first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1", "X-Real-IP": "10.0.0.2"}, want: "203.0.113.5"},
		{name: "real ip fallback", headers: map[string]string{"X-Real-IP": " 10.0.0.2 "}, want: "10.0.0.2"},
		{name: "unknown", want: service.UnknownIdentity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, captionPath, nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := ResolveIdentity(req); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRouter_RequestIDAndHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewCaptionService(zap.NewNop(), nil, &llm.MockClient{}, nil, nil, service.CaptionOptions{})
	health := NewHealthHandler("redis", map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("down") },
	})
	r := NewRouter(zap.NewNop(), nil, NewCaptionHandler(zap.NewNop(), svc), health)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") != "req-123" {
		t.Fatalf("expected request id echo, got %q", rec.Header().Get("X-Request-ID"))
	}
	body := decodeBody(t, rec)
	if body["rate_limiter"] != "redis" {
		t.Fatalf("unexpected limiter backend %v", body["rate_limiter"])
	}
	deps, _ := body["dependencies"].(map[string]any)
	if deps["database"] != "ok" || deps["redis"] != "unreachable" {
		t.Fatalf("unexpected dependencies %v", deps)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := setupCaptionRouter(completedMock("ok"), 5)

	req := httptest.NewRequest(http.MethodOptions, captionPath, nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
