package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"caption-llm/internal/domain"
)

const defaultModerationModel = "omni-moderation-latest"

// HTTPClient implementa Completer y Moderator contra la Responses API de OpenAI.
type HTTPClient struct {
	baseURL         string
	apiKey          string
	moderationModel string
	client          *http.Client
	logger          *zap.Logger
}

// NewHTTPClient construye un cliente HTTP apuntando a /responses y /moderations.
func NewHTTPClient(baseURL, apiKey, moderationModel string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if moderationModel == "" {
		moderationModel = defaultModerationModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		moderationModel: moderationModel,
		client:          &http.Client{Timeout: timeout},
		logger:          logger,
	}
}

// Configured indica si hay credencial para el proveedor.
func (c *HTTPClient) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

func (c *HTTPClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	body := responsesRequest{
		Model:        req.Model,
		Instructions: req.Instructions,
		Input:        req.Input,
	}

	var rr responsesResponse
	if err := c.post(ctx, "/responses", body, &rr); err != nil {
		return CompletionResponse{}, err
	}
	if rr.Error != nil && rr.Error.Message != "" {
		return CompletionResponse{}, fmt.Errorf("responses api error: %s", rr.Error.Message)
	}

	return CompletionResponse{
		ID:         rr.ID,
		Status:     rr.Status,
		OutputText: rr.outputText(),
	}, nil
}

func (c *HTTPClient) Moderate(ctx context.Context, imageURLs []string) ([]domain.ModerationResult, error) {
	if len(imageURLs) == 0 {
		return nil, nil
	}
	items := make([]moderationInput, 0, len(imageURLs))
	for _, u := range imageURLs {
		items = append(items, moderationInput{Type: "image_url", ImageURL: &moderationImageURL{URL: u}})
	}

	var mr moderationResponse
	if err := c.post(ctx, "/moderations", moderationRequest{Model: c.moderationModel, Input: items}, &mr); err != nil {
		return nil, err
	}
	if mr.Error != nil && mr.Error.Message != "" {
		return nil, fmt.Errorf("moderation api error: %s", mr.Error.Message)
	}
	return mr.Results, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, out any) error {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("llm error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return fmt.Errorf("llm http error: status=%d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

type apiError struct {
	Message string `json:"message"`
}

type responsesRequest struct {
	Model        string           `json:"model"`
	Instructions string           `json:"instructions,omitempty"`
	Input        domain.ChatInput `json:"input"`
}

type responsesResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *apiError `json:"error,omitempty"`
}

// outputText concatena las partes output_text de los mensajes, como hace el SDK oficial.
func (r responsesResponse) outputText() string {
	var sb strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}

type moderationImageURL struct {
	URL string `json:"url"`
}

type moderationInput struct {
	Type     string              `json:"type"`
	ImageURL *moderationImageURL `json:"image_url,omitempty"`
}

type moderationRequest struct {
	Model string            `json:"model"`
	Input []moderationInput `json:"input"`
}

type moderationResponse struct {
	ID      string                    `json:"id"`
	Results []domain.ModerationResult `json:"results"`
	Error   *apiError                 `json:"error,omitempty"`
}
