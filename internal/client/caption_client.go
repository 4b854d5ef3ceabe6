package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"caption-llm/internal/domain"
)

const captionPath = "/api/openai/responses"

// CaptionResponse es el cuerpo 200 del endpoint de captions.
type CaptionResponse struct {
	Response          string          `json:"response"`
	OriginalInput     json.RawMessage `json:"originalInput"`
	RemainingRequests int             `json:"remainingRequests"`
}

// APIClient llama al endpoint de captions del servidor.
type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Generate envía el input y devuelve el mensaje de error del servidor si falla.
func (c *APIClient) Generate(ctx context.Context, input domain.ChatInput) (CaptionResponse, error) {
	bodyBytes, err := json.Marshal(struct {
		Input domain.ChatInput `json:"input"`
	}{Input: input})
	if err != nil {
		return CaptionResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+captionPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return CaptionResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return CaptionResponse{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CaptionResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return CaptionResponse{}, errors.New(apiErr.Error)
		}
		return CaptionResponse{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var out CaptionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return CaptionResponse{}, fmt.Errorf("unmarshal response: %w", err)
	}
	return out, nil
}

// CaptionGenerator es lo que necesita GenerateCaption del cliente HTTP.
type CaptionGenerator interface {
	Generate(ctx context.Context, input domain.ChatInput) (CaptionResponse, error)
}

// Result es el caption generado junto con los requests que le quedan al cliente.
// StateErr no es fatal: el caption ya fue generado aunque el contador no se guardó.
type Result struct {
	Caption           string
	RemainingRequests int
	StateErr          error
}

// GenerateCaption valida el formulario, consulta el límite local, llama al
// servidor y solo cuenta el request si la generación fue exitosa.
func GenerateCaption(ctx context.Context, form *CaptionForm, limiter *ClientRateLimiter, api CaptionGenerator) (Result, error) {
	if !form.HasImage() {
		return Result{}, ErrNoImageSource
	}
	if limiter.RemainingRequests() <= 0 {
		return Result{RemainingRequests: 0}, ErrClientRateLimited
	}

	input, err := form.BuildInput()
	if err != nil {
		return Result{RemainingRequests: limiter.RemainingRequests()}, err
	}

	resp, err := api.Generate(ctx, input)
	if err != nil {
		return Result{RemainingRequests: limiter.RemainingRequests()}, err
	}

	res := Result{Caption: resp.Response}
	if err := limiter.IncrementRequest(); err != nil {
		res.StateErr = fmt.Errorf("update client rate limit: %w", err)
	}
	res.RemainingRequests = limiter.RemainingRequests()
	return res, nil
}
