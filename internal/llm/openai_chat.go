package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"caption-llm/internal/domain"
)

type chatCompletionCreator interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatClient implementa Completer sobre chat completions usando go-openai.
// Sirve para proveedores compatibles que no exponen la Responses API.
type ChatClient struct {
	api    chatCompletionCreator
	apiKey string
}

func NewChatClient(baseURL, apiKey string, timeout time.Duration) *ChatClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &ChatClient{
		api:    openai.NewClientWithConfig(cfg),
		apiKey: apiKey,
	}
}

func (c *ChatClient) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// Complete traduce el ChatInput a mensajes multimodales. Un finish_reason
// distinto de "stop" se reporta como estado no terminal.
func (c *ChatClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Input)+1)
	if req.Instructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Instructions,
		})
	}
	for _, msg := range req.Input {
		converted, err := toChatMessage(msg)
		if err != nil {
			return CompletionResponse{}, err
		}
		messages = append(messages, converted)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	})
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResponse{}, errors.New("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	status := StatusCompleted
	if choice.FinishReason != openai.FinishReasonStop {
		status = string(choice.FinishReason)
		if status == "" {
			status = "incomplete"
		}
	}
	return CompletionResponse{
		ID:         resp.ID,
		Status:     status,
		OutputText: choice.Message.Content,
	}, nil
}

func toChatMessage(msg domain.Message) (openai.ChatCompletionMessage, error) {
	parts := make([]openai.ChatMessagePart, 0, len(msg.Content))
	for _, part := range msg.Content {
		switch p := part.(type) {
		case domain.TextPart:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		case domain.ImagePart:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    p.URL,
					Detail: openai.ImageURLDetailAuto,
				},
			})
		default:
			return openai.ChatCompletionMessage{}, fmt.Errorf("unknown content part %T", part)
		}
	}
	role := msg.Role
	if role == "developer" {
		role = openai.ChatMessageRoleSystem
	}
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}, nil
}
