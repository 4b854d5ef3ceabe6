package service

import (
	"context"
	"errors"

	"caption-llm/internal/domain"
	"caption-llm/internal/llm"
)

// DefaultResponseText se devuelve cuando el modelo completa sin texto.
const DefaultResponseText = "Response received"

// CompletionDispatcher ejecuta la corrida y desenvuelve el resultado.
type CompletionDispatcher struct {
	completer llm.Completer
	model     string
}

func NewCompletionDispatcher(completer llm.Completer, model string) *CompletionDispatcher {
	return &CompletionDispatcher{completer: completer, model: model}
}

func (d *CompletionDispatcher) Dispatch(ctx context.Context, instructions string, input domain.ChatInput) (domain.CaptionResult, error) {
	if d.completer == nil {
		return domain.CaptionResult{}, errors.New("completion client not configured")
	}

	resp, err := d.completer.Complete(ctx, llm.CompletionRequest{
		Model:        d.model,
		Instructions: instructions,
		Input:        input,
	})
	if err != nil {
		return domain.CaptionResult{}, err
	}
	if resp.Status != llm.StatusCompleted {
		return domain.CaptionResult{}, &UpstreamStatusError{Status: resp.Status}
	}

	text := resp.OutputText
	if text == "" {
		text = DefaultResponseText
	}
	return domain.CaptionResult{Text: text}, nil
}
