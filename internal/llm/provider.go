package llm

import (
	"context"

	"caption-llm/internal/domain"
)

// StatusCompleted es el único estado terminal exitoso de una corrida.
const StatusCompleted = "completed"

// CompletionRequest describe una corrida contra el modelo.
type CompletionRequest struct {
	Model        string
	Instructions string
	Input        domain.ChatInput
}

// CompletionResponse es la respuesta ya desenvuelta del proveedor.
type CompletionResponse struct {
	ID         string
	Status     string
	OutputText string
}

// Completer genera texto a partir de instrucciones y entrada multimodal.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Configured() bool
}

// Moderator envía imágenes al chequeo de moderación del proveedor.
type Moderator interface {
	Moderate(ctx context.Context, imageURLs []string) ([]domain.ModerationResult, error)
}
