package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"caption-llm/internal/domain"
	"caption-llm/internal/llm"
	"caption-llm/internal/repository"
)

// CaptionOptions agrupa parámetros fijos del pipeline.
type CaptionOptions struct {
	Model          string
	MaxInputLength int
}

// CaptionService orquesta rate limit, validación, moderación y completion.
type CaptionService struct {
	logger         *zap.Logger
	limiter        RateLimiter
	completer      llm.Completer
	gate           *ModerationGate
	dispatcher     *CompletionDispatcher
	logs           repository.CaptionLogRepository
	maxInputLength int
}

// GenerateOutput es lo que el handler devuelve al cliente en caso de exito.
type GenerateOutput struct {
	Response          string
	RemainingRequests int
	HasImage          bool
}

func NewCaptionService(
	logger *zap.Logger,
	limiter RateLimiter,
	completer llm.Completer,
	moderator llm.Moderator,
	logs repository.CaptionLogRepository,
	opts CaptionOptions,
) *CaptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewMemoryRateLimiter(time.Hour, 10)
	}
	if opts.MaxInputLength <= 0 {
		opts.MaxInputLength = DefaultMaxInputLength
	}
	return &CaptionService{
		logger:         logger,
		limiter:        limiter,
		completer:      completer,
		gate:           NewModerationGate(moderator),
		dispatcher:     NewCompletionDispatcher(completer, opts.Model),
		logs:           logs,
		maxInputLength: opts.MaxInputLength,
	}
}

// Admit consume un request del bucket de la identidad.
func (s *CaptionService) Admit(identity string) error {
	if !s.limiter.CheckLimit(identity) {
		s.logger.Warn("rate limit exceeded", zap.String("identity", identity))
		return ErrRateLimited
	}
	return nil
}

// Generate corre el pipeline después de Admit y corta en la primera compuerta que falle.
func (s *CaptionService) Generate(ctx context.Context, identity string, input domain.ChatInput) (GenerateOutput, error) {
	if err := input.Validate(); err != nil {
		s.logger.Warn("invalid chat input", zap.Error(err))
		return GenerateOutput{}, &ValidationError{Message: "Invalid input format"}
	}

	classification := ClassifyRequest(input)

	if v := ValidateText(classification.ValidationText, s.maxInputLength); !v.IsValid {
		return GenerateOutput{}, &ValidationError{Message: v.Error}
	}

	if s.completer == nil || !s.completer.Configured() {
		s.logger.Error("llm api key not configured")
		return GenerateOutput{}, ErrNotConfigured
	}

	if classification.HasImage {
		if err := s.gate.Check(ctx, classification.ImageURLs); err != nil {
			return GenerateOutput{}, err
		}
	}

	result, err := s.dispatcher.Dispatch(ctx, classification.Instructions(), input)
	if err != nil {
		return GenerateOutput{}, err
	}

	s.record(ctx, identity, classification.HasImage, result.Text)

	return GenerateOutput{
		Response:          result.Text,
		RemainingRequests: s.limiter.Remaining(identity),
		HasImage:          classification.HasImage,
	}, nil
}

func (s *CaptionService) record(ctx context.Context, identity string, hasImage bool, response string) {
	if s.logs == nil {
		return
	}
	entry := domain.CaptionLog{
		ID:        uuid.NewString(),
		Identity:  identity,
		HasImage:  hasImage,
		Response:  response,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Warn("caption log failed", zap.Error(err), zap.String("caption_id", entry.ID))
	}
}
