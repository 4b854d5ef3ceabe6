package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"caption-llm/internal/llm"
)

// ModerationGate rechaza imágenes marcadas por el chequeo de moderación.
type ModerationGate struct {
	moderator llm.Moderator
}

func NewModerationGate(moderator llm.Moderator) *ModerationGate {
	return &ModerationGate{moderator: moderator}
}

// Check envía todas las imágenes en un solo lote. Solo el primer resultado
// decide; el resto de resultados se ignora.
func (g *ModerationGate) Check(ctx context.Context, imageURLs []string) error {
	if len(imageURLs) == 0 {
		return nil
	}
	if g.moderator == nil {
		return errors.New("moderation not configured")
	}

	results, err := g.moderator.Moderate(ctx, imageURLs)
	if err != nil {
		return fmt.Errorf("moderate images: %w", err)
	}
	if len(results) == 0 {
		return errors.New("moderation returned no results")
	}

	first := results[0]
	if !first.Flagged {
		return nil
	}
	return &ValidationError{
		Message: fmt.Sprintf("Content flagged as inappropriate: %s", strings.Join(first.Categories.FlaggedNames(), ", ")),
	}
}
