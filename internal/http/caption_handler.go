package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"caption-llm/internal/domain"
	"caption-llm/internal/service"
)

const (
	msgRateLimited    = "Rate limit exceeded. Please try again later."
	msgInvalidInput   = "Invalid input format"
	msgUnavailable    = "Caption service temporarily unavailable"
	msgGenericFailure = "Caption generation failed"
)

// CaptionHandler expone el pipeline de captions por HTTP.
type CaptionHandler struct {
	logger   *zap.Logger
	captions *service.CaptionService
}

// NewCaptionHandler crea una instancia de CaptionHandler con dependencias necesarias.
func NewCaptionHandler(logger *zap.Logger, captions *service.CaptionService) *CaptionHandler {
	return &CaptionHandler{
		logger:   logger,
		captions: captions,
	}
}

// GenerateCaption maneja POST /api/openai/responses.
func (h *CaptionHandler) GenerateCaption(c *gin.Context) {
	identity := ResolveIdentity(c.Request)

	if err := h.captions.Admit(identity); err != nil {
		h.writeError(c, err)
		return
	}

	var req struct {
		Input json.RawMessage `json:"input"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid caption request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidInput})
		return
	}

	var input domain.ChatInput
	if len(req.Input) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidInput})
		return
	}
	if err := json.Unmarshal(req.Input, &input); err != nil {
		h.logger.Warn("invalid chat input", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidInput})
		return
	}

	out, err := h.captions.Generate(c.Request.Context(), identity, input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("caption generated",
		zap.String("identity", identity),
		zap.Bool("has_image", out.HasImage),
		zap.Int("remaining_requests", out.RemainingRequests),
	)

	c.JSON(http.StatusOK, gin.H{
		"response":          out.Response,
		"originalInput":     req.Input,
		"remainingRequests": out.RemainingRequests,
	})
}

func (h *CaptionHandler) writeError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		statusErr     *service.UpstreamStatusError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msgRateLimited})
	case errors.Is(err, service.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgUnavailable})
	case errors.As(err, &statusErr):
		h.logger.Error("upstream did not complete", zap.String("status", statusErr.Status))
		c.JSON(http.StatusInternalServerError, gin.H{"error": statusErr.Error()})
	default:
		h.logger.Error("caption generation failed", zap.Error(err))
		msg := err.Error()
		if msg == "" {
			msg = msgGenericFailure
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
