package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck verifica una dependencia opcional.
type HealthCheck func(ctx context.Context) error

// HealthHandler reporta el backend del rate limiter y el estado de dependencias.
type HealthHandler struct {
	limiterBackend string
	checks         map[string]HealthCheck
}

func NewHealthHandler(limiterBackend string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{limiterBackend: limiterBackend, checks: checks}
}

// Health maneja GET /healthz. Una dependencia caída no cambia el status HTTP.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = "unreachable"
			continue
		}
		deps[name] = "ok"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"rate_limiter": h.limiterBackend,
		"dependencies": deps,
	})
}
