package service

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited   = errors.New("rate limited")
	ErrNotConfigured = errors.New("llm api key not configured")
)

// ValidationError es un error corregible por el usuario; su mensaje se expone tal cual.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamStatusError indica que la corrida no llegó al estado "completed".
type UpstreamStatusError struct {
	Status string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("Responses API error: %s", e.Status)
}
