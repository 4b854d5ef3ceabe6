package llm

import (
	"context"
	"sync"

	"caption-llm/internal/domain"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	mu sync.Mutex

	Response          CompletionResponse
	Err               error
	ModerationResults []domain.ModerationResult
	ModerationErr     error
	NotConfigured     bool

	CompleteCalls   []CompletionRequest
	ModeratedInputs [][]string
}

func (m *MockClient) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls = append(m.CompleteCalls, req)
	return m.Response, m.Err
}

func (m *MockClient) Moderate(_ context.Context, imageURLs []string) ([]domain.ModerationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ModeratedInputs = append(m.ModeratedInputs, imageURLs)
	return m.ModerationResults, m.ModerationErr
}

func (m *MockClient) Configured() bool {
	return !m.NotConfigured
}
