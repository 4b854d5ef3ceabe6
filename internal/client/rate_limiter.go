package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var ErrClientRateLimited = errors.New("client rate limit exceeded")

type clientLimitState struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// ClientRateLimiter es la compuerta optimista del lado del cliente. El servidor
// sigue siendo la autoridad; este contador solo evita requests que van a fallar.
// Solo se incrementa después de una generación exitosa.
type ClientRateLimiter struct {
	mu     sync.Mutex
	path   string
	max    int
	window time.Duration
	now    func() time.Time
	memory *clientLimitState
}

// NewClientRateLimiter persiste el contador en path; con path vacío vive solo en memoria.
func NewClientRateLimiter(path string, max int, window time.Duration) *ClientRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Hour
	}
	return &ClientRateLimiter{
		path:   path,
		max:    max,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DefaultStatePath ubica el archivo de estado en el directorio de config del usuario.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "caption-llm", "ratelimit.json")
}

func (l *ClientRateLimiter) RemainingRequests() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	state := l.load()
	if remaining := l.max - state.Count; remaining > 0 {
		return remaining
	}
	return 0
}

func (l *ClientRateLimiter) IncrementRequest() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	state := l.load()
	state.Count++
	return l.save(state)
}

// load devuelve el estado vigente, reiniciando la ventana si ya venció.
// Un archivo ilegible o corrupto también abre una ventana nueva.
func (l *ClientRateLimiter) load() clientLimitState {
	now := l.now()
	fresh := clientLimitState{WindowStart: now}
	if l.path == "" {
		if l.memory == nil || now.After(l.memory.WindowStart.Add(l.window)) {
			return fresh
		}
		return *l.memory
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return fresh
	}
	var state clientLimitState
	if err := json.Unmarshal(data, &state); err != nil {
		return fresh
	}
	if now.After(state.WindowStart.Add(l.window)) {
		return fresh
	}
	return state
}

func (l *ClientRateLimiter) save(state clientLimitState) error {
	if l.path == "" {
		l.memory = &state
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(l.path, data, 0o600)
}
