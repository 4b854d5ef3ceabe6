package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Tipos de contenido aceptados en el wire format de la Responses API.
const (
	ContentTypeInputText  = "input_text"
	ContentTypeInputImage = "input_image"
)

var validRoles = map[string]struct{}{
	"user":      {},
	"assistant": {},
	"system":    {},
	"developer": {},
}

// ChatInput es la secuencia ordenada de mensajes enviada por el cliente.
type ChatInput []Message

// Message agrupa las partes de contenido de un rol.
type Message struct {
	Role    string
	Content []ContentPart
}

// ContentPart es una variante cerrada: TextPart o ImagePart.
type ContentPart interface {
	contentPart()
}

// TextPart contiene texto libre.
type TextPart struct {
	Text string
}

// ImagePart referencia una imagen remota o un data URI.
type ImagePart struct {
	URL string
}

func (TextPart) contentPart()  {}
func (ImagePart) contentPart() {}

type wirePart struct {
	Type     string  `json:"type"`
	Text     *string `json:"text,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// UnmarshalJSON acepta content como arreglo de partes o como string plano.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wm wireMessage
	if err := json.Unmarshal(data, &wm); err != nil {
		return err
	}
	m.Role = wm.Role
	m.Content = nil

	raw := bytes.TrimSpace(wm.Content)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return err
		}
		m.Content = []ContentPart{TextPart{Text: text}}
		return nil
	}

	var parts []wirePart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	for i, p := range parts {
		switch p.Type {
		case ContentTypeInputText:
			if p.Text == nil {
				return fmt.Errorf("content[%d]: input_text without text", i)
			}
			m.Content = append(m.Content, TextPart{Text: *p.Text})
		case ContentTypeInputImage:
			if p.ImageURL == nil {
				return fmt.Errorf("content[%d]: input_image without image_url", i)
			}
			m.Content = append(m.Content, ImagePart{URL: *p.ImageURL})
		default:
			return fmt.Errorf("content[%d]: unsupported type %q", i, p.Type)
		}
	}
	return nil
}

// MarshalJSON emite siempre content como arreglo de partes tipadas.
func (m Message) MarshalJSON() ([]byte, error) {
	parts := make([]wirePart, 0, len(m.Content))
	for _, part := range m.Content {
		switch p := part.(type) {
		case TextPart:
			text := p.Text
			parts = append(parts, wirePart{Type: ContentTypeInputText, Text: &text})
		case ImagePart:
			url := p.URL
			parts = append(parts, wirePart{Type: ContentTypeInputImage, ImageURL: &url})
		default:
			return nil, fmt.Errorf("unknown content part %T", part)
		}
	}
	return json.Marshal(struct {
		Role    string     `json:"role"`
		Content []wirePart `json:"content"`
	}{Role: m.Role, Content: parts})
}

// ErrEmptyInput indica que no hay mensajes.
var ErrEmptyInput = errors.New("input has no messages")

// Validate revisa la estructura y acumula todos los problemas encontrados.
func (in ChatInput) Validate() error {
	if len(in) == 0 {
		return ErrEmptyInput
	}
	var result *multierror.Error
	for i, msg := range in {
		if _, ok := validRoles[strings.TrimSpace(msg.Role)]; !ok {
			result = multierror.Append(result, fmt.Errorf("message[%d]: invalid role %q", i, msg.Role))
		}
		if len(msg.Content) == 0 {
			result = multierror.Append(result, fmt.Errorf("message[%d]: empty content", i))
		}
		for j, part := range msg.Content {
			if img, ok := part.(ImagePart); ok && strings.TrimSpace(img.URL) == "" {
				result = multierror.Append(result, fmt.Errorf("message[%d].content[%d]: empty image_url", i, j))
			}
		}
	}
	return result.ErrorOrNil()
}

// Parts recorre todas las partes de todos los mensajes en orden.
func (in ChatInput) Parts() []ContentPart {
	var out []ContentPart
	for _, msg := range in {
		out = append(out, msg.Content...)
	}
	return out
}
