package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// CaptionResult es el texto final devuelto al cliente.
type CaptionResult struct {
	Text string `json:"text"`
}

// CaptionLog registra una generación exitosa.
type CaptionLog struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	HasImage  bool      `json:"has_image"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// ModerationCategory es una categoría con su veredicto.
type ModerationCategory struct {
	Name    string
	Flagged bool
}

// ModerationCategories conserva el orden en que llegaron las claves.
type ModerationCategories []ModerationCategory

// ModerationResult es el resultado de moderación para una imagen.
type ModerationResult struct {
	Flagged    bool                 `json:"flagged"`
	Categories ModerationCategories `json:"categories"`
}

// FlaggedNames devuelve las categorías en true, en orden natural.
func (c ModerationCategories) FlaggedNames() []string {
	var names []string
	for _, cat := range c {
		if cat.Flagged {
			names = append(names, cat.Name)
		}
	}
	return names
}

// UnmarshalJSON decodifica el objeto token a token para no perder el orden.
func (c *ModerationCategories) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("categories: expected object")
	}
	var out ModerationCategories
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("categories: expected key")
		}
		var val *bool
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("categories[%s]: %w", key, err)
		}
		out = append(out, ModerationCategory{Name: key, Flagged: val != nil && *val})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// MarshalJSON emite las categorías como objeto respetando el orden.
func (c ModerationCategories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cat.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		if cat.Flagged {
			buf.WriteString(":true")
		} else {
			buf.WriteString(":false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
