package service

import (
	"strings"

	"caption-llm/internal/domain"
)

// Classification resume lo que el pipeline necesita saber de un ChatInput.
type Classification struct {
	HasImage       bool
	ValidationText string
	ImageURLs      []string
}

// ClassifyRequest detecta imágenes y extrae el texto a validar.
// El texto es la concatenación de todas las partes de texto separadas por un espacio.
func ClassifyRequest(input domain.ChatInput) Classification {
	var (
		c     Classification
		texts []string
	)
	for _, part := range input.Parts() {
		switch p := part.(type) {
		case domain.TextPart:
			texts = append(texts, p.Text)
		case domain.ImagePart:
			c.HasImage = true
			if p.URL != "" {
				c.ImageURLs = append(c.ImageURLs, p.URL)
			}
		}
	}
	c.ValidationText = strings.Join(texts, " ")
	return c
}

const (
	generalInstructions = "You are a helpful assistant who knows general knowledge about the world. " +
		"Keep your responses to one or two sentences, maximum."
	captionInstructions = "You are a helpful assistant who generates image captions. " +
		"Keep your responses concise and engaging. " +
		"When the user asks for a number of words, aim to land close to that count " +
		"instead of treating it only as an upper limit, and never go over it."
)

// Instructions elige la plantilla de instrucciones según la clasificación.
func (c Classification) Instructions() string {
	if c.HasImage {
		return captionInstructions
	}
	return generalInstructions
}
