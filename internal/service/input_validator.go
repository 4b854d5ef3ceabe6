package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxInputLength es el límite de caracteres del texto validado.
const DefaultMaxInputLength = 2000

// TextValidation es el resultado de ValidateText.
type TextValidation struct {
	IsValid bool
	Error   string
}

// ValidateText rechaza texto vacío o con más de maxLength caracteres.
func ValidateText(text string, maxLength int) TextValidation {
	if strings.TrimSpace(text) == "" {
		return TextValidation{Error: "Input cannot be empty"}
	}
	if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		return TextValidation{Error: fmt.Sprintf("Input exceeds maximum length of %d characters", maxLength)}
	}
	return TextValidation{IsValid: true}
}
