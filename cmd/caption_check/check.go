package main

import (
	"strings"
	"unicode"
)

// Scenario es un caso de prueba contra el proveedor real.
type Scenario struct {
	Name     string
	ImageURL string
	Tones    []string
	MaxWords int
}

// adherence resume qué tan cerca quedó el caption del largo pedido.
type adherence struct {
	Words     int
	OverLimit bool
	Score     int
}

// countWords cuenta tokens separados por espacio que contengan al menos una letra o dígito.
func countWords(text string) int {
	n := 0
	for _, field := range strings.Fields(text) {
		if strings.IndexFunc(field, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) }) >= 0 {
			n++
		}
	}
	return n
}

// scoreAdherence puntúa 1..5: 5 cerca del objetivo, 1 si se pasa del límite.
func scoreAdherence(caption string, target int) adherence {
	words := countWords(caption)
	a := adherence{Words: words}
	if target <= 0 {
		a.Score = 1
		return a
	}
	if words > target {
		a.OverLimit = true
		a.Score = 1
		return a
	}
	ratio := float64(words) / float64(target)
	switch {
	case ratio >= 0.8:
		a.Score = 5
	case ratio >= 0.6:
		a.Score = 4
	case ratio >= 0.4:
		a.Score = 3
	default:
		a.Score = 2
	}
	return a
}
