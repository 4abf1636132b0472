// Package util provides randomness helpers for visual effects.
package util

import (
	"math/rand/v2"
	"strings"
	"unicode"
)

// glitchGlyphs are substituted into text by ScrambleGlyphs.
const glitchGlyphs = "#$%&*@!?/\\|<>=+~^"

// Chance reports true with probability p. Values outside [0,1] are clamped.
// Uses math/rand/v2; this is not for security purposes.
func Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rand.Float64() < p
}

// ScrambleGlyphs replaces roughly density of the non-space runes in text with
// glitch glyphs. Whitespace is preserved so the line keeps its shape.
func ScrambleGlyphs(text string, density float64) string {
	if text == "" || density <= 0 {
		return text
	}

	var builder strings.Builder
	builder.Grow(len(text))

	for _, r := range text {
		if !unicode.IsSpace(r) && Chance(density) {
			builder.WriteByte(glitchGlyphs[rand.IntN(len(glitchGlyphs))])
			continue
		}
		builder.WriteRune(r)
	}

	return builder.String()
}
