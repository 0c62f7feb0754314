// Package tokencount implements the deterministic token-count heuristic
// used to budget context windows and tool observations without calling a
// real tokenizer.
package tokencount

import "unicode/utf8"

// baseCharsPerToken mirrors common small-model tokenizers: roughly 4
// characters per token for English prose.
const baseCharsPerToken = 4.0

// Estimate returns an approximate token count for text, within about ±10%
// for typical English/code mixes. It adjusts the flat chars-per-token ratio
// for whitespace density: text that is mostly whitespace (e.g. indentation-
// heavy code, padded tables) tokenizes lighter than prose of the same byte
// length, so it needs fewer apparent tokens per character.
func Estimate(text string) uint {
	if text == "" {
		return 0
	}

	runeCount := utf8.RuneCountInString(text)
	if runeCount == 0 {
		return 0
	}

	whitespace := 0
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			whitespace++
		}
	}
	whitespaceRatio := float64(whitespace) / float64(runeCount)

	// Heavier whitespace ratio means a higher effective chars-per-token
	// ratio (fewer tokens for the same number of characters), bounded so
	// the adjustment never more than doubles the baseline.
	charsPerToken := baseCharsPerToken * (1 + whitespaceRatio)

	tokens := float64(runeCount) / charsPerToken
	if tokens < 1 {
		return 1
	}
	return uint(tokens + 0.5)
}
