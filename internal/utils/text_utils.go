package utils

import (
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// controlStripper removes control characters that tend to leak out of HTML
// bodies and MIME decoding, keeping ordinary whitespace.
var controlStripper = runes.Remove(runes.Predicate(func(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return false
	}
	return unicode.IsControl(r)
}))

// TextProcessor prepares email bodies for LLM prompts.
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor.
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText safely truncates text to the specified maximum byte size,
// ending on a valid UTF-8 boundary.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Email body truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// Sanitize strips control characters and invalid UTF-8 sequences.
func (tp *TextProcessor) Sanitize(text string) string {
	if !utf8.ValidString(text) {
		text = string([]rune(text))
	}
	out, _, err := transform.String(controlStripper, text)
	if err != nil {
		return text
	}
	return out
}

// ProcessText truncates and sanitizes text in one operation.
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.Sanitize(tp.TruncateText(text, maxSize))
}
