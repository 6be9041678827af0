package parser

import (
	"strings"
	"unicode"
)

// Tokenizer segments query text into tokens. Implementations may wrap a
// proper CJK segmenter; the parser only requires that the original text be
// recoverable by concatenation or substring search.
type Tokenizer interface {
	Tokenize(text string) []string
}

// simpleTokenizer splits on whitespace and punctuation. It always appends
// the whole trimmed text as a final token so that keyword phrases spanning
// split points are still found by substring matching.
type simpleTokenizer struct{}

// NewSimpleTokenizer returns the default tokenizer.
func NewSimpleTokenizer() Tokenizer {
	return simpleTokenizer{}
}

func (simpleTokenizer) Tokenize(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	tokens := strings.FieldsFunc(trimmed, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return append(tokens, trimmed)
}
