// Package parser extracts structured trip intent from free-form Chinese
// travel queries: duration, amenity filters, the main attraction, and the
// target region.
package parser

import (
	"go.uber.org/zap"
)

// ParsedQuery is the structured intent extracted from one query. It is
// immutable once produced.
type ParsedQuery struct {
	// Days is the trip duration. Valid only when HasDays is true.
	Days    int
	HasDays bool
	// Filters are the amenity filters requested in the text.
	Filters []string
	// POI is the primary named attraction, "" if none was recognized.
	POI string
	// Place is the canonical region, "" if none was recognized.
	Place string
}

// Parser combines the duration, filter, POI, and location extractors.
type Parser struct {
	tokenizer Tokenizer
}

// Option configures a Parser.
type Option func(*Parser)

// WithTokenizer replaces the default tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(p *Parser) {
		p.tokenizer = t
	}
}

// New creates a Parser with the default tokenizer.
func New(opts ...Option) *Parser {
	p := &Parser{tokenizer: NewSimpleTokenizer()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse extracts trip intent from text. It fails with a parse error
// (IsParseError) when the duration is contradictory or out of range, or
// when neither a POI nor a region can be determined. Tokenizer failures
// are not fatal: extraction falls back to the raw text as a single token.
func (p *Parser) Parse(text string) (*ParsedQuery, error) {
	tokens := p.safeTokenize(text)

	days, hasDays, err := ExtractDays(text)
	if err != nil {
		return nil, err
	}

	pq := &ParsedQuery{
		Days:    days,
		HasDays: hasDays,
		Filters: ExtractFilters(tokens),
		Place:   ExtractLocation(text),
	}
	if pois := ExtractPOIs(tokens); len(pois) > 0 {
		pq.POI = pois[0]
	}

	if pq.POI == "" && pq.Place == "" {
		return nil, ErrNoIntent
	}
	return pq, nil
}

// safeTokenize runs the configured tokenizer, degrading to the whole text
// as a single token if the tokenizer is missing, returns nothing, or
// panics. Extraction must always get a best-effort token list.
func (p *Parser) safeTokenize(text string) (tokens []string) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("parser: tokenizer panicked, using raw text",
				zap.Any("panic", r),
			)
			tokens = []string{text}
		}
	}()

	if p.tokenizer == nil {
		return []string{text}
	}
	tokens = p.tokenizer.Tokenize(text)
	if len(tokens) == 0 && text != "" {
		tokens = []string{text}
	}
	return tokens
}
