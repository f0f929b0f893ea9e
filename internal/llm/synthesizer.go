package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// maxQueryLen bounds the synthesized query before it is forwarded to
// the search provider. Model output is untrusted text.
const maxQueryLen = 256

const synthesizeInstruction = "You rewrite a natural-language wager condition as a single, " +
	"maximally search-engine-friendly query. Respond with only the query text, no commentary."

// Synthesizer turns free-text bet terms into one search query. Every
// request is synthesized fresh: bet terms are assumed request-unique,
// so caching would only ever serve stale work.
type Synthesizer struct {
	provider Provider
}

// NewSynthesizer creates a synthesizer on top of a provider
func NewSynthesizer(provider Provider) *Synthesizer {
	return &Synthesizer{provider: provider}
}

// Synthesize produces a sanitized search query for the given terms
func (s *Synthesizer) Synthesize(ctx context.Context, terms string) (string, error) {
	out, err := s.provider.Complete(ctx, CompletionRequest{
		System: synthesizeInstruction,
		User:   terms,
	})
	if err != nil {
		return "", fmt.Errorf("synthesize query: %w", err)
	}

	query := SanitizeQuery(out)
	if query == "" {
		// Degrade to the raw terms rather than searching for nothing.
		query = SanitizeQuery(terms)
	}
	if query == "" {
		return "", fmt.Errorf("synthesize query: empty result")
	}
	return query, nil
}

// SanitizeQuery strips control characters, collapses whitespace,
// removes wrapping quotes, and bounds the length.
func SanitizeQuery(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}

	query := strings.Join(strings.Fields(b.String()), " ")
	query = strings.Trim(query, "\"'`")

	if len(query) > maxQueryLen {
		query = query[:maxQueryLen]
		// Don't cut mid-word
		if idx := strings.LastIndex(query, " "); idx > 0 {
			query = query[:idx]
		}
	}
	return strings.TrimSpace(query)
}
