package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smolbet/oracle/internal/model"
)

// ErrAmbiguousVerdict is returned when the judge response is not
// exactly one of the two accepted tokens. It is never coerced to a
// default verdict.
var ErrAmbiguousVerdict = errors.New("ambiguous verdict")

const judgeInstruction = "You adjudicate wagers. Given the wager's terms and retrieved search evidence, " +
	"decide whether the terms are satisfied. Answer with exactly one word: TRUE or FALSE. No other text."

// truncation bound for quoting a rejected response in errors
const maxQuotedResponse = 80

// Judge turns (terms, evidence) into a boolean verdict. The call is
// single-shot: one completion, strict token normalization, no retry on
// ambiguity.
type Judge struct {
	provider Provider
}

// NewJudge creates a judge on top of a provider
func NewJudge(provider Provider) *Judge {
	return &Judge{provider: provider}
}

// Judge adjudicates the terms against the evidence
func (j *Judge) Judge(ctx context.Context, terms string, ev *model.Evidence) (model.Verdict, error) {
	out, err := j.provider.Complete(ctx, CompletionRequest{
		System: judgeInstruction,
		User:   buildJudgeContext(terms, ev),
	})
	if err != nil {
		return "", fmt.Errorf("judge verdict: %w", err)
	}

	verdict, ok := model.ParseVerdict(out)
	if !ok {
		quoted := out
		if len(quoted) > maxQuotedResponse {
			quoted = quoted[:maxQuotedResponse] + "..."
		}
		return "", fmt.Errorf("%w: %q", ErrAmbiguousVerdict, quoted)
	}
	return verdict, nil
}

// buildJudgeContext renders the terms plus the evidence document into
// one user message. Dead links are labelled so the judge can discount
// them.
func buildJudgeContext(terms string, ev *model.Evidence) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Wager terms: %s\n", terms)

	if ev == nil {
		b.WriteString("\nNo evidence was retrieved.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Search query: %s\n", ev.Query)

	if ev.AnswerBox != "" {
		fmt.Fprintf(&b, "\nAnswer box: %s\n", ev.AnswerBox)
	}
	if ev.KnowledgeGraph != "" {
		fmt.Fprintf(&b, "\nKnowledge graph: %s\n", ev.KnowledgeGraph)
	}

	live := make(map[string]bool, len(ev.Links))
	checked := make(map[string]bool, len(ev.Links))
	for _, l := range ev.Links {
		checked[l.URL] = true
		live[l.URL] = l.Live
	}

	if len(ev.Organic) > 0 {
		b.WriteString("\nSearch results:\n")
	}
	for _, r := range ev.Organic {
		fmt.Fprintf(&b, "%d. %s", r.Position, r.Title)
		if r.Source != "" {
			fmt.Fprintf(&b, " (%s)", r.Source)
		}
		if checked[r.Link] && !live[r.Link] {
			b.WriteString(" [source unreachable]")
		}
		b.WriteString("\n")
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}

	return b.String()
}
