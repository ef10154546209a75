package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/arcanthyr/backend/internal/storage/models"
)

const (
	draftTokenBudget       = 300
	nextActionsTokenBudget = 300
	weeklyTokenBudget      = 700
)

const draftSystemTemplate = `You are a precise clarity engine inside a productivity console called Arcanthyr.
Rewrite the user's raw input as a clean, structured entry.
Rules:
- Keep the user's intent exactly — do NOT decide or advise
- Remove filler, noise, and vagueness
- Output 2-3 sentences max
- First sentence: core statement. Second: scope or constraint. Third (optional): success condition.
- No bullet lists. No markdown. Plain prose only.
- Entry type: %s
- Output ONLY the rewritten entry. No preamble, no sign-off.`

const nextActionsSystem = `You are a strategic action engine inside Arcanthyr, a personal clarity console.
Propose exactly 3 concrete next actions. Each must be:
- Physically doable (not vague like "think about it")
- Under 15 words each
- Ordered by urgency/leverage (highest first)
- Grounded in the entry's actual content
Respond EXACTLY like this with no other text:
1. [action]
2. [action]
3. [action]`

const weeklyReviewSystem = `You are a pattern recognition engine inside Arcanthyr, a personal clarity console.
Analyse the entries and produce a concise weekly review.
Respond with EXACTLY these three sections and no other text:

RECURRING THEMES
[2-3 sentences on topics or concerns that appear repeatedly]

STUCK LOOPS
[2-3 sentences on anything recurring without resolution]

DECISIONS PENDING
[1-2 sentences on unresolved decisions in the data]

If a section has nothing to report, write: None identified.`

// Generator runs one bounded completion.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error)
}

// Assistant wraps the single-shot console operations: draft rewrite,
// next actions, and weekly review.
type Assistant struct {
	generator Generator
}

func NewAssistant(generator Generator) *Assistant {
	return &Assistant{generator: generator}
}

// Draft rewrites raw entry text into a clean structured form.
func (a *Assistant) Draft(ctx context.Context, text, tag string) (string, error) {
	if text == "" || tag == "" {
		return "", fmt.Errorf("missing text or tag")
	}
	return a.generator.Generate(ctx, fmt.Sprintf(draftSystemTemplate, tag), text, draftTokenBudget)
}

// NextActions proposes three concrete actions for an entry. The rule
// guidance and clarifying question are optional hints.
func (a *Assistant) NextActions(ctx context.Context, text, tag, guidance, clarifyQuestion string) (string, error) {
	if text == "" || tag == "" {
		return "", fmt.Errorf("missing text or tag")
	}
	userMsg := fmt.Sprintf("Entry type: %s\nRaw text: %s\nRule-based guidance: %s\nClarifying question: %s",
		tag, text, guidance, clarifyQuestion)
	return a.generator.Generate(ctx, nextActionsSystem, userMsg, nextActionsTokenBudget)
}

// WeeklyReview summarizes recurring themes across a batch of entries.
func (a *Assistant) WeeklyReview(ctx context.Context, entries []models.Entry) (string, error) {
	if len(entries) == 0 {
		return "No entries to review.", nil
	}
	var lines []string
	for _, e := range entries {
		tag := e.Tag
		if tag == "" {
			tag = "note"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", strings.ToUpper(tag), e.Text))
	}
	return a.generator.Generate(ctx, weeklyReviewSystem, "Entries:\n"+strings.Join(lines, "\n"), weeklyTokenBudget)
}
