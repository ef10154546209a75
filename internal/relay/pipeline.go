package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arcanthyr/backend/internal/storage/models"
	"github.com/arcanthyr/backend/pkg/logger"
)

// maxEntries bounds how many trailing entries feed the pipeline.
const maxEntries = 20

const (
	stage1TokenBudget = 800
	stage2TokenBudget = 400
	stage3TokenBudget = 500
)

const stage1System = `You are Stage 1 of a multi-step reasoning agent called Axiom Relay inside Arcanthyr.
Decompose each entry into its components.
For each entry identify:
- surface: what they literally said (very short)
- intent: what they actually need underneath
- constraint: a hidden assumption or blocker
Respond as a JSON array only. Each item: { "id": number, "surface": "...", "intent": "...", "constraint": "..." }
Output ONLY valid JSON. No markdown fences, no explanation.`

const stage2System = `You are Stage 2 of Axiom Relay.
Identify the 3 most important tensions, risks, or opportunities ACROSS the entries.
Each point must reference specific content (not generic advice) and be under 20 words.
Output EXACTLY:
TENSION_1: [text]
TENSION_2: [text]
TENSION_3: [text]
No other text.`

const stage3System = `You are Stage 3 of Axiom Relay — final synthesis.
Produce an actionable relay report using EXACTLY these sections:

SIGNAL
[1-2 sentences: the single most important insight]

LEVERAGE POINT
[1 sentence: the one action that unlocks the most]

RELAY ACTIONS
1. [specific action, under 12 words]
2. [specific action, under 12 words]
3. [specific action, under 12 words]

DEAD WEIGHT
[1 sentence: what to stop doing or deprioritise]

Output only these sections. No preamble, no sign-off.`

// Generator runs one bounded completion.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error)
}

// Decomposition is one Stage 1 item.
type Decomposition struct {
	ID         int    `json:"id"`
	Surface    string `json:"surface"`
	Intent     string `json:"intent"`
	Constraint string `json:"constraint"`
}

// Stages exposes the intermediate outputs alongside the final report.
type Stages struct {
	Decomposed []Decomposition `json:"decomposed"`
	Tensions   string          `json:"tensions"`
}

type Result struct {
	Stages Stages `json:"stages"`
	Report string `json:"report"`
}

// Pipeline chains the three Axiom Relay stages over a set of entries.
type Pipeline struct {
	generator Generator
}

func NewPipeline(generator Generator) *Pipeline {
	return &Pipeline{generator: generator}
}

// Run executes all three stages. Stage 1 degrades to a passthrough
// decomposition when the model's output is not parseable; Stage 2 and
// Stage 3 failures abort the run.
func (p *Pipeline) Run(ctx context.Context, entries []models.Entry, focus string) (*Result, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries to relay")
	}
	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}

	decomposed := p.decompose(ctx, entries)

	tensions, err := p.generator.Generate(ctx, stage2System, stage2Input(decomposed, focus), stage2TokenBudget)
	if err != nil {
		return nil, fmt.Errorf("relay stage 2 failed: %w", err)
	}

	report, err := p.generator.Generate(ctx, stage3System,
		fmt.Sprintf("%s\n\nFocus: %s", tensions, focusOrNone(focus)), stage3TokenBudget)
	if err != nil {
		return nil, fmt.Errorf("relay stage 3 failed: %w", err)
	}

	return &Result{
		Stages: Stages{Decomposed: decomposed, Tensions: tensions},
		Report: report,
	}, nil
}

func (p *Pipeline) decompose(ctx context.Context, entries []models.Entry) []Decomposition {
	var lines []string
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("%d: [%s] %s", i, e.Tag, e.Text))
	}

	raw, err := p.generator.Generate(ctx, stage1System, strings.Join(lines, "\n"), stage1TokenBudget)
	if err == nil {
		cleaned := strings.TrimSpace(strings.NewReplacer("```json", "", "```", "").Replace(raw))
		var decomposed []Decomposition
		if jsonErr := json.Unmarshal([]byte(cleaned), &decomposed); jsonErr == nil {
			return decomposed
		}
		logger.Warn("Relay stage 1 returned unparseable output, falling back to passthrough")
	} else {
		logger.Warn("Relay stage 1 generation failed, falling back to passthrough", zap.Error(err))
	}

	fallback := make([]Decomposition, len(entries))
	for i, e := range entries {
		fallback[i] = Decomposition{ID: i, Surface: e.Text, Intent: e.Text, Constraint: ""}
	}
	return fallback
}

func stage2Input(decomposed []Decomposition, focus string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Focus area: %s\nDecomposed:\n", focusOrNone(focus))
	for i, d := range decomposed {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] Surface: %s | Intent: %s | Constraint: %s", d.ID, d.Surface, d.Intent, d.Constraint)
	}
	return b.String()
}

func focusOrNone(focus string) string {
	if focus == "" {
		return "none"
	}
	return focus
}
