package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/arcanthyr/backend/internal/storage/models"
)

// scriptedGenerator returns one canned response per call, in order.
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int

	prompts  []string
	contents []string
	budgets  []int
}

func (g *scriptedGenerator) Generate(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error) {
	i := g.calls
	g.calls++
	g.prompts = append(g.prompts, systemPrompt)
	g.contents = append(g.contents, userContent)
	g.budgets = append(g.budgets, maxTokens)

	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	resp := ""
	if i < len(g.responses) {
		resp = g.responses[i]
	}
	return resp, err
}

func entries(texts ...string) []models.Entry {
	out := make([]models.Entry, len(texts))
	for i, text := range texts {
		out[i] = models.Entry{Tag: "note", Text: text}
	}
	return out
}

func TestRunChainsAllThreeStages(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`[{"id": 0, "surface": "ship the release", "intent": "reduce risk", "constraint": "no test coverage"}]`,
		"TENSION_1: release pressure conflicts with missing tests\nTENSION_2: b\nTENSION_3: c",
		"SIGNAL\nTests are the bottleneck.\n\nLEVERAGE POINT\nWrite the smoke suite.\n\nRELAY ACTIONS\n1. a\n2. b\n3. c\n\nDEAD WEIGHT\nStop polishing docs.",
	}}

	p := NewPipeline(gen)
	result, err := p.Run(context.Background(), entries("need to ship the release"), "delivery")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Stages.Decomposed) != 1 || result.Stages.Decomposed[0].Intent != "reduce risk" {
		t.Fatalf("unexpected decomposition %+v", result.Stages.Decomposed)
	}
	if !strings.HasPrefix(result.Stages.Tensions, "TENSION_1:") {
		t.Fatalf("stage 2 output should pass through raw, got %q", result.Stages.Tensions)
	}
	if !strings.Contains(result.Report, "LEVERAGE POINT") {
		t.Fatalf("unexpected report %q", result.Report)
	}

	if gen.calls != 3 {
		t.Fatalf("expected 3 model calls, got %d", gen.calls)
	}
	wantBudgets := []int{800, 400, 500}
	for i, want := range wantBudgets {
		if gen.budgets[i] != want {
			t.Fatalf("stage %d budget = %d, want %d", i+1, gen.budgets[i], want)
		}
	}

	if !strings.Contains(gen.contents[1], "Focus area: delivery") {
		t.Fatalf("stage 2 input missing focus, got %q", gen.contents[1])
	}
	if !strings.Contains(gen.contents[1], "Constraint: no test coverage") {
		t.Fatalf("stage 2 input missing decomposition, got %q", gen.contents[1])
	}
	if !strings.HasSuffix(gen.contents[2], "Focus: delivery") {
		t.Fatalf("stage 3 input missing focus, got %q", gen.contents[2])
	}
}

func TestRunFallsBackWhenStageOneUnparseable(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"I cannot produce JSON for this.",
		"TENSION_1: a\nTENSION_2: b\nTENSION_3: c",
		"SIGNAL\nx",
	}}

	p := NewPipeline(gen)
	result, err := p.Run(context.Background(), entries("first thought", "second thought"), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	decomposed := result.Stages.Decomposed
	if len(decomposed) != 2 {
		t.Fatalf("fallback should cover every entry, got %d", len(decomposed))
	}
	if decomposed[1].ID != 1 || decomposed[1].Surface != "second thought" || decomposed[1].Intent != "second thought" {
		t.Fatalf("fallback item should mirror the entry text, got %+v", decomposed[1])
	}
	if decomposed[1].Constraint != "" {
		t.Fatalf("fallback constraint must be empty, got %q", decomposed[1].Constraint)
	}
}

func TestRunFallsBackWhenStageOneErrors(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"", "TENSION_1: a", "report"},
		errs:      []error{errors.New("model unavailable")},
	}

	p := NewPipeline(gen)
	result, err := p.Run(context.Background(), entries("only thought"), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Stages.Decomposed) != 1 || result.Stages.Decomposed[0].Surface != "only thought" {
		t.Fatalf("expected passthrough decomposition, got %+v", result.Stages.Decomposed)
	}
}

func TestRunBoundsEntriesToMostRecentTwenty(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"not json",
		"TENSION_1: a",
		"report",
	}}

	var many []models.Entry
	for i := 0; i < 30; i++ {
		many = append(many, models.Entry{Tag: "note", Text: fmt.Sprintf("entry %d", i)})
	}

	p := NewPipeline(gen)
	result, err := p.Run(context.Background(), many, "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Stages.Decomposed) != 20 {
		t.Fatalf("expected 20 entries after bounding, got %d", len(result.Stages.Decomposed))
	}
	if result.Stages.Decomposed[0].Surface != "entry 10" {
		t.Fatalf("bounding should keep the most recent entries, got %q", result.Stages.Decomposed[0].Surface)
	}
	if strings.Contains(gen.contents[0], "entry 9") {
		t.Fatal("stage 1 input should not include dropped entries")
	}
}

func TestRunPropagatesLaterStageErrors(t *testing.T) {
	p := NewPipeline(&scriptedGenerator{
		responses: []string{"not json", ""},
		errs:      []error{nil, errors.New("stage 2 down")},
	})
	if _, err := p.Run(context.Background(), entries("x"), ""); err == nil {
		t.Fatal("stage 2 failure should abort the run")
	}

	p = NewPipeline(&scriptedGenerator{
		responses: []string{"not json", "TENSION_1: a", ""},
		errs:      []error{nil, nil, errors.New("stage 3 down")},
	})
	if _, err := p.Run(context.Background(), entries("x"), ""); err == nil {
		t.Fatal("stage 3 failure should abort the run")
	}
}

func TestRunRejectsEmptyEntries(t *testing.T) {
	p := NewPipeline(&scriptedGenerator{})
	if _, err := p.Run(context.Background(), nil, ""); err == nil {
		t.Fatal("expected error for empty entries")
	}
}
