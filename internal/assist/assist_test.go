package assist

import (
	"context"
	"strings"
	"testing"

	"github.com/arcanthyr/backend/internal/storage/models"
)

type fakeGenerator struct {
	response string

	gotSystem  string
	gotContent string
	gotBudget  int
	calls      int
}

func (f *fakeGenerator) Generate(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error) {
	f.calls++
	f.gotSystem = systemPrompt
	f.gotContent = userContent
	f.gotBudget = maxTokens
	return f.response, nil
}

func TestDraftEmbedsTagInPrompt(t *testing.T) {
	gen := &fakeGenerator{response: "Ship the quarterly report by Friday."}
	a := NewAssistant(gen)

	draft, err := a.Draft(context.Background(), "gotta get that report out sometime soon", "task")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if draft == "" {
		t.Fatal("expected a draft")
	}

	if !strings.Contains(gen.gotSystem, "Entry type: task") {
		t.Fatalf("system prompt should carry the tag, got %q", gen.gotSystem)
	}
	if gen.gotBudget != 300 {
		t.Fatalf("expected 300 token budget, got %d", gen.gotBudget)
	}
}

func TestDraftValidatesInput(t *testing.T) {
	a := NewAssistant(&fakeGenerator{})
	if _, err := a.Draft(context.Background(), "", "task"); err == nil {
		t.Fatal("expected error for missing text")
	}
	if _, err := a.Draft(context.Background(), "text", ""); err == nil {
		t.Fatal("expected error for missing tag")
	}
}

func TestNextActionsIncludesGuidance(t *testing.T) {
	gen := &fakeGenerator{response: "1. a\n2. b\n3. c"}
	a := NewAssistant(gen)

	_, err := a.NextActions(context.Background(), "sort the deploy pipeline", "task",
		"break it into steps", "what is blocking the first deploy?")
	if err != nil {
		t.Fatalf("next actions: %v", err)
	}

	if !strings.Contains(gen.gotContent, "Rule-based guidance: break it into steps") {
		t.Fatalf("guidance missing from input, got %q", gen.gotContent)
	}
	if !strings.Contains(gen.gotContent, "Clarifying question: what is blocking the first deploy?") {
		t.Fatalf("clarify hint missing from input, got %q", gen.gotContent)
	}
}

func TestWeeklyReviewShortCircuitsOnEmpty(t *testing.T) {
	gen := &fakeGenerator{}
	a := NewAssistant(gen)

	review, err := a.WeeklyReview(context.Background(), nil)
	if err != nil {
		t.Fatalf("weekly review: %v", err)
	}
	if review != "No entries to review." {
		t.Fatalf("unexpected empty-input response %q", review)
	}
	if gen.calls != 0 {
		t.Fatal("empty input must not call the model")
	}
}

func TestWeeklyReviewFormatsEntries(t *testing.T) {
	gen := &fakeGenerator{response: "RECURRING THEMES\n..."}
	a := NewAssistant(gen)

	_, err := a.WeeklyReview(context.Background(), []models.Entry{
		{Tag: "task", Text: "finish the audit"},
		{Text: "untagged thought"},
	})
	if err != nil {
		t.Fatalf("weekly review: %v", err)
	}

	if !strings.Contains(gen.gotContent, "[TASK] finish the audit") {
		t.Fatalf("tags should be uppercased, got %q", gen.gotContent)
	}
	if !strings.Contains(gen.gotContent, "[NOTE] untagged thought") {
		t.Fatalf("missing tag should default to note, got %q", gen.gotContent)
	}
	if gen.gotBudget != 700 {
		t.Fatalf("expected 700 token budget, got %d", gen.gotBudget)
	}
}
