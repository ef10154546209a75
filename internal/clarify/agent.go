package clarify

import (
	"context"
	"fmt"
	"strings"
)

const (
	questionTokenBudget  = 120
	synthesisTokenBudget = 300

	// synthesisThreshold is how many user exchanges precede synthesis.
	synthesisThreshold = 2
)

const questionSystem = `You are a conversational clarity agent inside Arcanthyr.
Ask ONE precise question to help the user think more clearly about their entry.
Rules:
- One question only. Never two.
- Specific to THEIR content — not generic coaching
- Each question should dig deeper than the last
- Under 20 words
- No preamble, no "Great!" or "Interesting!" — just the question
- Output ONLY the question.`

const synthesisSystem = `You are a clarity synthesis engine inside Arcanthyr.
You've had a clarifying conversation with a user about their entry.
Produce a final crystallised version that incorporates everything you've learned.
Rules:
- 2-3 sentences max
- Plain prose, no bullets, no markdown
- Capture their full intent, not just the literal words
- Output ONLY the crystallised entry. Nothing else.`

// Generator runs one bounded completion.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error)
}

// Turn is one exchange in a clarifying conversation.
type Turn struct {
	Role    string `json:"role"` // "agent" or "user"
	Content string `json:"content"`
}

// Request is one step of a clarifying conversation about an entry.
type Request struct {
	Text      string `json:"text"`
	Tag       string `json:"tag"`
	History   []Turn `json:"history"`
	UserReply string `json:"userReply"`
}

// Response is either the next question or the crystallised entry,
// never both.
type Response struct {
	Done     bool    `json:"done"`
	Question *string `json:"question"`
	Draft    *string `json:"draft"`
}

// Agent drives the clarify conversation: questions until the user has
// answered enough, then one synthesis.
type Agent struct {
	generator Generator
}

func NewAgent(generator Generator) *Agent {
	return &Agent{generator: generator}
}

func (a *Agent) Step(ctx context.Context, req Request) (*Response, error) {
	if req.Text == "" || req.Tag == "" {
		return nil, fmt.Errorf("missing text or tag")
	}

	userExchanges := 0
	for _, turn := range req.History {
		if turn.Role == "user" {
			userExchanges++
		}
	}

	if userExchanges >= synthesisThreshold && req.UserReply != "" {
		return a.synthesize(ctx, req)
	}
	return a.question(ctx, req, userExchanges)
}

func (a *Agent) synthesize(ctx context.Context, req Request) (*Response, error) {
	input := fmt.Sprintf("Original entry (%s): %s%s\nUser final reply: %s",
		req.Tag, req.Text, historyContext(req.History), req.UserReply)

	draft, err := a.generator.Generate(ctx, synthesisSystem, input, synthesisTokenBudget)
	if err != nil {
		return nil, fmt.Errorf("clarify synthesis failed: %w", err)
	}
	return &Response{Done: true, Draft: &draft}, nil
}

func (a *Agent) question(ctx context.Context, req Request, userExchanges int) (*Response, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Entry type: %s\nEntry: %s%s", req.Tag, req.Text, historyContext(req.History))
	if req.UserReply != "" {
		fmt.Fprintf(&b, "\nUser just replied: %s", req.UserReply)
	}
	if userExchanges == 0 {
		b.WriteString("\nFirst question — find the most important gap in this entry.")
	} else {
		b.WriteString("\nGo deeper on what they revealed.")
	}

	question, err := a.generator.Generate(ctx, questionSystem, b.String(), questionTokenBudget)
	if err != nil {
		return nil, fmt.Errorf("clarify question failed: %w", err)
	}
	return &Response{Done: false, Question: &question}, nil
}

func historyContext(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	var lines []string
	for _, turn := range history {
		role := "User"
		if turn.Role == "agent" {
			role = "Agent"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, turn.Content))
	}
	return "\nConversation so far:\n" + strings.Join(lines, "\n")
}
