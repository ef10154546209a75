package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/arcanthyr/backend/internal/storage/models"
	"github.com/arcanthyr/backend/pkg/logger"
)

const (
	// contextBudget caps how much case text is sent to the model.
	contextBudget = 8000

	// summaryTokenBudget is generous: structured extraction of long
	// judgments needs room for all four fields.
	summaryTokenBudget = 1500

	failureText  = "AI extraction failed"
	successScore = 0.7
)

const systemPrompt = `You are a legal research assistant analyzing Australian criminal case law.
Extract and structure the following information from the case:

1. FACTS: Brief factual background (2-3 sentences)
2. ISSUES: Legal issues considered (bullet points, max 3)
3. HOLDING: Court's decision and reasoning (2-3 sentences)
4. PRINCIPLES: Key legal principles established or applied (bullet points, max 5)

Format your response as JSON with keys: facts, issues, holding, principles
Principles should be array of objects: { "principle": "text", "statute_refs": ["Act s.123"], "keywords": ["sentencing", "assault"] }

Output ONLY valid JSON. No markdown fences.`

// Input is the case material handed to the summarization stage.
type Input struct {
	Citation string
	CaseName string
	Court    string
	FullText string
}

// Summary is the structured extraction result. Failure is representable as
// data: the sentinel summary carries fixed failure strings and a zero score.
type Summary struct {
	Facts        string
	Issues       string
	Holding      string
	Principles   []models.CasePrinciple
	QualityScore float64
}

// Failed reports whether this is the sentinel failure summary.
func (s Summary) Failed() bool {
	return s.QualityScore == 0 && s.Facts == failureText
}

// FailureSummary is returned whenever extraction cannot produce the
// required fields.
func FailureSummary() Summary {
	return Summary{
		Facts:        failureText,
		Issues:       failureText,
		Holding:      failureText,
		Principles:   []models.CasePrinciple{},
		QualityScore: 0.0,
	}
}

// Generator is the single-call model contract consumed by this stage.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error)
}

type Summarizer struct {
	gen Generator
}

func NewSummarizer(gen Generator) *Summarizer {
	return &Summarizer{gen: gen}
}

// Summarize extracts facts, issues, holding and principles from the case
// text. It never returns an error: a provider failure, malformed JSON or a
// response missing required fields all degrade to the sentinel summary.
func (s *Summarizer) Summarize(ctx context.Context, in Input) Summary {
	text := truncate(in.FullText, contextBudget)

	userContent := fmt.Sprintf(`Case: %s
Citation: %s
Court: %s

Case text (excerpt):
%s`, in.CaseName, in.Citation, in.Court, text)

	raw, err := s.gen.Generate(ctx, systemPrompt, userContent, summaryTokenBudget)
	if err != nil {
		logger.Error("Case summarization call failed",
			zap.String("citation", in.Citation),
			zap.Error(err),
		)
		return FailureSummary()
	}

	summary, err := parseSummary(raw)
	if err != nil {
		logger.Error("Case summarization produced unusable output",
			zap.String("citation", in.Citation),
			zap.String("head", head(raw, 200)),
			zap.Error(err),
		)
		return FailureSummary()
	}

	logger.Debug("Case summarized",
		zap.String("citation", in.Citation),
		zap.Int("principles", len(summary.Principles)),
	)

	return summary
}

// rawSummary mirrors the JSON contract given to the model. Issues may come
// back as either an array or a plain string.
type rawSummary struct {
	Facts      string                 `json:"facts"`
	Issues     json.RawMessage        `json:"issues"`
	Holding    string                 `json:"holding"`
	Principles []models.CasePrinciple `json:"principles"`
}

func parseSummary(raw string) (Summary, error) {
	cleaned := stripFences(raw)

	var parsed rawSummary
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Summary{}, fmt.Errorf("invalid summary JSON: %w", err)
	}

	if strings.TrimSpace(parsed.Facts) == "" || strings.TrimSpace(parsed.Holding) == "" {
		return Summary{}, fmt.Errorf("summary missing required fields")
	}

	principles := parsed.Principles
	if principles == nil {
		principles = []models.CasePrinciple{}
	}
	for i := range principles {
		if len(principles[i].Keywords) == 0 {
			principles[i].Keywords = keywordsFromText(principles[i].Principle)
		}
		if principles[i].StatuteRefs == nil {
			principles[i].StatuteRefs = []string{}
		}
	}

	return Summary{
		Facts:        parsed.Facts,
		Issues:       decodeIssues(parsed.Issues),
		Holding:      parsed.Holding,
		Principles:   principles,
		QualityScore: successScore,
	}, nil
}

func decodeIssues(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "Not extracted"
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "Not extracted"
		}
		return strings.Join(list, "; ")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return single
	}

	return "Not extracted"
}

func stripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

func head(s string, n int) string {
	return truncate(s, n)
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
