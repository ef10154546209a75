package assist

import (
	"regexp"
	"strings"
)

// Entry tags in precedence order: question beats decision beats task
// beats idea, and anything unmatched is a note.
const (
	TagQuestion = "question"
	TagDecision = "decision"
	TagTask     = "task"
	TagIdea     = "idea"
	TagNote     = "note"
)

var (
	questionLeadPattern = regexp.MustCompile(`(?i)^(what|how|when|where|why|who|should|can|could)\b`)
	actionPattern       = regexp.MustCompile(`\b(do|complete|finish|send|schedule|call|write|need to|have to)\b`)
	decisionPattern     = regexp.MustCompile(`\b(decide|choice|option|whether|if i should|considering)\b`)
	ideaPattern         = regexp.MustCompile(`\b(idea|concept|thought|maybe|potentially|what if)\b`)
)

// ClassifyEntry tags raw entry text without any model call.
func ClassifyEntry(raw string) string {
	t := strings.ToLower(raw)
	switch {
	case strings.Contains(raw, "?") || questionLeadPattern.MatchString(raw):
		return TagQuestion
	case decisionPattern.MatchString(t):
		return TagDecision
	case actionPattern.MatchString(t):
		return TagTask
	case ideaPattern.MatchString(t):
		return TagIdea
	default:
		return TagNote
	}
}
