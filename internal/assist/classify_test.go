package assist

import "testing"

func TestClassifyEntry(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"What should I do about the lease?", TagQuestion},
		{"should we move the launch", TagQuestion},
		{"is this worth doing?", TagQuestion},
		{"deciding whether to take the offer", TagDecision},
		{"considering a move to Hobart", TagDecision},
		{"need to send the invoice today", TagTask},
		{"call the accountant about super", TagTask},
		{"idea: a weekly digest of case summaries", TagIdea},
		{"maybe the sync should run twice daily", TagIdea},
		{"the meeting ran long again", TagNote},
		{"", TagNote},
	}

	for _, tt := range tests {
		if got := ClassifyEntry(tt.text); got != tt.want {
			t.Errorf("ClassifyEntry(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestClassifyEntryPrecedence(t *testing.T) {
	// A question mark wins over task and decision vocabulary.
	if got := ClassifyEntry("should I decide to send it?"); got != TagQuestion {
		t.Fatalf("question should outrank other tags, got %q", got)
	}
	// Decision vocabulary wins over task vocabulary.
	if got := ClassifyEntry("considering when to send the report"); got != TagDecision {
		t.Fatalf("decision should outrank task, got %q", got)
	}
}
