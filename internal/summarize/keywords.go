package summarize

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

const maxBackfillKeywords = 6

// keywordsFromText derives keywords for a principle the model returned
// without any, by keeping the nouns and adjectives of the principle text.
// Tagging failures just leave the keyword set empty.
func keywordsFromText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return []string{}
	}

	seen := make(map[string]bool)
	keywords := make([]string, 0, maxBackfillKeywords)

	for _, tok := range doc.Tokens() {
		if !strings.HasPrefix(tok.Tag, "NN") && tok.Tag != "JJ" {
			continue
		}

		word := strings.ToLower(strings.Trim(tok.Text, ".,;:()"))
		if len(word) < 4 || seen[word] {
			continue
		}

		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) >= maxBackfillKeywords {
			break
		}
	}

	return keywords
}
