package models

import "time"

// Case is one decided case keyed by its citation. Re-processing the same
// citation replaces the stored row.
type Case struct {
	ID            string          `json:"id"`
	Citation      string          `json:"citation"`
	Court         string          `json:"court"`
	CaseDate      string          `json:"case_date"`
	CaseName      string          `json:"case_name"`
	URL           string          `json:"url"`
	Facts         string          `json:"facts"`
	Issues        string          `json:"issues"`
	Holding       string          `json:"holding"`
	Principles    []CasePrinciple `json:"principles_extracted"`
	ProcessedDate time.Time       `json:"processed_date"`
	QualityScore  float64         `json:"summary_quality_score"`
}

// CasePrinciple is a principle reference as extracted within one summary.
type CasePrinciple struct {
	Principle   string   `json:"principle"`
	StatuteRefs []string `json:"statute_refs"`
	Keywords    []string `json:"keywords"`
}

// Principle is the accumulated record for one exact principle text across
// every case that cited it.
type Principle struct {
	ID                 string    `json:"id"`
	PrincipleText      string    `json:"principle_text"`
	Keywords           []string  `json:"keywords"`
	StatuteRefs        []string  `json:"statute_refs"`
	CaseCitations      []string  `json:"case_citations"`
	MostRecentCitation string    `json:"most_recent_citation"`
	DateAdded          time.Time `json:"date_added"`
}

// Entry is one console entry: free text plus its classified tag.
type Entry struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// SyncProgress summarizes the state of the case store.
type SyncProgress struct {
	TotalCases      int    `json:"total_cases"`
	TotalPrinciples int    `json:"total_principles"`
	EarliestCase    string `json:"earliest_case"`
	LatestCase      string `json:"latest_case"`
	LastSync        string `json:"last_sync"`
}
