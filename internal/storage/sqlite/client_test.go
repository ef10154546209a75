package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/arcanthyr/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Close()
	})
	if err := c.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return c
}

func testCase(citation string) *models.Case {
	return &models.Case{
		Citation:      citation,
		Court:         "supreme",
		CaseDate:      "2024-01-01",
		CaseName:      "R v Smith",
		URL:           "http://example.test/case.html",
		Facts:         "The accused was convicted of assault.",
		Issues:        "Whether the sentence was excessive",
		Holding:       "Appeal dismissed.",
		Principles:    []models.CasePrinciple{},
		ProcessedDate: time.Now(),
		QualityScore:  0.7,
	}
}

func TestCaseIDNormalization(t *testing.T) {
	if got := caseID("[2024] TASSC 5"); got != "[2024]-TASSC-5" {
		t.Fatalf("expected whitespace collapsed to hyphens, got %q", got)
	}
	if got := caseID("  [2024]   TASSC   5  "); got != "[2024]-TASSC-5" {
		t.Fatalf("expected surrounding whitespace dropped, got %q", got)
	}
}

func TestUpsertCaseRoundTrip(t *testing.T) {
	c := newTestClient(t)

	record := testCase("[2024] TASSC 5")
	record.Principles = []models.CasePrinciple{
		{Principle: "Sentencing discretion stands absent error.", StatuteRefs: []string{"Sentencing Act 1997 s.3"}, Keywords: []string{"sentencing"}},
	}

	if err := c.UpsertCase(record); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	exists, err := c.CaseExists("[2024] TASSC 5")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("case should exist after upsert")
	}

	got, err := c.GetCase("[2024] TASSC 5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "[2024]-TASSC-5" {
		t.Fatalf("unexpected id %q", got.ID)
	}
	if got.Holding != "Appeal dismissed." {
		t.Fatalf("unexpected holding %q", got.Holding)
	}
	if len(got.Principles) != 1 || got.Principles[0].Principle != "Sentencing discretion stands absent error." {
		t.Fatalf("unexpected principles %+v", got.Principles)
	}
}

func TestUpsertCaseReplacesExistingRow(t *testing.T) {
	c := newTestClient(t)

	first := testCase("[2024] TASSC 5")
	if err := c.UpsertCase(first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := testCase("[2024] TASSC 5")
	second.Holding = "Appeal allowed."
	if err := c.UpsertCase(second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := c.GetCase("[2024] TASSC 5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Holding != "Appeal allowed." {
		t.Fatalf("re-processing should replace the row, got %q", got.Holding)
	}

	cases, err := c.SearchCases("", "", 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected a single row after replace, got %d", len(cases))
	}
}

func TestUpsertPrincipleAccumulatesCitations(t *testing.T) {
	c := newTestClient(t)

	principle := models.CasePrinciple{
		Principle:   "Provocation requires a sudden loss of control.",
		StatuteRefs: []string{"Criminal Code s.160"},
		Keywords:    []string{"provocation"},
	}

	if err := c.UpsertPrinciple(principle, "[2023] TASSC 1"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := c.UpsertPrinciple(principle, "[2024] TASSC 9"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	// Same citation again must not duplicate.
	if err := c.UpsertPrinciple(principle, "[2024] TASSC 9"); err != nil {
		t.Fatalf("repeat upsert: %v", err)
	}

	got, err := c.GetPrinciple("Provocation requires a sudden loss of control.")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if len(got.CaseCitations) != 2 {
		t.Fatalf("expected 2 citations, got %v", got.CaseCitations)
	}
	if got.CaseCitations[0] != "[2023] TASSC 1" || got.CaseCitations[1] != "[2024] TASSC 9" {
		t.Fatalf("citations should append in arrival order, got %v", got.CaseCitations)
	}
	if got.MostRecentCitation != "[2024] TASSC 9" {
		t.Fatalf("most recent citation not updated, got %q", got.MostRecentCitation)
	}
	if got.Keywords[0] != "provocation" {
		t.Fatalf("unexpected keywords %v", got.Keywords)
	}
}

func TestSearchCasesFilters(t *testing.T) {
	c := newTestClient(t)

	supreme := testCase("[2024] TASSC 5")
	supreme.Facts = "A burglary at a warehouse in Launceston."
	if err := c.UpsertCase(supreme); err != nil {
		t.Fatalf("upsert supreme: %v", err)
	}

	magistrates := testCase("[2024] TAMagC 2")
	magistrates.Court = "magistrates"
	magistrates.CaseName = "Police v Doe"
	if err := c.UpsertCase(magistrates); err != nil {
		t.Fatalf("upsert magistrates: %v", err)
	}

	byText, err := c.SearchCases("burglary", "", 50)
	if err != nil {
		t.Fatalf("text search: %v", err)
	}
	if len(byText) != 1 || byText[0].Citation != "[2024] TASSC 5" {
		t.Fatalf("text filter failed, got %+v", byText)
	}

	byCourt, err := c.SearchCases("", "magistrates", 50)
	if err != nil {
		t.Fatalf("court search: %v", err)
	}
	if len(byCourt) != 1 || byCourt[0].Citation != "[2024] TAMagC 2" {
		t.Fatalf("court filter failed, got %+v", byCourt)
	}

	all, err := c.SearchCases("", "all", 50)
	if err != nil {
		t.Fatalf("all search: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("court=all should not filter, got %d", len(all))
	}
}

func TestSearchPrinciplesMatchesKeywords(t *testing.T) {
	c := newTestClient(t)

	err := c.UpsertPrinciple(models.CasePrinciple{
		Principle: "Sentencing must reflect totality.",
		Keywords:  []string{"sentencing", "totality"},
	}, "[2024] TASSC 5")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	results, err := c.SearchPrinciples("totality", 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected keyword match, got %d results", len(results))
	}

	none, err := c.SearchPrinciples("negligence", 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %d", len(none))
	}
}

func TestSyncProgressDefaults(t *testing.T) {
	c := newTestClient(t)

	empty, err := c.SyncProgress()
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if empty.TotalCases != 0 || empty.TotalPrinciples != 0 {
		t.Fatalf("expected zero counts, got %+v", empty)
	}
	if empty.EarliestCase != "None" || empty.LatestCase != "None" || empty.LastSync != "Never" {
		t.Fatalf("expected placeholder strings on empty store, got %+v", empty)
	}

	record := testCase("[2024] TASSC 5")
	record.Principles = []models.CasePrinciple{{Principle: "p1"}}
	if err := c.UpsertCase(record); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	progress, err := c.SyncProgress()
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.TotalCases != 1 || progress.TotalPrinciples != 1 {
		t.Fatalf("unexpected counts %+v", progress)
	}
	if progress.EarliestCase != "2024-01-01" || progress.LatestCase != "2024-01-01" {
		t.Fatalf("unexpected date range %+v", progress)
	}
	if progress.LastSync == "Never" {
		t.Fatal("last sync should be set after a persist")
	}
}
