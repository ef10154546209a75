package austlii

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestListCandidatesParsesListings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/viewtoc/au/cases/tas/TAMagC/2024/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="#">[2024] TAMagC 1 - Police v Doe</a>
			<a href="#">[2024] TAMagC 2 - Police v Roe</a>
		</body></html>`)
	})
	mux.HandleFunc("/cgi-bin/viewtoc/au/cases/tas/TASSC/2024/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>[2024] TASSC 5 - R v Smith</body></html>`)
	})
	mux.HandleFunc("/cgi-bin/viewtoc/au/cases/tas/TASCCA/2024/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>no decisions yet</body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, 5)

	candidates := client.ListCandidates(context.Background(), 2024, nil, 50, nil)

	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}

	first := candidates[0]
	if first.Citation != "[2024] TAMagC 1" {
		t.Fatalf("unexpected first citation %q", first.Citation)
	}
	if first.Court != CourtMagistrates {
		t.Fatalf("unexpected court %q", first.Court)
	}
	wantURL := server.URL + "/cgi-bin/viewdoc/au/cases/tas/TAMagC/2024/1.html"
	if first.URL != wantURL {
		t.Fatalf("expected detail URL %q, got %q", wantURL, first.URL)
	}

	if candidates[2].Citation != "[2024] TASSC 5" {
		t.Fatalf("magistrates listings should precede supreme, got %q", candidates[2].Citation)
	}
}

func TestListCandidatesSkipsFailingCourt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/viewtoc/au/cases/tas/TAMagC/2024/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/cgi-bin/viewtoc/au/cases/tas/TASSC/2024/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[2024] TASSC 5`)
	})
	mux.HandleFunc("/cgi-bin/viewtoc/au/cases/tas/TASCCA/2024/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[2024] TASCCA 1`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, 5)

	candidates := client.ListCandidates(context.Background(), 2024, nil, 50, nil)

	if len(candidates) != 2 {
		t.Fatalf("a failing court should be skipped, not fatal; got %d candidates", len(candidates))
	}
}

func TestListCandidatesExcludesBeforeLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "TAMagC") {
			fmt.Fprint(w, `[2024] TAMagC 1 [2024] TAMagC 2 [2024] TAMagC 3 [2024] TAMagC 1`)
			return
		}
		fmt.Fprint(w, ``)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, 5)

	excluded := map[string]bool{"[2024] TAMagC 1": true}
	candidates := client.ListCandidates(context.Background(), 2024, nil, 2, func(citation string) bool {
		return excluded[citation]
	})

	if len(candidates) != 2 {
		t.Fatalf("expected the limit to be filled with non-excluded citations, got %d", len(candidates))
	}
	for _, cand := range candidates {
		if cand.Citation == "[2024] TAMagC 1" {
			t.Fatal("excluded citation must not appear")
		}
	}
}

func TestFetchContentExtractsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>
			<head><title>R v Smith [2024] TASSC 5</title><style>body { color: red; }</style></head>
			<body>
				<script>var tracking = true;</script>
				<p>The appellant  was   convicted of assault.</p>
				<p>The appeal is dismissed.</p>
			</body>
		</html>`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5)

	content, err := client.FetchContent(context.Background(), server.URL+"/case.html")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if content.CaseName != "R v Smith [2024] TASSC 5" {
		t.Fatalf("unexpected case name %q", content.CaseName)
	}
	if strings.Contains(content.FullText, "tracking") || strings.Contains(content.FullText, "color: red") {
		t.Fatal("script and style content must be stripped")
	}
	if !strings.Contains(content.FullText, "The appellant was convicted of assault.") {
		t.Fatalf("whitespace should be collapsed, got %q", content.FullText)
	}
}

func TestFetchContentFallsBackToUnknownCase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>text without a title element</p></body></html>`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5)

	content, err := client.FetchContent(context.Background(), server.URL+"/case.html")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if content.CaseName != "Unknown Case" {
		t.Fatalf("expected placeholder name, got %q", content.CaseName)
	}
}

func TestFetchContentTruncatesLongText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>Long</title></head><body>%s</body></html>`,
			strings.Repeat("word ", 20000))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5)

	content, err := client.FetchContent(context.Background(), server.URL+"/case.html")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(content.FullText) != 50000 {
		t.Fatalf("expected text truncated to 50000 chars, got %d", len(content.FullText))
	}
}

func TestFetchContentPropagatesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5)

	if _, err := client.FetchContent(context.Background(), server.URL+"/missing.html"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	s := "abé" // the accented rune is two bytes
	if got := truncate(s, 3); got != "ab" {
		t.Fatalf("expected truncation to back off to a rune boundary, got %q", got)
	}
	if got := truncate(s, 4); got != s {
		t.Fatalf("expected full string back, got %q", got)
	}
	if !utf8.ValidString(truncate(strings.Repeat("é", 100), 55)) {
		t.Fatal("truncated text should remain valid UTF-8")
	}
}
