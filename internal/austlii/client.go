package austlii

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/arcanthyr/backend/pkg/logger"
)

// Court is a Tasmanian court category tracked by the scraper.
type Court string

const (
	CourtMagistrates Court = "magistrates"
	CourtSupreme     Court = "supreme"
	CourtCCA         Court = "cca"
)

// DefaultCourts is the fixed order categories are tried in. Once the
// cumulative candidate limit is reached, remaining categories are skipped.
var DefaultCourts = []Court{CourtMagistrates, CourtSupreme, CourtCCA}

var courtAbbrevs = map[Court]string{
	CourtMagistrates: "TAMagC",
	CourtSupreme:     "TASSC",
	CourtCCA:         "TASCCA",
}

// citationPattern matches citations like "[2024] TASSC 5". Full Court
// decisions appear under TASSC.
var citationPattern = regexp.MustCompile(`\[(\d{4})\]\s+(TASSC|TAMagC|TASCCA)\s+(\d+)`)

var whitespacePattern = regexp.MustCompile(`\s+`)

const (
	// maxCitationsPerListing caps how many matches are read from one
	// listing page.
	maxCitationsPerListing = 100

	// maxContentLength caps the extracted plain text of a case page.
	maxContentLength = 50000
)

// CaseCandidate is a citation discovered from a listing page, not yet
// confirmed present in the store.
type CaseCandidate struct {
	Citation    string
	Year        string
	CourtAbbrev string
	CaseNum     string
	URL         string
	Court       Court
}

// CaseContent is the extracted text of one case detail page.
type CaseContent struct {
	CaseName string
	FullText string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeoutSec int) *Client {
	if timeoutSec <= 0 {
		timeoutSec = 20
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
	}
}

func (c *Client) listingURL(court Court, year int) string {
	return fmt.Sprintf("%s/cgi-bin/viewtoc/au/cases/tas/%s/%d/", c.baseURL, courtAbbrevs[court], year)
}

func (c *Client) detailURL(abbrev, year, num string) string {
	return fmt.Sprintf("%s/cgi-bin/viewdoc/au/cases/tas/%s/%s/%s.html", c.baseURL, abbrev, year, num)
}

// ListCandidates fetches the year-indexed listing page for each court and
// extracts citation candidates until limit is collected. Citations accepted
// by exclude, and citations already seen during this call, are skipped
// before they count toward the limit. A listing fetch failure is logged and
// that court is skipped; it never aborts the whole listing.
func (c *Client) ListCandidates(ctx context.Context, year int, courts []Court, limit int, exclude func(citation string) bool) []CaseCandidate {
	if len(courts) == 0 {
		courts = DefaultCourts
	}

	seen := make(map[string]bool)
	candidates := make([]CaseCandidate, 0, limit)

	for _, court := range courts {
		if len(candidates) >= limit {
			break
		}

		html, err := c.fetchListing(ctx, court, year)
		if err != nil {
			logger.Warn("AustLII listing fetch failed",
				zap.String("court", string(court)),
				zap.Int("year", year),
				zap.Error(err),
			)
			continue
		}

		for _, cand := range c.parseListing(html, court) {
			if seen[cand.Citation] {
				continue
			}
			seen[cand.Citation] = true

			if exclude != nil && exclude(cand.Citation) {
				continue
			}

			candidates = append(candidates, cand)
			if len(candidates) >= limit {
				break
			}
		}
	}

	logger.Info("AustLII candidates discovered",
		zap.Int("year", year),
		zap.Int("count", len(candidates)),
	)

	return candidates
}

func (c *Client) fetchListing(ctx context.Context, court Court, year int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.listingURL(court, year), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("listing returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read listing body: %w", err)
	}

	return string(body), nil
}

func (c *Client) parseListing(html string, court Court) []CaseCandidate {
	matches := citationPattern.FindAllStringSubmatch(html, maxCitationsPerListing)

	candidates := make([]CaseCandidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, CaseCandidate{
			Citation:    m[0],
			Year:        m[1],
			CourtAbbrev: m[2],
			CaseNum:     m[3],
			URL:         c.detailURL(m[2], m[1], m[3]),
			Court:       court,
		})
	}

	return candidates
}

// FetchContent fetches a case detail page and extracts its name and plain
// text. The title supplies the case name, falling back to a placeholder;
// markup is stripped from the body and the text truncated to
// maxContentLength.
func (c *Client) FetchContent(ctx context.Context, url string) (*CaseContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch case: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("case page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse case HTML: %w", err)
	}

	caseName := strings.TrimSpace(doc.Find("title").First().Text())
	if caseName == "" {
		caseName = "Unknown Case"
	}

	doc.Find("script, style").Remove()

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	text = truncate(text, maxContentLength)

	return &CaseContent{
		CaseName: caseName,
		FullText: text,
	}, nil
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
