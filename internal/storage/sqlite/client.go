package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/arcanthyr/backend/internal/storage/models"
	"github.com/arcanthyr/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		citation TEXT UNIQUE NOT NULL,
		court TEXT,
		case_date TEXT,
		case_name TEXT,
		url TEXT,
		facts TEXT,
		issues TEXT,
		holding TEXT,
		principles_extracted TEXT,
		processed_date TEXT NOT NULL,
		summary_quality_score REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_cases_court ON cases(court);
	CREATE INDEX IF NOT EXISTS idx_cases_date ON cases(case_date);

	CREATE TABLE IF NOT EXISTS legal_principles (
		id TEXT PRIMARY KEY,
		principle_text TEXT UNIQUE NOT NULL,
		keywords TEXT,
		statute_refs TEXT,
		case_citations TEXT,
		most_recent_citation TEXT,
		date_added TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_principles_added ON legal_principles(date_added);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// caseID normalizes a citation into a row id, collapsing whitespace runs to
// hyphens.
func caseID(citation string) string {
	return strings.Join(strings.Fields(citation), "-")
}

func (c *Client) CaseExists(citation string) (bool, error) {
	var id string
	err := c.db.QueryRow("SELECT id FROM cases WHERE citation = ?", citation).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check case existence: %w", err)
	}
	return true, nil
}

// UpsertCase writes or overwrites one case row keyed by normalized citation
// and upserts every principle the summary extracted for it.
func (c *Client) UpsertCase(record *models.Case) error {
	principlesJSON, err := json.Marshal(record.Principles)
	if err != nil {
		return fmt.Errorf("failed to encode principles: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO cases
		(id, citation, court, case_date, case_name, url, facts, issues, holding, principles_extracted, processed_date, summary_quality_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	record.ID = caseID(record.Citation)
	_, err = c.db.Exec(
		query,
		record.ID,
		record.Citation,
		record.Court,
		record.CaseDate,
		record.CaseName,
		record.URL,
		record.Facts,
		record.Issues,
		record.Holding,
		string(principlesJSON),
		record.ProcessedDate.Format(time.RFC3339),
		record.QualityScore,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert case: %w", err)
	}

	for _, principle := range record.Principles {
		if err := c.UpsertPrinciple(principle, record.Citation); err != nil {
			return fmt.Errorf("failed to upsert principle for %s: %w", record.Citation, err)
		}
	}

	logger.Debug("Case upserted",
		zap.String("citation", record.Citation),
		zap.Int("principles", len(record.Principles)),
	)

	return nil
}

// UpsertPrinciple looks up a principle by exact text. An existing principle
// gets the citing citation appended (only if absent) and its most-recent
// pointer updated; otherwise a new principle row is created.
func (c *Client) UpsertPrinciple(principle models.CasePrinciple, citingCitation string) error {
	var id, citationsJSON string
	err := c.db.QueryRow(
		"SELECT id, case_citations FROM legal_principles WHERE principle_text = ?",
		principle.Principle,
	).Scan(&id, &citationsJSON)

	if err == sql.ErrNoRows {
		return c.insertPrinciple(principle, citingCitation)
	}
	if err != nil {
		return fmt.Errorf("failed to look up principle: %w", err)
	}

	var citations []string
	if err := json.Unmarshal([]byte(citationsJSON), &citations); err != nil {
		citations = []string{}
	}

	for _, existing := range citations {
		if existing == citingCitation {
			return nil
		}
	}

	citations = append(citations, citingCitation)
	updated, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("failed to encode citations: %w", err)
	}

	_, err = c.db.Exec(
		"UPDATE legal_principles SET case_citations = ?, most_recent_citation = ? WHERE id = ?",
		string(updated), citingCitation, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update principle: %w", err)
	}

	return nil
}

func (c *Client) insertPrinciple(principle models.CasePrinciple, citingCitation string) error {
	keywordsJSON, _ := json.Marshal(emptyIfNil(principle.Keywords))
	statuteJSON, _ := json.Marshal(emptyIfNil(principle.StatuteRefs))
	citationsJSON, _ := json.Marshal([]string{citingCitation})

	_, err := c.db.Exec(`
		INSERT INTO legal_principles
		(id, principle_text, keywords, statute_refs, case_citations, most_recent_citation, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		"prin-"+uuid.NewString(),
		principle.Principle,
		string(keywordsJSON),
		string(statuteJSON),
		string(citationsJSON),
		citingCitation,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert principle: %w", err)
	}

	return nil
}

func (c *Client) GetCase(citation string) (*models.Case, error) {
	query := `
		SELECT id, citation, court, case_date, case_name, url, facts, issues, holding, principles_extracted, processed_date, summary_quality_score
		FROM cases WHERE citation = ?
	`

	var record models.Case
	var principlesJSON, processedDate string

	err := c.db.QueryRow(query, citation).Scan(
		&record.ID,
		&record.Citation,
		&record.Court,
		&record.CaseDate,
		&record.CaseName,
		&record.URL,
		&record.Facts,
		&record.Issues,
		&record.Holding,
		&principlesJSON,
		&processedDate,
		&record.QualityScore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	json.Unmarshal([]byte(principlesJSON), &record.Principles)
	record.ProcessedDate, _ = time.Parse(time.RFC3339, processedDate)

	return &record, nil
}

func (c *Client) GetPrinciple(text string) (*models.Principle, error) {
	query := `
		SELECT id, principle_text, keywords, statute_refs, case_citations, most_recent_citation, date_added
		FROM legal_principles WHERE principle_text = ?
	`

	row := c.db.QueryRow(query, text)
	principle, err := scanPrinciple(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to get principle: %w", err)
	}

	return principle, nil
}

func (c *Client) SearchCases(query, court string, limit int) ([]models.Case, error) {
	sqlQuery := "SELECT id, citation, court, case_date, case_name, url, facts, issues, holding, summary_quality_score FROM cases WHERE 1=1"
	var params []interface{}

	if strings.TrimSpace(query) != "" {
		sqlQuery += " AND (case_name LIKE ? OR facts LIKE ? OR issues LIKE ? OR holding LIKE ?)"
		term := "%" + query + "%"
		params = append(params, term, term, term, term)
	}

	if court != "" && court != "all" {
		sqlQuery += " AND court = ?"
		params = append(params, court)
	}

	sqlQuery += " ORDER BY case_date DESC LIMIT ?"
	params = append(params, limit)

	rows, err := c.db.Query(sqlQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to search cases: %w", err)
	}
	defer rows.Close()

	var results []models.Case
	for rows.Next() {
		var record models.Case
		err := rows.Scan(
			&record.ID,
			&record.Citation,
			&record.Court,
			&record.CaseDate,
			&record.CaseName,
			&record.URL,
			&record.Facts,
			&record.Issues,
			&record.Holding,
			&record.QualityScore,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case row: %w", err)
		}
		results = append(results, record)
	}

	return results, rows.Err()
}

func (c *Client) SearchPrinciples(query string, limit int) ([]models.Principle, error) {
	sqlQuery := "SELECT id, principle_text, keywords, statute_refs, case_citations, most_recent_citation, date_added FROM legal_principles WHERE 1=1"
	var params []interface{}

	if strings.TrimSpace(query) != "" {
		sqlQuery += " AND (principle_text LIKE ? OR keywords LIKE ? OR statute_refs LIKE ?)"
		term := "%" + query + "%"
		params = append(params, term, term, term)
	}

	sqlQuery += " ORDER BY date_added DESC LIMIT ?"
	params = append(params, limit)

	rows, err := c.db.Query(sqlQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to search principles: %w", err)
	}
	defer rows.Close()

	var results []models.Principle
	for rows.Next() {
		principle, err := scanPrinciple(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan principle row: %w", err)
		}
		results = append(results, *principle)
	}

	return results, rows.Err()
}

// SyncProgress reads aggregate store stats for the sync dashboard.
func (c *Client) SyncProgress() (*models.SyncProgress, error) {
	progress := &models.SyncProgress{
		EarliestCase: "None",
		LatestCase:   "None",
		LastSync:     "Never",
	}

	var earliest, latest, lastSync sql.NullString
	err := c.db.QueryRow(`
		SELECT COUNT(*), MIN(case_date), MAX(case_date), MAX(processed_date)
		FROM cases
	`).Scan(&progress.TotalCases, &earliest, &latest, &lastSync)
	if err != nil {
		return nil, fmt.Errorf("failed to read case stats: %w", err)
	}

	if earliest.Valid {
		progress.EarliestCase = earliest.String
	}
	if latest.Valid {
		progress.LatestCase = latest.String
	}
	if lastSync.Valid {
		progress.LastSync = lastSync.String
	}

	err = c.db.QueryRow("SELECT COUNT(*) FROM legal_principles").Scan(&progress.TotalPrinciples)
	if err != nil {
		return nil, fmt.Errorf("failed to count principles: %w", err)
	}

	return progress, nil
}

func scanPrinciple(scan func(dest ...interface{}) error) (*models.Principle, error) {
	var principle models.Principle
	var keywordsJSON, statuteJSON, citationsJSON, dateAdded string

	err := scan(
		&principle.ID,
		&principle.PrincipleText,
		&keywordsJSON,
		&statuteJSON,
		&citationsJSON,
		&principle.MostRecentCitation,
		&dateAdded,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(keywordsJSON), &principle.Keywords)
	json.Unmarshal([]byte(statuteJSON), &principle.StatuteRefs)
	json.Unmarshal([]byte(citationsJSON), &principle.CaseCitations)
	principle.DateAdded, _ = time.Parse(time.RFC3339, dateAdded)

	return &principle, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
