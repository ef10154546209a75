package handlers

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/arcanthyr/backend/internal/cache/redis"
	"github.com/arcanthyr/backend/internal/storage/models"
	"github.com/arcanthyr/backend/internal/storage/sqlite"
	"github.com/arcanthyr/backend/internal/summarize"
	syncpkg "github.com/arcanthyr/backend/internal/sync"
	"github.com/arcanthyr/backend/internal/vector/milvus"
	"github.com/arcanthyr/backend/pkg/logger"
)

const (
	defaultSearchLimit  = 50
	defaultSemanticTopK = 10
	searchCacheTTL      = 10 * time.Minute
	uploadMinTextLength = 100
)

var citationYearPattern = regexp.MustCompile(`\[(\d{4})\]`)

// LegalHandler serves case search, sync control and manual case ingest.
// The vector index and search cache are optional; handlers degrade to
// direct store access when either is absent.
type LegalHandler struct {
	store        *sqlite.Client
	orchestrator *syncpkg.Orchestrator
	summarizer   syncpkg.Summarizer
	vectorIndex  *milvus.Indexer
	cache        *redis.Client
}

func NewLegalHandler(store *sqlite.Client, orchestrator *syncpkg.Orchestrator, summarizer syncpkg.Summarizer) *LegalHandler {
	return &LegalHandler{
		store:        store,
		orchestrator: orchestrator,
		summarizer:   summarizer,
	}
}

func (h *LegalHandler) SetVectorIndex(index *milvus.Indexer) {
	h.vectorIndex = index
}

func (h *LegalHandler) SetSearchCache(cache *redis.Client) {
	h.cache = cache
}

// HandleTriggerSync starts a manual sync run. A run already holding the
// lease yields 409.
func (h *LegalHandler) HandleTriggerSync(c *fiber.Ctx) error {
	result, err := h.orchestrator.Run(c.Context())
	if errors.Is(err, syncpkg.ErrRunInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A sync run is already in progress.",
		})
	}
	if err != nil {
		logger.Error("Sync run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Sync run failed",
		})
	}

	return c.JSON(fiber.Map{"result": result})
}

func (h *LegalHandler) HandleSyncProgress(c *fiber.Ctx) error {
	progress, err := h.store.SyncProgress()
	if err != nil {
		logger.Error("Failed to read sync progress", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read sync progress",
		})
	}
	return c.JSON(fiber.Map{"result": progress})
}

func (h *LegalHandler) HandleSearchCases(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
		Court string `json:"court"`
		Limit int    `json:"limit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body.")
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}

	cacheKey := redis.SearchKey("cases", req.Query, req.Court, strconv.Itoa(req.Limit))
	var cases []models.Case
	if h.cacheGet(c, cacheKey, &cases) {
		return c.JSON(fiber.Map{"result": cases})
	}

	cases, err := h.store.SearchCases(req.Query, req.Court, req.Limit)
	if err != nil {
		logger.Error("Case search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Case search failed",
		})
	}

	h.cacheSet(c, cacheKey, cases)
	return c.JSON(fiber.Map{"result": cases})
}

func (h *LegalHandler) HandleSearchPrinciples(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body.")
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}

	cacheKey := redis.SearchKey("principles", req.Query, strconv.Itoa(req.Limit))
	var principles []models.Principle
	if h.cacheGet(c, cacheKey, &principles) {
		return c.JSON(fiber.Map{"result": principles})
	}

	principles, err := h.store.SearchPrinciples(req.Query, req.Limit)
	if err != nil {
		logger.Error("Principle search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Principle search failed",
		})
	}

	h.cacheSet(c, cacheKey, principles)
	return c.JSON(fiber.Map{"result": principles})
}

func (h *LegalHandler) HandleSemanticSearch(c *fiber.Ctx) error {
	if h.vectorIndex == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Semantic search is not configured.",
		})
	}

	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body.")
	}
	if req.Query == "" {
		return badRequest(c, "Query is required")
	}
	if req.TopK <= 0 {
		req.TopK = defaultSemanticTopK
	}

	results, err := h.vectorIndex.SearchSimilar(c.Context(), req.Query, req.TopK)
	if err != nil {
		logger.Error("Semantic search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Semantic search failed",
		})
	}

	return c.JSON(fiber.Map{"result": results})
}

// HandleUploadCase ingests one manually supplied case: duplicate
// citations are rejected, the text is summarized and the case persisted
// through the same store path the sync pipeline uses.
func (h *LegalHandler) HandleUploadCase(c *fiber.Ctx) error {
	var req struct {
		CaseText string `json:"case_text"`
		Citation string `json:"citation"`
		CaseName string `json:"case_name"`
		Court    string `json:"court"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body.")
	}
	if req.CaseText == "" || req.Citation == "" {
		return badRequest(c, "Missing required fields: case_text and citation")
	}
	if len(req.CaseText) < uploadMinTextLength {
		return badRequest(c, "Case text is too short to process")
	}

	exists, err := h.store.CaseExists(req.Citation)
	if err != nil {
		logger.Error("Duplicate check failed", zap.String("citation", req.Citation), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check for existing case",
		})
	}
	if exists {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fmt.Sprintf("Case %s already exists in database", req.Citation),
		})
	}

	caseName := req.CaseName
	if caseName == "" {
		caseName = "Unknown Case"
	}
	court := req.Court
	if court == "" {
		court = "unknown"
	}
	year := strconv.Itoa(time.Now().Year())
	if m := citationYearPattern.FindStringSubmatch(req.Citation); m != nil {
		year = m[1]
	}

	summary := h.summarizer.Summarize(c.Context(), summarize.Input{
		Citation: req.Citation,
		CaseName: caseName,
		Court:    court,
		FullText: req.CaseText,
	})

	record := &models.Case{
		Citation:      req.Citation,
		Court:         court,
		CaseDate:      year + "-01-01",
		CaseName:      caseName,
		Facts:         summary.Facts,
		Issues:        summary.Issues,
		Holding:       summary.Holding,
		Principles:    summary.Principles,
		ProcessedDate: time.Now(),
		QualityScore:  summary.QualityScore,
	}

	if err := h.store.UpsertCase(record); err != nil {
		logger.Error("Failed to persist uploaded case", zap.String("citation", req.Citation), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save case",
		})
	}

	if h.vectorIndex != nil {
		if err := h.vectorIndex.IndexCase(c.Context(), record, req.CaseText); err != nil {
			logger.Warn("Vector indexing failed for upload", zap.String("citation", req.Citation), zap.Error(err))
		}
	}

	if h.cache != nil {
		if err := h.cache.InvalidateSearches(c.Context()); err != nil {
			logger.Warn("Failed to invalidate search cache", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"result": fiber.Map{
		"id":        record.ID,
		"citation":  record.Citation,
		"case_name": record.CaseName,
		"summary": fiber.Map{
			"facts":      summary.Facts,
			"issues":     summary.Issues,
			"holding":    summary.Holding,
			"principles": summary.Principles,
		},
	}})
}

func (h *LegalHandler) cacheGet(c *fiber.Ctx, key string, out interface{}) bool {
	if h.cache == nil {
		return false
	}
	hit, err := h.cache.GetSearch(c.Context(), key, out)
	if err != nil {
		logger.Warn("Search cache read failed", zap.Error(err))
		return false
	}
	return hit
}

func (h *LegalHandler) cacheSet(c *fiber.Ctx, key string, value interface{}) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetSearch(c.Context(), key, value, searchCacheTTL); err != nil {
		logger.Warn("Search cache write failed", zap.Error(err))
	}
}
