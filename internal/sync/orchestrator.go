package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arcanthyr/backend/internal/austlii"
	"github.com/arcanthyr/backend/internal/metrics"
	"github.com/arcanthyr/backend/internal/storage/models"
	"github.com/arcanthyr/backend/internal/summarize"
	"github.com/arcanthyr/backend/pkg/logger"
	"github.com/arcanthyr/backend/pkg/retry"
)

// ErrRunInProgress is returned when a trigger arrives while another run
// holds the lease.
var ErrRunInProgress = errors.New("sync: a run is already in progress")

// minTextLength gates extracted case text; anything shorter is recorded as
// a failure and never reaches summarization.
const minTextLength = 100

// Result is the outcome of one run. The orchestrator itself never fails a
// run: every per-case problem lands in Errors instead.
type Result struct {
	Success        bool     `json:"success"`
	ProcessedCount int      `json:"processed_count"`
	FailedCount    int      `json:"failed_count"`
	Errors         []string `json:"errors"`

	processedCitations []string
}

// Progress is one per-candidate event for live observers (websocket
// stream, metrics).
type Progress struct {
	Stage    string `json:"stage"`
	Citation string `json:"citation,omitempty"`
	Message  string `json:"message,omitempty"`
}

type Source interface {
	ListCandidates(ctx context.Context, year int, courts []austlii.Court, limit int, exclude func(citation string) bool) []austlii.CaseCandidate
	FetchContent(ctx context.Context, url string) (*austlii.CaseContent, error)
}

type Store interface {
	CaseExists(citation string) (bool, error)
	UpsertCase(record *models.Case) error
}

type Summarizer interface {
	Summarize(ctx context.Context, in summarize.Input) summarize.Summary
}

type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) (string, error)
}

// Indexer feeds the best-effort vector side-index; its errors are logged
// and swallowed.
type Indexer interface {
	IndexCase(ctx context.Context, record *models.Case, fullText string) error
}

// SearchCache is invalidated after a run that landed new cases.
type SearchCache interface {
	InvalidateSearches(ctx context.Context) error
}

type Config struct {
	Courts       []austlii.Court
	DailyLimit   int
	FetchRetries int
	FetchBackoff time.Duration
	PacingDelay  time.Duration
	LeaseTTL     time.Duration
	ReportTo     string
	OnProgress   func(Progress)
}

// Orchestrator runs the discover → dedupe → fetch → validate → summarize →
// persist → notify pipeline, one candidate at a time. Pacing between
// candidates is deliberate: the source site is not ours to hammer.
type Orchestrator struct {
	source     Source
	store      Store
	summarizer Summarizer
	notifier   Notifier
	indexer    Indexer
	cache      SearchCache
	cfg        Config
	lease      *Lease
	now        func() time.Time
}

func NewOrchestrator(source Source, store Store, summarizer Summarizer, notifier Notifier, cfg Config) *Orchestrator {
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = 50
	}
	if cfg.FetchRetries <= 0 {
		cfg.FetchRetries = 3
	}
	if cfg.FetchBackoff <= 0 {
		cfg.FetchBackoff = 2 * time.Second
	}
	if cfg.PacingDelay < 0 {
		cfg.PacingDelay = 2 * time.Second
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 30 * time.Minute
	}
	if len(cfg.Courts) == 0 {
		cfg.Courts = austlii.DefaultCourts
	}

	return &Orchestrator{
		source:     source,
		store:      store,
		summarizer: summarizer,
		notifier:   notifier,
		cfg:        cfg,
		lease:      NewLease(cfg.LeaseTTL),
		now:        time.Now,
	}
}

// SetIndexer attaches the optional vector side-index.
func (o *Orchestrator) SetIndexer(indexer Indexer) {
	o.indexer = indexer
}

// SetSearchCache attaches the optional search-response cache.
func (o *Orchestrator) SetSearchCache(cache SearchCache) {
	o.cache = cache
}

// Run executes one sync run. It returns ErrRunInProgress when the lease is
// held; otherwise it always returns a Result, with every per-case failure
// itemized rather than raised.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	return o.RunWithProgress(ctx, nil)
}

// RunWithProgress runs like Run and additionally reports per-candidate
// events to onProgress (alongside any configured observer).
func (o *Orchestrator) RunWithProgress(ctx context.Context, onProgress func(Progress)) (*Result, error) {
	token, ok := o.lease.Acquire()
	if !ok {
		return nil, ErrRunInProgress
	}
	defer o.lease.Release(token)

	run := &runState{orch: o, onProgress: onProgress}
	return run.execute(ctx)
}

// runState carries one run's per-run observer so concurrent trigger
// attempts cannot cross wires.
type runState struct {
	orch       *Orchestrator
	onProgress func(Progress)
}

func (r *runState) execute(ctx context.Context) (*Result, error) {
	o := r.orch

	logger.Info("Starting AustLII sync run")
	metrics.SyncRunsTotal.Inc()
	started := o.now()

	result := &Result{Success: true, Errors: []string{}}
	year := o.now().Year()

	candidates := o.source.ListCandidates(ctx, year, o.cfg.Courts, o.cfg.DailyLimit, o.knownCitation)

	logger.Info("Sync candidates discovered", zap.Int("count", len(candidates)))
	r.progress(Progress{Stage: "discover", Message: fmt.Sprintf("%d new cases found", len(candidates))})

	for _, candidate := range candidates {
		r.processCandidate(ctx, candidate, result)
		o.pace(ctx)
	}

	logger.Info("Sync run complete",
		zap.Int("processed", result.ProcessedCount),
		zap.Int("failed", result.FailedCount),
		zap.Duration("elapsed", o.now().Sub(started)),
	)
	metrics.CasesProcessed.Add(float64(result.ProcessedCount))
	metrics.CasesFailed.Add(float64(result.FailedCount))
	metrics.SyncDuration.Observe(o.now().Sub(started).Seconds())

	o.notifyRun(ctx, len(candidates), result)

	if result.ProcessedCount > 0 && o.cache != nil {
		if err := o.cache.InvalidateSearches(ctx); err != nil {
			logger.Warn("Failed to invalidate search cache", zap.Error(err))
		}
	}

	r.progress(Progress{Stage: "done", Message: fmt.Sprintf("processed %d, failed %d", result.ProcessedCount, result.FailedCount)})

	return result, nil
}

// knownCitation is the dedupe check used during discovery, before a
// citation counts toward the daily limit.
func (o *Orchestrator) knownCitation(citation string) bool {
	exists, err := o.store.CaseExists(citation)
	if err != nil {
		logger.Warn("Dedupe lookup failed", zap.String("citation", citation), zap.Error(err))
		return false
	}
	return exists
}

func (r *runState) processCandidate(ctx context.Context, candidate austlii.CaseCandidate, result *Result) {
	o := r.orch

	logger.Info("Processing case", zap.String("citation", candidate.Citation))
	r.progress(Progress{Stage: "fetch", Citation: candidate.Citation})

	// Duplicate check precedes the content fetch: another trigger may have
	// landed this citation since discovery.
	if o.knownCitation(candidate.Citation) {
		logger.Debug("Citation already stored, skipping", zap.String("citation", candidate.Citation))
		return
	}

	content, err := retry.DoWithResult(ctx, retry.Config{
		MaxAttempts:  o.cfg.FetchRetries,
		InitialDelay: o.cfg.FetchBackoff,
		MaxDelay:     o.cfg.FetchBackoff,
		Multiplier:   1.0,
		Logger:       logger.GetLogger(),
	}, func() (*austlii.CaseContent, error) {
		metrics.FetchAttempts.Inc()
		return o.source.FetchContent(ctx, candidate.URL)
	})

	if err != nil {
		logger.Error("Content fetch exhausted retries",
			zap.String("citation", candidate.Citation),
			zap.Error(err),
		)
		r.recordFailure(result, candidate.Citation, "Content fetch failed")
		return
	}

	if len(content.FullText) < minTextLength {
		logger.Error("Insufficient case text",
			zap.String("citation", candidate.Citation),
			zap.Int("length", len(content.FullText)),
		)
		r.recordFailure(result, candidate.Citation, "Insufficient text extracted")
		return
	}

	r.progress(Progress{Stage: "summarize", Citation: candidate.Citation})
	logger.Debug("Summarizing case",
		zap.String("citation", candidate.Citation),
		zap.Int("text_length", len(content.FullText)),
	)

	summary := o.summarizer.Summarize(ctx, summarize.Input{
		Citation: candidate.Citation,
		CaseName: content.CaseName,
		Court:    string(candidate.Court),
		FullText: content.FullText,
	})

	// A failed extraction is still persisted so the citation is not
	// re-fetched on the next run; it is reported as a failure regardless.
	if summary.Failed() {
		r.recordFailure(result, candidate.Citation, "AI extraction failed")
	}

	record := &models.Case{
		Citation:      candidate.Citation,
		Court:         string(candidate.Court),
		CaseDate:      candidate.Year + "-01-01",
		CaseName:      content.CaseName,
		URL:           candidate.URL,
		Facts:         summary.Facts,
		Issues:        summary.Issues,
		Holding:       summary.Holding,
		Principles:    summary.Principles,
		ProcessedDate: o.now(),
		QualityScore:  summary.QualityScore,
	}

	if err := o.store.UpsertCase(record); err != nil {
		logger.Error("Failed to persist case",
			zap.String("citation", candidate.Citation),
			zap.Error(err),
		)
		r.recordFailure(result, candidate.Citation, err.Error())
		return
	}

	if o.indexer != nil {
		if err := o.indexer.IndexCase(ctx, record, content.FullText); err != nil {
			logger.Warn("Vector indexing failed",
				zap.String("citation", candidate.Citation),
				zap.Error(err),
			)
		}
	}

	result.ProcessedCount++
	result.processedCitations = append(result.processedCitations, candidate.Citation)
	r.progress(Progress{Stage: "persisted", Citation: candidate.Citation})
	logger.Info("Case saved", zap.String("citation", candidate.Citation))
}

func (r *runState) recordFailure(result *Result, citation, reason string) {
	result.FailedCount++
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", citation, reason))
	r.progress(Progress{Stage: "failed", Citation: citation, Message: reason})
}

// pace waits the fixed inter-candidate delay regardless of outcome.
func (o *Orchestrator) pace(ctx context.Context) {
	if o.cfg.PacingDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(o.cfg.PacingDelay):
	}
}

// notifyRun sends one summary email when anything was processed or failed.
// Notification problems are logged and never affect the run result.
func (o *Orchestrator) notifyRun(ctx context.Context, discovered int, result *Result) {
	if o.notifier == nil || o.cfg.ReportTo == "" {
		return
	}
	if result.ProcessedCount == 0 && result.FailedCount == 0 {
		return
	}

	subject := fmt.Sprintf("Arcanthyr: %d new cases, %d failed", result.ProcessedCount, result.FailedCount)

	var body strings.Builder
	fmt.Fprintf(&body, "<p>Daily sync found %d new cases:</p>", discovered)
	fmt.Fprintf(&body, "<p><strong>Successfully processed: %d</strong></p>", result.ProcessedCount)

	if len(result.processedCitations) > 0 {
		body.WriteString("<ul>")
		for _, citation := range result.processedCitations {
			fmt.Fprintf(&body, "<li>%s</li>", citation)
		}
		body.WriteString("</ul>")
	}

	if result.FailedCount > 0 {
		fmt.Fprintf(&body, "<p><strong>Failed: %d</strong></p>", result.FailedCount)
		body.WriteString("<ul>")
		for _, errText := range result.Errors {
			fmt.Fprintf(&body, "<li>%s</li>", errText)
		}
		body.WriteString("</ul>")
	}

	if _, err := o.notifier.Send(ctx, o.cfg.ReportTo, subject, body.String()); err != nil {
		logger.Error("Failed to send sync notification", zap.Error(err))
	}
}

func (r *runState) progress(p Progress) {
	if r.orch.cfg.OnProgress != nil {
		r.orch.cfg.OnProgress(p)
	}
	if r.onProgress != nil {
		r.onProgress(p)
	}
}
