// Package enrichment drives the five-step pipeline described in spec §4.6:
// select eligible articles, rate-limited content scrape, LLM structured
// analysis, parallel embed+upload, and a single atomic commit. Grounded on
// the teacher's errgroup+semaphore batch orchestration (since deleted,
// internal/usecase/fetch/service.go), restructured around the pipeline's
// independently-retryable steps instead of a single fetch-and-store call.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"feedmill/internal/domain/entity"
	"feedmill/internal/infra/analyzer"
	"feedmill/internal/infra/blobstore"
	"feedmill/internal/infra/fetcher"
	"feedmill/internal/observability/metrics"
	"feedmill/internal/observability/tracing"
	"feedmill/internal/ratelimit"
	"feedmill/internal/repository"
	"feedmill/internal/resilience/retry"
)

// Embedder is the subset of internal/infra/embeddings.Client's surface the
// worker needs, narrowed to an interface so tests can substitute a fake
// without making an external call.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const (
	contentFetchTimeout = 2 * time.Minute
	analysisTimeout     = time.Minute

	minFallbackJitter = 500 * time.Millisecond
	maxFallbackJitter = 3000 * time.Millisecond

	// analysisConcurrency bounds step 2's per-article fan-out, per the
	// teacher's errgroup.SetLimit usage for batch fan-out.
	analysisConcurrency = 8
)

// errSkippedArticle marks a step-1 item that was disposed of without
// attempting a fetch (e.g. a PDF). It is swallowed by ratelimit.ProcessBatch
// like any other per-item error, simply excluding the item from step 2.
var errSkippedArticle = errors.New("enrichment: article skipped")

// Deps are the collaborators a Worker needs.
type Deps struct {
	Articles repository.ArticleRepository

	Limiter *ratelimit.Limiter
	Sleeper ratelimit.Sleeper

	PlainFetcher  fetcher.Fetcher
	RenderFetcher fetcher.Fetcher
	TrickyHosts   map[string]bool

	Analyzer   analyzer.Analyzer
	Embeddings Embedder
	Blobs      blobstore.Store

	Logger *slog.Logger
	Now    func() time.Time
}

func (d *Deps) withDefaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Sleeper == nil {
		d.Sleeper = ratelimit.RealSleeper
	}
}

// Worker runs the enrichment pipeline over a batch of article ids.
type Worker struct {
	deps Deps
}

func NewWorker(deps Deps) *Worker {
	deps.withDefaults()
	return &Worker{deps: deps}
}

// ProcessBatch drives every eligible article in ids through steps 1-4. It
// never returns an error for per-article failures (those are persisted as
// terminal statuses); it only returns an error if ctx is cancelled or the
// initial load fails outright.
func (w *Worker) ProcessBatch(ctx context.Context, ids []int64) error {
	ctx, span := tracing.GetTracer().Start(ctx, "enrichment.ProcessBatch")
	span.SetAttributes(attribute.Int("batch.size", len(ids)))
	defer span.End()

	articles, err := w.deps.Articles.GetBatch(ctx, ids)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("enrichment: load batch: %w", err)
	}

	now := w.deps.Now()
	byID := make(map[int64]*entity.Article, len(articles))
	items := make([]ratelimit.Item, 0, len(articles))
	for _, a := range articles {
		if !a.EligibleForEnrichment(now) {
			continue
		}
		byID[a.ID] = a
		items = append(items, ratelimit.Item{ID: a.ID, URL: a.URL})
	}
	if len(items) == 0 {
		return nil
	}

	fetchedIDs, err := ratelimit.ProcessBatch(ctx, w.deps.Limiter, items, w.deps.Sleeper, w.step1Scrape(byID))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("enrichment: step 1: %w", err)
	}

	fetched := make([]*entity.Article, 0, len(fetchedIDs))
	for _, id := range fetchedIDs {
		fetched = append(fetched, byID[id])
	}

	analyzed := w.step2Analyze(ctx, fetched)

	for _, a := range analyzed {
		w.step3And4(ctx, a)
	}

	return nil
}

// step1Scrape returns the ratelimit.Work closure for enrichment step 1:
// PDF short-circuit, tricky-host rendered fetch, or plain-fetch-then-
// rendered-fallback. On success it marks the article CONTENT_FETCHED and
// returns its id; on failure it marks the terminal fetch status itself and
// returns an error so ratelimit.ProcessBatch excludes it from its results.
func (w *Worker) step1Scrape(byID map[int64]*entity.Article) ratelimit.Work[int64] {
	return func(ctx context.Context, item ratelimit.Item, host string) (int64, error) {
		article := byID[item.ID]
		log := w.deps.Logger.With(slog.Int64("articleId", article.ID))

		ctx, span := tracing.GetTracer().Start(ctx, "enrichment.step1Scrape")
		span.SetAttributes(attribute.Int64("article.id", article.ID), attribute.String("article.host", host))
		defer span.End()

		if article.IsPDF() {
			if err := w.deps.Articles.MarkSkipped(ctx, article.ID, entity.StatusSkippedPDF, "PDF article - cannot process", w.deps.Now()); err != nil {
				log.Error("enrichment: mark skipped failed", slog.Any("error", err))
			}
			metrics.RecordContentFetchSkipped()
			return 0, errSkippedArticle
		}

		fetchStart := w.deps.Now()
		extracted, usedBrowser, fetchErr := w.fetchContent(ctx, article.URL, w.deps.TrickyHosts[host])
		if fetchErr != nil {
			metrics.RecordContentFetchFailed(w.deps.Now().Sub(fetchStart))
			span.SetStatus(codes.Error, fetchErr.Error())
			status := entity.StatusFetchFailed
			if strings.Contains(strings.ToLower(fetchErr.Error()), "render") {
				status = entity.StatusRenderFailed
			}
			if err := w.deps.Articles.MarkFailed(ctx, article.ID, status, fetchErr.Error()); err != nil {
				log.Error("enrichment: mark failed failed", slog.Any("error", err))
			}
			return 0, fetchErr
		}
		metrics.RecordContentFetchSuccess(w.deps.Now().Sub(fetchStart), len(extracted.Text))

		article.ExtractedText = extracted.Text
		article.UsedBrowser = usedBrowser
		if err := w.deps.Articles.MarkContentFetched(ctx, article.ID, usedBrowser); err != nil {
			log.Error("enrichment: mark content fetched failed", slog.Any("error", err))
			return 0, err
		}
		article.Status = entity.StatusContentFetched
		return article.ID, nil
	}
}

// fetchContent implements spec §4.6 step 1's fetch-strategy selection under
// a single retried step (3 attempts, exponential from 2s, 2-minute
// timeout): tricky hosts always use the rendered fetch; everything else
// tries plain fetch first, falling back to rendered after a jitter sleep.
func (w *Worker) fetchContent(ctx context.Context, articleURL string, tricky bool) (fetcher.Article, bool, error) {
	stepCtx, cancel := context.WithTimeout(ctx, contentFetchTimeout)
	defer cancel()

	var result fetcher.Article
	var usedBrowser bool

	retryErr := retry.WithBackoff(stepCtx, retry.ContentFetchConfig(), func() error {
		if tricky {
			a, err := fetcher.FetchAndExtract(stepCtx, w.deps.RenderFetcher, articleURL)
			if err != nil {
				return err
			}
			result, usedBrowser = a, true
			return nil
		}

		a, err := fetcher.FetchAndExtract(stepCtx, w.deps.PlainFetcher, articleURL)
		if err == nil {
			result, usedBrowser = a, false
			return nil
		}

		if sleepErr := w.deps.Sleeper(stepCtx, fallbackJitter()); sleepErr != nil {
			return sleepErr
		}

		rendered, renderErr := fetcher.FetchAndExtract(stepCtx, w.deps.RenderFetcher, articleURL)
		if renderErr != nil {
			// Deliberately doesn't mention "render" itself: the RENDER_FAILED
			// vs FETCH_FAILED split (spec §4.6 step 1) keys off whether the
			// underlying error text does, which is true only when the
			// rendering service itself reported a structured failure
			// (internal/infra/fetcher.RenderFetcher's "render service: ..."
			// messages), not for generic transport-level failures from
			// either strategy.
			return fmt.Errorf("plain fetch failed: %v; fallback fetch failed: %w", err, renderErr)
		}
		result, usedBrowser = rendered, true
		return nil
	})

	return result, usedBrowser, retryErr
}

// fallbackJitter returns a random duration in [500ms, 3000ms], per spec
// §4.6 step 1's "sleep a jitter of 500-3000ms" between the plain and
// rendered fetch attempts.
func fallbackJitter() time.Duration {
	span := maxFallbackJitter - minFallbackJitter
	// #nosec G404 -- math/rand is fine for a fallback sleep jitter.
	return minFallbackJitter + time.Duration(rand.Int63n(int64(span)))
}

// step2Analyze runs LLM analysis across the batch in parallel (spec §4.6
// step 2), bounded by analysisConcurrency. Articles whose analysis fails
// are marked AI_ANALYSIS_FAILED and dropped from the returned slice.
func (w *Worker) step2Analyze(ctx context.Context, articles []*entity.Article) []*entity.Article {
	if len(articles) == 0 {
		return nil
	}

	ok := make([]bool, len(articles))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(analysisConcurrency)

	for i, a := range articles {
		i, a := i, a
		eg.Go(func() error {
			stepCtx, cancel := context.WithTimeout(egCtx, analysisTimeout)
			defer cancel()

			stepCtx, analysisSpan := tracing.GetTracer().Start(stepCtx, "enrichment.step2Analyze")
			analysisSpan.SetAttributes(attribute.Int64("article.id", a.ID))
			defer analysisSpan.End()

			start := w.deps.Now()
			result, err := w.deps.Analyzer.Analyze(stepCtx, a.ExtractedText)
			metrics.RecordLLMAnalysis(w.deps.Now().Sub(start), err)
			metrics.RecordArticleSummarized(err == nil)
			if err != nil {
				analysisSpan.SetStatus(codes.Error, err.Error())
				if markErr := w.deps.Articles.MarkFailed(ctx, a.ID, entity.StatusAIAnalysisFailed, err.Error()); markErr != nil {
					w.deps.Logger.Error("enrichment: mark analysis failed failed", slog.Int64("articleId", a.ID), slog.Any("error", markErr))
				}
				return nil
			}
			a.Analysis = result
			ok[i] = true
			return nil
		})
	}
	_ = eg.Wait()

	analyzed := make([]*entity.Article, 0, len(articles))
	for i, a := range articles {
		if ok[i] {
			analyzed = append(analyzed, a)
		}
	}
	return analyzed
}

// step3And4 runs the parallel embed+upload join (step 3) and, on success,
// the single atomic commit (step 4). The two halves of step 3 run fully
// independently so a failure on one side is classified without being
// masked by the other side's cancellation.
func (w *Worker) step3And4(ctx context.Context, a *entity.Article) {
	ctx, span := tracing.GetTracer().Start(ctx, "enrichment.step3And4")
	span.SetAttributes(attribute.Int64("article.id", a.ID))
	defer span.End()

	log := w.deps.Logger.With(slog.Int64("articleId", a.ID))
	now := w.deps.Now()

	searchText := buildSearchText(a.Title, a.PrimaryLocation, a.Analysis)

	var wg sync.WaitGroup
	var embedErr, uploadErr error
	var vector []float32
	blobKey := blobstore.Key(a.ID, a.PublishDate, now)

	wg.Add(2)
	go func() {
		defer wg.Done()
		embedStart := w.deps.Now()
		vector, embedErr = w.deps.Embeddings.Embed(ctx, searchText)
		metrics.RecordEmbedding(w.deps.Now().Sub(embedStart), embedErr)
	}()
	go func() {
		defer wg.Done()
		uploadErr = w.deps.Blobs.Put(ctx, blobKey, []byte(a.ExtractedText))
	}()
	wg.Wait()

	if embedErr != nil {
		span.SetStatus(codes.Error, embedErr.Error())
		if err := w.deps.Articles.MarkFailed(ctx, a.ID, entity.StatusEmbeddingFailed, embedErr.Error()); err != nil {
			log.Error("enrichment: mark embedding failed failed", slog.Any("error", err))
		}
		return
	}
	if uploadErr != nil {
		span.SetStatus(codes.Error, uploadErr.Error())
		if err := w.deps.Articles.MarkFailed(ctx, a.ID, entity.StatusBlobUploadFailed, uploadErr.Error()); err != nil {
			log.Error("enrichment: mark blob upload failed failed", slog.Any("error", err))
		}
		return
	}

	a.Embedding = vector
	a.ContentBlobKey = blobKey
	a.Status = entity.StatusProcessed
	a.ProcessedAt = &now

	if err := w.deps.Articles.CommitProcessed(ctx, a); err != nil {
		log.Error("enrichment: commit processed failed", slog.Any("error", err))
	}
}
