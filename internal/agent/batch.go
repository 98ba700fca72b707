package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/newsimpact/internal/analysis/sentiment"
	"github.com/seenimoa/newsimpact/internal/logging"
	"github.com/seenimoa/newsimpact/pkg/models"
)

const (
	DefaultConcurrency     = 5
	DefaultCompletionDelay = 500 * time.Millisecond
)

// ItemAnalyzer analyzes one item and never fails. *Analyzer satisfies it.
type ItemAnalyzer interface {
	Analyze(ctx context.Context, item models.NewsItem) models.AnalysisResult
}

// Progress is reported once per completed item.
type Progress struct {
	BatchID   string `json:"batch_id"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Title     string `json:"title"`
	ModelUsed string `json:"model_used"`
}

// ProgressFunc receives progress events on the Run goroutine, one at a time.
type ProgressFunc func(Progress)

// Batch is the outcome of one BatchRunner.Run.
type Batch struct {
	ID        string                  `json:"batch_id"`
	Results   []models.AnalysisResult `json:"results"`
	Fallbacks int                     `json:"fallbacks"`
	Elapsed   time.Duration           `json:"elapsed"`
}

// BatchRunner fans items out to an ItemAnalyzer over a bounded worker pool.
type BatchRunner struct {
	analyzer    ItemAnalyzer
	fallback    *sentiment.Fallback
	concurrency int
	delay       time.Duration
	logger      *log.Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithConcurrency sets the default worker count.
func WithConcurrency(n int) BatchOption {
	return func(r *BatchRunner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithCompletionDelay sets the pause observed after each completion event.
func WithCompletionDelay(d time.Duration) BatchOption {
	return func(r *BatchRunner) { r.delay = d }
}

// WithBatchLogger sets the logger.
func WithBatchLogger(l *log.Logger) BatchOption {
	return func(r *BatchRunner) { r.logger = l }
}

// NewBatchRunner creates a runner. fallback scores items whose analysis
// panics; nil means a fresh sentiment.Fallback.
func NewBatchRunner(analyzer ItemAnalyzer, fallback *sentiment.Fallback, opts ...BatchOption) *BatchRunner {
	r := &BatchRunner{
		analyzer:    analyzer,
		fallback:    fallback,
		concurrency: DefaultConcurrency,
		delay:       DefaultCompletionDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fallback == nil {
		r.fallback = sentiment.NewFallback()
	}
	r.logger = logging.OrNop(r.logger)
	return r
}

// Run analyzes every item and returns exactly one result per item, in
// input order. concurrency <= 0 uses the runner default. A cancelled ctx
// shortens the completion delay and is passed to the analyzer, which still
// yields a result for every item.
func (r *BatchRunner) Run(ctx context.Context, items []models.NewsItem, concurrency int, onProgress ProgressFunc) Batch {
	batch := Batch{
		ID:      uuid.NewString(),
		Results: make([]models.AnalysisResult, len(items)),
	}
	if len(items) == 0 {
		return batch
	}
	if concurrency <= 0 {
		concurrency = r.concurrency
	}

	start := time.Now()
	r.logger.Info().Str("batch_id", batch.ID).Int("count", len(items)).Int("concurrency", concurrency).Msg("batch started")

	done := make(chan completion, len(items))
	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	go func() {
		for i, item := range items {
			g.Go(func() error {
				done <- completion{index: i, result: r.analyzeOne(ctx, item)}
				return nil
			})
		}
		_ = g.Wait()
		close(done)
	}()

	// Completions are consumed one at a time; the delay after each one
	// paces the whole batch while workers keep running.
	completed := 0
	for c := range done {
		batch.Results[c.index] = c.result
		completed++
		if c.result.IsFallback() {
			batch.Fallbacks++
		}
		if onProgress != nil {
			onProgress(Progress{
				BatchID:   batch.ID,
				Completed: completed,
				Total:     len(items),
				Title:     items[c.index].Title,
				ModelUsed: c.result.ModelUsed,
			})
		}
		r.pause(ctx)
	}

	batch.Elapsed = time.Since(start)
	r.logger.Info().Str("batch_id", batch.ID).Int("count", len(items)).Int("fallbacks", batch.Fallbacks).Str("elapsed", batch.Elapsed.Round(time.Millisecond).String()).Msg("batch finished")
	return batch
}

type completion struct {
	index  int
	result models.AnalysisResult
}

// analyzeOne shields the batch from a panicking analysis.
func (r *BatchRunner) analyzeOne(ctx context.Context, item models.NewsItem) (res models.AnalysisResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Str("title", item.Title).Str("source", item.Source).Str("panic", fmt.Sprint(p)).Msg("analysis panicked, using fallback")
			res = r.fallback.Analyze(item)
		}
	}()
	return r.analyzer.Analyze(ctx, item)
}

func (r *BatchRunner) pause(ctx context.Context) {
	if r.delay <= 0 {
		return
	}
	t := time.NewTimer(r.delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
