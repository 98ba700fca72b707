package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/phuslu/log"

	"github.com/seenimoa/newsimpact/internal/analysis/prompts"
	"github.com/seenimoa/newsimpact/internal/analysis/response"
	"github.com/seenimoa/newsimpact/internal/analysis/summary"
	"github.com/seenimoa/newsimpact/internal/cache"
	"github.com/seenimoa/newsimpact/internal/config"
	"github.com/seenimoa/newsimpact/internal/llm"
	"github.com/seenimoa/newsimpact/internal/logging"
	"github.com/seenimoa/newsimpact/internal/store"
	"github.com/seenimoa/newsimpact/pkg/models"
	"github.com/seenimoa/newsimpact/pkg/utils"
)

// Sink persists result sets. store.FileSink satisfies it.
type Sink interface {
	SaveResults(results []models.AnalysisResult, path string) error
	SaveDaily(daily map[string]models.DailyAnalysis, path string) error
}

// Service exposes the caller-facing analysis operations.
type Service struct {
	analyzer   *Analyzer
	runner     *BatchRunner
	summarizer *summary.Summarizer
	sink       Sink
	logger     *log.Logger
}

// NewService assembles a Service from its parts. A nil summarizer or sink
// selects the defaults.
func NewService(analyzer *Analyzer, runner *BatchRunner, summarizer *summary.Summarizer, sink Sink, logger *log.Logger) *Service {
	if summarizer == nil {
		summarizer = summary.NewSummarizer(0, 0)
	}
	if sink == nil {
		sink = store.FileSink{}
	}
	return &Service{
		analyzer:   analyzer,
		runner:     runner,
		summarizer: summarizer,
		sink:       sink,
		logger:     logging.OrNop(logger),
	}
}

// NewServiceFromConfig wires the model client, cache and pipeline from cfg.
// A missing API key is not fatal: the service then runs on the keyword
// fallback alone and says so in the log.
func NewServiceFromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Service, error) {
	logger = logging.OrNop(logger)

	var caller Caller
	client, err := llm.NewClientFromConfig(ctx, cfg.LLM, logger,
		llm.WithSystemPrompt(prompts.SystemInstruction),
		llm.WithJSONOutput(),
	)
	switch {
	case err == nil:
		caller = client
	case errors.Is(err, llm.ErrNoAPIKey):
		logger.Warn().Str("provider", cfg.LLM.Provider).Msg("no API key configured, every item will use the fallback analysis")
	default:
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	results := cache.NewResults(cache.NewStore(cfg.Cache, logger), cfg.Cache.TTL, logger)
	analyzer := NewAnalyzer(caller,
		WithPromptBuilder(prompts.NewBuilder(cfg.Analysis.ContentLimit)),
		WithParser(response.NewParser(cfg.Analysis.SummaryLimit)),
		WithResultCache(results),
		WithAnalyzerLogger(logger),
	)
	runner := NewBatchRunner(analyzer, analyzer.Fallback(),
		WithConcurrency(cfg.Analysis.MaxConcurrency),
		WithCompletionDelay(cfg.Analysis.CompletionDelay),
		WithBatchLogger(logger),
	)
	summarizer := summary.NewSummarizer(cfg.Analysis.HighImpactThreshold, cfg.Analysis.TopSectors)

	return NewService(analyzer, runner, summarizer, store.FileSink{}, logger), nil
}

// Model reports the model name stamped into model-derived results.
func (s *Service) Model() string { return s.analyzer.Model() }

// Summarizer returns the summarizer used for daily records.
func (s *Service) Summarizer() *summary.Summarizer { return s.summarizer }

// AnalyzeSingle analyzes one item.
func (s *Service) AnalyzeSingle(ctx context.Context, item models.NewsItem) models.AnalysisResult {
	return s.analyzer.Analyze(ctx, item)
}

// AnalyzeBatch analyzes items with at most concurrency in flight.
func (s *Service) AnalyzeBatch(ctx context.Context, items []models.NewsItem, concurrency int, onProgress ProgressFunc) Batch {
	return s.runner.Run(ctx, items, concurrency, onProgress)
}

// AnalyzeDailyNews analyzes one day's items and summarizes them. An empty
// date is taken from the first item, then from today's date. No items
// yields an empty record without touching the pipeline.
func (s *Service) AnalyzeDailyNews(ctx context.Context, date string, items []models.NewsItem, onProgress ProgressFunc) models.DailyAnalysis {
	if date == "" && len(items) > 0 {
		date = items[0].Date
	}
	if date == "" {
		date = utils.Today()
	}
	if len(items) == 0 {
		return models.EmptyDailyAnalysis(date)
	}

	batch := s.runner.Run(ctx, items, 0, onProgress)
	return models.DailyAnalysis{
		Date:               date,
		TotalNewsCount:     len(items),
		AnalyzedCount:      len(batch.Results),
		IndividualAnalysis: batch.Results,
		DailySummary:       s.summarizer.Summarize(date, batch.Results),
	}
}

// BatchAnalyzeByDate runs AnalyzeDailyNews for every date in ascending order.
func (s *Service) BatchAnalyzeByDate(ctx context.Context, byDate map[string][]models.NewsItem, onProgress ProgressFunc) map[string]models.DailyAnalysis {
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make(map[string]models.DailyAnalysis, len(dates))
	for _, d := range dates {
		s.logger.Info().Str("date", d).Int("count", len(byDate[d])).Msg("analyzing date")
		out[d] = s.AnalyzeDailyNews(ctx, d, byDate[d], onProgress)
	}
	return out
}

// Save writes results to path. Failures are logged and reported as false;
// the in-memory results stay valid either way.
func (s *Service) Save(results []models.AnalysisResult, path string) bool {
	if err := s.sink.SaveResults(results, path); err != nil {
		s.logger.Error().Err(err).Str("path", path).Int("count", len(results)).Msg("saving results failed")
		return false
	}
	s.logger.Info().Str("path", path).Int("count", len(results)).Msg("results saved")
	return true
}

// SaveDaily writes by-date analyses to path with the same policy as Save.
func (s *Service) SaveDaily(daily map[string]models.DailyAnalysis, path string) bool {
	if err := s.sink.SaveDaily(daily, path); err != nil {
		s.logger.Error().Err(err).Str("path", path).Int("dates", len(daily)).Msg("saving daily analyses failed")
		return false
	}
	s.logger.Info().Str("path", path).Int("dates", len(daily)).Msg("daily analyses saved")
	return true
}
