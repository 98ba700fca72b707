// Package agent runs the news analysis pipeline: prompt, model call,
// response parsing and the keyword fallback, for single items, batches and
// whole days of news.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/phuslu/log"

	"github.com/seenimoa/newsimpact/internal/analysis/prompts"
	"github.com/seenimoa/newsimpact/internal/analysis/response"
	"github.com/seenimoa/newsimpact/internal/analysis/sentiment"
	"github.com/seenimoa/newsimpact/internal/cache"
	"github.com/seenimoa/newsimpact/internal/logging"
	"github.com/seenimoa/newsimpact/pkg/models"
)

// Caller is the model boundary. *llm.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Analyzer turns one NewsItem into one AnalysisResult.
type Analyzer struct {
	caller   Caller
	builder  *prompts.Builder
	parser   *response.Parser
	fallback *sentiment.Fallback
	cache    *cache.Results
	logger   *log.Logger
	now      func() time.Time
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithPromptBuilder replaces the default prompt builder.
func WithPromptBuilder(b *prompts.Builder) AnalyzerOption {
	return func(a *Analyzer) { a.builder = b }
}

// WithParser replaces the default response parser.
func WithParser(p *response.Parser) AnalyzerOption {
	return func(a *Analyzer) { a.parser = p }
}

// WithResultCache enables result caching. A nil cache disables it.
func WithResultCache(c *cache.Results) AnalyzerOption {
	return func(a *Analyzer) { a.cache = c }
}

// WithAnalyzerLogger sets the logger.
func WithAnalyzerLogger(l *log.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer creates an Analyzer. A nil caller sends every item straight
// to the keyword fallback.
func NewAnalyzer(caller Caller, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		caller:   caller,
		builder:  prompts.NewBuilder(prompts.DefaultContentLimit),
		parser:   response.NewParser(models.MaxSummaryLength),
		fallback: sentiment.NewFallback(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrNop(a.logger)
	return a
}

// Model reports the name stamped into model-derived results, or the
// fallback marker when no model is configured.
func (a *Analyzer) Model() string {
	if a.caller == nil {
		return models.FallbackModel
	}
	return a.caller.Model()
}

// Fallback returns the heuristic analyzer used on the degraded path.
func (a *Analyzer) Fallback() *sentiment.Fallback { return a.fallback }

// Analyze never fails: transport and parse errors are logged and the item
// is scored by the keyword fallback instead.
func (a *Analyzer) Analyze(ctx context.Context, item models.NewsItem) models.AnalysisResult {
	if a.caller == nil {
		return a.fallback.Analyze(item)
	}
	model := a.caller.Model()

	if res, ok := a.cache.Get(ctx, model, item); ok {
		a.logger.Debug().Str("title", item.Title).Str("model", model).Msg("analysis cache hit")
		return res
	}

	text, err := a.caller.Call(ctx, a.builder.Build(item))
	if err != nil {
		a.logger.Warn().Err(err).Str("title", item.Title).Str("source", item.Source).Str("model", model).Msg("model call failed, using fallback")
		return a.fallback.Analyze(item)
	}

	res, err := a.parser.Parse(text)
	if err != nil {
		var pe *response.ParseError
		reason := "unknown"
		if errors.As(err, &pe) {
			reason = pe.Reason
		}
		a.logger.Warn().Err(err).Str("title", item.Title).Str("reason", reason).Str("model", model).Msg("unparseable model reply, using fallback")
		return a.fallback.Analyze(item)
	}

	res.OriginalNews = item.Original()
	res.AnalysisTimestamp = a.now()
	res.ModelUsed = model

	a.cache.Put(ctx, model, item, res)
	return res
}
