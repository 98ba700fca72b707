// Package jobs schedules the daily ingest-and-analyze run.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"github.com/seenimoa/newsimpact/internal/agent"
	"github.com/seenimoa/newsimpact/internal/datasource"
	"github.com/seenimoa/newsimpact/internal/logging"
	"github.com/seenimoa/newsimpact/pkg/models"
	"github.com/seenimoa/newsimpact/pkg/utils"
)

// Fetcher supplies news items. *datasource.News satisfies it.
type Fetcher interface {
	FetchItems(ctx context.Context, limit int) ([]models.NewsItem, error)
}

// Analyzer runs the per-date pipeline and persists its output.
// *agent.Service satisfies it.
type Analyzer interface {
	BatchAnalyzeByDate(ctx context.Context, byDate map[string][]models.NewsItem, onProgress agent.ProgressFunc) map[string]models.DailyAnalysis
	SaveDaily(daily map[string]models.DailyAnalysis, path string) bool
}

// Report describes one completed run.
type Report struct {
	Items    int
	Dates    []string
	Files    []string
	Duration time.Duration
}

// DailyJob fetches news, analyzes it by date and writes one file per date.
type DailyJob struct {
	fetcher   Fetcher
	analyzer  Analyzer
	outputDir string
	maxItems  int
	timeout   time.Duration
	logger    *log.Logger

	cron *cron.Cron
	mu   sync.Mutex
}

// NewDailyJob creates a job writing into outputDir.
func NewDailyJob(fetcher Fetcher, analyzer Analyzer, outputDir string, maxItems int, logger *log.Logger) *DailyJob {
	return &DailyJob{
		fetcher:   fetcher,
		analyzer:  analyzer,
		outputDir: outputDir,
		maxItems:  maxItems,
		timeout:   30 * time.Minute,
		logger:    logging.OrNop(logger),
	}
}

// OutputPath is the file a date's analysis is written to.
func (j *DailyJob) OutputPath(date string) string {
	return filepath.Join(j.outputDir, fmt.Sprintf("news_analysis_%s.json", date))
}

// Start registers the job on a cron schedule, evaluated in Asia/Shanghai
// time. A run still in progress makes the next tick a no-op.
func (j *DailyJob) Start(schedule string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return errors.New("daily job already started")
	}

	c := cron.New(
		cron.WithLocation(utils.CST),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(schedule, j.runScheduled); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	c.Start()
	j.cron = c

	j.logger.Info().Str("schedule", schedule).Msg("daily job scheduled")
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (j *DailyJob) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	j.logger.Info().Msg("daily job stopped")
}

// Next returns the next scheduled run, or the zero time when not started.
func (j *DailyJob) Next() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron == nil {
		return time.Time{}
	}
	entries := j.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (j *DailyJob) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Error().Err(err).Msg("daily job failed")
	}
}

// RunOnce performs one fetch-analyze-save cycle. Only a fetch failure is an
// error; save failures are logged by the analyzer and leave the date out of
// Report.Files.
func (j *DailyJob) RunOnce(ctx context.Context) (Report, error) {
	start := time.Now()
	j.logger.Info().Msg("daily job started")

	items, err := j.fetcher.FetchItems(ctx, j.maxItems)
	if err != nil {
		return Report{}, fmt.Errorf("fetching news: %w", err)
	}

	byDate := datasource.GroupByDate(items)
	daily := j.analyzer.BatchAnalyzeByDate(ctx, byDate, nil)

	rep := Report{Items: len(items)}
	for d := range daily {
		rep.Dates = append(rep.Dates, d)
	}
	sort.Strings(rep.Dates)

	for _, d := range rep.Dates {
		path := j.OutputPath(d)
		if j.analyzer.SaveDaily(map[string]models.DailyAnalysis{d: daily[d]}, path) {
			rep.Files = append(rep.Files, path)
		}
	}
	rep.Duration = time.Since(start)

	j.logger.Info().
		Int("count", rep.Items).
		Int("dates", len(rep.Dates)).
		Int("files", len(rep.Files)).
		Str("duration", rep.Duration.Round(time.Millisecond).String()).
		Msg("daily job completed")
	return rep, nil
}
