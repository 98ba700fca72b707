package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/newsimpact/internal/cache"
	"github.com/seenimoa/newsimpact/internal/llm"
	"github.com/seenimoa/newsimpact/pkg/models"
)

// fakeCaller answers every prompt with reply or err.
type fakeCaller struct {
	mu      sync.Mutex
	model   string
	reply   string
	err     error
	prompts []string
	panics  bool
}

func (f *fakeCaller) Call(_ context.Context, prompt string) (string, error) {
	if f.panics {
		panic("boom")
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.reply, f.err
}

func (f *fakeCaller) Model() string { return f.model }

func (f *fakeCaller) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

const goodReply = `分析如下：
{"market_impact_score": 8, "sentiment": "positive", "affected_sectors": ["银行"],
 "time_horizon": "short", "keywords": ["降准", "流动性"], "analysis_summary": "降准释放流动性"}
以上。`

var bullishItem = models.NewsItem{
	Title:   "公司发布重大利好消息，业绩大幅增长",
	Content: "",
	Source:  "证券时报",
	Date:    "2026-03-02",
}

func assertValid(t *testing.T, r models.AnalysisResult) {
	t.Helper()
	require.NoError(t, r.Validate())
}

func TestAnalyzeModelPath(t *testing.T) {
	caller := &fakeCaller{model: "gpt-4o-mini", reply: goodReply}
	stamp := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	a := NewAnalyzer(caller)
	a.now = func() time.Time { return stamp }

	item := models.NewsItem{Title: "央行宣布降准", Content: "释放长期资金约1万亿元", Source: "新华社"}
	r := a.Analyze(context.Background(), item)

	assertValid(t, r)
	assert.Equal(t, 8, r.MarketImpactScore)
	assert.Equal(t, models.SentimentPositive, r.Sentiment)
	assert.Equal(t, []string{"银行"}, r.AffectedSectors)
	assert.Equal(t, models.HorizonShort, r.TimeHorizon)
	assert.Equal(t, "gpt-4o-mini", r.ModelUsed)
	assert.Equal(t, stamp, r.AnalysisTimestamp)
	assert.Equal(t, item.Original(), r.OriginalNews)

	require.Equal(t, 1, caller.calls())
	assert.Contains(t, caller.prompts[0], "央行宣布降准")
	assert.Contains(t, caller.prompts[0], "新华社")
}

func TestAnalyzeTransportFailureFallsBack(t *testing.T) {
	caller := &fakeCaller{model: "gpt-4o-mini", err: &llm.TransportError{Attempts: 3, Err: errors.New("dial tcp: refused")}}
	r := NewAnalyzer(caller).Analyze(context.Background(), bullishItem)

	assertValid(t, r)
	assert.True(t, r.IsFallback())
	assert.Equal(t, models.SentimentPositive, r.Sentiment)
	assert.GreaterOrEqual(t, r.MarketImpactScore, 6)
	assert.Equal(t, bullishItem.Original(), r.OriginalNews)
}

func TestAnalyzeParseFailureFallsBack(t *testing.T) {
	for name, reply := range map[string]string{
		"no block":        "I cannot analyze this news.",
		"missing sectors": `{"market_impact_score": 5, "sentiment": "neutral"}`,
		"bad sectors":     `{"market_impact_score": 5, "sentiment": "neutral", "affected_sectors": "银行"}`,
	} {
		t.Run(name, func(t *testing.T) {
			caller := &fakeCaller{model: "m", reply: reply}
			r := NewAnalyzer(caller).Analyze(context.Background(), bullishItem)
			assertValid(t, r)
			assert.True(t, r.IsFallback())
		})
	}
}

func TestAnalyzeNilCallerUsesFallback(t *testing.T) {
	a := NewAnalyzer(nil)
	assert.Equal(t, models.FallbackModel, a.Model())

	r := a.Analyze(context.Background(), bullishItem)
	assertValid(t, r)
	assert.True(t, r.IsFallback())
}

func TestAnalyzeClampsOutOfRangeReply(t *testing.T) {
	caller := &fakeCaller{model: "m", reply: `Some commentary { "market_impact_score": 15, "sentiment": "BULLISH", "affected_sectors": ["tech"] } trailing text`}
	r := NewAnalyzer(caller).Analyze(context.Background(), bullishItem)

	assertValid(t, r)
	assert.Equal(t, 10, r.MarketImpactScore)
	assert.Equal(t, models.SentimentNeutral, r.Sentiment)
	assert.Equal(t, "m", r.ModelUsed)
}

func TestAnalyzeUsesCache(t *testing.T) {
	ctx := context.Background()
	results := cache.NewResults(cache.NewMemory(), time.Hour, nil)
	caller := &fakeCaller{model: "gpt-4o-mini", reply: goodReply}
	a := NewAnalyzer(caller, WithResultCache(results))

	first := a.Analyze(ctx, bullishItem)
	second := a.Analyze(ctx, bullishItem)

	assert.Equal(t, 1, caller.calls())
	assert.Equal(t, first.MarketImpactScore, second.MarketImpactScore)
	assert.Equal(t, first.ModelUsed, second.ModelUsed)
}

func TestAnalyzeDoesNotCacheFallback(t *testing.T) {
	ctx := context.Background()
	results := cache.NewResults(cache.NewMemory(), time.Hour, nil)
	caller := &fakeCaller{model: "gpt-4o-mini", err: errors.New("down")}
	a := NewAnalyzer(caller, WithResultCache(results))

	a.Analyze(ctx, bullishItem)
	caller.err = nil
	caller.reply = goodReply
	r := a.Analyze(ctx, bullishItem)

	assert.Equal(t, 2, caller.calls())
	assert.False(t, r.IsFallback())
}
