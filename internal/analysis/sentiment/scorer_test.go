package sentiment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/newsimpact/pkg/models"
)

func fixedClock() *Fallback {
	ts := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	return &Fallback{now: func() time.Time { return ts }}
}

func TestAnalyzePositiveChineseHeadline(t *testing.T) {
	item := models.NewsItem{Title: "公司发布重大利好消息，业绩大幅增长", Source: "证券时报"}
	r := NewFallback().Analyze(item)

	assert.Equal(t, models.SentimentPositive, r.Sentiment)
	assert.GreaterOrEqual(t, r.MarketImpactScore, 6)
	assert.Equal(t, 7, r.MarketImpactScore) // 利好 + 增长
	assert.Equal(t, models.FallbackModel, r.ModelUsed)
	assert.Equal(t, models.FallbackSummary, r.AnalysisSummary)
	assert.Equal(t, models.HorizonMedium, r.TimeHorizon)
	assert.Equal(t, []string{}, r.Keywords)
	assert.Equal(t, item.Original(), r.OriginalNews)
	assert.True(t, r.IsFallback())
	require.NoError(t, r.Validate())
}

func TestAnalyzeNegative(t *testing.T) {
	item := models.NewsItem{
		Title:   "某券商因违规被立案调查",
		Content: "公司股价下跌，上半年亏损扩大，经营风险上升",
	}
	r := NewFallback().Analyze(item)

	assert.Equal(t, models.SentimentNegative, r.Sentiment)
	assert.Equal(t, 2, r.MarketImpactScore) // max(2, 5-4)
	assert.Equal(t, []string{"金融"}, r.AffectedSectors)
}

func TestAnalyzeNeutralWhenTied(t *testing.T) {
	r := NewFallback().Analyze(models.NewsItem{Title: "股价先上涨后下跌"})
	assert.Equal(t, models.SentimentNeutral, r.Sentiment)
	assert.Equal(t, 5, r.MarketImpactScore)

	r = NewFallback().Analyze(models.NewsItem{Title: "公司召开年度股东大会"})
	assert.Equal(t, models.SentimentNeutral, r.Sentiment)
	assert.Equal(t, 5, r.MarketImpactScore)
}

func TestAnalyzeIsCaseInsensitive(t *testing.T) {
	r := NewFallback().Analyze(models.NewsItem{Title: "Analysts UPGRADE chipmaker after record PROFIT"})
	assert.Equal(t, models.SentimentPositive, r.Sentiment)
	assert.Equal(t, 7, r.MarketImpactScore)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	item := models.NewsItem{
		Title:   "银行与科技公司达成合作，推出人工智能零售金融产品",
		Content: "双方将在芯片与软件领域开展创新，预计带来盈利增长。",
		Source:  "上海证券报",
	}
	f := fixedClock()
	assert.Equal(t, f.Analyze(item), f.Analyze(item))

	// Wall-clock fallbacks differ only in the timestamp.
	a, b := NewFallback().Analyze(item), NewFallback().Analyze(item)
	a.AnalysisTimestamp, b.AnalysisTimestamp = time.Time{}, time.Time{}
	assert.Equal(t, a, b)
}

func TestScore(t *testing.T) {
	tests := []struct {
		pos, neg  int
		wantLabel models.Sentiment
		wantScore int
	}{
		{0, 0, models.SentimentNeutral, 5},
		{1, 0, models.SentimentPositive, 6},
		{2, 1, models.SentimentPositive, 7},
		{3, 0, models.SentimentPositive, 8},
		{8, 0, models.SentimentPositive, 8},
		{0, 1, models.SentimentNegative, 4},
		{0, 3, models.SentimentNegative, 2},
		{1, 7, models.SentimentNegative, 2},
		{4, 4, models.SentimentNeutral, 5},
	}
	for _, tt := range tests {
		label, score := Score(tt.pos, tt.neg)
		assert.Equal(t, tt.wantLabel, label, "pos=%d neg=%d", tt.pos, tt.neg)
		assert.Equal(t, tt.wantScore, score, "pos=%d neg=%d", tt.pos, tt.neg)
	}
}

func TestDetectSectorsFollowsTableOrder(t *testing.T) {
	// Discovery order is real estate, consumer, tech; output follows the table.
	text := "房地产销售回暖带动家电消费，芯片需求同步提升"
	assert.Equal(t, []string{"科技", "消费", "房地产"}, DetectSectors(text))
}

func TestDetectSectorsEmpty(t *testing.T) {
	got := DetectSectors("今日天气晴")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEveryResultSatisfiesInvariants(t *testing.T) {
	items := []models.NewsItem{
		{},
		{Title: "上涨 利好 增长 盈利 突破 创新 合作 收购"},
		{Title: "下跌 利空 亏损 风险 下滑 减少 暂停 调查"},
		{Title: "Bank rally", Content: "insurance slump"},
	}
	f := NewFallback()
	for _, item := range items {
		require.NoError(t, f.Analyze(item).Validate(), item.Title)
	}
}

func TestLatinKeywordsMatchWholeWords(t *testing.T) {
	tests := []struct {
		title     string
		wantLabel models.Sentiment
		wantScore int
	}{
		{"Updated glossary explains the asterisk notation", models.SentimentNeutral, 5},
		{"Risks mount as losses widen", models.SentimentNegative, 3},
		{"Shares declined after the regulator suspended trading", models.SentimentNegative, 3},
		{"Profits beat forecasts", models.SentimentPositive, 6},
	}
	for _, tt := range tests {
		r := NewFallback().Analyze(models.NewsItem{Title: tt.title})
		assert.Equal(t, tt.wantLabel, r.Sentiment, tt.title)
		assert.Equal(t, tt.wantScore, r.MarketImpactScore, tt.title)
	}
}

func TestLatinSectorTriggersMatchWholeWords(t *testing.T) {
	assert.Empty(t, DetectSectors("bankruptcy filings rose"))
	assert.Equal(t, []string{"金融"}, DetectSectors("regional banks rallied"))
	assert.Equal(t, []string{"房地产"}, DetectSectors("real estate sales recover"))
	assert.Equal(t, []string{"科技"}, DetectSectors("新款software订单"), "ASCII next to CJK is still a word edge")
}

func TestAnalyzeJoinsTitleAndContentDirectly(t *testing.T) {
	// "利" + "好消息" only forms 利好 when nothing is inserted between them.
	r := NewFallback().Analyze(models.NewsItem{Title: "公司宣布重大利", Content: "好消息"})
	assert.Equal(t, models.SentimentPositive, r.Sentiment)
	assert.Equal(t, 6, r.MarketImpactScore)
}
