package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seenimoa/newsimpact/pkg/models"
)

func result(s models.Sentiment, score int, sectors ...string) models.AnalysisResult {
	if sectors == nil {
		sectors = []string{}
	}
	return models.AnalysisResult{
		MarketImpactScore: score,
		Sentiment:         s,
		AffectedSectors:   sectors,
		TimeHorizon:       models.HorizonMedium,
		Keywords:          []string{},
		ModelUsed:         "test",
	}
}

func repeat(n int, r models.AnalysisResult) []models.AnalysisResult {
	out := make([]models.AnalysisResult, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestSummarizeSixTwoTwoIsPositive(t *testing.T) {
	var results []models.AnalysisResult
	results = append(results, repeat(6, result(models.SentimentPositive, 8))...)
	results = append(results, repeat(2, result(models.SentimentNegative, 3))...)
	results = append(results, repeat(2, result(models.SentimentNeutral, 5))...)

	s := NewSummarizer(0, 0).Summarize("2026-03-02", results)

	assert.Equal(t, "2026-03-02", s.Date)
	assert.Equal(t, models.SentimentPositive, s.OverallSentiment)
	assert.Equal(t, 10, s.TotalNewsCount)
	assert.Equal(t, 10, s.AnalyzedCount)
	assert.Equal(t, 6, s.SentimentDistribution[models.SentimentPositive])
	assert.Equal(t, 2, s.SentimentDistribution[models.SentimentNegative])
	assert.Equal(t, 2, s.SentimentDistribution[models.SentimentNeutral])
	assert.Equal(t, 6, s.HighImpactNewsCount)
	assert.InDelta(t, 6.4, s.AverageImpactScore, 1e-9) // (48+6+10)/10
}

func TestSummarizeEmpty(t *testing.T) {
	s := NewSummarizer(0, 0).Summarize("2026-03-02", nil)

	assert.Equal(t, models.EmptyDailySummary("2026-03-02"), s)
	assert.Equal(t, models.SentimentNeutral, s.OverallSentiment)
	assert.Len(t, s.SentimentDistribution, 3)
	assert.Equal(t, 0, s.SentimentDistribution.Total())
	assert.NotNil(t, s.TopAffectedSectors)
	assert.Zero(t, s.AverageImpactScore)
}

func TestDistributionAlwaysHasAllLabelsAndSumsToTotal(t *testing.T) {
	results := repeat(3, result(models.SentimentNegative, 2))
	s := NewSummarizer(0, 0).Summarize("d", results)

	for _, label := range models.Sentiments {
		_, ok := s.SentimentDistribution[label]
		assert.True(t, ok, label)
	}
	assert.Equal(t, s.TotalNewsCount, s.SentimentDistribution.Total())
}

func TestOverallThresholds(t *testing.T) {
	tests := []struct {
		name          string
		pos, neg, neu int
		want          models.Sentiment
	}{
		{"exactly 40% positive is not enough", 4, 3, 3, models.SentimentNeutral},
		{"just over 40% positive", 41, 30, 29, models.SentimentPositive},
		{"negative majority", 2, 5, 3, models.SentimentNegative},
		{"positive wins when both exceed", 5, 5, 0, models.SentimentPositive},
		{"all neutral", 0, 0, 4, models.SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist := models.NewSentimentDistribution()
			dist[models.SentimentPositive] = tt.pos
			dist[models.SentimentNegative] = tt.neg
			dist[models.SentimentNeutral] = tt.neu
			assert.Equal(t, tt.want, Overall(dist, tt.pos+tt.neg+tt.neu))
		})
	}
	assert.Equal(t, models.SentimentNeutral, Overall(models.NewSentimentDistribution(), 0))
}

func TestAverageRoundedToTwoDecimals(t *testing.T) {
	results := []models.AnalysisResult{
		result(models.SentimentNeutral, 7),
		result(models.SentimentNeutral, 5),
		result(models.SentimentNeutral, 5),
	}
	s := NewSummarizer(0, 0).Summarize("d", results)
	assert.Equal(t, 5.67, s.AverageImpactScore)
}

func TestHighImpactIsStrictlyAboveThreshold(t *testing.T) {
	results := []models.AnalysisResult{
		result(models.SentimentPositive, 7),
		result(models.SentimentPositive, 8),
		result(models.SentimentPositive, 10),
	}
	assert.Equal(t, 2, NewSummarizer(0, 0).Summarize("d", results).HighImpactNewsCount)
	assert.Equal(t, 1, NewSummarizer(9, 0).Summarize("d", results).HighImpactNewsCount)
}

func TestTopSectorsOrderingAndTies(t *testing.T) {
	lists := [][]string{
		{"科技", "金融"},
		{"消费", "金融"},
		{"医药", "房地产", "能源"},
		{"消费"},
	}
	// 金融:2 消费:2 科技:1 医药:1 房地产:1 能源:1
	got := TopSectors(lists, 5)
	assert.Equal(t, []string{"金融", "消费", "科技", "医药", "房地产"}, got)
}

func TestTopSectorsCountsDuplicatesWithinOneResult(t *testing.T) {
	lists := [][]string{
		{"科技"},
		{"金融", "金融", "金融"},
		{"科技"},
	}
	assert.Equal(t, []string{"金融", "科技"}, TopSectors(lists, 5))
}

func TestTopSectorsEmpty(t *testing.T) {
	got := TopSectors([][]string{{}, nil}, 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSummarizeRespectsTopSectorLimit(t *testing.T) {
	results := []models.AnalysisResult{
		result(models.SentimentPositive, 6, "a", "b", "c"),
		result(models.SentimentPositive, 6, "c", "d"),
	}
	s := NewSummarizer(0, 2).Summarize("d", results)
	assert.Equal(t, []string{"c", "a"}, s.TopAffectedSectors)
}
