package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/newsimpact/pkg/models"
)

func result(title string, score int, s models.Sentiment, model string, sectors ...string) models.AnalysisResult {
	if sectors == nil {
		sectors = []string{}
	}
	return models.AnalysisResult{
		MarketImpactScore: score,
		Sentiment:         s,
		AffectedSectors:   sectors,
		TimeHorizon:       models.HorizonShort,
		Keywords:          []string{},
		AnalysisSummary:   "summary of " + title,
		OriginalNews:      models.OriginalNews{Title: title, Source: "wire"},
		ModelUsed:         model,
	}
}

func sampleDay() models.DailyAnalysis {
	results := []models.AnalysisResult{
		result("央行降准", 9, models.SentimentPositive, "gpt-4o-mini", "金融", "地产"),
		result("芯片出口管制", 8, models.SentimentNegative, "gpt-4o-mini", "科技"),
		result("<script>x</script>", 3, models.SentimentNeutral, models.FallbackModel),
	}
	dist := models.NewSentimentDistribution()
	dist[models.SentimentPositive] = 1
	dist[models.SentimentNegative] = 1
	dist[models.SentimentNeutral] = 1
	return models.DailyAnalysis{
		Date:               "2024-03-01",
		TotalNewsCount:     3,
		AnalyzedCount:      3,
		IndividualAnalysis: results,
		DailySummary: models.DailySummary{
			Date:                  "2024-03-01",
			TotalNewsCount:        3,
			AnalyzedCount:         3,
			OverallSentiment:      models.SentimentNeutral,
			SentimentDistribution: dist,
			AverageImpactScore:    6.67,
			TopAffectedSectors:    []string{"金融", "地产", "科技"},
			HighImpactNewsCount:   2,
		},
	}
}

func TestGenerateText(t *testing.T) {
	out := GenerateText([]models.DailyAnalysis{sampleDay()}, DefaultConfig())

	assert.True(t, strings.HasPrefix(out, DefaultTitle+"\n"))
	assert.Contains(t, out, "── 2024-03-01 ──")
	assert.Contains(t, out, "3 analyzed of 3 (1 heuristic)")
	assert.Contains(t, out, "neutral (positive 1, negative 1, neutral 1)")
	assert.Contains(t, out, "Avg impact:  6.67")
	assert.Contains(t, out, "金融, 地产, 科技")

	first := strings.Index(out, "央行降准")
	second := strings.Index(out, "芯片出口管制")
	require.True(t, first > 0 && second > 0)
	assert.Less(t, first, second, "top news ordered by impact")
}

func TestGenerateTextEmpty(t *testing.T) {
	out := GenerateText(nil, Config{})
	assert.Contains(t, out, DefaultTitle)
	assert.Contains(t, out, "No analyses.")
}

func TestGenerateTextTopLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopResults = 1
	out := GenerateText([]models.DailyAnalysis{sampleDay()}, cfg)
	assert.Contains(t, out, "央行降准")
	assert.NotContains(t, out, "芯片出口管制")
}

func TestGenerateHTML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Title = "Weekly"
	out, err := GenerateHTML([]models.DailyAnalysis{sampleDay()}, cfg)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<title>Weekly</title>")
	assert.Contains(t, html, "2024-03-01")
	assert.Contains(t, html, "<svg", "charts are inlined")
	assert.Contains(t, html, "6.67")
	assert.Contains(t, html, "1 of 3 results (33%)")
	assert.NotContains(t, html, "<script>x</script>", "news text is escaped")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestGenerateByFormat(t *testing.T) {
	days := []models.DailyAnalysis{sampleDay()}

	out, err := Generate(days, Config{Format: FormatHTML})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "<!DOCTYPE html>"))

	out, err = Generate(days, Config{Format: FormatText})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), DefaultTitle))
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatHTML, FormatForPath("out/report.html"))
	assert.Equal(t, FormatHTML, FormatForPath("REPORT.HTM"))
	assert.Equal(t, FormatText, FormatForPath("report.txt"))
	assert.Equal(t, FormatText, FormatForPath("report"))
}

func TestSortedDays(t *testing.T) {
	days := SortedDays(map[string]models.DailyAnalysis{
		"2024-03-02": models.EmptyDailyAnalysis("2024-03-02"),
		"2024-02-28": models.EmptyDailyAnalysis("2024-02-28"),
		"2024-03-01": models.EmptyDailyAnalysis("2024-03-01"),
	})
	require.Len(t, days, 3)
	assert.Equal(t, "2024-02-28", days[0].Date)
	assert.Equal(t, "2024-03-01", days[1].Date)
	assert.Equal(t, "2024-03-02", days[2].Date)
}

func TestTopResultsStable(t *testing.T) {
	in := []models.AnalysisResult{
		result("a", 5, models.SentimentNeutral, "m"),
		result("b", 7, models.SentimentNeutral, "m"),
		result("c", 5, models.SentimentNeutral, "m"),
	}
	out := topResults(in, 0)
	require.Len(t, out, 3)
	assert.Equal(t, "b", out[0].OriginalNews.Title)
	assert.Equal(t, "a", out[1].OriginalNews.Title)
	assert.Equal(t, "c", out[2].OriginalNews.Title)
	assert.Equal(t, "a", in[0].OriginalNews.Title, "input untouched")
}

func TestCharts(t *testing.T) {
	day := sampleDay()

	svg := SectorChart(day.DailySummary.TopAffectedSectors, day.IndividualAnalysis)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, "金融")
	assert.True(t, strings.HasSuffix(svg, "</svg>"))

	svg = SentimentChart(day.DailySummary)
	for _, s := range models.Sentiments {
		assert.Contains(t, svg, string(s))
	}

	assert.Contains(t, HorizontalBarChart(nil, ChartConfig{}), "No data")
	assert.Contains(t, HorizontalBarChart([]BarItem{{Label: "a&b", Value: 1.5}}, ChartConfig{}), "a&amp;b")
}

func TestImpactGaugeClamps(t *testing.T) {
	assert.Contains(t, ImpactGauge(42, "avg", 0), ">10.00<")
	assert.Contains(t, ImpactGauge(0, "avg", 0), ">1.00<")
	assert.Contains(t, ImpactGauge(6.5, "a<b", 200), "a&lt;b")
}
