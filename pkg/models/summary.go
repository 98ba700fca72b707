package models

// SentimentDistribution counts results per sentiment label.
// All three labels are always present.
type SentimentDistribution map[Sentiment]int

// NewSentimentDistribution returns a distribution with every label at zero.
func NewSentimentDistribution() SentimentDistribution {
	d := make(SentimentDistribution, len(Sentiments))
	for _, s := range Sentiments {
		d[s] = 0
	}
	return d
}

// Total returns the sum of all counts.
func (d SentimentDistribution) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// DailySummary aggregates the analyses of one calendar date.
// It is derived data and is recomputed on every request.
type DailySummary struct {
	Date                  string                `json:"date"`
	TotalNewsCount        int                   `json:"total_news_count"`
	AnalyzedCount         int                   `json:"analyzed_count"`
	OverallSentiment      Sentiment             `json:"overall_sentiment"`
	SentimentDistribution SentimentDistribution `json:"sentiment_distribution"`
	AverageImpactScore    float64               `json:"average_impact_score"`
	TopAffectedSectors    []string              `json:"top_affected_sectors"`
	HighImpactNewsCount   int                   `json:"high_impact_news_count"`
}

// EmptyDailySummary is the zero-valued summary returned for a day without results.
func EmptyDailySummary(date string) DailySummary {
	return DailySummary{
		Date:                  date,
		OverallSentiment:      SentimentNeutral,
		SentimentDistribution: NewSentimentDistribution(),
		TopAffectedSectors:    []string{},
	}
}

// DailyAnalysis bundles the per-item results of a date with their summary.
type DailyAnalysis struct {
	Date               string           `json:"date"`
	TotalNewsCount     int              `json:"total_news_count"`
	AnalyzedCount      int              `json:"analyzed_count"`
	IndividualAnalysis []AnalysisResult `json:"individual_analysis"`
	DailySummary       DailySummary     `json:"daily_summary"`
}

// EmptyDailyAnalysis is the record produced for a date with no items.
func EmptyDailyAnalysis(date string) DailyAnalysis {
	return DailyAnalysis{
		Date:               date,
		IndividualAnalysis: []AnalysisResult{},
		DailySummary:       EmptyDailySummary(date),
	}
}
