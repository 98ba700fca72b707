// Package summary folds one day's analysis results into a market-sentiment
// summary.
package summary

import (
	"math"
	"sort"

	"github.com/seenimoa/newsimpact/pkg/models"
)

// Defaults for the summary rules.
const (
	DefaultHighImpactThreshold = 7   // scores strictly above count as high impact
	DefaultTopSectors          = 5   // length cap of TopAffectedSectors
	SentimentRatioThreshold    = 0.4 // share a label needs to become the overall sentiment
)

// Summarizer computes DailySummary records.
type Summarizer struct {
	highImpactThreshold int
	topSectors          int
}

// NewSummarizer returns a Summarizer. Non-positive arguments select the defaults.
func NewSummarizer(highImpactThreshold, topSectors int) *Summarizer {
	if highImpactThreshold <= 0 {
		highImpactThreshold = DefaultHighImpactThreshold
	}
	if topSectors <= 0 {
		topSectors = DefaultTopSectors
	}
	return &Summarizer{highImpactThreshold: highImpactThreshold, topSectors: topSectors}
}

// Summarize aggregates results for date. Arrival order of results does not
// affect anything except tie-breaking between equally frequent sectors.
// An empty slice yields models.EmptyDailySummary.
func (s *Summarizer) Summarize(date string, results []models.AnalysisResult) models.DailySummary {
	if len(results) == 0 {
		return models.EmptyDailySummary(date)
	}

	dist := models.NewSentimentDistribution()
	scoreSum := 0
	highImpact := 0
	var sectorLists [][]string

	for _, r := range results {
		dist[r.Sentiment]++
		scoreSum += r.MarketImpactScore
		if r.MarketImpactScore > s.highImpactThreshold {
			highImpact++
		}
		sectorLists = append(sectorLists, r.AffectedSectors)
	}

	total := len(results)
	return models.DailySummary{
		Date:                  date,
		TotalNewsCount:        total,
		AnalyzedCount:         total,
		OverallSentiment:      Overall(dist, total),
		SentimentDistribution: dist,
		AverageImpactScore:    round2(float64(scoreSum) / float64(total)),
		TopAffectedSectors:    TopSectors(sectorLists, s.topSectors),
		HighImpactNewsCount:   highImpact,
	}
}

// Overall applies the ratio rule: positive if its share exceeds 0.4,
// else negative if its share exceeds 0.4, else neutral.
func Overall(dist models.SentimentDistribution, total int) models.Sentiment {
	if total <= 0 {
		return models.SentimentNeutral
	}
	positiveRatio := float64(dist[models.SentimentPositive]) / float64(total)
	negativeRatio := float64(dist[models.SentimentNegative]) / float64(total)
	switch {
	case positiveRatio > SentimentRatioThreshold:
		return models.SentimentPositive
	case negativeRatio > SentimentRatioThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// TopSectors counts every appearance of every sector, duplicates within one
// list included, and returns the n most frequent. Equal counts keep the
// order in which sectors were first seen. The result is never nil.
func TopSectors(lists [][]string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, list := range lists {
		for _, sector := range list {
			if _, seen := counts[sector]; !seen {
				order = append(order, sector)
			}
			counts[sector]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	out := make([]string, len(order))
	copy(out, order)
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
