// Package models holds the news, result, and summary types shared across
// newsimpact.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Sentiment is the coarse directional judgment of a news item.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Sentiments lists every valid sentiment label in canonical order.
var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

// Valid reports whether s is one of the three allowed labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// ParseSentiment lower-cases and trims raw and reports whether it names a valid label.
func ParseSentiment(raw string) (Sentiment, bool) {
	s := Sentiment(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// TimeHorizon is the expected duration of a news item's market effect.
type TimeHorizon string

const (
	HorizonShort  TimeHorizon = "short"
	HorizonMedium TimeHorizon = "medium"
	HorizonLong   TimeHorizon = "long"
)

// Valid reports whether h is one of the three allowed horizons.
func (h TimeHorizon) Valid() bool {
	switch h {
	case HorizonShort, HorizonMedium, HorizonLong:
		return true
	}
	return false
}

// ParseTimeHorizon lower-cases and trims raw and reports whether it names a valid horizon.
func ParseTimeHorizon(raw string) (TimeHorizon, bool) {
	h := TimeHorizon(strings.ToLower(strings.TrimSpace(raw)))
	return h, h.Valid()
}

// Result bounds shared by every analysis path.
const (
	MinImpactScore   = 1
	MaxImpactScore   = 10
	MaxSummaryLength = 100 // characters, not bytes

	// FallbackModel is stamped into ModelUsed by the keyword heuristic.
	FallbackModel = "fallback_analysis"
	// FallbackSummary is the fixed AnalysisSummary of heuristic results.
	FallbackSummary = "heuristic fallback analysis"
)

// ClampImpactScore forces n into [MinImpactScore, MaxImpactScore].
func ClampImpactScore(n int) int {
	if n < MinImpactScore {
		return MinImpactScore
	}
	if n > MaxImpactScore {
		return MaxImpactScore
	}
	return n
}

// AnalysisResult is the structured judgment produced for one NewsItem,
// either by the language model or by the keyword fallback.
type AnalysisResult struct {
	MarketImpactScore int          `json:"market_impact_score"` // 1..10
	Sentiment         Sentiment    `json:"sentiment"`
	AffectedSectors   []string     `json:"affected_sectors"`
	TimeHorizon       TimeHorizon  `json:"time_horizon"`
	Keywords          []string     `json:"keywords"`
	AnalysisSummary   string       `json:"analysis_summary"`
	OriginalNews      OriginalNews `json:"original_news"`
	AnalysisTimestamp time.Time    `json:"analysis_timestamp"`
	ModelUsed         string       `json:"model_used"`
}

// IsFallback reports whether the result came from the keyword heuristic.
func (r AnalysisResult) IsFallback() bool {
	return r.ModelUsed == FallbackModel
}

// Validate checks the structural invariants every result must satisfy.
func (r AnalysisResult) Validate() error {
	if r.MarketImpactScore < MinImpactScore || r.MarketImpactScore > MaxImpactScore {
		return fmt.Errorf("market_impact_score %d out of range [%d,%d]", r.MarketImpactScore, MinImpactScore, MaxImpactScore)
	}
	if !r.Sentiment.Valid() {
		return fmt.Errorf("invalid sentiment %q", r.Sentiment)
	}
	if !r.TimeHorizon.Valid() {
		return fmt.Errorf("invalid time_horizon %q", r.TimeHorizon)
	}
	if n := utf8.RuneCountInString(r.AnalysisSummary); n > MaxSummaryLength {
		return fmt.Errorf("analysis_summary has %d characters, max %d", n, MaxSummaryLength)
	}
	if r.AffectedSectors == nil || r.Keywords == nil {
		return fmt.Errorf("sectors and keywords must be non-nil")
	}
	if r.ModelUsed == "" {
		return fmt.Errorf("model_used is empty")
	}
	return nil
}
