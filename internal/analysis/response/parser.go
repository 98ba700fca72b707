// Package response turns free-form model replies into validated analysis
// fields. Every value is treated as untrusted and normalized on its own.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/seenimoa/newsimpact/pkg/models"
	"github.com/seenimoa/newsimpact/pkg/utils"
)

var (
	ErrNoBlock      = errors.New("no JSON object found in reply")
	ErrMissingField = errors.New("required field missing")
	ErrInvalidField = errors.New("field has invalid type")
)

// ParseError reports why a reply could not be turned into a result.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return "response: " + e.Err.Error()
	}
	return fmt.Sprintf("response: %s: %v", e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Required keys; a reply missing any of them is rejected outright.
const (
	keyScore     = "market_impact_score"
	keySentiment = "sentiment"
	keySectors   = "affected_sectors"
	keyHorizon   = "time_horizon"
	keyKeywords  = "keywords"
	keySummary   = "analysis_summary"
)

// Parser extracts the judgment block from model replies.
type Parser struct {
	summaryLimit int
}

// NewParser returns a parser truncating summaries to summaryLimit
// characters, capped at models.MaxSummaryLength.
func NewParser(summaryLimit int) *Parser {
	if summaryLimit <= 0 || summaryLimit > models.MaxSummaryLength {
		summaryLimit = models.MaxSummaryLength
	}
	return &Parser{summaryLimit: summaryLimit}
}

// Parse locates the first JSON object in text and normalizes it into the
// judgment fields of an AnalysisResult. OriginalNews, AnalysisTimestamp and
// ModelUsed are left for the caller to stamp. On success the returned
// fields always satisfy the result invariants; on failure a *ParseError is
// returned and no partial result.
func (p *Parser) Parse(text string) (models.AnalysisResult, error) {
	fields, err := firstObject(text)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	for _, k := range []string{keyScore, keySentiment, keySectors} {
		if isAbsent(fields[k]) {
			return models.AnalysisResult{}, &ParseError{Reason: k, Err: ErrMissingField}
		}
	}

	score, err := parseScore(fields[keyScore])
	if err != nil {
		return models.AnalysisResult{}, &ParseError{Reason: keyScore, Err: err}
	}

	var rawSentiment string
	if err := json.Unmarshal(fields[keySentiment], &rawSentiment); err != nil {
		return models.AnalysisResult{}, &ParseError{Reason: keySentiment, Err: ErrInvalidField}
	}
	sentiment, ok := models.ParseSentiment(rawSentiment)
	if !ok {
		sentiment = models.SentimentNeutral
	}

	sectors, ok := stringList(fields[keySectors])
	if !ok {
		return models.AnalysisResult{}, &ParseError{Reason: keySectors, Err: ErrInvalidField}
	}

	horizon := models.HorizonMedium
	var rawHorizon string
	if json.Unmarshal(fields[keyHorizon], &rawHorizon) == nil {
		if h, ok := models.ParseTimeHorizon(rawHorizon); ok {
			horizon = h
		}
	}

	keywords, ok := stringList(fields[keyKeywords])
	if !ok {
		keywords = []string{}
	}

	var summary string
	if json.Unmarshal(fields[keySummary], &summary) != nil {
		summary = ""
	}

	return models.AnalysisResult{
		MarketImpactScore: score,
		Sentiment:         sentiment,
		AffectedSectors:   sectors,
		TimeHorizon:       horizon,
		Keywords:          keywords,
		AnalysisSummary:   utils.Truncate(strings.TrimSpace(summary), p.summaryLimit),
	}, nil
}

// firstObject scans text left to right for balanced {...} spans and returns
// the first one that decodes as a JSON object. Commentary before or after
// the block, markdown fences and braces inside strings are tolerated.
func firstObject(text string) (map[string]json.RawMessage, error) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end > start {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err == nil && fields != nil {
				return fields, nil
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, &ParseError{Err: ErrNoBlock}
}

// matchBrace returns the index of the '}' closing the '{' at open, or -1.
func matchBrace(text string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseScore accepts a JSON number or numeric string, truncates it to an
// integer and clamps it into the valid range.
func parseScore(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, ErrInvalidField
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, ErrInvalidField
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidField
	}
	// Bound before converting so huge values cannot overflow int.
	f = math.Max(math.MinInt32, math.Min(math.MaxInt32, math.Trunc(f)))
	return models.ClampImpactScore(int(f)), nil
}

// stringList decodes a JSON array keeping its non-empty string elements.
// null and absent values yield an empty list; any other non-array is
// reported as not ok.
func stringList(raw json.RawMessage) ([]string, bool) {
	out := []string{}
	if isAbsent(raw) {
		return out, true
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}
