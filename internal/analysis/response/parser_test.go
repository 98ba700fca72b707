package response

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/newsimpact/pkg/models"
)

func TestParseClampsScoreAndDefaultsUnknownSentiment(t *testing.T) {
	text := `Some commentary { "market_impact_score": 15, "sentiment": "BULLISH", "affected_sectors": ["tech"] } trailing text`

	r, err := NewParser(0).Parse(text)
	require.NoError(t, err)

	assert.Equal(t, 10, r.MarketImpactScore)
	assert.Equal(t, models.SentimentNeutral, r.Sentiment)
	assert.Equal(t, []string{"tech"}, r.AffectedSectors)
	assert.Equal(t, models.HorizonMedium, r.TimeHorizon)
	assert.Equal(t, []string{}, r.Keywords)
	assert.Equal(t, "", r.AnalysisSummary)
}

func TestParseFullReply(t *testing.T) {
	text := "```json\n" + `{
    "market_impact_score": 8,
    "sentiment": "Positive",
    "affected_sectors": ["银行", "保险"],
    "time_horizon": "SHORT",
    "keywords": ["降准", "流动性", "银行"],
    "analysis_summary": "降准释放长期流动性，利好银行板块。"
}` + "\n```"

	r, err := NewParser(100).Parse(text)
	require.NoError(t, err)

	assert.Equal(t, 8, r.MarketImpactScore)
	assert.Equal(t, models.SentimentPositive, r.Sentiment)
	assert.Equal(t, []string{"银行", "保险"}, r.AffectedSectors)
	assert.Equal(t, models.HorizonShort, r.TimeHorizon)
	assert.Equal(t, []string{"降准", "流动性", "银行"}, r.Keywords)
	assert.Equal(t, "降准释放长期流动性，利好银行板块。", r.AnalysisSummary)
	assert.NoError(t, withStamp(r).Validate())
}

func TestParseIsIdempotentOnNormalizedInput(t *testing.T) {
	text := `{"market_impact_score": 3, "sentiment": "negative", "affected_sectors": ["房地产"], "time_horizon": "long", "keywords": ["楼市"], "analysis_summary": "调控收紧"}`
	p := NewParser(100)

	first, err := p.Parse(text)
	require.NoError(t, err)

	assert.Equal(t, 3, first.MarketImpactScore)
	assert.Equal(t, models.SentimentNegative, first.Sentiment)
	assert.Equal(t, []string{"房地产"}, first.AffectedSectors)
	assert.Equal(t, models.HorizonLong, first.TimeHorizon)
	assert.Equal(t, []string{"楼市"}, first.Keywords)
	assert.Equal(t, "调控收紧", first.AnalysisSummary)

	second, err := p.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		field string
	}{
		{"no score", `{"sentiment": "positive", "affected_sectors": []}`, keyScore},
		{"no sentiment", `{"market_impact_score": 5, "affected_sectors": []}`, keySentiment},
		{"no sectors", `{"market_impact_score": 5, "sentiment": "positive"}`, keySectors},
		{"null score", `{"market_impact_score": null, "sentiment": "positive", "affected_sectors": []}`, keyScore},
		{"null sectors", `{"market_impact_score": 5, "sentiment": "positive", "affected_sectors": null}`, keySectors},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(0).Parse(tt.text)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.field, pe.Reason)
			assert.ErrorIs(t, err, ErrMissingField)
		})
	}
}

func TestParseNoBlock(t *testing.T) {
	for _, text := range []string{
		"",
		"the model refused to answer",
		"{ this is not json }",
		`{"market_impact_score": 5`,
	} {
		_, err := NewParser(0).Parse(text)
		assert.ErrorIs(t, err, ErrNoBlock, text)
	}
}

func TestParseInvalidFieldTypes(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"score is text", `{"market_impact_score": "high", "sentiment": "positive", "affected_sectors": []}`},
		{"score is bool", `{"market_impact_score": true, "sentiment": "positive", "affected_sectors": []}`},
		{"sentiment is number", `{"market_impact_score": 5, "sentiment": 1, "affected_sectors": []}`},
		{"sectors is string", `{"market_impact_score": 5, "sentiment": "positive", "affected_sectors": "银行"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(0).Parse(tt.text)
			assert.ErrorIs(t, err, ErrInvalidField)
		})
	}
}

func TestParseScoreForms(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`7`, 7},
		{`7.9`, 7},
		{`"6"`, 6},
		{`" 4.5 "`, 4},
		{`0`, 1},
		{`-3`, 1},
		{`1e9`, 10},
		{`1e300`, 10},
		{`-1e300`, 1},
		{`10.99`, 10},
	}
	for _, tt := range tests {
		text := `{"market_impact_score": ` + tt.raw + `, "sentiment": "neutral", "affected_sectors": []}`
		r, err := NewParser(0).Parse(text)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, r.MarketImpactScore, tt.raw)
	}
}

func TestParseSkipsUndecodableCandidates(t *testing.T) {
	text := `思考过程 {步骤一} 然后给出结果：{"market_impact_score": 6, "sentiment": "positive", "affected_sectors": ["科技"], "analysis_summary": "含有}括号{的文本"}`

	r, err := NewParser(0).Parse(text)
	require.NoError(t, err)
	assert.Equal(t, 6, r.MarketImpactScore)
	assert.Equal(t, "含有}括号{的文本", r.AnalysisSummary)
}

func TestParseTakesFirstBlockOnly(t *testing.T) {
	text := `{"market_impact_score": 2, "sentiment": "negative", "affected_sectors": []} and later {"market_impact_score": 9, "sentiment": "positive", "affected_sectors": []}`
	r, err := NewParser(0).Parse(text)
	require.NoError(t, err)
	assert.Equal(t, 2, r.MarketImpactScore)
	assert.Equal(t, models.SentimentNegative, r.Sentiment)
}

func TestParseNormalizesOptionalFields(t *testing.T) {
	text := `{"market_impact_score": 5, "sentiment": " NEGATIVE ", "affected_sectors": [" 银行 ", 7],
		"time_horizon": "forever", "keywords": ["a", 3, "", " b "], "analysis_summary": 42}`

	r, err := NewParser(0).Parse(text)
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNegative, r.Sentiment)
	assert.Equal(t, []string{"银行"}, r.AffectedSectors)
	assert.Equal(t, models.HorizonMedium, r.TimeHorizon)
	assert.Equal(t, []string{"a", "b"}, r.Keywords)
	assert.Equal(t, "", r.AnalysisSummary)
}

func TestParseTruncatesSummaryByCharacters(t *testing.T) {
	long := strings.Repeat("长", 150)
	text := `{"market_impact_score": 5, "sentiment": "neutral", "affected_sectors": [], "analysis_summary": "` + long + `"}`

	r, err := NewParser(0).Parse(text)
	require.NoError(t, err)
	assert.Equal(t, models.MaxSummaryLength, utf8.RuneCountInString(r.AnalysisSummary))

	r, err = NewParser(20).Parse(text)
	require.NoError(t, err)
	assert.Equal(t, 20, utf8.RuneCountInString(r.AnalysisSummary))
}

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{Reason: keyScore, Err: ErrMissingField}
	assert.Equal(t, "response: market_impact_score: required field missing", err.Error())
	assert.Equal(t, "response: no JSON object found in reply", (&ParseError{Err: ErrNoBlock}).Error())
}

func withStamp(r models.AnalysisResult) models.AnalysisResult {
	r.ModelUsed = "test-model"
	return r
}
