package sentiment

// ------------------------------------------------------------------
// Keyword-based fallback analyzer (offline, no model needed).
// Used whenever the model call or its reply parsing fails, so it
// must never fail itself and must be fully deterministic.
// ------------------------------------------------------------------

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/seenimoa/newsimpact/pkg/models"
)

// Score bounds of the heuristic. These are compatibility constants:
// positive = min(8, 5+p), negative = max(2, 5-n), otherwise 5.
const (
	neutralScore     = 5
	maxPositiveScore = 8
	minNegativeScore = 2
)

// Keywords are matched in the lower-cased title+content. Each keyword
// counts at most once.
var (
	positiveWords = newKeywordSet(
		"上涨", "利好", "增长", "盈利", "突破", "创新", "合作", "收购",
		"rally", "upgrade", "growth", "profit", "breakthrough", "innovation", "partnership", "acquisition",
	)
	negativeWords = newKeywordSet(
		"下跌", "利空", "亏损", "风险", "下滑", "减少", "暂停", "调查",
		"plunge", "downgrade", "loss", "risk", "slump", "decline", "suspend", "investigation",
	)
)

type sector struct {
	name     string
	triggers keywordSet
}

// sectors is matched in declaration order; output keeps this order.
var sectors = []sector{
	{"科技", newKeywordSet("科技", "技术", "互联网", "芯片", "软件", "人工智能", "半导体", "technology", "semiconductor", "software")},
	{"金融", newKeywordSet("银行", "保险", "证券", "金融", "券商", "bank", "insurance", "brokerage")},
	{"医药", newKeywordSet("医药", "医疗", "生物", "药", "疫苗", "pharma", "biotech", "medical")},
	{"消费", newKeywordSet("消费", "零售", "食品", "饮料", "白酒", "retail", "consumer")},
	{"房地产", newKeywordSet("房地产", "地产", "楼市", "房价", "real estate", "property")},
}

// keywordSet matches CJK keywords as plain substrings. ASCII keywords must
// stand as whole words, optionally inflected ("risks", "declined").
type keywordSet struct {
	substrings []string
	words      []*regexp.Regexp
}

func newKeywordSet(keywords ...string) keywordSet {
	var k keywordSet
	for _, w := range keywords {
		if isASCII(w) {
			k.words = append(k.words, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`(?:s|es|d|ed|ing)?\b`))
		} else {
			k.substrings = append(k.substrings, w)
		}
	}
	return k
}

// count returns how many distinct keywords occur in lower.
func (k keywordSet) count(lower string) int {
	n := 0
	for _, w := range k.substrings {
		if strings.Contains(lower, w) {
			n++
		}
	}
	for _, re := range k.words {
		if re.MatchString(lower) {
			n++
		}
	}
	return n
}

func (k keywordSet) matches(lower string) bool {
	return k.count(lower) > 0
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Fallback produces heuristic AnalysisResults.
type Fallback struct {
	now func() time.Time
}

// NewFallback returns a Fallback stamping results with the wall clock.
func NewFallback() *Fallback {
	return &Fallback{now: time.Now}
}

// Analyze scores item by keyword counts. It always returns a result that
// satisfies every AnalysisResult invariant.
func (f *Fallback) Analyze(item models.NewsItem) models.AnalysisResult {
	text := strings.ToLower(item.Title + item.Content)

	pos := positiveWords.count(text)
	neg := negativeWords.count(text)
	label, score := Score(pos, neg)

	return models.AnalysisResult{
		MarketImpactScore: score,
		Sentiment:         label,
		AffectedSectors:   DetectSectors(text),
		TimeHorizon:       models.HorizonMedium,
		Keywords:          []string{},
		AnalysisSummary:   models.FallbackSummary,
		OriginalNews:      item.Original(),
		AnalysisTimestamp: f.now(),
		ModelUsed:         models.FallbackModel,
	}
}

// Score maps positive and negative keyword counts to a label and score.
func Score(pos, neg int) (models.Sentiment, int) {
	switch {
	case pos > neg:
		return models.SentimentPositive, min(maxPositiveScore, neutralScore+pos)
	case neg > pos:
		return models.SentimentNegative, max(minNegativeScore, neutralScore-neg)
	default:
		return models.SentimentNeutral, neutralScore
	}
}

// DetectSectors returns the names of sectors whose triggers occur in the
// lower-cased text, in table order. The result is never nil.
func DetectSectors(lower string) []string {
	found := []string{}
	for _, s := range sectors {
		if s.triggers.matches(lower) {
			found = append(found, s.name)
		}
	}
	return found
}
