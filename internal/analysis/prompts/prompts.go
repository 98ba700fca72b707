// Package prompts renders news items into the instruction text sent to the
// model, together with the fixed system instruction.
package prompts

import (
	"strings"

	"github.com/seenimoa/newsimpact/pkg/models"
	"github.com/seenimoa/newsimpact/pkg/utils"
)

// DefaultContentLimit is how many characters of news content are embedded.
const DefaultContentLimit = 500

// SystemInstruction is sent as the system turn of every analysis request.
const SystemInstruction = `你是一位专业的金融分析师，擅长分析财经新闻对A股市场的影响。` +
	`请严格按照要求的JSON格式回复，不要输出JSON以外的解释。`

// analysisRubric follows the news block. The reply example must stay in
// sync with the keys read by the response parser.
const analysisRubric = `请从以下维度进行分析：
1. 市场影响程度（1-10分，10分为影响最大）
2. 情感倾向（positive/negative/neutral）
3. 可能影响的行业板块
4. 影响的时间周期（short/medium/long）
5. 关键词提取（3-5个）

请以JSON格式返回结果，格式如下：
{
    "market_impact_score": 7,
    "sentiment": "positive",
    "affected_sectors": ["银行", "保险"],
    "time_horizon": "medium",
    "keywords": ["降准", "流动性", "银行"],
    "analysis_summary": "简要分析总结（100字以内）"
}`

// Builder renders NewsItems into analysis prompts.
type Builder struct {
	contentLimit int
}

// NewBuilder returns a Builder that embeds at most contentLimit characters
// of content. A non-positive limit selects DefaultContentLimit.
func NewBuilder(contentLimit int) *Builder {
	if contentLimit <= 0 {
		contentLimit = DefaultContentLimit
	}
	return &Builder{contentLimit: contentLimit}
}

// ContentLimit returns the content cap in characters.
func (b *Builder) ContentLimit() int { return b.contentLimit }

// Build returns the prompt for item. It has no side effects and the same
// item always yields the same text.
func (b *Builder) Build(item models.NewsItem) string {
	var sb strings.Builder
	sb.Grow(len(analysisRubric) + len(item.Title) + b.contentLimit*3 + 128)

	sb.WriteString("请分析以下财经新闻对股票市场的影响：\n\n")
	sb.WriteString("新闻标题：")
	sb.WriteString(item.Title)
	sb.WriteString("\n新闻内容：")
	sb.WriteString(utils.Truncate(item.Content, b.contentLimit))
	sb.WriteString("\n新闻来源：")
	sb.WriteString(item.Source)
	sb.WriteString("\n\n")
	sb.WriteString(analysisRubric)
	return sb.String()
}
