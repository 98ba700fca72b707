package report

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/newsimpact/pkg/models"
	"github.com/seenimoa/newsimpact/pkg/utils"
)

// Format specifies the output format.
type Format string

const (
	FormatHTML Format = "html"
	FormatText Format = "text"
)

// DefaultTitle heads every report unless Config.Title is set.
const DefaultTitle = "Daily News Impact Report"

// Config controls report generation behaviour.
type Config struct {
	Format     Format // default: text
	Title      string
	TopResults int // highest-impact items listed per day (default: 10)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Format:     FormatText,
		Title:      DefaultTitle,
		TopResults: 10,
	}
}

// FormatForPath picks HTML for .html/.htm paths and text otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	}
	return FormatText
}

// Generate renders the analyses in the configured format.
func Generate(days []models.DailyAnalysis, cfg Config) ([]byte, error) {
	if cfg.Format == FormatHTML {
		return GenerateHTML(days, cfg)
	}
	return []byte(GenerateText(days, cfg)), nil
}

// SortedDays flattens a by-date map into ascending date order.
func SortedDays(byDate map[string]models.DailyAnalysis) []models.DailyAnalysis {
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	days := make([]models.DailyAnalysis, 0, len(dates))
	for _, d := range dates {
		days = append(days, byDate[d])
	}
	return days
}

// topResults returns up to n results ordered by impact score, highest first.
// Equal scores keep their input order.
func topResults(results []models.AnalysisResult, n int) []models.AnalysisResult {
	out := make([]models.AnalysisResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MarketImpactScore > out[j].MarketImpactScore
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func fallbackCount(results []models.AnalysisResult) int {
	n := 0
	for _, r := range results {
		if r.IsFallback() {
			n++
		}
	}
	return n
}

// ── HTML ──

type htmlDay struct {
	Date           string
	Summary        models.DailySummary
	Fallbacks      int
	SentimentChart template.HTML
	SectorChart    template.HTML
	Gauge          template.HTML
	Top            []models.AnalysisResult
}

type htmlData struct {
	Title       string
	GeneratedAt string
	Days        []htmlDay
}

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
	"pct": func(part, total int) string {
		if total == 0 {
			return "0%"
		}
		return fmt.Sprintf("%.0f%%", float64(part)/float64(total)*100)
	},
}).Parse(reportTemplate))

// GenerateHTML renders a self-contained HTML page with inline SVG charts.
func GenerateHTML(days []models.DailyAnalysis, cfg Config) ([]byte, error) {
	data := htmlData{
		Title:       titleOf(cfg),
		GeneratedAt: utils.FormatDateTimeCST(time.Now()),
		Days:        make([]htmlDay, 0, len(days)),
	}
	for _, d := range days {
		s := d.DailySummary
		data.Days = append(data.Days, htmlDay{
			Date:           d.Date,
			Summary:        s,
			Fallbacks:      fallbackCount(d.IndividualAnalysis),
			SentimentChart: template.HTML(SentimentChart(s)),
			SectorChart:    template.HTML(SectorChart(s.TopAffectedSectors, d.IndividualAnalysis)),
			Gauge:          template.HTML(ImpactGauge(s.AverageImpactScore, "average impact", 200)),
			Top:            topResults(d.IndividualAnalysis, cfg.TopResults),
		})
	}

	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	return buf.Bytes(), nil
}

// ── Text ──

// GenerateText renders a plain-text report suitable for terminals and logs.
func GenerateText(days []models.DailyAnalysis, cfg Config) string {
	var sb strings.Builder
	title := titleOf(cfg)
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("=", len([]rune(title))) + "\n")
	fmt.Fprintf(&sb, "Generated: %s\n", utils.FormatDateTimeCST(time.Now()))

	if len(days) == 0 {
		sb.WriteString("\nNo analyses.\n")
		return sb.String()
	}

	for _, d := range days {
		s := d.DailySummary
		fmt.Fprintf(&sb, "\n── %s ──\n", d.Date)
		fmt.Fprintf(&sb, "  News:        %d analyzed of %d", s.AnalyzedCount, s.TotalNewsCount)
		if n := fallbackCount(d.IndividualAnalysis); n > 0 {
			fmt.Fprintf(&sb, " (%d heuristic)", n)
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "  Sentiment:   %s (positive %d, negative %d, neutral %d)\n",
			s.OverallSentiment,
			s.SentimentDistribution[models.SentimentPositive],
			s.SentimentDistribution[models.SentimentNegative],
			s.SentimentDistribution[models.SentimentNeutral])
		fmt.Fprintf(&sb, "  Avg impact:  %.2f\n", s.AverageImpactScore)
		fmt.Fprintf(&sb, "  High impact: %d\n", s.HighImpactNewsCount)
		if len(s.TopAffectedSectors) > 0 {
			fmt.Fprintf(&sb, "  Sectors:     %s\n", strings.Join(s.TopAffectedSectors, ", "))
		}

		top := topResults(d.IndividualAnalysis, cfg.TopResults)
		if len(top) == 0 {
			continue
		}
		sb.WriteString("  Top news:\n")
		for _, r := range top {
			fmt.Fprintf(&sb, "    [%2d] %-8s %s\n", r.MarketImpactScore, r.Sentiment,
				utils.Truncate(r.OriginalNews.Title, 60))
		}
	}
	return sb.String()
}

func titleOf(cfg Config) string {
	if cfg.Title != "" {
		return cfg.Title
	}
	return DefaultTitle
}
