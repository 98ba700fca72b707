// Package report renders daily news-analysis summaries as plain text or as
// a standalone HTML page with inline SVG charts.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/newsimpact/pkg/models"
)

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 600)
	Height       int    // SVG height in pixels (default: 240)
	MarginTop    int    // top margin
	MarginRight  int    // right margin
	MarginBottom int    // bottom margin
	MarginLeft   int    // left margin, room for labels
	BgColor      string // background color
	TextColor    string // label color
	FontSize     int    // label font size
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        600,
		Height:       240,
		MarginTop:    36,
		MarginRight:  50,
		MarginBottom: 16,
		MarginLeft:   110,
		BgColor:      "#ffffff",
		TextColor:    "#333333",
		FontSize:     12,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// BarItem represents a single bar in a horizontal bar chart.
type BarItem struct {
	Label string
	Value float64
	Color string // optional
}

// sentimentColors maps labels to bar colors; A-share convention is red for up.
var sentimentColors = map[models.Sentiment]string{
	models.SentimentPositive: "#dc2626",
	models.SentimentNegative: "#16a34a",
	models.SentimentNeutral:  "#9ca3af",
}

// HorizontalBarChart generates an SVG horizontal bar chart of non-negative values.
func HorizontalBarChart(items []BarItem, cfg ChartConfig) string {
	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if len(items) == 0 {
		return emptySVG(cfg, "No data")
	}

	px, py, pw, ph := cfg.plotArea()

	maxVal := 0.0
	for _, item := range items {
		maxVal = math.Max(maxVal, item.Value)
	}
	if maxVal <= 0 {
		maxVal = 1
	}

	barH := math.Min(float64(ph)/float64(len(items))*0.7, 28)
	gap := (float64(ph) - barH*float64(len(items))) / float64(len(items)+1)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	fmt.Fprintf(&sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, cfg.Width, cfg.Height, cfg.BgColor)
	if cfg.Title != "" {
		fmt.Fprintf(&sb, `<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
			cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title))
	}

	for i, item := range items {
		by := float64(py) + gap + float64(i)*(barH+gap)
		bw := math.Max(item.Value, 0) / maxVal * float64(pw)
		color := item.Color
		if color == "" {
			color = "#2563eb"
		}

		fmt.Fprintf(&sb, `<rect x="%d" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"/>`,
			px, by, bw, barH, color)
		fmt.Fprintf(&sb, `<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-6, by+barH/2+4, cfg.FontSize, cfg.TextColor, escapeXML(item.Label))
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" font-size="%d" fill="%s">%s</text>`,
			float64(px)+bw+5, by+barH/2+4, cfg.FontSize, cfg.TextColor, formatValue(item.Value))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// SentimentChart plots the three sentiment counts of a summary.
func SentimentChart(s models.DailySummary) string {
	cfg := DefaultChartConfig()
	cfg.Height = 150
	cfg.Title = "Sentiment distribution"

	items := make([]BarItem, 0, len(models.Sentiments))
	for _, label := range models.Sentiments {
		items = append(items, BarItem{
			Label: string(label),
			Value: float64(s.SentimentDistribution[label]),
			Color: sentimentColors[label],
		})
	}
	return HorizontalBarChart(items, cfg)
}

// SectorChart plots how many results named each top sector.
func SectorChart(sectors []string, results []models.AnalysisResult) string {
	cfg := DefaultChartConfig()
	cfg.Title = "Top affected sectors"

	counts := make(map[string]int, len(sectors))
	for _, r := range results {
		for _, name := range r.AffectedSectors {
			counts[name]++
		}
	}
	items := make([]BarItem, 0, len(sectors))
	for _, name := range sectors {
		items = append(items, BarItem{Label: name, Value: float64(counts[name])})
	}
	return HorizontalBarChart(items, cfg)
}

// ImpactGauge draws a semicircular gauge for an average impact score on
// the 1..10 scale.
func ImpactGauge(score float64, label string, width int) string {
	if width == 0 {
		width = 200
	}
	height := width/2 + 30

	cx := float64(width) / 2
	cy := float64(width)/2 - 10
	radius := float64(width)/2 - 20

	score = math.Max(models.MinImpactScore, math.Min(models.MaxImpactScore, score))
	frac := (score - models.MinImpactScore) / (models.MaxImpactScore - models.MinImpactScore)

	var color string
	switch {
	case score > 7:
		color = "#dc2626"
	case score >= 5:
		color = "#ea580c"
	default:
		color = "#6b7280"
	}

	angle := math.Pi - frac*math.Pi
	needleX := cx + radius*0.85*math.Cos(angle)
	needleY := cy - radius*0.85*math.Sin(angle)
	endX := cx + radius*math.Cos(angle)
	endY := cy - radius*math.Sin(angle)
	largeArc := 0
	if frac > 0.5 {
		largeArc = 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`, width, height, width, height)
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="white"/>`, width, height)
	fmt.Fprintf(&sb, `<path d="M%.1f,%.1f A%.1f,%.1f 0 0,1 %.1f,%.1f" fill="none" stroke="#e5e7eb" stroke-width="12" stroke-linecap="round"/>`,
		cx-radius, cy, radius, radius, cx+radius, cy)
	fmt.Fprintf(&sb, `<path d="M%.1f,%.1f A%.1f,%.1f 0 %d,1 %.1f,%.1f" fill="none" stroke="%s" stroke-width="12" stroke-linecap="round"/>`,
		cx-radius, cy, radius, radius, largeArc, endX, endY, color)
	fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333" stroke-width="2"/>`, cx, cy, needleX, needleY)
	fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="5" fill="#333"/>`, cx, cy)
	fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" font-size="22" font-weight="bold" fill="%s" text-anchor="middle">%.2f</text>`,
		cx, cy+25, color, score)
	fmt.Fprintf(&sb, `<text x="%.1f" y="%d" font-size="11" fill="#666" text-anchor="middle">%s</text>`,
		cx, height-5, escapeXML(label))
	sb.WriteString("</svg>")
	return sb.String()
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
