package report

// reportTemplate renders htmlData. Charts arrive pre-rendered as SVG.
const reportTemplate = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --up: #dc2626;
    --down: #16a34a;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'PingFang SC', 'Microsoft YaHei', sans-serif;
    color: var(--text);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; margin-bottom: 4px; }
  h2 { font-size: 1.2rem; margin: 28px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .stats { display: grid; grid-template-columns: repeat(4, 1fr); gap: 10px; margin: 12px 0; }
  .stat { background: var(--section-bg); border: 1px solid var(--border); border-radius: 6px; padding: 10px; }
  .stat .label { color: var(--muted); font-size: 0.75rem; text-transform: uppercase; }
  .stat .value { font-size: 1.2rem; font-weight: 600; }
  .positive { color: var(--up); }
  .negative { color: var(--down); }
  .neutral { color: var(--muted); }
  .charts { display: flex; flex-wrap: wrap; gap: 12px; align-items: flex-start; }
  table { width: 100%; border-collapse: collapse; margin-top: 12px; font-size: 0.9rem; }
  th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid var(--border); vertical-align: top; }
  th { background: var(--section-bg); }
  .score { font-weight: 600; text-align: center; }
  .tag { display: inline-block; background: #eef2ff; border-radius: 4px; padding: 0 6px; margin: 1px; font-size: 0.8rem; }
  footer { margin-top: 32px; color: var(--muted); font-size: 0.8rem; text-align: center; }
</style>
</head>
<body>
<header>
  <h1>{{.Title}}</h1>
  <p class="muted">Generated {{.GeneratedAt}}</p>
</header>
{{if not .Days}}
<p class="muted">No analyses.</p>
{{end}}
{{range .Days}}
<section>
  <h2>{{.Date}}</h2>
  <div class="stats">
    <div class="stat"><div class="label">Analyzed</div><div class="value">{{.Summary.AnalyzedCount}} / {{.Summary.TotalNewsCount}}</div></div>
    <div class="stat"><div class="label">Overall</div><div class="value {{.Summary.OverallSentiment}}">{{.Summary.OverallSentiment}}</div></div>
    <div class="stat"><div class="label">Avg impact</div><div class="value">{{printf "%.2f" .Summary.AverageImpactScore}}</div></div>
    <div class="stat"><div class="label">High impact</div><div class="value">{{.Summary.HighImpactNewsCount}}</div></div>
  </div>
  {{if .Fallbacks}}<p class="muted">{{.Fallbacks}} of {{.Summary.AnalyzedCount}} results ({{pct .Fallbacks .Summary.AnalyzedCount}}) came from the keyword heuristic.</p>{{end}}
  <div class="charts">
    {{.Gauge}}
    {{.SentimentChart}}
    {{if .Summary.TopAffectedSectors}}{{.SectorChart}}{{end}}
  </div>
  {{if .Top}}
  <table>
    <thead><tr><th>Impact</th><th>Sentiment</th><th>News</th><th>Sectors</th><th>Horizon</th></tr></thead>
    <tbody>
    {{range .Top}}
      <tr>
        <td class="score">{{.MarketImpactScore}}</td>
        <td class="{{.Sentiment}}">{{.Sentiment}}</td>
        <td>{{.OriginalNews.Title}} <span class="muted">{{.OriginalNews.Source}}</span><br><span class="muted">{{.AnalysisSummary}}</span></td>
        <td>{{range .AffectedSectors}}<span class="tag">{{.}}</span>{{end}}</td>
        <td>{{.TimeHorizon}}</td>
      </tr>
    {{end}}
    </tbody>
  </table>
  {{end}}
</section>
{{end}}
<footer>For research only. Not investment advice.</footer>
</body>
</html>
`
