// newsimpact analyzes financial news for market impact.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/seenimoa/newsimpact/api"
	"github.com/seenimoa/newsimpact/internal/agent"
	"github.com/seenimoa/newsimpact/internal/analysis/prompts"
	"github.com/seenimoa/newsimpact/internal/config"
	"github.com/seenimoa/newsimpact/internal/datasource"
	"github.com/seenimoa/newsimpact/internal/jobs"
	"github.com/seenimoa/newsimpact/internal/llm"
	"github.com/seenimoa/newsimpact/internal/logging"
	"github.com/seenimoa/newsimpact/internal/report"
	"github.com/seenimoa/newsimpact/internal/store"
	"github.com/seenimoa/newsimpact/pkg/models"
	"github.com/seenimoa/newsimpact/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfg    *config.Config
	logger *log.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "newsimpact",
	Short: "Financial news market-impact analysis",
	Long: `newsimpact scores financial news for market impact, sentiment,
affected sectors and time horizon using a language model, falls back to a
keyword heuristic when the model is unavailable, and summarizes each day
of news into an overall market sentiment.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}

		logger = logging.New(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

func newService(ctx context.Context) (*agent.Service, error) {
	return agent.NewServiceFromConfig(ctx, cfg, logger)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func defaultOutput(name string) string {
	return filepath.Join(cfg.Output.Dir, fmt.Sprintf("%s_%s.json", name, utils.NowCST().Format("20060102_150405")))
}

func printProgress(p agent.Progress) {
	fmt.Fprintf(os.Stderr, "  [%d/%d] %s (%s)\n", p.Completed, p.Total, utils.Truncate(p.Title, 40), p.ModelUsed)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newsimpact %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single news item",
	Example: `  newsimpact analyze --title "央行宣布降准0.5个百分点" --content "释放长期资金约1万亿元" --source 新华社`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		content, _ := cmd.Flags().GetString("content")
		source, _ := cmd.Flags().GetString("source")
		day, _ := cmd.Flags().GetString("date")
		if day != "" && !utils.ValidDate(day) {
			return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", day)
		}

		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		res := svc.AnalyzeSingle(cmd.Context(), models.NewsItem{
			Title:   title,
			Content: content,
			Source:  source,
			Date:    day,
		})
		return printJSON(res)
	},
}

func init() {
	analyzeCmd.Flags().String("title", "", "news title")
	analyzeCmd.Flags().String("content", "", "news body")
	analyzeCmd.Flags().String("source", "", "news source")
	analyzeCmd.Flags().String("date", "", "publication date (YYYY-MM-DD)")
	_ = analyzeCmd.MarkFlagRequired("title")
}

// --- Batch Command ---

var batchCmd = &cobra.Command{
	Use:   "batch <items-file>",
	Short: "Analyze every item of a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		out, _ := cmd.Flags().GetString("out")

		items, err := store.LoadItems(args[0])
		if err != nil {
			return err
		}
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Analyzing %d items with %s\n", len(items), svc.Model())
		batch := svc.AnalyzeBatch(cmd.Context(), items, concurrency, printProgress)

		if out == "" {
			out = defaultOutput("news_analysis_results")
		}
		if svc.Save(batch.Results, out) {
			fmt.Fprintf(os.Stderr, "Saved %d results to %s\n", len(batch.Results), out)
		}
		fmt.Fprintf(os.Stderr, "Done in %s, %d of %d via fallback\n",
			batch.Elapsed.Round(time.Millisecond), batch.Fallbacks, len(batch.Results))
		return nil
	},
}

func init() {
	batchCmd.Flags().Int("concurrency", 0, "worker count (default: analysis.max_concurrency)")
	batchCmd.Flags().String("out", "", "results file (default: <output.dir>/news_analysis_results_<time>.json)")
}

// --- Daily Command ---

var dailyCmd = &cobra.Command{
	Use:   "daily <items-file>",
	Short: "Analyze items grouped by date and summarize each day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		reportPath, _ := cmd.Flags().GetString("report")

		items, err := store.LoadItems(args[0])
		if err != nil {
			return err
		}
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}

		daily := svc.BatchAnalyzeByDate(cmd.Context(), datasource.GroupByDate(items), printProgress)

		if out == "" {
			out = defaultOutput("daily_analysis")
		}
		if svc.SaveDaily(daily, out) {
			fmt.Fprintf(os.Stderr, "Saved %d dates to %s\n", len(daily), out)
		}
		if reportPath != "" {
			if err := writeReport(daily, reportPath); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Report written to %s\n", reportPath)
		}

		summaries := make(map[string]models.DailySummary, len(daily))
		for d, a := range daily {
			summaries[d] = a.DailySummary
		}
		return printJSON(summaries)
	},
}

func init() {
	dailyCmd.Flags().String("out", "", "output file (default: <output.dir>/daily_analysis_<time>.json)")
	dailyCmd.Flags().String("report", "", "also render a report (.html for HTML, anything else for text)")
}

func writeReport(daily map[string]models.DailyAnalysis, path string) error {
	rc := report.DefaultConfig()
	rc.Format = report.FormatForPath(path)
	data, err := report.Generate(report.SortedDays(daily), rc)
	if err != nil {
		return err
	}
	return store.SaveReport(data, path)
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch news items from the configured RSS feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		out, _ := cmd.Flags().GetString("out")
		if limit <= 0 {
			limit = cfg.News.MaxItems
		}

		items, err := datasource.NewNewsFromConfig(cfg.News, logger).FetchItems(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if out == "" {
			out = defaultOutput("news_items")
		}
		if err := store.SaveItems(items, out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d items to %s\n", len(items), out)
		return nil
	},
}

func init() {
	fetchCmd.Flags().Int("limit", 0, "max items (default: news.max_items)")
	fetchCmd.Flags().String("out", "", "items file, .json or .yaml")
}

// --- Watch Command ---

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the daily fetch-and-analyze job on its cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once")

		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		news := datasource.NewNewsFromConfig(cfg.News, logger)
		job := jobs.NewDailyJob(news, svc, cfg.Output.Dir, cfg.News.MaxItems, logger)

		if once {
			rep, err := job.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range rep.Files {
				fmt.Println(f)
			}
			return nil
		}

		if err := job.Start(cfg.Schedule.Cron); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Next run: %s (Ctrl+C to stop)\n", utils.FormatDateTimeCST(job.Next()))
		<-cmd.Context().Done()
		job.Stop()
		return nil
	},
}

func init() {
	watchCmd.Flags().Bool("once", false, "run the job immediately and exit")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		api.Version = version
		srv := api.NewServer(cfg, svc, logger)
		return srv.ListenAndServe(cmd.Context(), fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ping, _ := cmd.Flags().GetBool("ping")

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  newsimpact system status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (CST):    %s\n", utils.FormatDateTimeCST(utils.NowCST()))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Printf("    Attempts:      %d (retry delay %s)\n", cfg.LLM.MaxAttempts, cfg.LLM.RetryDelay)
		fmt.Printf("    Concurrency:   %d\n", cfg.Analysis.MaxConcurrency)
		fmt.Printf("    Cache:         %t\n", cfg.Cache.Enabled)
		fmt.Printf("    Feeds:         %d\n", len(cfg.News.Feeds))
		fmt.Printf("    Schedule:      %s\n", cfg.Schedule.Cron)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		if ping {
			fmt.Println()
			fmt.Printf("  Model ping:    %s\n", pingModel(cmd.Context()))
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("ping", false, "check that the model service answers")
}

func pingModel(ctx context.Context) string {
	client, err := llm.NewClientFromConfig(ctx, cfg.LLM, logger, llm.WithSystemPrompt(prompts.SystemInstruction))
	if errors.Is(err, llm.ErrNoAPIKey) {
		return "❌ no API key (fallback analysis only)"
	}
	if err != nil {
		return "❌ " + err.Error()
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		return "❌ " + err.Error()
	}
	return "✅ " + client.Model()
}
