package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/footgraph/internal/cache"
	"github.com/ppiankov/footgraph/internal/logger"
	"github.com/ppiankov/footgraph/internal/model"
	"github.com/ppiankov/footgraph/internal/pipeline"
	"github.com/ppiankov/footgraph/internal/progress"
	"github.com/ppiankov/footgraph/internal/sparql"
	"github.com/ppiankov/footgraph/internal/util"
	"github.com/ppiankov/footgraph/internal/worker"
)

var fresh bool

// enrichCmd represents the enrich command
var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich every player of the input graph",
	Long: `Enrich loads the input graph, finds every ex:Footballer and queries the
endpoint for each one, a few at a time. Each batch is appended to the output
as its own Turtle segment before the next batch starts.

The output is appended to, never replaced. Use --fresh to truncate it first,
or --journal with --resume to continue an interrupted run.

Example:
  footgraph enrich
  footgraph enrich --input players.ttl --output enriched.ttl --fresh
  footgraph enrich --journal progress.db --resume --max-retries 3`,
	Args: cobra.NoArgs,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	defaults := model.DefaultConfig()
	flags := enrichCmd.Flags()

	flags.String("input", defaults.Input, "local Turtle graph to enrich")
	flags.String("output", defaults.Output, "Turtle file to append segments to")
	flags.Int("batch-size", defaults.Batch.Size, "entities per batch")
	flags.Int("workers", defaults.Batch.Workers, "concurrent lookups per batch")
	flags.Duration("throttle", defaults.Batch.Throttle, "pause between batches")
	flags.String("endpoint", defaults.Endpoint.URL, "SPARQL endpoint URL")
	flags.Duration("timeout", defaults.Endpoint.Timeout, "timeout per lookup")
	flags.String("ua", defaults.Endpoint.UserAgent, "HTTP User-Agent")
	flags.Float64("rps", defaults.Endpoint.RequestsPerSecond, "max requests per second to the endpoint (0 = unlimited)")
	flags.Int("max-retries", defaults.Endpoint.MaxRetries, "retries for transient lookup failures")
	flags.Bool("respect-robots", defaults.Endpoint.RespectRobots, "honor the endpoint's robots.txt and crawl delay")
	flags.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	flags.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	flags.Bool("cache", defaults.Cache.Enabled, "cache lookup answers")
	flags.String("cache-dir", defaults.Cache.DiskDir, "persist cached answers under this directory")
	flags.Bool("fold-diacritics", defaults.Coercion.FoldDiacritics, "strip every accent from minted resource names")
	flags.String("journal", defaults.Progress.Journal, "SQLite progress journal path")
	flags.Bool("resume", defaults.Progress.Resume, "skip entities the journal already recorded for this output")
	flags.BoolVar(&fresh, "fresh", false, "truncate the output before the run")

	bind := map[string]string{
		"input":                        "input",
		"output":                       "output",
		"batch.size":                   "batch-size",
		"batch.workers":                "workers",
		"batch.throttle":               "throttle",
		"endpoint.url":                 "endpoint",
		"endpoint.timeout":             "timeout",
		"endpoint.user_agent":          "ua",
		"endpoint.requests_per_second": "rps",
		"endpoint.max_retries":         "max-retries",
		"endpoint.respect_robots":      "respect-robots",
		"endpoint.http_proxy":          "http-proxy",
		"endpoint.https_proxy":         "https-proxy",
		"cache.enabled":                "cache",
		"cache.disk_dir":               "cache-dir",
		"coercion.fold_diacritics":     "fold-diacritics",
		"progress.journal":             "journal",
		"progress.resume":              "resume",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if fresh && cfg.Progress.Resume {
		return fmt.Errorf("--fresh and --resume are mutually exclusive")
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := worker.NewLimiter(cfg.Endpoint.RequestsPerSecond, cfg.Endpoint.Burst)
	if cfg.Endpoint.RespectRobots {
		if err := applyRobots(ctx, cfg, limiter, log); err != nil {
			return err
		}
	}

	client := sparql.NewClient(cfg.Endpoint, limiter, cache.New(cfg.Cache), log)

	var journal *progress.Journal
	if cfg.Progress.Journal != "" {
		journal, err = progress.Open(cfg.Progress.Journal)
		if err != nil {
			return err
		}
		defer func() { _ = journal.Close() }()
	}

	p := pipeline.NewPipeline(cfg, client, journal, log)
	if fresh {
		if err := p.Truncate(); err != nil {
			return err
		}
	}

	printBanner(cmd, cfg)

	report, runErr := p.Run(ctx)
	if report != nil {
		printReport(cmd, report)
	}
	return runErr
}

// applyRobots refuses a disallowed endpoint and stretches pacing to the
// crawl delay the host asks for
func applyRobots(ctx context.Context, cfg *model.Config, limiter *worker.Limiter, log *zap.Logger) error {
	checker := util.NewRobotsChecker(cfg.Endpoint.UserAgent, cfg.Endpoint.Timeout,
		util.NewProxyFunc(cfg.Endpoint.HTTPProxy, cfg.Endpoint.HTTPSProxy, cfg.Endpoint.NoProxy))

	allowed, delay, err := checker.CanFetch(ctx, cfg.Endpoint.URL)
	if err != nil {
		return fmt.Errorf("robots check: %w", err)
	}
	if !allowed {
		return fmt.Errorf("robots.txt disallows %s for %s", cfg.Endpoint.URL, util.NormalizeUserAgent(cfg.Endpoint.UserAgent))
	}
	if delay <= 0 {
		return nil
	}

	parsed, err := url.Parse(cfg.Endpoint.URL)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	limiter.SetHostDelay(parsed.Host, delay)
	if delay > cfg.Batch.Throttle {
		cfg.Batch.Throttle = delay
	}
	log.Info("honoring crawl delay",
		zap.String("host", parsed.Host),
		zap.Duration("delay", delay),
		zap.Float64("requests_per_second", float64(limiter.Limit(parsed.Host))))
	return nil
}

func printBanner(cmd *cobra.Command, cfg *model.Config) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  footgraph enrichment\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Input:      %s\n", cfg.Input)
	fmt.Fprintf(w, "  Output:     %s\n", cfg.Output)
	fmt.Fprintf(w, "  Endpoint:   %s\n", cfg.Endpoint.URL)
	fmt.Fprintf(w, "  Batch:      %d entities, %d workers, %v pause\n", cfg.Batch.Size, cfg.Batch.Workers, cfg.Batch.Throttle)
	if cfg.Progress.Journal != "" {
		fmt.Fprintf(w, "  Journal:    %s (resume: %v)\n", cfg.Progress.Journal, cfg.Progress.Resume)
	}
	fmt.Fprintf(w, "\n")
}

func printReport(cmd *cobra.Command, report *model.RunReport) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Enrichment Complete\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	if report.RunID != "" {
		fmt.Fprintf(w, "  Run:         %s\n", report.RunID)
	}
	fmt.Fprintf(w, "  Entities:    %d\n", report.Entities)
	if report.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped:     %d (already journaled)\n", report.Skipped)
	}
	fmt.Fprintf(w, "  Processed:   %d in %d batches\n", report.Processed(), len(report.Batches))
	fmt.Fprintf(w, "  Statements:  %d\n", report.Statements())
	failures := report.Failures()
	fmt.Fprintf(w, "  Failures:    %d\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "    ✗ %s\n", f)
	}
	fmt.Fprintf(w, "  Duration:    %v\n", report.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  Output:      %s\n", report.Output)
	fmt.Fprintf(w, "\n")
}
