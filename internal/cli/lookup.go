package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/footgraph/internal/cache"
	"github.com/ppiankov/footgraph/internal/coerce"
	"github.com/ppiankov/footgraph/internal/enrich"
	"github.com/ppiankov/footgraph/internal/graph"
	"github.com/ppiankov/footgraph/internal/logger"
	"github.com/ppiankov/footgraph/internal/model"
	"github.com/ppiankov/footgraph/internal/sparql"
	"github.com/ppiankov/footgraph/internal/worker"
)

var (
	lookupFile     string
	lookupEndpoint string
	lookupWorkers  int
	lookupLocal    bool
)

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup [name...]",
	Short: "Enrich players by name and print their statements",
	Long: `Lookup runs the same enrichment as a pipeline run for the given player
names and prints each player's statements as Turtle to stdout. Nothing is
written to the output graph or the journal.

Names may use spaces or underscores. With --local, local NationalTeam facts
are read from the configured input graph.

Example:
  footgraph lookup "Lionel Messi" Pele
  footgraph lookup --file names.txt --workers 5`,
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVar(&lookupFile, "file", "", "read names from a file, one per line")
	lookupCmd.Flags().StringVar(&lookupEndpoint, "endpoint", "", "SPARQL endpoint URL (default from config)")
	lookupCmd.Flags().IntVar(&lookupWorkers, "workers", 0, "concurrent lookups (default from config)")
	lookupCmd.Flags().BoolVar(&lookupLocal, "local", false, "include facts from the configured input graph")
}

type lookupOutcome struct {
	name   string
	graph  *graph.Graph
	result model.QueryResult
}

func runLookup(cmd *cobra.Command, args []string) error {
	names := append([]string(nil), args...)
	if lookupFile != "" {
		fromFile, err := worker.ReadNamesFromFile(lookupFile)
		if err != nil {
			return err
		}
		names = append(names, fromFile...)
	}
	if len(names) == 0 {
		return fmt.Errorf("no names given")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if lookupEndpoint != "" {
		cfg.Endpoint.URL = lookupEndpoint
	}
	if lookupWorkers > 0 {
		cfg.Batch.Workers = lookupWorkers
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var store *graph.Graph
	if lookupLocal {
		if store, err = graph.Load(cfg.Input); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := worker.NewLimiter(cfg.Endpoint.RequestsPerSecond, cfg.Endpoint.Burst)
	client := sparql.NewClient(cfg.Endpoint, limiter, cache.New(cfg.Cache), log)
	enricher := enrich.NewEnricher(store, client, enrich.Options{
		Coercer:    coerce.NewCoercer(cfg.Endpoint.ResourceNamespace, cfg.Coercion.FoldDiacritics),
		MaxRetries: cfg.Endpoint.MaxRetries,
	}, log)

	outcomes, err := lookupAll(ctx, enricher, names, cfg.Batch.Workers)
	if err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		status := fmt.Sprintf("%d statements", o.graph.Len())
		switch {
		case o.result.Failed():
			failed++
			status = fmt.Sprintf("lookup failed: %v", o.result.Err)
		case o.result.Cached:
			status += ", cached"
		}

		var buf bytes.Buffer
		if err := o.graph.Encode(&buf); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s (%s)\n%s\n", o.name, status, buf.String())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(outcomes))
	}
	return nil
}

// lookupAll enriches names with at most workers lookups in flight and
// returns the outcomes in input order
func lookupAll(ctx context.Context, enricher *enrich.Enricher, names []string, workers int) ([]lookupOutcome, error) {
	if workers < 1 {
		workers = 1
	}
	outcomes := make([]lookupOutcome, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			eg, res := enricher.EnrichName(ctx, name)
			outcomes[i] = lookupOutcome{name: name, graph: eg, result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
