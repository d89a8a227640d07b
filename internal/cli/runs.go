package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/footgraph/internal/progress"
)

var runsJournal string

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs recorded in the progress journal",
	Long: `Runs prints every run recorded in the progress journal, most recent
first, with its output file and totals. A run shown as unfinished is still
running or stopped before it could store its totals.

Example:
  footgraph runs --journal progress.db`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVar(&runsJournal, "journal", "", "SQLite progress journal path (default from config)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	path := runsJournal
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Progress.Journal
	}
	if path == "" {
		return fmt.Errorf("no journal configured; pass --journal or set progress.journal")
	}
	if !fileExists(path) {
		return fmt.Errorf("journal %s does not exist", path)
	}

	journal, err := progress.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	runs, err := journal.Runs(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No runs recorded in %s\n", path)
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-8s  %-19s  %-12s  %10s  %8s  %s\n", "RUN", "STARTED", "DURATION", "STATEMENTS", "FAILURES", "OUTPUT")
	for _, r := range runs {
		duration := "unfinished"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%-8s  %-19s  %-12s  %10d  %8d  %s\n",
			r.ID[:8], r.StartedAt.Local().Format(time.DateTime), duration, r.Statements, r.Failures, r.Output)
	}
	return nil
}
