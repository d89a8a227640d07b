package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/footgraph/internal/graph"
)

// dedupeCmd represents the dedupe command
var dedupeCmd = &cobra.Command{
	Use:   "dedupe <in> <out>",
	Short: "Collapse a multi-segment output graph into one statement set",
	Long: `Dedupe reads a Turtle file, typically an output graph that several runs
appended to, and writes every distinct statement once to a new file. The
written file is read back and compared before the command reports success.

Example:
  footgraph dedupe schema/data/players_enriched.ttl players_clean.ttl`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, out := args[0], args[1]

		g, err := graph.Load(in)
		if err != nil {
			return err
		}
		if err := g.Save(out); err != nil {
			return err
		}

		back, err := graph.Load(out)
		if err != nil {
			return fmt.Errorf("verify %s: %w", out, err)
		}
		if !back.Equal(g) {
			return fmt.Errorf("verify %s: read back %d statements, wrote %d", out, back.Len(), g.Len())
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d statements to %s\n", g.Len(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dedupeCmd)
}
