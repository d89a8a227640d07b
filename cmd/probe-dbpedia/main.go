// Probe program that queries the live DBpedia endpoint for a few well-known
// players and prints the raw bindings next to the statements they produce.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knakk/rdf"

	"github.com/ppiankov/footgraph/internal/enrich"
	"github.com/ppiankov/footgraph/internal/model"
	"github.com/ppiankov/footgraph/internal/sparql"
)

func main() {
	fmt.Println("=== DBpedia Endpoint Probe ===")
	fmt.Println()

	// Players with known dbo and dbp coverage, plus one that does not exist
	names := []string{
		"Lionel_Messi",
		"Pelé",
		"Johan Cruyff",
		"No_Such_Footballer_Anywhere",
	}
	if len(os.Args) > 1 {
		names = os.Args[1:]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := model.DefaultConfig().Endpoint
	client := sparql.NewClient(cfg, nil, nil, nil)
	enricher := enrich.NewEnricher(nil, client, enrich.Options{}, nil)
	fmt.Printf("Endpoint: %s\n\n", client.Endpoint())

	for _, name := range names {
		fmt.Printf("Probing: %s\n", name)
		fmt.Println(strings.Repeat("-", 60))

		start := time.Now()
		rows, _, err := client.Query(ctx, name)
		if err != nil {
			fmt.Printf("  ✗ query error: %v (retryable: %v)\n\n", err, sparql.IsRetryable(err))
			continue
		}
		fmt.Printf("  %d row(s) in %v\n", len(rows), time.Since(start).Round(time.Millisecond))

		if len(rows) > 0 {
			for _, p := range model.Properties {
				v := rows[0].Variants(p)
				fmt.Printf("    %-11s dbo=%-40s dbp=%s\n", p, show(v.Primary), show(v.Fallback))
			}
		}

		g, res := enricher.EnrichName(ctx, name)
		if res.Failed() {
			fmt.Printf("  ✗ enrichment failed: %v\n\n", res.Err)
			continue
		}
		fmt.Printf("  ✓ %d statement(s):\n", g.Len())
		for _, t := range g.Triples() {
			fmt.Printf("    %s %s\n", t.Pred.String(), t.Obj.Serialize(rdf.NTriples))
		}
		fmt.Println()
	}
}

func show(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
