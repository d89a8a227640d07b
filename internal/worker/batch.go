package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/footgraph/internal/graph"
	"github.com/ppiankov/footgraph/internal/model"
)

// Enricher produces the statements for one entity
type Enricher interface {
	Enrich(ctx context.Context, entity string) (*graph.Graph, model.QueryResult)
}

// EnrichJob enriches a single entity
type EnrichJob struct {
	Entity   string
	Enricher Enricher
}

// Execute executes the enrichment job
func (j *EnrichJob) Execute(ctx context.Context) Result {
	g, res := j.Enricher.Enrich(ctx, j.Entity)
	return &EnrichResult{
		Entity: j.Entity,
		Graph:  g,
		Query:  res,
	}
}

// EnrichResult is the outcome of one entity task. Graph is never nil; a
// failed lookup still carries the locally derived statements.
type EnrichResult struct {
	Entity string
	Graph  *graph.Graph
	Query  model.QueryResult
}

// GetError returns the lookup error, if any
func (r *EnrichResult) GetError() error {
	return r.Query.Err
}

// BatchProcessor enriches the entities of one batch concurrently
type BatchProcessor struct {
	enricher    Enricher
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(enricher Enricher, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		enricher:    enricher,
		concurrency: concurrency,
	}
}

// Process enriches every entity and returns the results in input order.
// Entities not started before ctx was cancelled are absent from the result.
func (b *BatchProcessor) Process(ctx context.Context, entities []string) []*EnrichResult {
	if len(entities) == 0 {
		return []*EnrichResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, entity := range entities {
		if !pool.Submit(&EnrichJob{Entity: entity, Enricher: b.enricher}) {
			break
		}
	}

	results := pool.Wait()

	enriched := make([]*EnrichResult, len(results))
	for i, result := range results {
		enriched[i] = result.(*EnrichResult)
	}

	return enriched
}

// Partition splits entities into consecutive batches of at most size.
// Order is preserved and the last batch may be short.
func Partition(entities []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	batches := make([][]string, 0, (len(entities)+size-1)/size)
	for start := 0; start < len(entities); start += size {
		end := start + size
		if end > len(entities) {
			end = len(entities)
		}
		batches = append(batches, entities[start:end])
	}
	return batches
}

// ReadNamesFromFile reads entity names from a file, one per line.
// Blank lines and # comments are skipped and duplicates dropped.
func ReadNamesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var names []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			names = append(names, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return names, nil
}
