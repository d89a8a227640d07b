// Package pipeline runs the batch enrichment of a local player graph.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/footgraph/internal/coerce"
	"github.com/ppiankov/footgraph/internal/enrich"
	"github.com/ppiankov/footgraph/internal/graph"
	"github.com/ppiankov/footgraph/internal/model"
	"github.com/ppiankov/footgraph/internal/output"
	"github.com/ppiankov/footgraph/internal/progress"
	"github.com/ppiankov/footgraph/internal/worker"
)

// sleep pauses between batches. Tests replace it.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pipeline orchestrates an enrichment run: load, extract, then for each
// batch dispatch, await, merge, flush and throttle
type Pipeline struct {
	config  *model.Config
	client  enrich.Querier
	writer  *output.SegmentWriter
	journal *progress.Journal // nil disables journaling and resume
	logger  *zap.Logger
	now     func() time.Time
}

// NewPipeline creates a pipeline. journal and logger may be nil.
func NewPipeline(cfg *model.Config, client enrich.Querier, journal *progress.Journal, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		config:  cfg,
		client:  client,
		writer:  output.NewSegmentWriter(cfg.Output),
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
}

// Run enriches every player of the input graph and appends one segment per
// batch to the output. Batches run strictly in order; a batch is flushed
// before the next one starts. A failed lookup never fails the run. Input
// and output I/O errors do, as does cancellation, which returns the report
// of the batches already flushed.
func (p *Pipeline) Run(ctx context.Context) (*model.RunReport, error) {
	report := &model.RunReport{
		Input:     p.config.Input,
		Output:    p.config.Output,
		StartedAt: p.now(),
	}

	store, err := graph.Load(p.config.Input)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}

	entities := enrich.ExtractEntities(store)
	report.Entities = len(entities)
	p.logger.Info("entities extracted",
		zap.String("input", p.config.Input),
		zap.Int("statements", store.Len()),
		zap.Int("entities", len(entities)))

	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.String())
	}

	if p.journal != nil {
		if p.config.Progress.Resume {
			if names, err = p.pending(ctx, names); err != nil {
				return nil, err
			}
			report.Skipped = report.Entities - len(names)
		}
		if report.RunID, err = p.journal.StartRun(ctx, p.config.Input, p.config.Output); err != nil {
			return nil, err
		}
	}

	enricher := enrich.NewEnricher(store, p.client, enrich.Options{
		Coercer:    coerce.NewCoercer(p.config.Endpoint.ResourceNamespace, p.config.Coercion.FoldDiacritics),
		MaxRetries: p.config.Endpoint.MaxRetries,
	}, p.logger)
	processor := worker.NewBatchProcessor(enricher, p.config.Batch.Workers)

	batches := worker.Partition(names, p.config.Batch.Size)
	runErr := p.runBatches(ctx, processor, batches, report)

	report.FinishedAt = p.now()
	if p.journal != nil {
		// The run may have been cancelled; totals are stored regardless
		if err := p.journal.FinishRun(context.WithoutCancel(ctx), report.RunID, report.Statements(), len(report.Failures())); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	return report, runErr
}

func (p *Pipeline) runBatches(ctx context.Context, processor *worker.BatchProcessor, batches [][]string, report *model.RunReport) error {
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("run interrupted", zap.Int("flushed_batches", i), zap.Int("total_batches", len(batches)))
			return fmt.Errorf("interrupted before batch %d: %w", i+1, err)
		}

		br, err := p.runBatch(ctx, processor, i+1, batch, report.RunID)
		if err != nil {
			return err
		}
		report.Batches = append(report.Batches, br)

		p.logger.Info("batch flushed",
			zap.Int("batch", br.Index),
			zap.Int("of", len(batches)),
			zap.Int("entities", br.Entities),
			zap.Int("statements", br.Statements),
			zap.Int("failed", len(br.Failed)),
			zap.String("output", p.writer.Path()),
			zap.Duration("took", br.Duration))

		if i == len(batches)-1 || p.config.Batch.Throttle <= 0 {
			continue
		}
		if err := sleep(ctx, p.config.Batch.Throttle); err != nil {
			p.logger.Warn("run interrupted", zap.Int("flushed_batches", i+1), zap.Int("total_batches", len(batches)))
			return fmt.Errorf("interrupted after batch %d: %w", i+1, err)
		}
	}
	return nil
}

func (p *Pipeline) runBatch(ctx context.Context, processor *worker.BatchProcessor, index int, batch []string, runID string) (model.BatchReport, error) {
	start := p.now()
	results := processor.Process(ctx, batch)

	merged := graph.New()
	entries := make([]progress.Entry, 0, len(results))
	var failed []string
	for _, res := range results {
		merged.Merge(res.Graph)
		if res.Query.Failed() {
			failed = append(failed, res.Entity)
		}
		entries = append(entries, progress.Entry{
			Entity:     res.Entity,
			Statements: res.Graph.Len(),
			Failed:     res.Query.Failed(),
		})
	}

	n, err := p.writer.WriteSegment(index, merged)
	if err != nil {
		return model.BatchReport{}, fmt.Errorf("flush batch %d: %w", index, err)
	}

	if p.journal != nil {
		if err := p.journal.Record(context.WithoutCancel(ctx), runID, index, entries); err != nil {
			return model.BatchReport{}, fmt.Errorf("journal batch %d: %w", index, err)
		}
	}

	return model.BatchReport{
		Index:      index,
		Entities:   len(results),
		Statements: merged.Len(),
		Failed:     failed,
		Bytes:      n,
		Duration:   p.now().Sub(start),
	}, nil
}

func (p *Pipeline) pending(ctx context.Context, names []string) ([]string, error) {
	done, err := p.journal.Done(ctx, p.config.Output)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	pending := names[:0:0]
	for _, name := range names {
		if !done[name] {
			pending = append(pending, name)
		}
	}
	p.logger.Info("resuming from journal",
		zap.Int("done", len(names)-len(pending)),
		zap.Int("pending", len(pending)))
	return pending, nil
}

// Truncate empties the output file before a fresh run
func (p *Pipeline) Truncate() error {
	return p.writer.Truncate()
}
