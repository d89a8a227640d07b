package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/knakk/rdf"
	"go.uber.org/zap"

	"github.com/ppiankov/footgraph/internal/coerce"
	"github.com/ppiankov/footgraph/internal/graph"
	"github.com/ppiankov/footgraph/internal/model"
	"github.com/ppiankov/footgraph/internal/sparql"
)

// Querier runs the remote lookup for one entity name
type Querier interface {
	Query(ctx context.Context, name string) ([]model.Binding, bool, error)
}

// Options tunes an Enricher. The zero value performs single-shot lookups
// with the default coercer.
type Options struct {
	Coercer    *coerce.Coercer
	MaxRetries int
	Backoff    time.Duration // Delay before the first retry, doubled per attempt
}

// sleep waits for d or until ctx is done. Tests replace it.
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

// Enricher turns one entity into its enriched graph. The local store is
// only read, so one Enricher is shared by every worker.
type Enricher struct {
	store      *graph.Graph
	client     Querier
	coercer    *coerce.Coercer
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewEnricher creates an enricher over a loaded store. A nil store is
// treated as empty.
func NewEnricher(store *graph.Graph, client Querier, opts Options, logger *zap.Logger) *Enricher {
	if store == nil {
		store = graph.New()
	}
	if opts.Coercer == nil {
		opts.Coercer = coerce.Default
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		store:      store,
		client:     client,
		coercer:    opts.Coercer,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		logger:     logger,
	}
}

// Lookup queries the remote service for name and never fails: an error is
// logged against the entity and returned as the result's failure marker
// with no bindings
func (e *Enricher) Lookup(ctx context.Context, name string) model.QueryResult {
	res := model.QueryResult{Entity: name}

	for attempt := 0; ; attempt++ {
		res.Attempts = attempt + 1

		rows, cached, err := e.client.Query(ctx, name)
		if err == nil {
			res.Bindings = rows
			res.Cached = cached
			return res
		}

		if attempt >= e.maxRetries || !sparql.IsRetryable(err) || ctx.Err() != nil {
			e.logger.Warn("remote lookup failed",
				zap.String("entity", name),
				zap.Int("attempts", res.Attempts),
				zap.Error(err))
			res.Err = err
			return res
		}

		delay := e.backoff << attempt
		e.logger.Debug("retrying remote lookup",
			zap.String("entity", name),
			zap.Int("attempt", res.Attempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := sleep(ctx, delay); err != nil {
			e.logger.Warn("remote lookup abandoned",
				zap.String("entity", name),
				zap.Int("attempts", res.Attempts),
				zap.Error(err))
			res.Err = fmt.Errorf("retry interrupted: %w", err)
			return res
		}
	}
}

// Enrich builds the graph for one entity: its type assertion, the local
// NationalTeam facts with literals re-coerced to references, and one
// statement per property the first result row carries. The returned graph
// is never nil, even when the lookup failed.
func (e *Enricher) Enrich(ctx context.Context, entity string) (*graph.Graph, model.QueryResult) {
	g := graph.New()

	subject, err := rdf.NewIRI(entity)
	if err != nil {
		e.logger.Warn("invalid entity reference", zap.String("entity", entity), zap.Error(err))
		return g, model.QueryResult{Entity: entity, Err: fmt.Errorf("entity reference: %w", err)}
	}

	g.AddSPO(subject, graph.RDFType, graph.Footballer)
	for _, team := range e.store.Objects(subject, graph.NationalTeam) {
		g.AddSPO(subject, graph.NationalTeam, e.coercer.LocalObject(team))
	}

	res := e.Lookup(ctx, CanonicalName(entity))
	res.Entity = entity
	if len(res.Bindings) == 0 || res.Bindings[0].IsEmpty() {
		if !res.Failed() {
			e.logger.Debug("no remote facts", zap.String("entity", entity))
		}
		return g, res
	}

	first := res.Bindings[0]
	for _, p := range model.Properties {
		value, ok := first.Value(p)
		if !ok {
			continue
		}
		g.AddSPO(subject, graph.Predicate(p), e.coercer.Value(value, p.IsDate()))
	}

	return g, res
}

// EnrichName enriches a bare player name as if it were a local entity
func (e *Enricher) EnrichName(ctx context.Context, name string) (*graph.Graph, model.QueryResult) {
	iri, err := EntityIRI(name)
	if err != nil {
		return graph.New(), model.QueryResult{Entity: name, Err: fmt.Errorf("entity reference: %w", err)}
	}
	return e.Enrich(ctx, iri.String())
}
