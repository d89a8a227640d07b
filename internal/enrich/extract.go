// Package enrich builds the enriched graph of each player entity from the
// local store and one remote lookup.
package enrich

import (
	"strings"

	"github.com/knakk/rdf"

	"github.com/ppiankov/footgraph/internal/graph"
)

// ExtractEntities returns every subject typed ex:Footballer in the store's
// insertion order. Blank nodes are skipped since they cannot be looked up.
func ExtractEntities(store *graph.Graph) []rdf.IRI {
	subjects := store.Subjects(graph.RDFType, graph.Footballer)
	entities := make([]rdf.IRI, 0, len(subjects))
	for _, s := range subjects {
		if iri, ok := s.(rdf.IRI); ok {
			entities = append(entities, iri)
		}
	}
	return entities
}

// CanonicalName is the last path segment of an entity reference, the name
// used for the remote lookup
func CanonicalName(entity string) string {
	trimmed := strings.TrimRight(entity, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// EntityIRI mints the local reference for a bare player name
func EntityIRI(name string) (rdf.IRI, error) {
	return rdf.NewIRI(graph.NSExample + strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}
