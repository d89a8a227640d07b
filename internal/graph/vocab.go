package graph

import (
	"fmt"

	"github.com/knakk/rdf"

	"github.com/ppiankov/footgraph/internal/model"
)

// Namespaces used by the local graph and the remote knowledge base
const (
	NSExample  = "http://example.org/football/"
	NSOntology = "http://dbpedia.org/ontology/"
	NSProperty = "http://dbpedia.org/property/"
	NSResource = "http://dbpedia.org/resource/"
	NSRDF      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSXSD      = "http://www.w3.org/2001/XMLSchema#"
)

var (
	RDFType      = mustIRI(NSRDF + "type")
	Footballer   = mustIRI(NSExample + "Footballer")
	NationalTeam = mustIRI(NSOntology + "NationalTeam")
	XSDDate      = mustIRI(NSXSD + "date")
)

// Predicate returns the ontology predicate a property is written under
func Predicate(p model.Property) rdf.IRI {
	return mustIRI(NSOntology + string(p))
}

func mustIRI(s string) rdf.IRI {
	iri, err := rdf.NewIRI(s)
	if err != nil {
		panic(fmt.Sprintf("invalid vocabulary IRI %q: %v", s, err))
	}
	return iri
}
