package sparql

import (
	"fmt"
	"strings"

	"github.com/knakk/rdf"

	"github.com/ppiankov/footgraph/internal/graph"
	"github.com/ppiankov/footgraph/internal/model"
)

// ResourceIRI builds the remote reference for a canonical entity name
func ResourceIRI(namespace, name string) (rdf.IRI, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return rdf.IRI{}, ErrEmptyName
	}
	if namespace == "" {
		namespace = graph.NSResource
	}
	iri, err := rdf.NewIRI(namespace + strings.ReplaceAll(name, " ", "_"))
	if err != nil {
		return rdf.IRI{}, fmt.Errorf("%w: %q: %v", ErrInvalidName, name, err)
	}
	return iri, nil
}

// BuildQuery renders the lookup for one resource. Every property gets two
// independent OPTIONAL groups so a missing fact never hides the others.
func BuildQuery(resource rdf.IRI) string {
	var b strings.Builder

	b.WriteString("PREFIX dbo: <" + graph.NSOntology + ">\n")
	b.WriteString("PREFIX dbp: <" + graph.NSProperty + ">\n")
	b.WriteString("PREFIX dbr: <" + graph.NSResource + ">\n\n")

	b.WriteString("SELECT")
	for _, p := range model.Properties {
		fmt.Fprintf(&b, " ?%s ?%s", p.Var(), p.RawVar())
	}
	b.WriteString("\nWHERE {\n")

	subject := resource.Serialize(rdf.NTriples)
	for _, p := range model.Properties {
		fmt.Fprintf(&b, "  OPTIONAL { %s dbo:%s ?%s . }\n", subject, p, p.Var())
		fmt.Fprintf(&b, "  OPTIONAL { %s dbp:%s ?%s . }\n", subject, p, p.RawVar())
	}
	b.WriteString("}\n")

	return b.String()
}
