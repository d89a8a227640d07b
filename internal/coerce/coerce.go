// Package coerce turns raw strings returned by the remote knowledge base
// into typed graph objects. Every function here is pure and never fails:
// values that cannot be typed degrade to plain literals.
package coerce

import (
	"strings"
	"time"
	"unicode"

	"github.com/knakk/rdf"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/footgraph/internal/graph"
)

// DateLayout is the only calendar form accepted as xsd:date
const DateLayout = "2006-01-02"

// diacritics is the fixed substitution table applied to bare labels.
// It is deliberately narrow; characters outside it pass through unchanged.
var diacritics = strings.NewReplacer(
	"é", "e",
	"ó", "o",
	"í", "i",
)

// Coercer mints resource references for bare labels under a namespace
type Coercer struct {
	namespace string
	fold      bool
}

// NewCoercer creates a coercer. With fold set, every combining mark is
// stripped from labels instead of only the fixed table.
func NewCoercer(namespace string, fold bool) *Coercer {
	if namespace == "" {
		namespace = graph.NSResource
	}
	return &Coercer{
		namespace: namespace,
		fold:      fold,
	}
}

// Default uses the remote resource namespace and the fixed table
var Default = NewCoercer(graph.NSResource, false)

// Date returns an xsd:date literal for YYYY-MM-DD input and a plain
// literal carrying raw unchanged otherwise
func Date(raw string) rdf.Literal {
	if _, err := time.Parse(DateLayout, raw); err == nil {
		return rdf.NewTypedLiteral(raw, graph.XSDDate)
	}
	return plain(raw)
}

// ResourceOrLiteral uses the default coercer
func ResourceOrLiteral(raw string) rdf.Object {
	return Default.ResourceOrLiteral(raw)
}

// ResourceOrLiteral keeps http(s) values as references verbatim and mints
// a reference for anything else from its cleaned label
func (c *Coercer) ResourceOrLiteral(raw string) rdf.Object {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		if iri, err := rdf.NewIRI(raw); err == nil {
			return iri
		}
		return plain(raw)
	}

	iri, err := rdf.NewIRI(c.namespace + c.Label(raw))
	if err != nil {
		return plain(raw)
	}
	return iri
}

// Label cleans a bare label for use as a resource name
func (c *Coercer) Label(raw string) string {
	clean := strings.ReplaceAll(raw, " ", "_")
	if c.fold {
		return foldMarks(clean)
	}
	return diacritics.Replace(clean)
}

// Value coerces a remote value according to the property it belongs to
func (c *Coercer) Value(raw string, isDate bool) rdf.Object {
	if isDate {
		return Date(raw)
	}
	return c.ResourceOrLiteral(raw)
}

// LocalObject re-coerces a locally stored object: literals become
// references, references are kept
func (c *Coercer) LocalObject(o rdf.Object) rdf.Object {
	if o.Type() == rdf.TermLiteral {
		return c.ResourceOrLiteral(o.String())
	}
	return o
}

func foldMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return diacritics.Replace(s)
	}
	return out
}

func plain(raw string) rdf.Literal {
	lit, err := rdf.NewLiteral(raw)
	if err != nil {
		return rdf.NewTypedLiteral(raw, xsdString)
	}
	return lit
}

var xsdString = func() rdf.IRI {
	iri, _ := rdf.NewIRI(graph.NSXSD + "string")
	return iri
}()
