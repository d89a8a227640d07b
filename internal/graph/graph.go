// Package graph is a set-semantics triple store over knakk/rdf terms.
//
// A Graph never holds the same statement twice: two triples are the same
// statement when their N-Triples serializations are equal. Iteration follows
// insertion order, which for a loaded file is parse order. A Graph is not
// synchronized; it is safe for concurrent readers once nobody writes to it.
package graph

import (
	"github.com/knakk/rdf"
)

// Graph holds a set of statements
type Graph struct {
	index   map[string]struct{}
	triples []rdf.Triple
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		index: make(map[string]struct{}),
	}
}

// Key returns the identity of a statement
func Key(t rdf.Triple) string {
	return t.Serialize(rdf.NTriples)
}

// Add inserts a statement and reports whether it was new
func (g *Graph) Add(t rdf.Triple) bool {
	k := Key(t)
	if _, exists := g.index[k]; exists {
		return false
	}
	g.index[k] = struct{}{}
	g.triples = append(g.triples, t)
	return true
}

// AddSPO is a convenience wrapper around Add
func (g *Graph) AddSPO(s rdf.Subject, p rdf.Predicate, o rdf.Object) bool {
	return g.Add(rdf.Triple{Subj: s, Pred: p, Obj: o})
}

// Has reports whether the statement is in the graph
func (g *Graph) Has(t rdf.Triple) bool {
	_, exists := g.index[Key(t)]
	return exists
}

// Len returns the number of statements
func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns the statements in insertion order
func (g *Graph) Triples() []rdf.Triple {
	out := make([]rdf.Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// Merge adds every statement of other (set union) and returns how many were new
func (g *Graph) Merge(other *Graph) int {
	if other == nil {
		return 0
	}
	added := 0
	for _, t := range other.triples {
		if g.Add(t) {
			added++
		}
	}
	return added
}

// Subjects returns the distinct subjects of statements matching (?, p, o)
func (g *Graph) Subjects(p rdf.Predicate, o rdf.Object) []rdf.Subject {
	seen := make(map[string]bool)
	var out []rdf.Subject
	for _, t := range g.Match(nil, p, o) {
		sk := termKey(t.Subj)
		if seen[sk] {
			continue
		}
		seen[sk] = true
		out = append(out, t.Subj)
	}
	return out
}

// Objects returns the objects of statements matching (s, p, ?)
func (g *Graph) Objects(s rdf.Subject, p rdf.Predicate) []rdf.Object {
	var out []rdf.Object
	for _, t := range g.Match(s, p, nil) {
		out = append(out, t.Obj)
	}
	return out
}

// Match returns statements matching the pattern; nil terms are wildcards
func (g *Graph) Match(s rdf.Subject, p rdf.Predicate, o rdf.Object) []rdf.Triple {
	sk, pk, objKey := termKey(s), termKey(p), termKey(o)
	var out []rdf.Triple
	for _, t := range g.triples {
		if s != nil && termKey(t.Subj) != sk {
			continue
		}
		if p != nil && termKey(t.Pred) != pk {
			continue
		}
		if o != nil && termKey(t.Obj) != objKey {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Equal reports whether both graphs hold the same statement set
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for _, t := range g.triples {
		if !other.Has(t) {
			return false
		}
	}
	return true
}

func termKey(t rdf.Term) string {
	if t == nil {
		return ""
	}
	return t.Serialize(rdf.NTriples)
}
