package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/knakk/rdf"
)

// Decode reads a Turtle document into a new graph. Concatenated segments
// decode as one document.
func Decode(r io.Reader) (*Graph, error) {
	g := New()
	dec := rdf.NewTripleDecoder(r, rdf.Turtle)
	for {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode turtle: %w", err)
		}
		g.Add(t)
	}
	return g, nil
}

// Load parses a Turtle file
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	defer func() { _ = f.Close() }()

	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return g, nil
}

// Encode writes the graph as N-Triples lines, which are also valid Turtle.
// References are always written in full: names such as
// Forward_(association_football) are not legal prefixed local names.
func (g *Graph) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, t := range g.triples {
		if _, err := bw.WriteString(t.Serialize(rdf.NTriples)); err != nil {
			return fmt.Errorf("encode statement: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush statements: %w", err)
	}
	return nil
}

// Save writes the graph to path, replacing existing content
func (g *Graph) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create graph file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close graph file: %w", closeErr)
		}
	}()
	return g.Encode(f)
}
