package sparql

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ppiankov/footgraph/internal/model"
)

// resultsDocument is the SPARQL 1.1 JSON results format
type resultsDocument struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results *struct {
		Bindings []map[string]term `json:"bindings"`
	} `json:"results"`
}

type term struct {
	Type     string  `json:"type"`
	Value    *string `json:"value"`
	Datatype string  `json:"datatype,omitempty"`
	Lang     string  `json:"xml:lang,omitempty"`
}

// DecodeBindings parses a results document into typed rows. Variables
// the row does not mention did not match and stay unset.
func DecodeBindings(r io.Reader) ([]model.Binding, error) {
	var doc resultsDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if doc.Results == nil {
		return nil, fmt.Errorf("%w: missing results", ErrMalformedResponse)
	}

	rows := make([]model.Binding, 0, len(doc.Results.Bindings))
	for i, raw := range doc.Results.Bindings {
		var row model.Binding
		for variable, t := range raw {
			if t.Value == nil {
				return nil, fmt.Errorf("%w: row %d: variable %q has no value", ErrMalformedResponse, i, variable)
			}
			row.Set(variable, *t.Value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
