package coerce

import (
	"testing"

	"github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/footgraph/internal/graph"
)

func TestDate(t *testing.T) {
	lit := Date("1987-06-24")
	assert.Equal(t, "1987-06-24", lit.String())
	assert.Equal(t, graph.XSDDate, lit.DataType)
}

func TestDate_Unparsable(t *testing.T) {
	tests := []string{"not-a-date", "1987-6-24", "24/06/1987", "1987-02-30", ""}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			lit := Date(raw)
			assert.Equal(t, raw, lit.String())
			assert.NotEqual(t, graph.XSDDate, lit.DataType)
		})
	}
}

func TestResourceOrLiteral_URIVerbatim(t *testing.T) {
	for _, raw := range []string{
		"http://dbpedia.org/resource/Rosario",
		"https://dbpedia.org/resource/Forward_(association_football)",
	} {
		obj := ResourceOrLiteral(raw)
		require.Equal(t, rdf.TermIRI, obj.Type())
		assert.Equal(t, raw, obj.String())
	}
}

func TestResourceOrLiteral_Label(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Argentina", graph.NSResource + "Argentina"},
		{"José Pérez", graph.NSResource + "Jose_Perez"},
		{"Estadio Olímpico", graph.NSResource + "Estadio_Olimpico"},
		{"São Paulo", graph.NSResource + "São_Paulo"}, // outside the table
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			obj := ResourceOrLiteral(tt.raw)
			require.Equal(t, rdf.TermIRI, obj.Type())
			assert.Equal(t, tt.want, obj.String())
		})
	}
}

func TestResourceOrLiteral_Deterministic(t *testing.T) {
	first := ResourceOrLiteral("José Pérez")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.String(), ResourceOrLiteral("José Pérez").String())
	}
}

func TestResourceOrLiteral_UnmintableLabel(t *testing.T) {
	obj := ResourceOrLiteral(`Team "A" <B>`)
	assert.Equal(t, rdf.TermLiteral, obj.Type())
	assert.Equal(t, `Team "A" <B>`, obj.String())
}

func TestCoercer_FoldDiacritics(t *testing.T) {
	c := NewCoercer("", true)
	assert.Equal(t, "Sao_Paulo", c.Label("São Paulo"))
	assert.Equal(t, "Jose_Perez", c.Label("José Pérez"))

	narrow := NewCoercer("", false)
	assert.Equal(t, "São_Paulo", narrow.Label("São Paulo"))
}

func TestCoercer_Namespace(t *testing.T) {
	c := NewCoercer("http://example.org/res/", false)
	assert.Equal(t, "http://example.org/res/Rosario", c.ResourceOrLiteral("Rosario").String())
}

func TestCoercer_Value(t *testing.T) {
	c := NewCoercer("", false)
	assert.Equal(t, rdf.TermLiteral, c.Value("1987-06-24", true).Type())
	assert.Equal(t, rdf.TermIRI, c.Value("Rosario", false).Type())
}

func TestCoercer_LocalObject(t *testing.T) {
	c := NewCoercer("", false)

	lit, err := rdf.NewLiteral("Argentina")
	require.NoError(t, err)
	got := c.LocalObject(lit)
	assert.Equal(t, rdf.TermIRI, got.Type())
	assert.Equal(t, graph.NSResource+"Argentina", got.String())

	ref, err := rdf.NewIRI("http://example.org/football/Argentina")
	require.NoError(t, err)
	assert.Equal(t, ref.String(), c.LocalObject(ref).String())
}
