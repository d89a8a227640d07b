package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/footgraph/internal/graph"
	"github.com/ppiankov/footgraph/internal/model"
	"github.com/ppiankov/footgraph/internal/progress"
	"github.com/ppiankov/footgraph/internal/sparql"
)

const playersTTL = `@prefix ex: <http://example.org/football/> .
@prefix dbo: <http://dbpedia.org/ontology/> .
@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .

ex:Lionel_Messi rdf:type ex:Footballer ;
    dbo:NationalTeam "Argentina" .
ex:Kylian_Mbappe rdf:type ex:Footballer ;
    dbo:NationalTeam "France" .
ex:Pele rdf:type ex:Footballer .
ex:Luka_Modric rdf:type ex:Footballer .
ex:Andres_Iniesta rdf:type ex:Footballer .
ex:FC_Barcelona rdf:type ex:Team .
`

var resourcePattern = regexp.MustCompile(`<http://dbpedia\.org/resource/([^>]+)>`)

// fakeEndpoint serves SPARQL JSON results per resource name
type fakeEndpoint struct {
	mu      sync.Mutex
	answers map[string]string
	failing map[string]bool
	hits    map[string]int
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{
		answers: map[string]string{
			"Lionel_Messi": `{"birthDate":{"type":"typed-literal","datatype":"http://www.w3.org/2001/XMLSchema#date","value":"1987-06-24"}}`,
			"Pele":         `{"positionRaw":{"type":"literal","value":"Forward"}}`,
		},
		failing: map[string]bool{"Kylian_Mbappe": true},
		hits:    make(map[string]int),
	}
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m := resourcePattern.FindStringSubmatch(r.URL.Query().Get("query"))
	if m == nil {
		http.Error(w, "no resource in query", http.StatusBadRequest)
		return
	}
	name := m[1]

	f.mu.Lock()
	f.hits[name]++
	failing := f.failing[name]
	row, ok := f.answers[name]
	f.mu.Unlock()

	if failing {
		http.Error(w, "upstream unavailable", http.StatusInternalServerError)
		return
	}
	if !ok {
		row = "{}"
	}
	w.Header().Set("Content-Type", "application/sparql-results+json")
	_, _ = fmt.Fprintf(w, `{"head":{"vars":[]},"results":{"bindings":[%s]}}`, row)
}

func (f *fakeEndpoint) hitCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[name]
}

type harness struct {
	cfg      *model.Config
	endpoint *fakeEndpoint
	client   *sparql.Client
	sleeps   *[]time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	input := filepath.Join(dir, "player.ttl")
	require.NoError(t, os.WriteFile(input, []byte(playersTTL), 0o644))

	endpoint := newFakeEndpoint()
	server := httptest.NewServer(endpoint)
	t.Cleanup(server.Close)

	cfg := model.DefaultConfig()
	cfg.Input = input
	cfg.Output = filepath.Join(dir, "players_enriched.ttl")
	cfg.Batch.Size = 2
	cfg.Batch.Workers = 3
	cfg.Batch.Throttle = time.Second
	cfg.Endpoint.URL = server.URL
	cfg.Endpoint.Timeout = 5 * time.Second

	var sleeps []time.Duration
	orig := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = orig })

	return &harness{
		cfg:      cfg,
		endpoint: endpoint,
		client:   sparql.NewClient(cfg.Endpoint, nil, nil, nil),
		sleeps:   &sleeps,
	}
}

func mustIRI(t *testing.T, s string) rdf.IRI {
	t.Helper()
	iri, err := rdf.NewIRI(s)
	require.NoError(t, err)
	return iri
}

func TestRun_EnrichesAllBatches(t *testing.T) {
	h := newHarness(t)

	report, err := NewPipeline(h.cfg, h.client, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Entities)
	assert.Equal(t, 5, report.Processed())
	require.Len(t, report.Batches, 3)
	assert.Equal(t, []int{2, 2, 1}, []int{report.Batches[0].Entities, report.Batches[1].Entities, report.Batches[2].Entities})
	assert.Equal(t, []string{"http://example.org/football/Kylian_Mbappe"}, report.Failures())
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	// Throttle runs between batches only
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *h.sleeps)

	data, err := os.ReadFile(h.cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "# batch "))

	out, err := graph.Load(h.cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, report.Statements(), out.Len())

	messi := mustIRI(t, "http://example.org/football/Lionel_Messi")
	assert.Len(t, out.Match(messi, nil, nil), 3)
	assert.True(t, out.Has(rdf.Triple{Subj: messi, Pred: graph.NationalTeam, Obj: mustIRI(t, "http://dbpedia.org/resource/Argentina")}))
	assert.True(t, out.Has(rdf.Triple{Subj: messi, Pred: graph.Predicate(model.PropBirthDate), Obj: rdf.NewTypedLiteral("1987-06-24", graph.XSDDate)}))

	// The failed lookup keeps the type assertion and the local team
	mbappe := mustIRI(t, "http://example.org/football/Kylian_Mbappe")
	assert.Len(t, out.Match(mbappe, nil, nil), 2)
	assert.True(t, out.Has(rdf.Triple{Subj: mbappe, Pred: graph.NationalTeam, Obj: mustIRI(t, "http://dbpedia.org/resource/France")}))

	pele := mustIRI(t, "http://example.org/football/Pele")
	assert.True(t, out.Has(rdf.Triple{Subj: pele, Pred: graph.Predicate(model.PropPosition), Obj: mustIRI(t, "http://dbpedia.org/resource/Forward")}))

	modric := mustIRI(t, "http://example.org/football/Luka_Modric")
	assert.Len(t, out.Match(modric, nil, nil), 1)

	// Non-player subjects are never looked up
	assert.Zero(t, h.endpoint.hitCount("FC_Barcelona"))
}

func TestRun_SingleBatchDoesNotSleep(t *testing.T) {
	h := newHarness(t)
	h.cfg.Batch.Size = 100

	report, err := NewPipeline(h.cfg, h.client, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Batches, 1)
	assert.Empty(t, *h.sleeps)
}

func TestRun_AppendsOnRerun(t *testing.T) {
	h := newHarness(t)

	_, err := NewPipeline(h.cfg, h.client, nil, nil).Run(context.Background())
	require.NoError(t, err)
	first, err := graph.Load(h.cfg.Output)
	require.NoError(t, err)

	_, err = NewPipeline(h.cfg, h.client, nil, nil).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(h.cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(string(data), "# batch "))

	second, err := graph.Load(h.cfg.Output)
	require.NoError(t, err)
	assert.True(t, first.Equal(second), "reruns only duplicate statements")
}

func TestRun_TruncateStartsFresh(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.cfg.Output, []byte("# stale\n"), 0o644))

	p := NewPipeline(h.cfg, h.client, nil, nil)
	require.NoError(t, p.Truncate())
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(h.cfg.Output)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "# stale")
}

func TestRun_ResumeSkipsJournaledEntities(t *testing.T) {
	h := newHarness(t)
	h.cfg.Progress.Journal = filepath.Join(t.TempDir(), "journal.db")

	journal, err := progress.Open(h.cfg.Progress.Journal)
	require.NoError(t, err)
	defer func() { _ = journal.Close() }()

	first, err := NewPipeline(h.cfg, h.client, journal, nil).Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, 1, h.endpoint.hitCount("Lionel_Messi"))

	// The endpoint recovers; only the failed entity is looked up again
	h.endpoint.mu.Lock()
	h.endpoint.failing = map[string]bool{}
	h.endpoint.mu.Unlock()

	h.cfg.Progress.Resume = true
	second, err := NewPipeline(h.cfg, h.client, journal, nil).Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, 4, second.Skipped)
	assert.Equal(t, 1, second.Processed())
	assert.Empty(t, second.Failures())
	assert.Equal(t, 1, h.endpoint.hitCount("Lionel_Messi"))
	assert.Equal(t, 2, h.endpoint.hitCount("Kylian_Mbappe"))

	done, err := journal.Done(context.Background(), h.cfg.Output)
	require.NoError(t, err)
	assert.Len(t, done, 5)

	runs, err := journal.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.NotNil(t, r.FinishedAt)
	}
}

func TestRun_ResumeAgainstOtherOutputStartsOver(t *testing.T) {
	h := newHarness(t)
	h.cfg.Progress.Journal = filepath.Join(t.TempDir(), "journal.db")

	journal, err := progress.Open(h.cfg.Progress.Journal)
	require.NoError(t, err)
	defer func() { _ = journal.Close() }()

	_, err = NewPipeline(h.cfg, h.client, journal, nil).Run(context.Background())
	require.NoError(t, err)

	h.cfg.Output = filepath.Join(t.TempDir(), "elsewhere.ttl")
	h.cfg.Progress.Resume = true
	report, err := NewPipeline(h.cfg, h.client, journal, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Skipped)
	assert.Equal(t, 5, report.Processed())
	assert.Equal(t, 2, h.endpoint.hitCount("Lionel_Messi"))
}

func TestRun_RealisticResourceNamesReload(t *testing.T) {
	h := newHarness(t)
	h.endpoint.answers["Luka_Modric"] = `{` +
		`"position":{"type":"uri","value":"http://dbpedia.org/resource/Midfielder_(association_football)"},` +
		`"birthPlaceRaw":{"type":"literal","value":"Zadar, SR Croatia"},` +
		`"team":{"type":"uri","value":"http://dbpedia.org/resource/Real_Madrid_CF"}}`
	h.endpoint.answers["Andres_Iniesta"] = `{` +
		`"positionRaw":{"type":"literal","value":"Midfielder (association football)"},` +
		`"birthPlace":{"type":"uri","value":"http://dbpedia.org/resource/Fuentealbilla,_Albacete"},` +
		`"teamRaw":{"type":"literal","value":"Vissel Kobe F.C."}}`

	report, err := NewPipeline(h.cfg, h.client, nil, nil).Run(context.Background())
	require.NoError(t, err)

	out, err := graph.Load(h.cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, report.Statements(), out.Len())

	modric := mustIRI(t, "http://example.org/football/Luka_Modric")
	midfielder := mustIRI(t, "http://dbpedia.org/resource/Midfielder_(association_football)")
	assert.True(t, out.Has(rdf.Triple{Subj: modric, Pred: graph.Predicate(model.PropPosition), Obj: midfielder}))
	assert.True(t, out.Has(rdf.Triple{Subj: modric, Pred: graph.Predicate(model.PropBirthPlace), Obj: mustIRI(t, "http://dbpedia.org/resource/Zadar,_SR_Croatia")}))

	iniesta := mustIRI(t, "http://example.org/football/Andres_Iniesta")
	assert.True(t, out.Has(rdf.Triple{Subj: iniesta, Pred: graph.Predicate(model.PropPosition), Obj: midfielder}))
	assert.True(t, out.Has(rdf.Triple{Subj: iniesta, Pred: graph.Predicate(model.PropBirthPlace), Obj: mustIRI(t, "http://dbpedia.org/resource/Fuentealbilla,_Albacete")}))
	assert.True(t, out.Has(rdf.Triple{Subj: iniesta, Pred: graph.Predicate(model.PropTeam), Obj: mustIRI(t, "http://dbpedia.org/resource/Vissel_Kobe_F.C.")}))
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewPipeline(h.cfg, h.client, nil, nil).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, report.Batches)

	_, statErr := os.Stat(h.cfg.Output)
	assert.True(t, os.IsNotExist(statErr), "nothing is flushed after cancellation")
}

func TestRun_MissingInput(t *testing.T) {
	h := newHarness(t)
	h.cfg.Input = filepath.Join(t.TempDir(), "missing.ttl")

	report, err := NewPipeline(h.cfg, h.client, nil, nil).Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestRun_MalformedInput(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.cfg.Input, []byte("ex:broken ex:turtle ."), 0o644))

	_, err := NewPipeline(h.cfg, h.client, nil, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestRun_UnwritableOutputAborts(t *testing.T) {
	h := newHarness(t)
	h.cfg.Output = filepath.Join(t.TempDir(), "missing-dir", "out.ttl")

	report, err := NewPipeline(h.cfg, h.client, nil, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush batch 1")
	require.NotNil(t, report)
	assert.Empty(t, report.Batches)
}
