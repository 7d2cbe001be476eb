package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegraph/internal/cache"
	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/docmodel"
	"git.home.luguber.info/inful/sitegraph/internal/frontmatter"
	"git.home.luguber.info/inful/sitegraph/internal/graph"
	"git.home.luguber.info/inful/sitegraph/internal/render"
	"git.home.luguber.info/inful/sitegraph/internal/report"
)

type fakeRenderer struct {
	mu        sync.Mutex
	calls     []string
	failPaths map[string]bool
	blocking  bool
}

func (f *fakeRenderer) Render(ctx context.Context, doc *docmodel.Document, _ map[string]*docmodel.Document) (render.Output, error) {
	if f.blocking {
		<-ctx.Done()
		return render.Output{}, ctx.Err()
	}
	f.mu.Lock()
	f.calls = append(f.calls, doc.Path)
	f.mu.Unlock()

	if f.failPaths[doc.Path] {
		return render.Output{}, errors.New("render exploded")
	}
	data := []byte("out:" + doc.Path)
	return render.Output{Data: data, Hash: content.HashBytes(data)}, nil
}

func (f *fakeRenderer) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeWriter struct {
	mu     sync.Mutex
	writes map[string][]byte
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{writes: map[string][]byte{}}
}

func (w *fakeWriter) Write(relPath string, out render.Output) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes[relPath] = out.Data
	return nil
}

type nodeSpec struct {
	path      string
	body      string
	dependsOn []string
	malformed bool
}

func buildGraph(t *testing.T, specs ...nodeSpec) *graph.BuildGraph {
	t.Helper()
	docs := make([]*docmodel.Document, 0, len(specs))
	for _, spec := range specs {
		unit := &content.ContentUnit{
			RelativePath: spec.path,
			Raw:          []byte(spec.body),
			Hash:         content.HashBytes([]byte(spec.body)),
		}
		if spec.malformed {
			docs = append(docs, docmodel.NewPlaceholder(unit, errors.New("unclosed delimiter")))
			continue
		}
		md := frontmatter.NewMetadata()
		md.Related = spec.dependsOn
		docs = append(docs, docmodel.New(unit, md, []byte(spec.body)))
	}

	g, err := graph.Build(docs, graph.Options{})
	require.NoError(t, err)
	return g
}

func cachedFor(g *graph.BuildGraph, paths ...string) map[string]cache.Entry {
	entries := map[string]cache.Entry{}
	for _, p := range paths {
		entries[p] = cache.Entry{
			Path:        p,
			ContentHash: g.Node(p).Doc.Source.Hash,
			OutputHash:  "prev-output",
			RenderedAt:  time.Now(),
		}
	}
	return entries
}

func TestRun_AllClean_ZeroRenderCalls(t *testing.T) {
	g := buildGraph(t,
		nodeSpec{path: "a.md", body: "A", dependsOn: []string{"b.md"}},
		nodeSpec{path: "b.md", body: "B"},
	)
	renderer := &fakeRenderer{}
	rep := report.New("test")

	s := New(g, renderer, newFakeWriter(), cachedFor(g, "a.md", "b.md"), Options{})
	entries := s.Run(context.Background(), rep)
	s.FinalizeCounts(rep)

	require.Empty(t, renderer.callList())
	require.Equal(t, 2, rep.Clean)
	require.Zero(t, rep.Rendered)
	require.Equal(t, StateClean, s.State("a.md"))
	require.Equal(t, StateClean, s.State("b.md"))
	// Clean entries are still flushed at build end.
	require.Len(t, entries, 2)
	require.Equal(t, report.ExitOK, rep.ExitCode())
}

func TestRun_DirtyClosure_DependentRenderedAfterDependency(t *testing.T) {
	g := buildGraph(t,
		nodeSpec{path: "a.md", body: "A", dependsOn: []string{"b.md"}},
		nodeSpec{path: "b.md", body: "B-changed"},
	)
	cached := cachedFor(g, "a.md")
	cached["b.md"] = cache.Entry{Path: "b.md", ContentHash: "stale-hash", OutputHash: "x"}

	renderer := &fakeRenderer{}
	rep := report.New("test")

	s := New(g, renderer, newFakeWriter(), cached, Options{})
	entries := s.Run(context.Background(), rep)

	calls := renderer.callList()
	require.Equal(t, []string{"b.md", "a.md"}, calls)
	require.Equal(t, StateRendered, s.State("a.md"))
	require.Equal(t, StateRendered, s.State("b.md"))
	require.Equal(t, 2, rep.Rendered)
	require.Len(t, entries, 2)
}

func TestRun_PartialFailure_PoisonsDependentsOnly(t *testing.T) {
	g := buildGraph(t,
		nodeSpec{path: "x.md", body: "X"},
		nodeSpec{path: "y.md", body: "Y"},
		nodeSpec{path: "z.md", body: "Z", dependsOn: []string{"x.md"}},
	)
	renderer := &fakeRenderer{failPaths: map[string]bool{"x.md": true}}
	rep := report.New("test")

	s := New(g, renderer, newFakeWriter(), nil, Options{})
	entries := s.Run(context.Background(), rep)
	s.FinalizeCounts(rep)

	require.Equal(t, StateFailed, s.State("x.md"))
	require.Equal(t, StateFailedDependency, s.State("z.md"))
	require.Equal(t, StateRendered, s.State("y.md"))
	require.NotContains(t, renderer.callList(), "z.md")

	// Only y.md earns a cache entry; x.md and z.md retry next pass.
	require.Len(t, entries, 1)
	require.Equal(t, "y.md", entries[0].Path)
	require.Equal(t, report.ExitNodeFailures, rep.ExitCode())
	require.Equal(t, 1, rep.Failed)
	require.Equal(t, 1, rep.Poisoned)
}

func TestRun_MalformedDocument_FailsWithoutRenderAndPoisons(t *testing.T) {
	g := buildGraph(t,
		nodeSpec{path: "bad.md", body: "---\nbroken", malformed: true},
		nodeSpec{path: "dep.md", body: "D", dependsOn: []string{"bad.md"}},
	)
	renderer := &fakeRenderer{}
	rep := report.New("test")

	s := New(g, renderer, newFakeWriter(), nil, Options{})
	s.Run(context.Background(), rep)
	s.FinalizeCounts(rep)

	require.Equal(t, StateFailed, s.State("bad.md"))
	require.Equal(t, StateFailedDependency, s.State("dep.md"))
	require.Empty(t, renderer.callList())
	require.Equal(t, report.ExitNodeFailures, rep.ExitCode())
}

func TestRun_CanceledContext_AdmitsNothing(t *testing.T) {
	g := buildGraph(t, nodeSpec{path: "a.md", body: "A"})
	renderer := &fakeRenderer{}
	rep := report.New("test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(g, renderer, newFakeWriter(), nil, Options{})
	entries := s.Run(ctx, rep)

	require.Empty(t, renderer.callList())
	require.Empty(t, entries)
	require.True(t, rep.Canceled)
}

func TestRun_RenderTimeout_ConvertsToFailed(t *testing.T) {
	g := buildGraph(t, nodeSpec{path: "stuck.md", body: "S"})
	renderer := &fakeRenderer{blocking: true}
	rep := report.New("test")

	s := New(g, renderer, newFakeWriter(), nil, Options{RenderTimeout: 50 * time.Millisecond})
	s.Run(context.Background(), rep)

	require.Equal(t, StateFailed, s.State("stuck.md"))
	require.Equal(t, 1, rep.Failed)
}

func TestRun_WriteFailure_TreatedLikeRenderFailure(t *testing.T) {
	g := buildGraph(t,
		nodeSpec{path: "x.md", body: "X"},
		nodeSpec{path: "z.md", body: "Z", dependsOn: []string{"x.md"}},
	)
	renderer := &fakeRenderer{}
	rep := report.New("test")

	s := New(g, renderer, failingWriter{}, nil, Options{})
	s.Run(context.Background(), rep)
	s.FinalizeCounts(rep)

	require.Equal(t, StateFailed, s.State("x.md"))
	require.Equal(t, StateFailedDependency, s.State("z.md"))
}

type failingWriter struct{}

func (failingWriter) Write(string, render.Output) error {
	return errors.New("disk full")
}
