// Package scheduler computes the dirty closure of a build graph against the
// persisted cache and coordinates incremental rendering of its nodes.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"git.home.luguber.info/inful/sitegraph/internal/cache"
	"git.home.luguber.info/inful/sitegraph/internal/docmodel"
	"git.home.luguber.info/inful/sitegraph/internal/graph"
	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/metrics"
	"git.home.luguber.info/inful/sitegraph/internal/render"
	"git.home.luguber.info/inful/sitegraph/internal/report"
	"git.home.luguber.info/inful/sitegraph/internal/util/sets"
)

// Options tunes a scheduling pass.
type Options struct {
	// Workers bounds concurrent renders. Defaults to 4.
	Workers int
	// RenderTimeout converts a stuck render into a Failed node. Defaults to 30s.
	RenderTimeout time.Duration
	// Recorder receives build metrics. Defaults to the noop recorder.
	Recorder metrics.Recorder
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.RenderTimeout <= 0 {
		o.RenderTimeout = 30 * time.Second
	}
	if o.Recorder == nil {
		o.Recorder = metrics.NoopRecorder{}
	}
}

// Scheduler runs one incremental build pass over a graph. It is the sole
// mutator of node state; render workers communicate results back through a
// single channel and never touch shared graph state.
type Scheduler struct {
	graph    *graph.BuildGraph
	renderer render.Renderer
	writer   render.Writer
	cached   map[string]cache.Entry
	opts     Options

	states  map[string]NodeState
	results chan workResult
	workers workerGroup
	sem     *semaphore.Weighted
}

type workResult struct {
	path string
	out  render.Output
	err  error
}

// New creates a scheduler for one pass. cached is the entry set loaded at
// build start; it is never mutated, updated entries are returned by Run.
func New(g *graph.BuildGraph, renderer render.Renderer, writer render.Writer, cached map[string]cache.Entry, opts Options) *Scheduler {
	opts.applyDefaults()
	return &Scheduler{
		graph:    g,
		renderer: renderer,
		writer:   writer,
		cached:   cached,
		opts:     opts,
		states:   make(map[string]NodeState, len(g.Nodes)),
		results:  make(chan workResult),
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
	}
}

// State returns the current state of a node.
func (s *Scheduler) State(path string) NodeState {
	if st, ok := s.states[path]; ok {
		return st
	}
	return StateUnvisited
}

// Run executes the pass and returns the cache entries to flush (successfully
// rendered nodes plus retained clean entries). Failed and skipped nodes leave
// no entry, so the next invocation naturally reprocesses them.
//
// Cancellation via ctx lets in-flight renders finish but admits nothing new.
func (s *Scheduler) Run(ctx context.Context, rep *report.BuildReport) []cache.Entry {
	dirty := s.computeDirtyClosure(rep)
	s.opts.Recorder.SetGraphSize(len(s.graph.Nodes))

	var entries []cache.Entry

	// Clean nodes keep their cache entries; re-flushing them is what makes
	// the cache write at build end cover "rendered/clean nodes only".
	for _, path := range s.graph.Order {
		if s.states[path] == StateClean {
			rep.Clean++
			s.opts.Recorder.IncNodeResult(metrics.ResultClean)
			entries = append(entries, s.cached[path])
		}
	}

	pending := sets.New[string]()
	for path := range dirty {
		pending.Add(path)
	}

	inFlight := 0
	for len(pending) > 0 || inFlight > 0 {
		if ctx.Err() == nil {
			inFlight += s.admit(ctx, pending)
		}

		if inFlight == 0 {
			break
		}

		res := <-s.results
		inFlight--
		s.sem.Release(1)
		entries = s.applyResult(res, entries, rep)
	}

	// Drain boundary: all workers have reported by now, so this returns
	// immediately unless something leaked.
	if err := s.workers.StopAndWait(context.Background()); err != nil {
		slog.Warn("Render workers did not stop cleanly", logfields.Error(err))
	}

	if ctx.Err() != nil {
		rep.Canceled = true
		for path := range pending {
			if !s.states[path].Terminal() {
				rep.AddWarning(path, "skipped: build canceled")
			}
		}
	}

	return entries
}

// computeDirtyClosure marks every node Clean or Dirty: a node is dirty when
// its content hash differs from the cache or any dependency is dirty. The
// expansion runs to a fixed point along dependent edges.
func (s *Scheduler) computeDirtyClosure(rep *report.BuildReport) sets.Set[string] {
	dirty := sets.New[string]()
	var frontier []string

	for path, node := range s.graph.Nodes {
		entry, ok := s.cached[path]
		if node.Doc.Malformed || !ok || entry.ContentHash != node.Doc.Source.Hash {
			dirty.Add(path)
			frontier = append(frontier, path)
		}
	}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		for _, dependent := range s.graph.Dependents(current) {
			if dirty.Has(dependent) {
				continue
			}
			dirty.Add(dependent)
			frontier = append(frontier, dependent)
		}
	}

	for path := range s.graph.Nodes {
		if dirty.Has(path) {
			s.states[path] = StateDirty
		} else {
			s.states[path] = StateClean
		}
	}

	slog.Info("Dirty closure computed",
		logfields.BuildID(rep.BuildID),
		slog.Int("dirty", len(dirty)),
		slog.Int("clean", len(s.graph.Nodes)-len(dirty)))
	return dirty
}

// admit walks pending nodes in topological order and starts every eligible
// one: all dependencies terminal and a worker slot free. Nodes whose
// dependencies failed are resolved to FailedDependency without a render.
// Returns the number of workers started.
func (s *Scheduler) admit(ctx context.Context, pending sets.Set[string]) int {
	started := 0
	for _, path := range s.graph.Order {
		if !pending.Has(path) {
			continue
		}

		node := s.graph.Node(path)
		eligible := true
		poisoned := false
		for _, dep := range node.DependsOn {
			st := s.states[dep]
			if !st.Terminal() {
				eligible = false
				break
			}
			if st.failed() {
				poisoned = true
			}
		}
		if !eligible {
			continue
		}

		if poisoned {
			s.states[path] = StateFailedDependency
			pending.Delete(path)
			continue
		}

		if node.Doc.Malformed {
			s.states[path] = StateFailed
			pending.Delete(path)
			continue
		}

		if !s.sem.TryAcquire(1) {
			break
		}

		s.states[path] = StateRendering
		pending.Delete(path)
		s.startWorker(ctx, node)
		started++
	}
	return started
}

func (s *Scheduler) startWorker(ctx context.Context, node *graph.BuildNode) {
	deps := s.resolveDependencies(node)
	doc := node.Doc

	s.workers.Go(func() {
		// In-flight renders may finish after cancellation, so the timeout is
		// not derived from the build context's cancel.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RenderTimeout)
		defer cancel()

		done := make(chan workResult, 1)
		go func() {
			out, err := s.renderer.Render(rctx, doc, deps)
			done <- workResult{path: doc.Path, out: out, err: err}
		}()

		var res workResult
		select {
		case res = <-done:
		case <-rctx.Done():
			res = workResult{path: doc.Path, err: fmt.Errorf("render timed out after %s", s.opts.RenderTimeout)}
		}

		if res.err == nil {
			if err := s.writer.Write(render.OutputPath(doc.Path), res.out); err != nil {
				res.err = err
			}
		}

		s.results <- res
	})
}

// resolveDependencies materializes the dependency documents handed to the
// renderer, keyed by path.
func (s *Scheduler) resolveDependencies(node *graph.BuildNode) map[string]*docmodel.Document {
	deps := make(map[string]*docmodel.Document, len(node.DependsOn))
	for _, dep := range node.DependsOn {
		if depNode := s.graph.Node(dep); depNode != nil {
			deps[dep] = depNode.Doc
		}
	}
	return deps
}

func (s *Scheduler) applyResult(res workResult, entries []cache.Entry, rep *report.BuildReport) []cache.Entry {
	node := s.graph.Node(res.path)

	if res.err != nil {
		s.states[res.path] = StateFailed
		rep.Failed++
		rep.AddError(res.path, "render failed: %v", res.err)
		s.opts.Recorder.IncNodeResult(metrics.ResultFailed)
		slog.Error("Node render failed", logfields.Path(res.path), logfields.Error(res.err))
		return entries
	}

	s.states[res.path] = StateRendered
	rep.Rendered++
	s.opts.Recorder.IncNodeResult(metrics.ResultRendered)
	slog.Debug("Node rendered", logfields.Path(res.path))

	return append(entries, cache.Entry{
		Path:        res.path,
		ContentHash: node.Doc.Source.Hash,
		OutputHash:  res.out.Hash,
		RenderedAt:  time.Now(),
	})
}

// FinalizeCounts records terminal poison/failure states that never went
// through a render worker, so the report's totals cover every node.
func (s *Scheduler) FinalizeCounts(rep *report.BuildReport) {
	for path, st := range s.states {
		switch st {
		case StateFailedDependency:
			rep.Poisoned++
			rep.AddError(path, "not rendered: a dependency failed")
			s.opts.Recorder.IncNodeResult(metrics.ResultFailedDependency)
		case StateFailed:
			node := s.graph.Node(path)
			if node.Doc.Malformed {
				rep.Failed++
				rep.AddError(path, "front matter unusable: %v", node.Doc.ParseErr)
				s.opts.Recorder.IncNodeResult(metrics.ResultFailed)
			}
		}
	}
}
