// Package build wires the scan, parse, graph and schedule steps into one
// build pass.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegraph/internal/cache"
	"git.home.luguber.info/inful/sitegraph/internal/config"
	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/docmodel"
	"git.home.luguber.info/inful/sitegraph/internal/graph"
	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/metrics"
	"git.home.luguber.info/inful/sitegraph/internal/render"
	"git.home.luguber.info/inful/sitegraph/internal/report"
	"git.home.luguber.info/inful/sitegraph/internal/scheduler"
)

// Service runs build passes for one configuration.
type Service struct {
	cfg      *config.Config
	renderer render.Renderer
	writer   render.Writer
	recorder metrics.Recorder

	// lastSetDigest is the content-set digest of the most recent fully
	// successful pass; a matching scan lets Run return without touching the
	// graph or the cache. Passes with any failure never record it, so retries
	// are not skipped. Callers serialize Run invocations.
	lastSetDigest string
}

// Option customises a Service.
type Option func(*Service)

// WithRenderer replaces the default markdown renderer.
func WithRenderer(r render.Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithWriter replaces the default filesystem output writer.
func WithWriter(w render.Writer) Option {
	return func(s *Service) { s.writer = w }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(s *Service) { s.recorder = rec }
}

// NewService creates a build service with the default collaborators.
func NewService(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		renderer: render.NewHTMLRenderer(),
		writer:   render.NewFSWriter(cfg.Output.Directory),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one full pass: scan, parse, resolve, schedule, flush cache.
//
// The returned report is non-nil whenever the pass got far enough to have
// per-path results; its ExitCode carries the CLI contract (0 clean, 1 cycle,
// 2 node failures). The error return is reserved for structural problems
// (unreadable root, unusable cache) that abort before any per-node work.
func (s *Service) Run(ctx context.Context) (*report.BuildReport, error) {
	buildID := uuid.NewString()[:8]
	rep := report.New(buildID)
	defer rep.Finish()

	slog.Info("Starting build pass", logfields.BuildID(buildID))
	start := time.Now()

	scanner := content.NewScanner(s.cfg.Content.Root, s.cfg.Content.Extensions)
	scanned, err := scanner.Scan()
	if err != nil {
		return nil, err
	}
	rep.Scanned = len(scanned.Units)
	for _, w := range scanned.Warnings {
		rep.AddWarning(w.Path, "skipped: %s", w.Reason)
	}

	setDigest := content.HashUnits(scanned.Units)
	if setDigest == s.lastSetDigest {
		rep.Clean = len(scanned.Units)
		s.recorder.IncBuildOutcome(string(rep.Outcome()))
		slog.Info("Content set unchanged, pass skipped",
			logfields.BuildID(buildID),
			slog.Int("units", len(scanned.Units)))
		return rep, nil
	}

	docs := docmodel.ParseAll(scanned.Units)
	for _, doc := range docs {
		for _, fw := range doc.Metadata.Warnings {
			rep.AddWarning(doc.Path, "field %s ignored: %s", fw.Field, fw.Reason)
		}
	}

	g, err := graph.Build(docs, graph.Options{
		TagLinks: graph.ReferenceMode(s.cfg.References.TagLinks),
	})
	if err != nil {
		var cycleErr *graph.CycleError
		if errors.As(err, &cycleErr) {
			// No well-defined render order exists; abort with zero renders.
			rep.CycleErr = cycleErr
			s.recorder.IncBuildOutcome(string(rep.Outcome()))
			return rep, nil
		}
		return nil, err
	}
	for _, w := range g.Warnings {
		rep.AddWarning(w.Path, "reference to %s dropped: %s", w.Target, w.Reason)
	}

	store, err := cache.Open(s.cfg.Output.CachePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close build cache", logfields.Error(err))
		}
	}()

	cached, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load build cache: %w", err)
	}

	sched := scheduler.New(g, s.renderer, s.writer, cached, scheduler.Options{
		Workers:       s.cfg.Build.Workers,
		RenderTimeout: s.cfg.Build.RenderTimeout,
		Recorder:      s.recorder,
	})
	entries := sched.Run(ctx, rep)
	sched.FinalizeCounts(rep)

	// Flush covers rendered and clean nodes only; failed and skipped entries
	// stay untouched so the next pass retries them.
	if err := store.Flush(context.WithoutCancel(ctx), entries); err != nil {
		return nil, fmt.Errorf("flush build cache: %w", err)
	}

	// Entries for paths no longer in the content set are pruned so the cache
	// does not accumulate removed posts.
	for path := range cached {
		if _, ok := g.Nodes[path]; ok {
			continue
		}
		if err := store.Delete(context.WithoutCancel(ctx), path); err != nil {
			slog.Warn("Failed to prune stale cache entry", logfields.Path(path), logfields.Error(err))
			continue
		}
		slog.Debug("Pruned stale cache entry", logfields.Path(path))
	}

	if rep.Outcome() == report.OutcomeSuccess {
		s.lastSetDigest = setDigest
	}

	s.recorder.ObserveBuildDuration(time.Since(start))
	s.recorder.IncBuildOutcome(string(rep.Outcome()))

	slog.Info("Build pass finished",
		logfields.BuildID(buildID),
		logfields.State(string(rep.Outcome())),
		slog.Int("rendered", rep.Rendered),
		slog.Int("clean", rep.Clean),
		slog.Int("failed", rep.Failed+rep.Poisoned),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return rep, nil
}
