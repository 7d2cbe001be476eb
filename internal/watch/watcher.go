// Package watch rebuilds the site when the content root changes.
//
// Filesystem events are coalesced with a quiet-window debounce bounded by a
// max delay, so a burst of editor writes triggers one rebuild, and an
// optional periodic full rebuild runs regardless of events.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitegraph/internal/logfields"
)

// Options tunes event coalescing.
type Options struct {
	// QuietWindow is the silence required after the last event before a
	// rebuild fires.
	QuietWindow time.Duration
	// MaxDelay bounds how long a steady stream of events can postpone a
	// rebuild.
	MaxDelay time.Duration
	// RebuildInterval schedules periodic full rebuilds; 0 disables them.
	RebuildInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.QuietWindow <= 0 {
		o.QuietWindow = 500 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 5 * time.Second
	}
}

// RebuildFunc runs one build pass. Errors are logged, not propagated: watch
// mode keeps running across failed builds.
type RebuildFunc func(ctx context.Context) error

// Watcher drives rebuilds from content changes. Run is single-goroutine; the
// rebuild function is invoked inline so builds never overlap.
type Watcher struct {
	root    string
	opts    Options
	rebuild RebuildFunc
}

// New creates a watcher over the content root.
func New(root string, opts Options, rebuild RebuildFunc) (*Watcher, error) {
	if rebuild == nil {
		return nil, fmt.Errorf("rebuild function is required")
	}
	opts.applyDefaults()
	return &Watcher{root: root, opts: opts, rebuild: rebuild}, nil
}

// Run watches until ctx is canceled. An initial build runs before watching so
// the output tree is current from the start.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create filesystem watcher: %w", err)
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			slog.Warn("Failed to close filesystem watcher", logfields.Error(err))
		}
	}()

	if err := w.addRecursive(fsw, w.root); err != nil {
		return err
	}

	// Periodic full rebuild, delivered into the same loop as fs events so
	// builds stay serialized.
	forced := make(chan struct{}, 1)
	if w.opts.RebuildInterval > 0 {
		sched, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create rebuild scheduler: %w", err)
		}
		_, err = sched.NewJob(
			gocron.DurationJob(w.opts.RebuildInterval),
			gocron.NewTask(func() {
				select {
				case forced <- struct{}{}:
				default:
				}
			}),
			gocron.WithName("periodic-rebuild"),
		)
		if err != nil {
			return fmt.Errorf("schedule periodic rebuild: %w", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				slog.Warn("Failed to stop rebuild scheduler", logfields.Error(err))
			}
		}()
	}

	w.runBuild(ctx, "startup")

	var (
		pending bool
		firstAt time.Time
		timer   = time.NewTimer(0)
	)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-forced:
			w.runBuild(ctx, "schedule")

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				// New directories must be watched explicitly; fsnotify is
				// not recursive.
				if err := w.addRecursive(fsw, event.Name); err != nil {
					slog.Debug("Could not watch new path", logfields.Path(event.Name), logfields.Error(err))
				}
			}

			now := time.Now()
			if !pending {
				pending = true
				firstAt = now
			}
			if now.Sub(firstAt) >= w.opts.MaxDelay {
				stopTimer(timer)
				pending = false
				w.runBuild(ctx, "change")
				continue
			}
			stopTimer(timer)
			timer.Reset(w.opts.QuietWindow)

		case <-timer.C:
			if pending {
				pending = false
				w.runBuild(ctx, "change")
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Filesystem watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) runBuild(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	slog.Info("Rebuilding", slog.String("reason", reason))
	if err := w.rebuild(ctx); err != nil {
		slog.Error("Rebuild failed", logfields.Error(err))
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename)
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtrees are skipped, not fatal
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
