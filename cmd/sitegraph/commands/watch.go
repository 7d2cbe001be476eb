package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitegraph/internal/build"
	"git.home.luguber.info/inful/sitegraph/internal/metrics"
	"git.home.luguber.info/inful/sitegraph/internal/watch"
)

// WatchCmd implements the 'watch' command: continuous incremental rebuilds.
type WatchCmd struct {
	Content  string        `help:"Content root (overrides config)"`
	Output   string        `short:"o" help:"Output directory (overrides config)"`
	Interval time.Duration `help:"Periodic full rebuild interval (0 disables)"`
	Metrics  bool          `help:"Record Prometheus build metrics"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if w.Content != "" {
		cfg.Content.Root = w.Content
	}
	if w.Output != "" {
		cfg.Output.Directory = w.Output
	}
	if w.Interval > 0 {
		cfg.Watch.RebuildInterval = w.Interval
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var opts []build.Option
	if w.Metrics {
		opts = append(opts, build.WithRecorder(metrics.NewPrometheusRecorder(nil)))
	}

	svc := build.NewService(cfg, opts...)
	watcher, err := watch.New(cfg.Content.Root, watch.Options{
		QuietWindow:     cfg.Watch.QuietWindow,
		MaxDelay:        cfg.Watch.MaxDelay,
		RebuildInterval: cfg.Watch.RebuildInterval,
	}, func(ctx context.Context) error {
		rep, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		rep.WriteSummary(os.Stdout)
		return nil
	})
	if err != nil {
		return err
	}

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
