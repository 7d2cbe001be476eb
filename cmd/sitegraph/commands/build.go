package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitegraph/internal/build"
	"git.home.luguber.info/inful/sitegraph/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Content string `help:"Content root (overrides config)"`
	Output  string `short:"o" help:"Output directory (overrides config)"`
	Metrics bool   `help:"Record Prometheus build metrics"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if b.Content != "" {
		cfg.Content.Root = b.Content
	}
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var opts []build.Option
	if b.Metrics {
		opts = append(opts, build.WithRecorder(metrics.NewPrometheusRecorder(nil)))
	}

	rep, err := build.NewService(cfg, opts...).Run(ctx)
	if err != nil {
		return err
	}

	rep.WriteSummary(os.Stdout)
	// Exit code contract: 0 clean, 1 cycle (always aborts), 2 when any node
	// ended Failed or FailedDependency but the build otherwise completed.
	if code := rep.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}
