package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitegraph/internal/config"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitegraph.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Build the site incrementally from the content root"`
	Scan  ScanCmd  `cmd:"" help:"List discovered content units without building"`
	Watch WatchCmd `cmd:"" help:"Rebuild continuously on content changes"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads the config file, falling back to defaults when the default
// config path does not exist and no explicit path was given.
func loadConfig(path string) (*config.Config, error) {
	if path == "sitegraph.yaml" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default("./content", "./public"), nil
		}
	}
	return config.Load(path)
}
