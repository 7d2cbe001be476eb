package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/docmodel"
)

// ScanCmd implements the 'scan' command: discover and parse without building.
type ScanCmd struct {
	Content string `help:"Content root (overrides config)"`
}

func (s *ScanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if s.Content != "" {
		cfg.Content.Root = s.Content
	}

	scanner := content.NewScanner(cfg.Content.Root, cfg.Content.Extensions)
	result, err := scanner.Scan()
	if err != nil {
		return err
	}

	docs := docmodel.ParseAll(result.Units)
	for _, doc := range docs {
		status := "ok"
		if doc.Malformed {
			status = "malformed front matter"
		} else if doc.Metadata.Draft {
			status = "draft"
		}
		fmt.Fprintf(os.Stdout, "%s  %s  [%s]\n", doc.Source.Hash[:12], doc.Path, status)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stdout, "warning: %s: %s\n", w.Path, w.Reason)
	}
	fmt.Fprintf(os.Stdout, "%d units, %d warnings\n", len(result.Units), len(result.Warnings))
	return nil
}
