package render

import (
	"fmt"
	"os"
	"path/filepath"
)

// FSWriter writes rendered output under a root directory, creating parent
// directories as needed.
type FSWriter struct {
	root string
}

// NewFSWriter creates a writer rooted at root.
func NewFSWriter(root string) *FSWriter {
	return &FSWriter{root: root}
}

// Write persists one rendered page at relPath under the output root.
func (w *FSWriter) Write(relPath string, out Output) error {
	target := filepath.Join(w.root, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("create output directory for %s: %w", relPath, err)
	}
	if err := os.WriteFile(target, out.Data, 0600); err != nil {
		return fmt.Errorf("write output %s: %w", relPath, err)
	}
	return nil
}
