// Package render defines the narrow rendering and output-writing capabilities
// the scheduler depends on, plus their default implementations.
package render

import (
	"context"

	"git.home.luguber.info/inful/sitegraph/internal/docmodel"
)

// Output is the rendered form of one document.
type Output struct {
	Data []byte
	Hash string
}

// Renderer turns a document into output. The scheduler supplies the resolved
// dependency documents so implementations never re-read the graph.
//
// Implementations must honor ctx; the scheduler bounds each call with a
// per-node timeout.
type Renderer interface {
	Render(ctx context.Context, doc *docmodel.Document, deps map[string]*docmodel.Document) (Output, error)
}

// Writer persists rendered output into the output tree. A write failure is
// treated exactly like a render failure: it poisons dependents.
type Writer interface {
	Write(relPath string, out Output) error
}
