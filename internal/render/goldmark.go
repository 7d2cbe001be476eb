package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"path"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/docmodel"
)

// HTMLRenderer is the default Renderer: Goldmark markdown to a minimal HTML
// page, with resolved dependencies surfaced as a related-posts list.
type HTMLRenderer struct {
	md goldmark.Markdown
}

// NewHTMLRenderer creates the default markdown renderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{md: goldmark.New()}
}

// Render converts doc's body to HTML.
func (r *HTMLRenderer) Render(ctx context.Context, doc *docmodel.Document, deps map[string]*docmodel.Document) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	var body bytes.Buffer
	if err := r.md.Convert(doc.Body, &body); err != nil {
		return Output{}, fmt.Errorf("convert markdown for %s: %w", doc.Path, err)
	}

	title := doc.Metadata.Title
	if title == "" {
		title = doc.Path
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head><title>%s</title></head>\n<body>\n", html.EscapeString(title))
	fmt.Fprintf(&page, "<h1>%s</h1>\n", html.EscapeString(title))
	page.Write(body.Bytes())

	if len(deps) > 0 {
		// Embed dependency titles so a changed dependency genuinely changes
		// this page's output.
		paths := make([]string, 0, len(deps))
		for p := range deps {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		page.WriteString("<nav class=\"related\"><ul>\n")
		for _, p := range paths {
			dep := deps[p]
			depTitle := dep.Metadata.Title
			if depTitle == "" {
				depTitle = dep.Path
			}
			fmt.Fprintf(&page, "<li><a href=\"%s\">%s</a></li>\n",
				html.EscapeString(OutputPath(dep.Path)), html.EscapeString(depTitle))
		}
		page.WriteString("</ul></nav>\n")
	}

	page.WriteString("</body>\n</html>\n")

	data := page.Bytes()
	return Output{Data: data, Hash: content.HashBytes(data)}, nil
}

// OutputPath maps a content-relative source path to its output-relative path.
func OutputPath(sourcePath string) string {
	ext := path.Ext(sourcePath)
	return strings.TrimSuffix(sourcePath, ext) + ".html"
}
