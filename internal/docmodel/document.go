// Package docmodel defines the Document value flowing between the parser, the
// graph builder and the scheduler.
package docmodel

import (
	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/frontmatter"
)

// Document is one parsed content unit. Created once per unit per build pass
// and immutable after creation. Source is a back-reference only; the scanner
// retains ownership of the unit.
type Document struct {
	Path     string
	Metadata frontmatter.Metadata
	Body     []byte
	Source   *content.ContentUnit

	// Malformed is set when front matter parsing failed for this unit. The
	// document then acts as a placeholder: it participates in the graph so
	// dependents are poisoned deterministically, but it is never rendered.
	Malformed bool
	ParseErr  error
}

// New builds a Document from a parsed unit.
func New(unit *content.ContentUnit, md frontmatter.Metadata, body []byte) *Document {
	return &Document{
		Path:     unit.RelativePath,
		Metadata: md,
		Body:     body,
		Source:   unit,
	}
}

// NewPlaceholder builds the flagged stand-in for a unit whose front matter
// could not be parsed.
func NewPlaceholder(unit *content.ContentUnit, parseErr error) *Document {
	return &Document{
		Path:      unit.RelativePath,
		Metadata:  frontmatter.NewMetadata(),
		Source:    unit,
		Malformed: true,
		ParseErr:  parseErr,
	}
}

// ParseAll turns scanned units into Documents. Malformed units become flagged
// placeholders rather than aborting the pass.
func ParseAll(units []content.ContentUnit) []*Document {
	docs := make([]*Document, 0, len(units))
	for i := range units {
		unit := &units[i]
		md, body, err := frontmatter.Parse(unit.RelativePath, unit.Raw)
		if err != nil {
			docs = append(docs, NewPlaceholder(unit, err))
			continue
		}
		docs = append(docs, New(unit, md, body))
	}
	return docs
}
