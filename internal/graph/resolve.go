package graph

import (
	"log/slog"
	"sort"

	"git.home.luguber.info/inful/sitegraph/internal/docmodel"
	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/util/sets"
)

// ReferenceMode controls whether implicit same-tag neighbour references become
// graph edges (structural, cycle-checked) or are left to presentation.
type ReferenceMode string

const (
	ReferenceModeStructural     ReferenceMode = "structural"
	ReferenceModePresentational ReferenceMode = "presentational"
)

// Options configures reference resolution.
type Options struct {
	TagLinks ReferenceMode
}

// Build resolves references across the document set and returns the
// topologically ordered build graph.
//
// Unresolved references are dropped with a warning. A cycle returns
// *CycleError and no graph.
func Build(docs []*docmodel.Document, opts Options) (*BuildGraph, error) {
	if opts.TagLinks == "" {
		opts.TagLinks = ReferenceModeStructural
	}

	g := &BuildGraph{Nodes: make(map[string]*BuildNode, len(docs))}
	for _, doc := range docs {
		g.Nodes[doc.Path] = &BuildNode{Doc: doc}
	}

	for _, doc := range docs {
		node := g.Nodes[doc.Path]
		seen := sets.New[string]()

		for _, target := range doc.Metadata.Related {
			g.addEdge(node, target, seen, "related")
		}
	}

	if opts.TagLinks == ReferenceModeStructural {
		resolveTagNeighbours(g, docs)
	}

	if err := g.topoSort(); err != nil {
		return nil, err
	}
	return g, nil
}

// resolveTagNeighbours adds, per tag, an edge from each post to its
// predecessor by date within that tag, so a rendered page can embed its
// previous post. Drafts do not participate.
func resolveTagNeighbours(g *BuildGraph, docs []*docmodel.Document) {
	byTag := map[string][]*docmodel.Document{}
	for _, doc := range docs {
		if doc.Malformed || doc.Metadata.Draft {
			continue
		}
		for _, tag := range doc.Metadata.Tags {
			byTag[tag] = append(byTag[tag], doc)
		}
	}

	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for _, tag := range tags {
		posts := byTag[tag]
		sort.Slice(posts, func(i, j int) bool {
			if !posts[i].Metadata.Date.Equal(posts[j].Metadata.Date) {
				return posts[i].Metadata.Date.Before(posts[j].Metadata.Date)
			}
			return posts[i].Path < posts[j].Path
		})

		for i := 1; i < len(posts); i++ {
			node := g.Nodes[posts[i].Path]
			seen := sets.New[string](node.DependsOn...)
			g.addEdge(node, posts[i-1].Path, seen, "tag:"+tag)
		}
	}
}

func (g *BuildGraph) addEdge(node *BuildNode, target string, seen sets.Set[string], origin string) {
	if target == node.Doc.Path {
		g.warn(node.Doc.Path, target, "self reference ("+origin+")")
		return
	}
	if _, ok := g.Nodes[target]; !ok {
		g.warn(node.Doc.Path, target, "unresolved reference ("+origin+")")
		return
	}
	if seen.Has(target) {
		return
	}
	seen.Add(target)
	node.DependsOn = append(node.DependsOn, target)
}

func (g *BuildGraph) warn(path, target, reason string) {
	slog.Warn("Dropping reference", logfields.Path(path), slog.String("target", target), slog.String("reason", reason))
	g.Warnings = append(g.Warnings, Warning{Path: path, Target: target, Reason: reason})
}
