// Package graph derives the build graph for a content set: explicit related
// links plus implicit same-tag neighbour references, topologically ordered.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitegraph/internal/docmodel"
)

// BuildNode wraps a Document plus the ordered list of paths it depends on.
// Node identity is the document path.
type BuildNode struct {
	Doc       *docmodel.Document
	DependsOn []string
}

// Warning records a dropped reference. Non-fatal: content pointing at a
// since-removed post must not break the whole build.
type Warning struct {
	Path   string
	Target string
	Reason string
}

// BuildGraph is the full node set plus its derived topological order.
// Rebuilt once per build invocation; never persisted.
type BuildGraph struct {
	Nodes    map[string]*BuildNode
	Order    []string
	Warnings []Warning

	dependents map[string][]string
}

// CycleError is fatal to the whole build: with a cycle there is no
// well-defined render order. Members are rotated so the lexicographically
// smallest path comes first.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Members, " -> "))
}

// Node returns the node for path, or nil.
func (g *BuildGraph) Node(path string) *BuildNode {
	return g.Nodes[path]
}

// Dependents returns the paths that directly depend on path, sorted.
func (g *BuildGraph) Dependents(path string) []string {
	return g.dependents[path]
}

// topoSort orders nodes so every dependency precedes its dependents, using
// Kahn's algorithm with a sorted ready-queue for deterministic output. On a
// cycle it returns *CycleError naming the members.
func (g *BuildGraph) topoSort() error {
	inDegree := make(map[string]int, len(g.Nodes))
	for path := range g.Nodes {
		inDegree[path] = len(g.Nodes[path].DependsOn)
	}

	g.dependents = make(map[string][]string, len(g.Nodes))
	for path, node := range g.Nodes {
		for _, dep := range node.DependsOn {
			g.dependents[dep] = append(g.dependents[dep], path)
		}
	}
	for _, deps := range g.dependents {
		sort.Strings(deps)
	}

	var queue []string
	for path, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, path)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.Nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, dependent := range g.dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
				sort.Strings(queue)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return &CycleError{Members: g.findCycle(inDegree)}
	}

	g.Order = order
	return nil
}

// findCycle walks the residual subgraph (nodes with remaining in-degree) to
// recover one concrete cycle for the error message.
func (g *BuildGraph) findCycle(inDegree map[string]int) []string {
	var residual []string
	for path, deg := range inDegree {
		if deg > 0 {
			residual = append(residual, path)
		}
	}
	sort.Strings(residual)
	inResidual := make(map[string]bool, len(residual))
	for _, p := range residual {
		inResidual[p] = true
	}

	// Follow dependency edges from the smallest residual node; the walk must
	// revisit a node, and the revisited suffix is a cycle.
	seenAt := map[string]int{}
	var walk []string
	current := residual[0]
	for {
		if at, ok := seenAt[current]; ok {
			return rotateToSmallest(walk[at:])
		}
		seenAt[current] = len(walk)
		walk = append(walk, current)

		next := ""
		for _, dep := range g.Nodes[current].DependsOn {
			if inResidual[dep] {
				if next == "" || dep < next {
					next = dep
				}
			}
		}
		if next == "" {
			// Should not happen: residual nodes always have a residual dep.
			return rotateToSmallest(walk)
		}
		current = next
	}
}

func rotateToSmallest(cycle []string) []string {
	if len(cycle) == 0 {
		return cycle
	}
	smallest := 0
	for i, p := range cycle {
		if p < cycle[smallest] {
			smallest = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[smallest:]...)
	out = append(out, cycle[:smallest]...)
	return out
}
