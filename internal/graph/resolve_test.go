package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuild_TagNeighbours_Structural(t *testing.T) {
	docs := makeDocs(t,
		docSpec{path: "posts/first.md", tags: []string{"go"}, date: "2024-01-01"},
		docSpec{path: "posts/second.md", tags: []string{"go"}, date: "2024-02-01"},
		docSpec{path: "posts/third.md", tags: []string{"go"}, date: "2024-03-01"},
		docSpec{path: "posts/other.md", tags: []string{"rust"}, date: "2024-01-15"},
	)

	g, err := Build(docs, Options{TagLinks: ReferenceModeStructural})
	require.NoError(t, err)

	// Each post depends on its predecessor by date within the tag.
	require.Empty(t, g.Nodes["posts/first.md"].DependsOn)
	require.Equal(t, []string{"posts/first.md"}, g.Nodes["posts/second.md"].DependsOn)
	require.Equal(t, []string{"posts/second.md"}, g.Nodes["posts/third.md"].DependsOn)
	require.Empty(t, g.Nodes["posts/other.md"].DependsOn)
}

func TestBuild_TagNeighbours_Presentational_NoEdges(t *testing.T) {
	docs := makeDocs(t,
		docSpec{path: "posts/first.md", tags: []string{"go"}, date: "2024-01-01"},
		docSpec{path: "posts/second.md", tags: []string{"go"}, date: "2024-02-01"},
	)

	g, err := Build(docs, Options{TagLinks: ReferenceModePresentational})
	require.NoError(t, err)
	require.Empty(t, g.Nodes["posts/second.md"].DependsOn)
}

func TestBuild_TagNeighbours_DraftsExcluded(t *testing.T) {
	docs := makeDocs(t,
		docSpec{path: "posts/first.md", tags: []string{"go"}, date: "2024-01-01"},
		docSpec{path: "posts/wip.md", tags: []string{"go"}, date: "2024-01-15", draft: true},
		docSpec{path: "posts/second.md", tags: []string{"go"}, date: "2024-02-01"},
	)

	g, err := Build(docs, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"posts/first.md"}, g.Nodes["posts/second.md"].DependsOn)
	require.Empty(t, g.Nodes["posts/wip.md"].DependsOn)
}

func TestBuild_TagNeighbours_SameDateTieBrokenByPath(t *testing.T) {
	docs := makeDocs(t,
		docSpec{path: "posts/b.md", tags: []string{"go"}, date: "2024-01-01"},
		docSpec{path: "posts/a.md", tags: []string{"go"}, date: "2024-01-01"},
	)

	g, err := Build(docs, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"posts/a.md"}, g.Nodes["posts/b.md"].DependsOn)
}

func TestBuild_ExplicitAndImplicitEdgesDeduplicated(t *testing.T) {
	docs := makeDocs(t,
		docSpec{path: "posts/first.md", tags: []string{"go"}, date: "2024-01-01"},
		docSpec{path: "posts/second.md", tags: []string{"go"}, date: "2024-02-01",
			related: []string{"posts/first.md"}},
	)

	g, err := Build(docs, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"posts/first.md"}, g.Nodes["posts/second.md"].DependsOn)
}
