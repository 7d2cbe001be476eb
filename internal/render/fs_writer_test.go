package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFSWriter_CreatesNestedOutputTree(t *testing.T) {
	root := t.TempDir()
	w := NewFSWriter(root)

	err := w.Write("posts/2024/a.html", Output{Data: []byte("<html/>")})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "posts", "2024", "a.html"))
	require.NoError(t, err)
	require.Equal(t, "<html/>", string(data))
}

func TestFSWriter_OverwritesExisting(t *testing.T) {
	root := t.TempDir()
	w := NewFSWriter(root)

	require.NoError(t, w.Write("a.html", Output{Data: []byte("one")}))
	require.NoError(t, w.Write("a.html", Output{Data: []byte("two")}))

	data, err := os.ReadFile(filepath.Join(root, "a.html"))
	require.NoError(t, err)
	require.Equal(t, "two", string(data))
}
