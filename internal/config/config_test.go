package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitegraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "content:\n  root: ./posts\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./posts", cfg.Content.Root)
	require.Equal(t, "./public", cfg.Output.Directory)
	require.Equal(t, ".sitegraph/cache.db", cfg.Output.CachePath)
	require.Equal(t, 4, cfg.Build.Workers)
	require.Equal(t, 30*time.Second, cfg.Build.RenderTimeout)
	require.Equal(t, "structural", cfg.References.TagLinks)
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidTagLinksRejected(t *testing.T) {
	path := writeConfig(t, "references:\n  tag_links: sideways\n")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "references")
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("BLOG_CONTENT", "/srv/blog/content")
	path := writeConfig(t, "content:\n  root: ${BLOG_CONTENT}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/srv/blog/content", cfg.Content.Root)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default("./content", "./public")
	require.NoError(t, cfg.Validate())
}
