package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/catalog/engine/core"
)

func TestFileDiscoverer(t *testing.T) {
	t.Run("Should find nested files in sorted order", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "b/catalog-info.yaml", "")
		writeFile(t, root, "a/deep/catalog-info.yaml", "")
		writeFile(t, root, "catalog-info.yaml", "")
		writeFile(t, root, "a/other.yaml", "")
		files, err := NewFileDiscoverer(root).Discover([]string{"**/catalog-info.yaml"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "a/deep/catalog-info.yaml"),
			filepath.Join(root, "b/catalog-info.yaml"),
			filepath.Join(root, "catalog-info.yaml"),
		}, files)
	})

	t.Run("Should deduplicate overlapping patterns", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "x.yaml", "")
		files, err := NewFileDiscoverer(root).Discover([]string{"*.yaml", "**/*.yaml"}, nil)
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("Should apply user and default excludes", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "keep.yaml", "")
		writeFile(t, root, "vendor/skip.yaml", "")
		writeFile(t, root, "backup.yaml~", "")
		writeFile(t, root, "old.bak", "")
		files, err := NewFileDiscoverer(root).Discover([]string{"**/*"}, []string{"vendor/**"})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "keep.yaml")}, files)
	})

	t.Run("Should not return directories", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "dir.yaml/inner.txt", "")
		files, err := NewFileDiscoverer(root).Discover([]string{"*.yaml"}, nil)
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("Should reject absolute and traversal patterns", func(t *testing.T) {
		root := t.TempDir()
		for _, pattern := range []string{"/etc/*.yaml", "../*.yaml", "a/../../*.yaml"} {
			_, err := NewFileDiscoverer(root).Discover([]string{pattern}, nil)
			var coded *core.Error
			require.ErrorAs(t, err, &coded, pattern)
			assert.Equal(t, ErrCodeInvalidPattern, coded.Code, pattern)
		}
	})

	t.Run("Should return nothing without includes", func(t *testing.T) {
		files, err := NewFileDiscoverer(t.TempDir()).Discover(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}
