package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestFindFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.cdef"))
	touch(t, filepath.Join(dir, "nested/b.cdef"))
	touch(t, filepath.Join(dir, "nested/c.adef"))

	files, err := FindFilesByExtension(dir, ".cdef")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	assert.Panics(t, func() { FindFilesByExtension(dir, "") })
}

func TestResolveDefFile(t *testing.T) {
	t.Run("file passes through", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hello.adef")
		touch(t, path)

		got, err := ResolveDefFile(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("directory with one definition", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, filepath.Join(dir, "hello.adef"))

		got, err := ResolveDefFile(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "hello.adef"), got)
	})

	t.Run("system wins over app", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, filepath.Join(dir, "sys.sdef"))
		touch(t, filepath.Join(dir, "hello.adef"))

		got, err := ResolveDefFile(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "sys.sdef"), got)
	})

	t.Run("ambiguous", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, filepath.Join(dir, "a.adef"))
		touch(t, filepath.Join(dir, "b.adef"))

		_, err := ResolveDefFile(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "contains more than one .adef file")
	})

	t.Run("empty directory", func(t *testing.T) {
		dir := t.TempDir()
		_, err := ResolveDefFile(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no definition file found")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := ResolveDefFile(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "can't access")
	})
}
