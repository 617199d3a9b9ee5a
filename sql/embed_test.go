package sql

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource(t *testing.T) {
	t.Run("embedded", func(t *testing.T) {
		fsys, err := Source("embedded")
		require.NoError(t, err)

		entries, err := fs.Glob(fsys, "*.sql")
		require.NoError(t, err)
		assert.NotEmpty(t, entries)
	})

	t.Run("empty defaults to embedded", func(t *testing.T) {
		fsys, err := Source("")
		require.NoError(t, err)
		assert.Equal(t, FS, fsys)
	})

	t.Run("file directory", func(t *testing.T) {
		fsys, err := Source("file://" + t.TempDir())
		require.NoError(t, err)
		assert.NotNil(t, fsys)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := Source("s3://migrations")
		assert.Error(t, err)
	})
}
