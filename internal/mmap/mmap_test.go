package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpenReadAt(t *testing.T) {
	path := writeFile(t, []byte("hello, world"))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, int64(12), m.Size())
	assert.Equal(t, []byte("hello, world"), m.Bytes())

	p := make([]byte, 5)
	n, err := m.ReadAt(p, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("world"), p)

	_, err = m.ReadAt(p, 100)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenEmpty(t *testing.T) {
	path := writeFile(t, nil)

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, int64(0), m.Size())
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestCloseIdempotent(t *testing.T) {
	path := writeFile(t, []byte("x"))

	m, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
