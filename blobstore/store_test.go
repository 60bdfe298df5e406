package blobstore

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	local, err := NewLocalStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	return map[string]Store{
		"local":  local,
		"memory": NewMemoryStore(),
	}
}

func TestPutOpenRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			data := []byte("the quick brown fox")
			require.NoError(t, s.Put(ctx, "a/b/blob", data))

			b, err := s.Open(ctx, "a/b/blob")
			require.NoError(t, err)
			defer b.Close()

			assert.Equal(t, int64(len(data)), b.Size())

			got, err := ReadAll(b)
			require.NoError(t, err)
			assert.Equal(t, data, got)

			p := make([]byte, 5)
			n, err := b.ReadAt(p, 4)
			require.NoError(t, err)
			assert.Equal(t, 5, n)
			assert.Equal(t, []byte("quick"), p)
		})
	}
}

func TestOpenMissing(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Open(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestPutOverwrite(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, "blob", []byte("old")))
			require.NoError(t, s.Put(ctx, "blob", []byte("newer")))

			b, err := s.Open(ctx, "blob")
			require.NoError(t, err)
			defer b.Close()

			got, err := ReadAll(b)
			require.NoError(t, err)
			assert.Equal(t, []byte("newer"), got)
		})
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, "blob", []byte("x")))
			require.NoError(t, s.Delete(ctx, "blob"))

			_, err := s.Open(ctx, "blob")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting again is not an error.
			require.NoError(t, s.Delete(ctx, "blob"))
		})
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, "run/1/a", []byte("1")))
			require.NoError(t, s.Put(ctx, "run/1/b", []byte("2")))
			require.NoError(t, s.Put(ctx, "run/2/a", []byte("3")))
			require.NoError(t, s.Put(ctx, "run-fast/1/a", []byte("4")))
			require.NoError(t, s.Put(ctx, "other", []byte("5")))

			names, err := s.List(ctx, "run/1/")
			require.NoError(t, err)
			assert.Equal(t, []string{"run/1/a", "run/1/b"}, names)

			// A namespace listing never bleeds into a sibling namespace
			// that shares a string prefix.
			run, err := s.List(ctx, "run/")
			require.NoError(t, err)
			assert.Equal(t, []string{"run/1/a", "run/1/b", "run/2/a"}, run)

			all, err := s.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"other", "run-fast/1/a", "run/1/a", "run/1/b", "run/2/a"}, all)

			none, err := s.List(ctx, "nope/")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestReadAtPastEnd(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, "blob", []byte("abc")))

			b, err := s.Open(ctx, "blob")
			require.NoError(t, err)
			defer b.Close()

			_, err = b.ReadAt(make([]byte, 1), 10)
			assert.ErrorIs(t, err, io.EOF)

			p := make([]byte, 10)
			n, err := b.ReadAt(p, 1)
			assert.ErrorIs(t, err, io.EOF)
			assert.Equal(t, 2, n)
			assert.Equal(t, []byte("bc"), p[:n])
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data := []byte("mutable")
	require.NoError(t, s.Put(ctx, "blob", data))
	data[0] = 'X'

	b, err := s.Open(ctx, "blob")
	require.NoError(t, err)
	defer b.Close()

	got, err := ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), got)
}
