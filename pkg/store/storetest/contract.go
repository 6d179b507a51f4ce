// Package storetest is a reusable conformance suite run against every
// store.Store backend: table-driven behavioral tests shared across
// interchangeable implementations.
package storetest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdl-noid/noid/pkg/store"
)

// New builds a fresh, unopened backend instance for the suite to drive.
type New func() store.Store

// Run exercises the common Store contract against an implementation
// produced by newStore, using dir as scratch space for file-backed
// backends (ignored by in-memory ones). Pass persistent=false for backends
// whose Store instance, not the path, owns the data (e.g. memstore), which
// skips the reopen-survives-restart check.
func Run(t *testing.T, newStore New, dir string, persistent bool) {
	t.Helper()

	t.Run("GetSetDelete", func(t *testing.T) {
		s := newStore()
		require.NoError(t, s.Open(filepath.Join(dir, "a.db"), store.ModeCreate))
		defer s.Close()

		_, ok, err := s.Get([]byte("k1"))
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, s.Set([]byte("k1"), []byte("v1")))
		v, ok, err := s.Get([]byte("k1"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("v1"), v)

		exists, err := s.Exists([]byte("k1"))
		require.NoError(t, err)
		require.True(t, exists)

		require.NoError(t, s.Delete([]byte("k1")))
		_, ok, err = s.Get([]byte("k1"))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("RangeOrderedByPrefix", func(t *testing.T) {
		s := newStore()
		require.NoError(t, s.Open(filepath.Join(dir, "b.db"), store.ModeCreate))
		defer s.Close()

		keys := []string{"id1\tR/c", "id1\t1", "id2\tR/c", "R/template"}
		for _, k := range keys {
			require.NoError(t, s.Set([]byte(k), []byte("v")))
		}

		pairs, err := s.Range([]byte("id1\t"), 0)
		require.NoError(t, err)
		require.Len(t, pairs, 2)
		require.Equal(t, "id1\t1", string(pairs[0].Key))
		require.Equal(t, "id1\tR/c", string(pairs[1].Key))

		all, err := s.Range(nil, 0)
		require.NoError(t, err)
		require.Len(t, all, 4)
		for i := 1; i < len(all); i++ {
			require.LessOrEqual(t, string(all[i-1].Key), string(all[i].Key))
		}
	})

	t.Run("RangeLimit", func(t *testing.T) {
		s := newStore()
		require.NoError(t, s.Open(filepath.Join(dir, "c.db"), store.ModeCreate))
		defer s.Close()

		for _, k := range []string{"a", "b", "c", "d"} {
			require.NoError(t, s.Set([]byte(k), []byte("v")))
		}
		pairs, err := s.Range(nil, 2)
		require.NoError(t, err)
		require.Len(t, pairs, 2)
	})

	t.Run("ReopenPersists", func(t *testing.T) {
		if !persistent {
			t.Skip("backend does not persist across Store instances")
		}
		path := filepath.Join(dir, "d.db")
		s1 := newStore()
		require.NoError(t, s1.Open(path, store.ModeCreate))
		require.NoError(t, s1.Set([]byte("persist"), []byte("yes")))
		require.NoError(t, s1.Close())

		s2 := newStore()
		require.NoError(t, s2.Open(path, store.ModeReadWrite))
		defer s2.Close()
		v, ok, err := s2.Get([]byte("persist"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("yes"), v)
	})

	t.Run("Import", func(t *testing.T) {
		src := newStore()
		require.NoError(t, src.Open(filepath.Join(dir, "e-src.db"), store.ModeCreate))
		defer src.Close()
		require.NoError(t, src.Set([]byte("x"), []byte("1")))
		require.NoError(t, src.Set([]byte("y"), []byte("2")))

		dst := newStore()
		require.NoError(t, dst.Open(filepath.Join(dir, "e-dst.db"), store.ModeCreate))
		defer dst.Close()
		require.NoError(t, dst.Set([]byte("stale"), []byte("0")))

		require.NoError(t, dst.Import(src))
		_, ok, err := dst.Get([]byte("stale"))
		require.NoError(t, err)
		require.False(t, ok)

		v, ok, err := dst.Get([]byte("x"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("1"), v)
	})

	t.Run("ClosedStoreErrors", func(t *testing.T) {
		s := newStore()
		require.NoError(t, s.Open(filepath.Join(dir, "f.db"), store.ModeCreate))
		require.NoError(t, s.Close())
		_, _, err := s.Get([]byte("k"))
		require.Error(t, err)
	})
}
