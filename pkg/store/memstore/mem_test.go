package memstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/store/memstore"
	"github.com/cdl-noid/noid/pkg/store/storetest"
)

func TestMemStoreConformance(t *testing.T) {
	dir := t.TempDir()
	storetest.Run(t, func() store.Store { return memstore.New() }, dir, false)
}

func TestIndexSnapshotIsSortedCopy(t *testing.T) {
	idx := memstore.NewIndex()
	idx.Set([]byte("b"), []byte("2"))
	idx.Set([]byte("a"), []byte("1"))

	snap := idx.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "a", string(snap[0].Key))
	require.Equal(t, "b", string(snap[1].Key))

	snap[0].Value[0] = 'Z'
	v, ok := idx.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, []byte("1"), v, "Snapshot must return defensive copies")
}
