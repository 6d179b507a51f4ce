package boltstore_test

import (
	"testing"

	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/store/boltstore"
	"github.com/cdl-noid/noid/pkg/store/storetest"
)

func TestBoltStoreConformance(t *testing.T) {
	dir := t.TempDir()
	storetest.Run(t, func() store.Store { return boltstore.New() }, dir, true)
}
