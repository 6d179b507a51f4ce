package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cdl-noid/noid/pkg/config"
	"github.com/cdl-noid/noid/pkg/store/boltstore"
	"github.com/cdl-noid/noid/pkg/store/memstore"
	"github.com/cdl-noid/noid/pkg/store/sqlstore"
	"github.com/cdl-noid/noid/pkg/store/xmlstore"
)

func TestFileName(t *testing.T) {
	cases := []struct {
		backend config.Backend
		want    string
	}{
		{config.BackendBolt, "noid.bolt"},
		{config.BackendSQLite, "noid.sqlite3"},
		{config.BackendXML, "noid.xml"},
		{config.BackendMemory, "noid.mem"},
	}
	for _, c := range cases {
		got, err := FileName(c.backend)
		assert.NoError(t, err)
		assert.Equal(t, c.want, got)
	}

	_, err := FileName(config.Backend("bogus"))
	assert.Error(t, err)
}

func TestNewReturnsMatchingConcreteType(t *testing.T) {
	cases := []struct {
		backend config.Backend
		want    interface{}
	}{
		{config.BackendBolt, &boltstore.Store{}},
		{config.BackendSQLite, &sqlstore.Store{}},
		{config.BackendXML, &xmlstore.Store{}},
		{config.BackendMemory, &memstore.Store{}},
	}
	for _, c := range cases {
		got, err := New(c.backend)
		assert.NoError(t, err)
		assert.IsType(t, c.want, got)
	}

	_, err := New(config.Backend("bogus"))
	assert.Error(t, err)
}
