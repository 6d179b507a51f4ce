// Package backend maps a configured config.Backend name to a concrete
// store.Store implementation and its on-disk file name, the one place
// that knows about every pluggable backend package. Both session.Open and
// dbcreate.Create go through here so neither needs to import the backend
// packages directly.
package backend

import (
	"github.com/cdl-noid/noid/pkg/config"
	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/store/boltstore"
	"github.com/cdl-noid/noid/pkg/store/memstore"
	"github.com/cdl-noid/noid/pkg/store/sqlstore"
	"github.com/cdl-noid/noid/pkg/store/xmlstore"
)

// FileName is the backend data file's base name within a database
// directory.
func FileName(b config.Backend) (string, error) {
	switch b {
	case config.BackendBolt:
		return "noid.bolt", nil
	case config.BackendSQLite:
		return "noid.sqlite3", nil
	case config.BackendXML:
		return "noid.xml", nil
	case config.BackendMemory:
		return "noid.mem", nil
	default:
		return "", noiderr.New(noiderr.KindConfig, "unknown backend %q", b)
	}
}

// New returns a fresh, unopened store.Store for the named backend.
func New(b config.Backend) (store.Store, error) {
	switch b {
	case config.BackendBolt:
		return boltstore.New(), nil
	case config.BackendSQLite:
		return sqlstore.New(), nil
	case config.BackendXML:
		return xmlstore.New(), nil
	case config.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, noiderr.New(noiderr.KindConfig, "unknown backend %q", b)
	}
}
