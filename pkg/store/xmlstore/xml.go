// Package xmlstore is the XML document backend: the entire store lives as
// one <noiddb> document, rewritten whole on every mutation.
// Lacking native key ordering, it keeps a memstore.Index as its in-memory
// working set and serializes that index's sorted Snapshot on every write.
package xmlstore

import (
	"encoding/xml"
	"os"

	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/store/memstore"
)

// document is the on-disk XML shape.
type document struct {
	XMLName xml.Name `xml:"noiddb"`
	Entries []entry  `xml:"entry"`
}

type entry struct {
	Key   []byte `xml:"key"`
	Value []byte `xml:"value"`
}

// Store is an XML-document-backed Store.
type Store struct {
	path   string
	idx    *memstore.Index
	opened bool
}

// New returns an unopened XML document Store.
func New() *Store {
	return &Store{idx: memstore.NewIndex()}
}

func (s *Store) Open(path string, mode store.Mode) error {
	s.path = path
	if mode == store.ModeCreate {
		s.idx.Reset()
		s.opened = true
		return s.flush()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return noiderr.New(noiderr.KindIO, "xmlstore: no document at %s", path)
		}
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	var doc document
	if len(data) > 0 {
		if err := xml.Unmarshal(data, &doc); err != nil {
			return noiderr.Wrap(noiderr.KindIO, err)
		}
	}
	s.idx.Reset()
	for _, e := range doc.Entries {
		s.idx.Set(e.Key, e.Value)
	}
	s.opened = true
	return nil
}

func (s *Store) Close() error {
	s.opened = false
	return nil
}

func (s *Store) checkOpen() error {
	if !s.opened {
		return noiderr.New(noiderr.KindIO, "xmlstore: use of closed store")
	}
	return nil
}

// flush rewrites the whole document from the in-memory index, matching
// document-serializer semantics: no partial or append writes.
func (s *Store) flush() error {
	pairs := s.idx.Snapshot()
	doc := document{Entries: make([]entry, len(pairs))}
	for i, p := range pairs {
		doc.Entries[i] = entry{Key: p.Key, Value: p.Value}
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	if err := os.WriteFile(s.path, out, 0o600); err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return nil
}

func (s *Store) Get(key []byte) ([]byte, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	v, ok := s.idx.Get(key)
	return v, ok, nil
}

func (s *Store) Set(key, value []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.idx.Set(key, value)
	return s.flush()
}

func (s *Store) Delete(key []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.idx.Delete(key)
	return s.flush()
}

func (s *Store) Exists(key []byte) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	return s.idx.Exists(key), nil
}

func (s *Store) Range(prefix []byte, limit int) ([]store.Pair, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.idx.Range(prefix, limit), nil
}

func (s *Store) Import(src store.Store) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.idx.Reset()
	if err := store.CopyAll(src, func(p store.Pair) error {
		s.idx.Set(p.Key, p.Value)
		return nil
	}); err != nil {
		return err
	}
	return s.flush()
}
