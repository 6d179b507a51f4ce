// Package memstore is an in-memory ordered key-value map. It backs the XML
// document store's working index, since that backend lacks native ordering
// and must sort in-memory, and doubles as a lightweight Store for tests.
package memstore

import (
	"bytes"
	"sort"
	"sync"

	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/store"
)

// Index is a plain sorted-on-read map[string][]byte. It is not itself a
// Store (no Open/Close semantics) so it can be embedded by backends that
// need an ordered working set without inheriting file lifecycle concerns.
type Index struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{data: make(map[string][]byte)}
}

func (i *Index) Get(key []byte) ([]byte, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, ok := i.data[string(key)]
	return v, ok
}

func (i *Index) Set(key, value []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.data[string(key)] = append([]byte(nil), value...)
}

func (i *Index) Delete(key []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.data, string(key))
}

func (i *Index) Exists(key []byte) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.data[string(key)]
	return ok
}

func (i *Index) Range(prefix []byte, limit int) []store.Pair {
	i.mu.RLock()
	defer i.mu.RUnlock()

	keys := make([]string, 0, len(i.data))
	for k := range i.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && limit < len(keys) {
		keys = keys[:limit]
	}
	out := make([]store.Pair, 0, len(keys))
	for _, k := range keys {
		out = append(out, store.Pair{Key: []byte(k), Value: append([]byte(nil), i.data[k]...)})
	}
	return out
}

func (i *Index) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.data = make(map[string][]byte)
}

// Snapshot returns every pair currently held, in ascending key order.
func (i *Index) Snapshot() []store.Pair {
	return i.Range(nil, 0)
}

// Store is a minimal in-memory Store implementation over Index, useful in
// tests and as the "memory" backend option alongside bolt/sqlite/xml.
type Store struct {
	idx    *Index
	opened bool
}

// New returns an unopened in-memory Store.
func New() *Store {
	return &Store{idx: NewIndex()}
}

func (s *Store) Open(path string, mode store.Mode) error {
	if mode == store.ModeCreate {
		s.idx.Reset()
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
		return noiderr.New(noiderr.KindIO, "memstore: use of closed store")
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
	return nil
}

func (s *Store) Delete(key []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.idx.Delete(key)
	return nil
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
	return store.CopyAll(src, func(p store.Pair) error {
		s.idx.Set(p.Key, p.Value)
		return nil
	})
}
