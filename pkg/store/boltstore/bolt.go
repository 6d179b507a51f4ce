// Package boltstore is the default KV backend: an embedded, memory-mapped,
// natively ordered B+tree (go.etcd.io/bbolt), chosen as the preferred
// "ordered embedded KV (memory-mapped)" option. Key layout follows a flat
// prefix-namespaced convention over a single bucket.
package boltstore

import (
	"bytes"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/store"
)

var bucketName = []byte("noid")

// Store is a bbolt-backed Store.
type Store struct {
	db *bolt.DB
}

// New returns an unopened bbolt Store.
func New() *Store {
	return &Store{}
}

func (s *Store) Open(path string, mode store.Mode) error {
	if mode == store.ModeCreate {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return noiderr.Wrap(noiderr.KindIO, err)
		}
	}
	readOnly := mode == store.ModeReadOnly
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: readOnly})
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	if !readOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketName)
			return err
		})
		if err != nil {
			db.Close()
			return noiderr.Wrap(noiderr.KindIO, err)
		}
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return nil
}

func (s *Store) checkOpen() error {
	if s.db == nil {
		return noiderr.New(noiderr.KindIO, "boltstore: use of closed store")
	}
	return nil
}

func (s *Store) Get(key []byte) ([]byte, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, noiderr.Wrap(noiderr.KindIO, err)
	}
	return value, value != nil, nil
}

func (s *Store) Set(key, value []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put(key, value)
	})
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return nil
}

func (s *Store) Delete(key []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Delete(key)
	})
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return nil
}

func (s *Store) Exists(key []byte) (bool, error) {
	_, ok, err := s.Get(key)
	return ok, err
}

func (s *Store) Range(prefix []byte, limit int) ([]store.Pair, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var pairs []store.Pair
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			pairs = append(pairs, store.Pair{
				Key:   append([]byte(nil), k...),
				Value: append([]byte(nil), v...),
			})
			if limit > 0 && len(pairs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, noiderr.Wrap(noiderr.KindIO, err)
	}
	return pairs, nil
}

func (s *Store) Import(src store.Store) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(bucketName)
		return err
	})
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return store.CopyAll(src, func(p store.Pair) error {
		return s.Set(p.Key, p.Value)
	})
}
