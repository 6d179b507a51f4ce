// Package sqlstore is the SQL-backed KV backend option, using
// mattn/go-sqlite3.
package sqlstore

import (
	"database/sql"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/store"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	k  BLOB NOT NULL UNIQUE,
	v  BLOB NOT NULL
)`

// Store is a sqlite-backed Store. The conceptual table is
// "(k BLOB PRIMARY KEY, v BLOB, id AUTOINCREMENT)"; sqlite has no
// multi-column AUTOINCREMENT-plus-alternate-key construct, so the surrogate
// id is the real primary key and k carries a UNIQUE constraint instead,
// preserving both ordered-by-k lookups and an insertion-order counter.
type Store struct {
	db *sql.DB
}

// New returns an unopened sqlite Store.
func New() *Store {
	return &Store{}
}

func (s *Store) Open(path string, mode store.Mode) error {
	if mode == store.ModeCreate {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return noiderr.Wrap(noiderr.KindIO, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return noiderr.Wrap(noiderr.KindIO, err)
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
		return noiderr.New(noiderr.KindIO, "sqlstore: use of closed store")
	}
	return nil
}

func (s *Store) Get(key []byte) ([]byte, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	var value []byte
	err := s.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, noiderr.Wrap(noiderr.KindIO, err)
	}
	return value, true, nil
}

func (s *Store) Set(key, value []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO kv (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return nil
}

func (s *Store) Delete(key []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM kv WHERE k = ?`, key); err != nil {
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

	var rows *sql.Rows
	var err error
	upper := store.PrefixUpperBound(prefix)
	query := `SELECT k, v FROM kv WHERE k >= ?`
	args := []interface{}{prefix}
	if upper != nil {
		query += ` AND k < ?`
		args = append(args, upper)
	}
	query += ` ORDER BY k ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err = s.db.Query(query, args...)
	if err != nil {
		return nil, noiderr.Wrap(noiderr.KindIO, err)
	}
	defer rows.Close()

	var pairs []store.Pair
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, noiderr.Wrap(noiderr.KindIO, err)
		}
		pairs = append(pairs, store.Pair{Key: k, Value: v})
	}
	if err := rows.Err(); err != nil {
		return nil, noiderr.Wrap(noiderr.KindIO, err)
	}
	return pairs, nil
}

func (s *Store) Import(src store.Store) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	if _, err := tx.Exec(`DELETE FROM kv`); err != nil {
		tx.Rollback()
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	pairs, err := src.Range(nil, 0)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, p := range pairs {
		if _, err := tx.Exec(`INSERT INTO kv (k, v) VALUES (?, ?)`, p.Key, p.Value); err != nil {
			tx.Rollback()
			return noiderr.Wrap(noiderr.KindIO, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return nil
}
