// Package adminstate provides small read-modify-write helpers over the
// mutable admin scalars (oacounter, sub-counter values, held, queued,
// pregenerated, the queue sequence numbers). These keys are deliberately
// excluded from admincache, since mutable keys are never cached, so every
// access here goes straight to the store.
package adminstate

import (
	"strconv"

	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
)

// GetInt64 reads an admin scalar key as a signed integer, returning def if
// the key is absent.
func GetInt64(s store.Store, key []byte, def int64) (int64, error) {
	raw, ok, err := s.Get(key)
	if err != nil {
		return 0, noiderr.Wrap(noiderr.KindIO, err)
	}
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, noiderr.New(noiderr.KindIO, "admin key %q: malformed integer %q", key, raw)
	}
	return n, nil
}

// SetInt64 writes an admin scalar key as a signed integer.
func SetInt64(s store.Store, key []byte, v int64) error {
	if err := s.Set(key, []byte(strconv.FormatInt(v, 10))); err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return nil
}

// Incr performs a read-modify-write of an admin integer counter by delta,
// returning the new value. No clamping: oacounter and sub-counter values
// can legitimately be any non-negative integer driven by the caller's own
// bounds checking.
func Incr(s store.Store, key []byte, delta int64) (int64, error) {
	n, err := GetInt64(s, key, 0)
	if err != nil {
		return 0, err
	}
	n += delta
	if err := SetInt64(s, key, n); err != nil {
		return 0, err
	}
	return n, nil
}

// IncrCount is Incr for the non-negative admin counts (held, queued,
// pregenerated), clamping at zero so a delete racing ahead of its matching
// increment can never drive the count negative.
func IncrCount(s store.Store, name string, delta int64) (int64, error) {
	key := schema.AdminKey(name)
	n, err := GetInt64(s, key, 0)
	if err != nil {
		return 0, err
	}
	n += delta
	if n < 0 {
		n = 0
	}
	if err := SetInt64(s, key, n); err != nil {
		return 0, err
	}
	return n, nil
}

// Held, Queued, Pregenerated read the corresponding admin counts directly.
func Held(s store.Store) (int64, error)        { return GetInt64(s, schema.AdminKey("held"), 0) }
func Queued(s store.Store) (int64, error)      { return GetInt64(s, schema.AdminKey("queued"), 0) }
func Pregenerated(s store.Store) (int64, error) {
	return GetInt64(s, schema.AdminKey("pregenerated"), 0)
}

// OACounter reads/writes the overall mint counter.
func OACounter(s store.Store) (int64, error) {
	return GetInt64(s, schema.AdminKey("oacounter"), 0)
}

func SetOACounter(s store.Store, v int64) error {
	return SetInt64(s, schema.AdminKey("oacounter"), v)
}
