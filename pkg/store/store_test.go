package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixUpperBound(t *testing.T) {
	assert.Nil(t, PrefixUpperBound(nil))
	assert.Equal(t, []byte("R/s"), PrefixUpperBound([]byte("R/r")))
	assert.Equal(t, []byte{0x01}, PrefixUpperBound([]byte{0x00}))
	assert.Nil(t, PrefixUpperBound([]byte{0xFF, 0xFF}))
}

type fakeStore struct {
	pairs []Pair
}

func (f *fakeStore) Open(path string, mode Mode) error { return nil }
func (f *fakeStore) Close() error                       { return nil }
func (f *fakeStore) Get(key []byte) ([]byte, bool, error) {
	for _, p := range f.pairs {
		if string(p.Key) == string(key) {
			return p.Value, true, nil
		}
	}
	return nil, false, nil
}
func (f *fakeStore) Set(key, value []byte) error {
	f.pairs = append(f.pairs, Pair{Key: key, Value: value})
	return nil
}
func (f *fakeStore) Delete(key []byte) error { return nil }
func (f *fakeStore) Exists(key []byte) (bool, error) {
	_, ok, err := f.Get(key)
	return ok, err
}
func (f *fakeStore) Range(prefix []byte, limit int) ([]Pair, error) { return f.pairs, nil }
func (f *fakeStore) Import(src Store) error                         { return nil }

func TestCopyAll(t *testing.T) {
	src := &fakeStore{pairs: []Pair{{Key: []byte("a"), Value: []byte("1")}, {Key: []byte("b"), Value: []byte("2")}}}
	var got []Pair
	err := CopyAll(src, func(p Pair) error {
		got = append(got, p)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, src.pairs, got)
}
