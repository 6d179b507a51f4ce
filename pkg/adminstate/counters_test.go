package adminstate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/store/memstore"
)

func newOpenStore(t *testing.T) store.Store {
	t.Helper()
	s := memstore.New()
	assert.NoError(t, s.Open("", store.ModeCreate))
	return s
}

func TestGetInt64Default(t *testing.T) {
	s := newOpenStore(t)
	n, err := GetInt64(s, schema.AdminKey("oacounter"), 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestSetAndGetInt64(t *testing.T) {
	s := newOpenStore(t)
	assert.NoError(t, SetInt64(s, schema.AdminKey("oacounter"), 42))
	n, err := GetInt64(s, schema.AdminKey("oacounter"), 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestIncr(t *testing.T) {
	s := newOpenStore(t)
	key := schema.AdminKey("oacounter")

	n, err := Incr(s, key, 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = Incr(s, key, -2)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestIncrCountClampsAtZero(t *testing.T) {
	s := newOpenStore(t)

	n, err := IncrCount(s, "held", -5)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = IncrCount(s, "held", 3)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestNamedCounters(t *testing.T) {
	s := newOpenStore(t)

	_, err := IncrCount(s, "held", 2)
	assert.NoError(t, err)
	held, err := Held(s)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), held)

	_, err = IncrCount(s, "queued", 4)
	assert.NoError(t, err)
	queued, err := Queued(s)
	assert.NoError(t, err)
	assert.Equal(t, int64(4), queued)

	_, err = IncrCount(s, "pregenerated", 1)
	assert.NoError(t, err)
	pregen, err := Pregenerated(s)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), pregen)
}

func TestOACounter(t *testing.T) {
	s := newOpenStore(t)
	assert.NoError(t, SetOACounter(s, 99))
	n, err := OACounter(s)
	assert.NoError(t, err)
	assert.Equal(t, int64(99), n)
}

func TestGetInt64MalformedValue(t *testing.T) {
	s := newOpenStore(t)
	key := schema.AdminKey("oacounter")
	assert.NoError(t, s.Set(key, []byte("not-a-number")))
	_, err := GetInt64(s, key, 0)
	assert.Error(t, err)
}
