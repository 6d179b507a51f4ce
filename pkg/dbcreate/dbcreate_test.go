package dbcreate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/store/memstore"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	s := memstore.New()
	assert.NoError(t, s.Open("", store.ModeCreate))
	return s
}

func TestValidateRequiresContact(t *testing.T) {
	o := Options{Term: TermNone}
	assert.Error(t, o.Validate())
}

func TestValidateLongTermRequiresNAANTriple(t *testing.T) {
	o := Options{Contact: "admin", Term: TermLong}
	assert.Error(t, o.Validate())

	o = Options{Contact: "admin", Term: TermLong, NAAN: "12345", NAA: "ark", SubNAA: "x"}
	assert.NoError(t, o.Validate())
}

func TestCreateSequentialTemplate(t *testing.T) {
	s := newStore(t)
	opts := Options{
		Contact:  "admin",
		Template: "ark.sdk",
		Term:     TermMedium,
		Now:      time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC),
	}

	report, err := Create(s, opts)
	assert.NoError(t, err)
	assert.Contains(t, report, "noid database creation report")
	assert.Contains(t, report, "ark.sdk")

	v, ok, err := s.Get(schema.AdminKey("template"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ark.sdk", string(v))

	v, ok, err = s.Get(schema.AdminKey("generator_type"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sequential", string(v))

	v, ok, err = s.Get(schema.AdminKey("addcheckchar"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", string(v))
}

func TestCreateRandomTemplatePartitionsSubCounters(t *testing.T) {
	s := newStore(t)
	opts := Options{
		Contact:  "admin",
		Template: "ark.rd",
		Term:     TermShort,
		Now:      time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC),
	}

	_, err := Create(s, opts)
	assert.NoError(t, err)

	v, ok, err := s.Get(schema.AdminKey("generator_random"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "lcg48", string(v))

	saclist, ok, err := s.Get(schema.AdminKey("saclist"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, saclist)

	c0value, ok, err := s.Get(schema.AdminKey("c0/value"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0", string(c0value))
}

func TestCreateBindOnlyMinterHasEmptyTemplate(t *testing.T) {
	s := newStore(t)
	opts := Options{
		Contact: "admin",
		Term:    TermNone,
		Now:     time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC),
	}

	report, err := Create(s, opts)
	assert.NoError(t, err)
	assert.Contains(t, report, "bind-only minter")

	v, ok, err := s.Get(schema.AdminKey("template"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", string(v))
}

func TestCreateLongTermSetsWrapFalse(t *testing.T) {
	s := newStore(t)
	opts := Options{
		Contact: "admin",
		Template: "ark.sd",
		Term:    TermLong,
		NAAN:    "12345",
		NAA:     "ark",
		SubNAA:  "x",
		Now:     time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC),
	}

	_, err := Create(s, opts)
	assert.NoError(t, err)

	v, ok, err := s.Get(schema.AdminKey("longterm"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", string(v))

	v, ok, err = s.Get(schema.AdminKey("wrap"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "false", string(v))
}

func TestCreateStoresNotes(t *testing.T) {
	s := newStore(t)
	opts := Options{
		Contact: "admin",
		Term:    TermNone,
		Notes:   map[string]string{"who": "testsuite"},
		Now:     time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC),
	}

	report, err := Create(s, opts)
	assert.NoError(t, err)
	assert.Contains(t, report, "who: testsuite")

	v, ok, err := s.Get(schema.UserNoteKey("who"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "testsuite", string(v))
}

func TestPropertiesReflectsCheckCharAndTerm(t *testing.T) {
	s := newStore(t)
	opts := Options{
		Contact:  "admin",
		Template: "ark.sdk",
		Term:     TermLong,
		NAAN:     "12345",
		NAA:      "ark",
		SubNAA:   "x",
		Now:      time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC),
	}

	_, err := Create(s, opts)
	assert.NoError(t, err)

	v, ok, err := s.Get(schema.AdminKey("properties"))
	assert.NoError(t, err)
	assert.True(t, ok)
	props := string(v)
	assert.Len(t, props, 7)
	assert.Equal(t, byte('G'), props[0]) // valid non-placeholder naan
	assert.Equal(t, byte('N'), props[3]) // long term
	assert.Equal(t, byte('T'), props[5]) // check char present
}
