package dbinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cdl-noid/noid/pkg/admincache"
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

func TestParseVerbosity(t *testing.T) {
	v, err := ParseVerbosity("")
	assert.NoError(t, err)
	assert.Equal(t, Brief, v)

	v, err = ParseVerbosity("full")
	assert.NoError(t, err)
	assert.Equal(t, Full, v)

	v, err = ParseVerbosity("dump")
	assert.NoError(t, err)
	assert.Equal(t, Dump, v)

	_, err = ParseVerbosity("bogus")
	assert.Error(t, err)
}

func TestReportBriefIncludesScalarsAndCounts(t *testing.T) {
	s := newOpenStore(t)
	assert.NoError(t, s.Set(schema.AdminKey("template"), []byte("ark.sdd")))
	assert.NoError(t, s.Set(schema.AdminKey("held"), []byte("2")))

	cache, err := admincache.Load(s)
	assert.NoError(t, err)

	report, err := Report(s, cache, Brief)
	assert.NoError(t, err)
	assert.Contains(t, report, "template: ark.sdd")
	assert.Contains(t, report, "held: 2")
	assert.NotContains(t, report, "queue entries")
}

func TestReportFullIncludesQueueDepth(t *testing.T) {
	s := newOpenStore(t)
	assert.NoError(t, s.Set(schema.QueueKey(schema.ZeroDate, 1, "0001"), []byte("ark0001")))

	cache, err := admincache.Load(s)
	assert.NoError(t, err)

	report, err := Report(s, cache, Full)
	assert.NoError(t, err)
	assert.Contains(t, report, "queue entries: 1")
}

func TestReportDumpListsRawPairs(t *testing.T) {
	s := newOpenStore(t)
	assert.NoError(t, s.Set(schema.AdminKey("template"), []byte("ark.sdd")))
	assert.NoError(t, s.Set([]byte("ark0001\tR/h"), []byte{1}))

	cache, err := admincache.Load(s)
	assert.NoError(t, err)

	report, err := Report(s, cache, Dump)
	assert.NoError(t, err)
	assert.Contains(t, report, "raw key/value dump")
	assert.Contains(t, report, "<hold>")
}

func TestValidateAgainstTemplate(t *testing.T) {
	err := ValidateAgainstTemplate("ark.sdd", "ark00")
	assert.NoError(t, err)

	err = ValidateAgainstTemplate("ark.sdd", "bad00")
	assert.Error(t, err)
}

func TestValidateAgainstTemplateWithCheckChar(t *testing.T) {
	err := ValidateAgainstTemplate("ark.sdk", "ark01")
	assert.Error(t, err) // wrong check character

	// Compute a plausible identifier with the correct digit check char: 0
	// against the digit repertoire with weighted sum 0 is itself valid.
	err = ValidateAgainstTemplate("ark.sdk", "ark000")
	assert.NoError(t, err)
}
