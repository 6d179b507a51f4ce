package minter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cdl-noid/noid/pkg/admincache"
	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/store/memstore"
)

func newEngine(t *testing.T, extra map[string]string) *Engine {
	t.Helper()
	s := memstore.New()
	assert.NoError(t, s.Open("", store.ModeCreate))

	admin := map[string]string{
		"template":       "ark.sdd",
		"firstpart":      "12345/ark",
		"mask":           "dd",
		"generator_type": "sequential",
		"total":          "100",
		"oatop":          "100",
		"padwidth":       "4",
		"genonly":        "false",
	}
	for k, v := range extra {
		admin[k] = v
	}
	for name, value := range admin {
		assert.NoError(t, s.Set(schema.AdminKey(name), []byte(value)))
	}

	cache, err := admincache.Load(s)
	assert.NoError(t, err)

	engine, err := NewEngine(s, cache, "admin", nil)
	assert.NoError(t, err)
	return engine
}

func TestMintProducesFreshIdentifierWhenPoolAndQueueEmpty(t *testing.T) {
	e := newEngine(t, nil)
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	id, err := e.Mint(now)
	assert.NoError(t, err)
	assert.Equal(t, "12345/ark00", id)
}

func TestMintPrefersPoolOverGeneration(t *testing.T) {
	e := newEngine(t, nil)
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	n, err := e.Pool.Pregenerate(1, now)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	id, err := e.Mint(now)
	assert.NoError(t, err)
	assert.Equal(t, "12345/ark00", id)

	// Next mint must generate fresh since the pool is now empty.
	id, err = e.Mint(now)
	assert.NoError(t, err)
	assert.Equal(t, "12345/ark01", id)
}

func TestMintPrefersQueueOverGeneration(t *testing.T) {
	e := newEngine(t, nil)
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, e.Enqueue([]string{"12345/ark99"}, "now", now))

	id, err := e.Mint(now)
	assert.NoError(t, err)
	assert.Equal(t, "12345/ark99", id)
}

func TestMintMultipleStopsOnExhaustion(t *testing.T) {
	e := newEngine(t, map[string]string{"oatop": "2"})
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	ids, err := e.MintMultiple(5, now)
	assert.NoError(t, err)
	assert.Equal(t, []string{"12345/ark00", "12345/ark01"}, ids)
}

func TestMintMultipleRejectsOversizedBatch(t *testing.T) {
	e := newEngine(t, nil)
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	_, err := e.MintMultiple(MaxBatch+1, now)
	assert.Error(t, err)
}

func TestMintOnBindOnlyMinterFails(t *testing.T) {
	s := memstore.New()
	assert.NoError(t, s.Open("", store.ModeCreate))
	cache, err := admincache.Load(s)
	assert.NoError(t, err)
	e, err := NewEngine(s, cache, "admin", nil)
	assert.NoError(t, err)

	_, err = e.Mint(time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestMintSetsHoldForLongTermIdentifiers(t *testing.T) {
	e := newEngine(t, map[string]string{"longterm": "true"})
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	id, err := e.Mint(now)
	assert.NoError(t, err)

	held, err := e.Queue.IsHeld(id)
	assert.NoError(t, err)
	assert.True(t, held)
}
