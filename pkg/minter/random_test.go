package minter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdl-noid/noid/pkg/admincache"
	"github.com/cdl-noid/noid/pkg/dbcreate"
	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/store/memstore"
)

// newCreatedEngine runs dbcreate.Create against a fresh store and wires a
// minter Engine over the result, mirroring what pkg/session.Open does for a
// freshly created database.
func newCreatedEngine(t *testing.T, opts dbcreate.Options, contact string) *Engine {
	t.Helper()
	s := memstore.New()
	require.NoError(t, s.Open("", store.ModeCreate))

	if opts.Now.IsZero() {
		opts.Now = time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	}
	_, err := dbcreate.Create(s, opts)
	require.NoError(t, err)

	cache, err := admincache.Load(s)
	require.NoError(t, err)

	e, err := NewEngine(s, cache, contact, nil)
	require.NoError(t, err)
	return e
}

// TestMintRandomKnownAnswerE1 reproduces spec §8 scenario E1 end to end
// through the minter engine: create tst3.rde long-term over naan 13030,
// hold two identifiers the random draw would otherwise hit first, then
// mint once.
func TestMintRandomKnownAnswerE1(t *testing.T) {
	e := newCreatedEngine(t, dbcreate.Options{
		Contact:  "admin",
		Template: "tst3.rde",
		Term:     dbcreate.TermLong,
		NAAN:     "13030",
		NAA:      "cdl",
		SubNAA:   "tst",
	}, "admin")
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	require.NoError(t, e.Queue.HoldSet("13030/tst31q"))
	require.NoError(t, e.Queue.HoldSet("13030/tst30f"))

	id, err := e.Mint(now)
	require.NoError(t, err)
	assert.Equal(t, "13030/tst394", id)
}

// TestMintRandomKnownAnswerE5 reproduces spec §8 scenario E5: a short-term
// (no naan) 4-character checksummed random template.
func TestMintRandomKnownAnswerE5(t *testing.T) {
	e := newCreatedEngine(t, dbcreate.Options{
		Contact:  "admin",
		Template: "fk.redek",
		Term:     dbcreate.TermNone,
	}, "admin")
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	id, err := e.Mint(now)
	require.NoError(t, err)
	assert.Equal(t, "fk491f", id)
}

// TestMintRandomKnownAnswerE3 reproduces spec §8 scenario E3: mint most of
// a 290-capacity long-term space, recycle three automatically-held
// identifiers through hold-release-then-queue, and drain the space to
// exhaustion.
func TestMintRandomKnownAnswerE3(t *testing.T) {
	e := newCreatedEngine(t, dbcreate.Options{
		Contact:  "admin",
		Template: "tst1.rde",
		Term:     dbcreate.TermLong,
		NAAN:     "13030",
		NAA:      "cdl",
		SubNAA:   "tst",
	}, "admin")
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	var minted []string
	for i := 0; i < 288; i++ {
		id, err := e.Mint(now)
		require.NoError(t, err)
		minted = append(minted, id)
	}

	id289, err := e.Mint(now)
	require.NoError(t, err)
	assert.Equal(t, "13030/tst190", id289)
	minted = append(minted, id289)

	// Every long-term mint is auto-held; slots 20/55/155 (1-indexed) are
	// the three identifiers this scenario recycles.
	slot20, slot55, slot155 := minted[19], minted[54], minted[154]
	for _, id := range []string{slot20, slot55, slot155} {
		held, err := e.Queue.IsHeld(id)
		require.NoError(t, err)
		assert.True(t, held, "slot %s should be auto-held as long-term", id)
	}

	err = e.Enqueue([]string{slot20}, "now", now)
	require.Error(t, err)
	assert.True(t, noiderr.Of(err, noiderr.KindCirculationConflict))

	require.NoError(t, e.Queue.HoldRelease(slot20))
	require.NoError(t, e.Queue.HoldRelease(slot55))
	require.NoError(t, e.Queue.HoldRelease(slot155))

	require.NoError(t, e.Enqueue([]string{slot20, slot55, slot155}, "now", now))

	for _, want := range []string{slot20, slot55, slot155} {
		id, err := e.Mint(now)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	id290, err := e.Mint(now)
	require.NoError(t, err)
	assert.Equal(t, "13030/tst17p", id290)

	_, err = e.Mint(now)
	require.Error(t, err)
	assert.True(t, noiderr.Of(err, noiderr.KindExhausted))
}

// TestMintMultipleRandomIdenticalStateProducesIdenticalSequence is spec
// §8's testable property 2 exercised through MintMultiple: two independent
// minters built from identical fresh random-mode state mint identical
// sequences.
func TestMintMultipleRandomIdenticalStateProducesIdenticalSequence(t *testing.T) {
	opts := dbcreate.Options{
		Contact:  "admin",
		Template: "tst3.rde",
		Term:     dbcreate.TermLong,
		NAAN:     "13030",
		NAA:      "cdl",
		SubNAA:   "tst",
		Now:      time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC),
	}
	e1 := newCreatedEngine(t, opts, "admin")
	e2 := newCreatedEngine(t, opts, "admin")
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	ids1, err := e1.MintMultiple(50, now)
	require.NoError(t, err)
	ids2, err := e2.MintMultiple(50, now)
	require.NoError(t, err)
	assert.Equal(t, ids1, ids2)
}
