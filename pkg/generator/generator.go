// Package generator is the single authoritative candidate-identifier
// generation algorithm, shared by the minter engine's fresh-mint path and
// the pre-generation pool, which generates using the same path as mint.
// It does not know about the pre-generation pool or the recycling queue —
// those are orchestrated by pkg/minter around it — so it has no import
// cycle with either.
package generator

import (
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cdl-noid/noid/pkg/adminstate"
	"github.com/cdl-noid/noid/pkg/alphabet"
	"github.com/cdl-noid/noid/pkg/circulation"
	"github.com/cdl-noid/noid/pkg/lcg"
	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/template"
)

// Config is the immutable subset of admin state the generator needs,
// pulled from the admin cache by the caller.
type Config struct {
	FirstPart       string
	MaskBody        string
	Unbounded       bool
	GeneratorType   string // "sequential" or "random"
	LongTerm        bool
	Wrap            bool
	AddCheckChar    bool
	CheckRepertoire alphabet.Name
	OATop           int64 // template.NoLimit for unbounded
	PerCounter      int64
}

// Generator produces and commits one fresh candidate identifier at a time
// against a store.
type Generator struct {
	Store  store.Store
	Config Config
	Log    *logrus.Entry
}

// Next runs the generator loop until a valid, uncommitted candidate is
// produced and committed with circulation status st, or the identifier
// space is exhausted. now stamps the circulation record's date.
func (g *Generator) Next(st circulation.Status, contact string, now time.Time) (string, error) {
	for {
		id, oacounterAtMint, err := g.produceCandidate()
		if err != nil {
			return "", err
		}
		if id == "" {
			continue // candidate rejected by a per-id guard; loop again
		}

		skip, err := g.validateCandidate(id)
		if err != nil {
			return "", err
		}
		if skip {
			continue
		}

		if err := g.commit(id, st, contact, now, oacounterAtMint); err != nil {
			return "", err
		}
		return id, nil
	}
}

// produceCandidate advances oacounter (resetting on exhaustion if wrap
// permits), picks the next position in the identifier space, and encodes
// it. In practice this function either returns a candidate or an
// ErrExhausted error; the empty-string return is unused but kept for
// symmetry with the validate/loop structure above.
func (g *Generator) produceCandidate() (id string, oacounterAtMint int64, err error) {
	oacounter, err := adminstate.OACounter(g.Store)
	if err != nil {
		return "", 0, err
	}

	if g.Config.OATop != template.NoLimit && oacounter == g.Config.OATop {
		if g.Config.LongTerm || !g.Config.Wrap {
			return "", 0, noiderr.New(noiderr.KindExhausted, "identifier space exhausted at oacounter=%d", oacounter)
		}
		g.logf("identifier space exhausted at oacounter=%d, wrapping", oacounter)
		if err := g.resetForWrap(); err != nil {
			return "", 0, err
		}
		oacounter, err = adminstate.OACounter(g.Store)
		if err != nil {
			return "", 0, err
		}
	}

	var body string
	if g.Config.GeneratorType == "random" {
		body, err = g.nextRandom(oacounter)
	} else {
		body, err = alphabet.Encode(uint64(oacounter), g.Config.MaskBody, g.Config.Unbounded)
	}
	if err != nil {
		return "", 0, err
	}
	if err := adminstate.SetOACounter(g.Store, oacounter+1); err != nil {
		return "", 0, err
	}

	candidate := g.Config.FirstPart + body
	if g.Config.AddCheckChar {
		rep, err := alphabet.Lookup(g.Config.CheckRepertoire)
		if err != nil {
			return "", 0, err
		}
		candidate = alphabet.WithCheckChar(alphabet.AppendCheckPlaceholder(candidate), rep)
	}
	return candidate, oacounter, nil
}

// resetForWrap restarts oacounter at zero for sequential minters; random
// minters re-initialize every sub-counter to zero and move siclist back
// into saclist.
func (g *Generator) resetForWrap() error {
	if err := adminstate.SetOACounter(g.Store, 0); err != nil {
		return err
	}
	if g.Config.GeneratorType != "random" {
		return nil
	}
	sac, _, err := g.Store.Get(schema.AdminKey("saclist"))
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	sic, _, err := g.Store.Get(schema.AdminKey("siclist"))
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	all := strings.Fields(string(sac))
	all = append(all, strings.Fields(string(sic))...)
	for _, name := range all {
		if err := adminstate.SetInt64(g.Store, schema.AdminKeyf("%s/value", name), 0); err != nil {
			return err
		}
	}
	if err := g.Store.Set(schema.AdminKey("saclist"), []byte(joinCounterList(all))); err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return noiderr.Wrap(noiderr.KindIO, g.Store.Set(schema.AdminKey("siclist"), []byte("")))
}

// nextRandom seeds the LCG with oacounter, draws a sub-counter index,
// advances its value, and retires it to siclist once it tops out.
func (g *Generator) nextRandom(oacounter int64) (string, error) {
	sac, _, err := g.Store.Get(schema.AdminKey("saclist"))
	if err != nil {
		return "", noiderr.Wrap(noiderr.KindIO, err)
	}
	active := strings.Fields(string(sac))
	if len(active) == 0 {
		return "", noiderr.New(noiderr.KindExhausted, "no active sub-counters remain")
	}

	gen := lcg.New(uint32(oacounter))
	k := gen.IntRand(int32(len(active)))
	name := active[k]
	n, err := counterIndex(name)
	if err != nil {
		return "", err
	}

	valueKey := schema.AdminKeyf("%s/value", name)
	topKey := schema.AdminKeyf("%s/top", name)
	v, err := adminstate.GetInt64(g.Store, valueKey, 0)
	if err != nil {
		return "", err
	}
	top, err := adminstate.GetInt64(g.Store, topKey, 0)
	if err != nil {
		return "", err
	}
	if err := adminstate.SetInt64(g.Store, valueKey, v+1); err != nil {
		return "", err
	}
	if v+1 >= top {
		if err := g.retireCounter(name); err != nil {
			return "", err
		}
	}

	// The position encoded is the post-increment value (v+1), not the value
	// read before this draw: a fresh counter's first draw encodes as 1, not
	// 0, within its c<n>*percounter block. Encode's fixed-width digit count
	// makes this equivalent to (v+1+n*percounter) mod total, so the space
	// stays a bijection; it simply starts one position further in.
	return alphabet.Encode(uint64(v)+1+uint64(n)*uint64(g.Config.PerCounter), g.Config.MaskBody, g.Config.Unbounded)
}

func (g *Generator) retireCounter(name string) error {
	sac, _, err := g.Store.Get(schema.AdminKey("saclist"))
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	sic, _, err := g.Store.Get(schema.AdminKey("siclist"))
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	active := strings.Fields(string(sac))
	inactive := strings.Fields(string(sic))
	kept := active[:0:0]
	for _, c := range active {
		if c != name {
			kept = append(kept, c)
		}
	}
	inactive = append(inactive, name)
	if err := g.Store.Set(schema.AdminKey("saclist"), []byte(joinCounterList(kept))); err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return noiderr.Wrap(noiderr.KindIO, g.Store.Set(schema.AdminKey("siclist"), []byte(joinCounterList(inactive))))
}

func joinCounterList(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.Join(names, " ") + " "
}

func counterIndex(name string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(name, "c"), 10, 64)
	if err != nil {
		return 0, noiderr.New(noiderr.KindIO, "malformed sub-counter name %q", name)
	}
	return n, nil
}

// validateCandidate applies the per-id guards: held identifiers and
// queued/already-issued/unqueued circulation states are never silently
// re-issued.
func (g *Generator) validateCandidate(id string) (skip bool, err error) {
	held, err := g.Store.Exists(schema.IDKey(id, schema.SuffixHold))
	if err != nil {
		return false, noiderr.Wrap(noiderr.KindIO, err)
	}
	if held {
		return true, nil
	}

	raw, ok, err := g.Store.Get(schema.IDKey(id, schema.SuffixCirculation))
	if err != nil {
		return false, noiderr.Wrap(noiderr.KindIO, err)
	}
	if !ok {
		return false, nil
	}
	rec, err := circulation.Parse(string(raw))
	if err != nil {
		return false, err
	}
	switch rec.Current() {
	case circulation.Queued:
		return true, nil
	case circulation.Issued:
		if g.Config.LongTerm || !g.Config.Wrap {
			g.logf("candidate %s already issued, skipping", id)
			return true, nil
		}
	case circulation.Unqueued:
		g.logf("candidate %s marked unqueued, skipping", id)
		return true, nil
	}
	return false, nil
}

// commit records the circulation transition and purges any residual
// user bindings a prior recycling left behind.
func (g *Generator) commit(id string, st circulation.Status, contact string, now time.Time, oacounter int64) error {
	key := schema.IDKey(id, schema.SuffixCirculation)
	raw, ok, err := g.Store.Get(key)
	counter := strconv.FormatInt(oacounter, 10)
	date := circulation.DateStamp(now)
	var rec circulation.Record
	if ok {
		rec, err = circulation.Parse(string(raw))
		if err != nil {
			return err
		}
		rec = rec.Prepend(st)
		rec.Date, rec.Contact, rec.Counter = date, contact, counter
	} else {
		rec = circulation.New(st, date, contact, counter)
	}
	if err := g.Store.Set(key, []byte(rec.String())); err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	return g.purgeBindings(id)
}

// purgeBindings removes every non-admin element binding left on id from a
// prior circulation, so a recycled identifier starts clean.
func (g *Generator) purgeBindings(id string) error {
	pairs, err := g.Store.Range(schema.IDPrefix(id), 0)
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	for _, p := range pairs {
		_, suffix, ok := schema.SplitIDKey(p.Key)
		if !ok || schema.IsReservedSuffix(suffix) {
			continue
		}
		if err := g.Store.Delete(p.Key); err != nil {
			return noiderr.Wrap(noiderr.KindIO, err)
		}
	}
	return nil
}

func (g *Generator) logf(format string, args ...interface{}) {
	if g.Log != nil {
		g.Log.Infof(format, args...)
	}
}
