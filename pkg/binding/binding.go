// Package binding implements the element-binding engine: attaching named
// element values to identifiers, the set/new/replace/append/prepend/
// delete/mint operation sum type, the idmap indirection rule, and the
// batch bind/fetch operations.
package binding

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/cdl-noid/noid/pkg/admincache"
	"github.com/cdl-noid/noid/pkg/circulation"
	"github.com/cdl-noid/noid/pkg/minter"
	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
)

// How is the binding operation sum type.
type How string

const (
	Set     How = "set"
	New     How = "new"
	Replace How = "replace"
	Append  How = "append"
	Add     How = "add" // alias for Append
	Prepend How = "prepend"
	Insert  How = "insert" // alias for Prepend
	Delete  How = "delete"
	Purge   How = "purge" // alias for Delete
	Mint    How = "mint"
)

// MintSentinel is the id value required for how=="mint": the caller must
// pass this literal sentinel in place of a real identifier.
const MintSentinel = "new"

// MaxBatch is the bindMultiple/fetchMultiple cap.
const MaxBatch = 10000

// Entry is one requested binding operation.
type Entry struct {
	How   How
	ID    string
	Elem  string
	Value string
}

// Result is one entry's outcome: nil Err on success.
type Result struct {
	Entry Entry
	Value string // echoes the bound/resulting value on success
	Err   error
}

// Engine applies binding operations against one session's store.
type Engine struct {
	Store  store.Store
	Cache  *admincache.Cache
	Minter *minter.Engine
}

// validatePrecondition checks the preconditions common to every binding
// operation: non-empty element and id names, and a recognized how value.
func (e *Engine) validatePrecondition(entry Entry) error {
	if entry.Elem == "" {
		return noiderr.New(noiderr.KindBadInput, "bind: element name must not be empty")
	}
	if entry.How != Mint && entry.ID == "" {
		return noiderr.New(noiderr.KindBadInput, "bind: identifier must not be empty")
	}
	switch entry.How {
	case Set, New, Replace, Append, Add, Prepend, Insert, Delete, Purge, Mint:
	default:
		return noiderr.New(noiderr.KindBadInput, "bind: unknown how %q", entry.How)
	}
	return nil
}

// longtermGuard enforces the long-term circulation guard: a long-term id
// with no circulation record and no hold rejects every binding operation
// unless first reserved by a hold.
func (e *Engine) longtermGuard(id string) error {
	if !e.Cache.LongTerm() {
		return nil
	}
	_, hasCirc, err := e.Store.Get(schema.IDKey(id, schema.SuffixCirculation))
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	if hasCirc {
		return nil
	}
	held, err := e.Store.Exists(schema.IDKey(id, schema.SuffixHold))
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	if held {
		return nil
	}
	return noiderr.New(noiderr.KindLongtermUnissued,
		"%s has not been issued and carries no hold; reserve it with a hold first", id)
}

// Bind applies a single binding operation according to its how value.
func (e *Engine) Bind(entry Entry, now time.Time) (string, error) {
	if err := e.validatePrecondition(entry); err != nil {
		return "", err
	}

	if entry.How == Mint {
		if entry.ID != MintSentinel {
			return "", noiderr.New(noiderr.KindBadInput, "bind: how=mint requires id=%q", MintSentinel)
		}
		id, err := e.Minter.Mint(now)
		if err != nil {
			return "", err
		}
		if _, err := e.bindValue(id, entry.Elem, entry.Value, New); err != nil {
			return "", err
		}
		return id, nil
	}

	if err := e.longtermGuard(entry.ID); err != nil {
		return "", err
	}
	return e.bindValue(entry.ID, entry.Elem, entry.Value, entry.How)
}

func (e *Engine) bindValue(id, elem, value string, how How) (string, error) {
	key := schema.IDKey(id, elem)
	existing, ok, err := e.Store.Get(key)
	if err != nil {
		return "", noiderr.Wrap(noiderr.KindIO, err)
	}

	var final string
	switch how {
	case Set:
		final = value
	case New:
		if ok {
			return "", noiderr.New(noiderr.KindBadInput, "bind: %s %s already has a value", id, elem)
		}
		final = value
	case Replace:
		if !ok {
			return "", noiderr.New(noiderr.KindBadInput, "bind: %s %s has no existing value to replace", id, elem)
		}
		final = value
	case Append, Add:
		if !ok {
			return "", noiderr.New(noiderr.KindBadInput, "bind: %s %s has no existing value to append to", id, elem)
		}
		final = string(existing) + value
	case Prepend, Insert:
		if !ok {
			return "", noiderr.New(noiderr.KindBadInput, "bind: %s %s has no existing value to prepend to", id, elem)
		}
		final = value + string(existing)
	case Delete, Purge:
		if err := e.Store.Delete(key); err != nil {
			return "", noiderr.Wrap(noiderr.KindIO, err)
		}
		return "", nil
	default:
		return "", noiderr.New(noiderr.KindBadInput, "bind: unknown how %q", how)
	}

	if err := e.Store.Set(key, []byte(final)); err != nil {
		return "", noiderr.Wrap(noiderr.KindIO, err)
	}
	return final, nil
}

// BindMultiple pre-validates every entry outside the lock (preconditions
// only, cheap and side-effect free), then applies the remaining ones,
// returning per-entry results in input order. Rejected entries carry
// their error in Result.Err rather than aborting the batch.
func (e *Engine) BindMultiple(entries []Entry, now time.Time) ([]Result, error) {
	if len(entries) > MaxBatch {
		return nil, noiderr.New(noiderr.KindBadInput, "bindMultiple: %d entries exceeds max batch %d", len(entries), MaxBatch)
	}
	if len(entries) == 0 {
		return []Result{}, nil
	}

	precheck := lo.Map(entries, func(entry Entry, _ int) error {
		return e.validatePrecondition(entry)
	})

	results := make([]Result, len(entries))
	for i, entry := range entries {
		if precheck[i] != nil {
			results[i] = Result{Entry: entry, Err: precheck[i]}
			continue
		}
		value, err := e.Bind(entry, now)
		results[i] = Result{Entry: entry, Value: value, Err: err}
	}
	return results, nil
}

// Verbosity selects fetch's output shape: raw value or labelled.
type Verbosity int

const (
	Raw Verbosity = iota
	Labelled
)

// FetchResult is one (id, elem) lookup's outcome.
type FetchResult struct {
	ID    string
	Elem  string
	Value string
	Found bool
}

// Fetch reads (id, elem). An empty elem scans every binding on id,
// excluding reserved admin sub-keys. Idmap indirection is consulted only
// for a direct, single-elem fetch that found nothing.
func (e *Engine) Fetch(id, elem string) ([]FetchResult, error) {
	if elem != "" {
		raw, ok, err := e.Store.Get(schema.IDKey(id, elem))
		if err != nil {
			return nil, noiderr.Wrap(noiderr.KindIO, err)
		}
		if ok {
			return []FetchResult{{ID: id, Elem: elem, Value: string(raw), Found: true}}, nil
		}
		if substituted, mapped, err := e.resolveIdmap(id, elem); err != nil {
			return nil, err
		} else if mapped {
			return []FetchResult{{ID: id, Elem: elem, Value: substituted, Found: true}}, nil
		}
		return []FetchResult{{ID: id, Elem: elem, Found: false}}, nil
	}

	pairs, err := e.Store.Range(schema.IDPrefix(id), 0)
	if err != nil {
		return nil, noiderr.Wrap(noiderr.KindIO, err)
	}
	var out []FetchResult
	for _, p := range pairs {
		_, suffix, ok := schema.SplitIDKey(p.Key)
		if !ok || schema.IsReservedSuffix(suffix) {
			continue
		}
		out = append(out, FetchResult{ID: id, Elem: suffix, Value: string(p.Value), Found: true})
	}
	return out, nil
}

// FetchMultiple applies Fetch over every (id, elem) pair, capped at
// MaxBatch.
func (e *Engine) FetchMultiple(ids []string, elem string) ([][]FetchResult, error) {
	if len(ids) > MaxBatch {
		return nil, noiderr.New(noiderr.KindBadInput, "fetchMultiple: %d ids exceeds max batch %d", len(ids), MaxBatch)
	}
	return lo.Map(ids, func(id string, _ int) []FetchResult {
		results, err := e.Fetch(id, elem)
		if err != nil {
			return []FetchResult{{ID: id, Elem: elem, Found: false}}
		}
		return results
	}), nil
}

// CirculationSummary renders a short human-readable summary of an id's
// circulation record for Labelled-mode fetch output.
func (e *Engine) CirculationSummary(id string) (string, error) {
	raw, ok, err := e.Store.Get(schema.IDKey(id, schema.SuffixCirculation))
	if err != nil {
		return "", noiderr.Wrap(noiderr.KindIO, err)
	}
	if !ok {
		return "never issued", nil
	}
	rec, err := circulation.Parse(string(raw))
	if err != nil {
		return "", err
	}
	return rec.SVEC + " " + rec.Date + " " + rec.Contact, nil
}

// idmapPrefixID is the reserved identifier idmap entries live under: each
// is stored as the per-identifier key "R/idmap\t<elem>".
const idmapPrefixID = "R/idmap"

// resolveIdmap performs idmap indirection: a single, non-recursive
// substitution step over the identifier text. Cycles are never resolved
// by iterating.
func (e *Engine) resolveIdmap(id, elem string) (string, bool, error) {
	raw, ok, err := e.Store.Get(schema.IDKey(idmapPrefixID, elem))
	if err != nil {
		return "", false, noiderr.Wrap(noiderr.KindIO, err)
	}
	if !ok {
		return "", false, nil
	}
	return substitute(id, string(raw)), true, nil
}

// substitute implements the idmap substitution language: every occurrence
// of the literal token "$id" in pattern is replaced with id.
func substitute(id, pattern string) string {
	return strings.ReplaceAll(pattern, "$id", id)
}

// SetIdmap installs an idmap indirection rule for elem.
func (e *Engine) SetIdmap(elem, pattern string) error {
	return noiderr.Wrap(noiderr.KindIO, e.Store.Set(schema.IDKey(idmapPrefixID, elem), []byte(pattern)))
}
