// Package admincache is the read-through cache of immutable creation
// parameters: everything a session's hot path reads repeatedly (mask,
// firstpart, longterm, wrap, generator_type, ...) is prefetched once on
// open and served from memory thereafter. Mutable keys (oacounter,
// sub-counter values, held, queued) are never cached — they are read
// straight from the store on every access.
package admincache

import (
	"strconv"

	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
)

// immutableKeys lists every admin scalar prefetched at open.
var immutableKeys = []string{
	"template", "prefix", "mask", "firstpart",
	"generator_type", "generator_random",
	"total", "oatop", "padwidth", "percounter",
	"longterm", "wrap",
	"addcheckchar", "checkrepertoire", "checkalphabet",
	"naan", "naa", "subnaa",
	"properties",
	"genonly",
}

// Cache holds the immutable admin keys for one open session.
type Cache struct {
	values map[string]string
}

// Load prefetches every immutable admin key from s. Keys absent from the
// store (e.g. "genonly" on minters that never set it) are simply absent
// from the cache; Get reports them as not-ok.
func Load(s store.Store) (*Cache, error) {
	c := &Cache{values: make(map[string]string, len(immutableKeys))}
	for _, name := range immutableKeys {
		v, ok, err := s.Get(schema.AdminKey(name))
		if err != nil {
			return nil, noiderr.Wrap(noiderr.KindIO, err)
		}
		if ok {
			c.values[name] = string(v)
		}
	}
	return c, nil
}

// Close clears the cache.
func (c *Cache) Close() {
	c.values = nil
}

// Get returns the raw string value of an immutable admin key.
func (c *Cache) Get(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// MustGet returns the raw value or "" if absent.
func (c *Cache) MustGet(name string) string {
	return c.values[name]
}

// Bool interprets a cached value as a boolean ("true"/"1" => true).
func (c *Cache) Bool(name string) bool {
	v := c.values[name]
	return v == "true" || v == "1"
}

// Int64 interprets a cached value as a signed integer, returning def if
// absent or unparsable.
func (c *Cache) Int64(name string, def int64) int64 {
	v, ok := c.values[name]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// Template returns the cached template string, or "" for a bind-only minter.
func (c *Cache) Template() string { return c.values["template"] }

// FirstPart returns the cached "naan/prefix" identifier prefix.
func (c *Cache) FirstPart() string { return c.values["firstpart"] }

// Mask returns the cached mask string.
func (c *Cache) Mask() string { return c.values["mask"] }

// GeneratorType returns "sequential" or "random".
func (c *Cache) GeneratorType() string { return c.values["generator_type"] }

// GeneratorRandom returns the configured PRNG name for random minters.
func (c *Cache) GeneratorRandom() string { return c.values["generator_random"] }

// LongTerm reports whether identifiers may never be silently re-issued.
func (c *Cache) LongTerm() bool { return c.Bool("longterm") }

// Wrap reports whether the counter may reset after exhaustion.
func (c *Cache) Wrap() bool { return c.Bool("wrap") }

// AddCheckChar reports whether minted identifiers carry a check character.
func (c *Cache) AddCheckChar() bool { return c.Bool("addcheckchar") }

// CheckRepertoire returns the single-letter repertoire name used for check
// character computation.
func (c *Cache) CheckRepertoire() string { return c.values["checkrepertoire"] }

// GenOnly reports whether bind/queue operations must validate the id
// against the template before proceeding. Default true.
func (c *Cache) GenOnly() bool {
	v, ok := c.values["genonly"]
	if !ok {
		return true
	}
	return v == "true" || v == "1"
}

// Total returns the identifier space capacity, or template.NoLimit.
func (c *Cache) Total() int64 { return c.Int64("total", -1) }

// OATop returns the configured oacounter ceiling.
func (c *Cache) OATop() int64 { return c.Int64("oatop", -1) }

// PadWidth returns the zero-pad width used for queue-key suffixes.
func (c *Cache) PadWidth() int { return int(c.Int64("padwidth", 0)) }

// PerCounter returns the identifier span assigned to each sub-counter.
func (c *Cache) PerCounter() int64 { return c.Int64("percounter", 0) }

// NAAN, NAA, SubNAA return the naming authority triple.
func (c *Cache) NAAN() string   { return c.values["naan"] }
func (c *Cache) NAA() string    { return c.values["naa"] }
func (c *Cache) SubNAA() string { return c.values["subnaa"] }

// Properties returns the seven-letter "GRANITE" durability mnemonic.
func (c *Cache) Properties() string { return c.values["properties"] }

// NoGeneration reports whether this is a bind-only minter (empty template).
func (c *Cache) NoGeneration() bool { return c.values["template"] == "" }
