// Package minter implements the single authoritative mint algorithm:
// pre-generation pool fast path, then recycling queue, then fresh
// generation — the three paths every public mint operation funnels
// through under the session lock.
package minter

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cdl-noid/noid/pkg/admincache"
	"github.com/cdl-noid/noid/pkg/alphabet"
	"github.com/cdl-noid/noid/pkg/circulation"
	"github.com/cdl-noid/noid/pkg/generator"
	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/pregen"
	"github.com/cdl-noid/noid/pkg/queue"
	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/template"
)

// MaxBatch is the mintMultiple() batch cap.
const MaxBatch = 10000

// Engine orchestrates one session's mint operations.
type Engine struct {
	Store     store.Store
	Cache     *admincache.Cache
	Queue     *queue.Subsystem
	Pool      *pregen.Pool
	Generator *generator.Generator
	Contact   string
	Log       *logrus.Entry
}

// NewEngine wires a mint Engine's sub-components from the session's admin
// cache: template, caches, and PRNG binding, assembled once per session.
func NewEngine(s store.Store, cache *admincache.Cache, contact string, log *logrus.Entry) (*Engine, error) {
	if cache.NoGeneration() {
		return &Engine{Store: s, Cache: cache, Contact: contact, Log: log}, nil
	}

	tmpl, err := template.Parse(cache.Template())
	if err != nil {
		return nil, err
	}
	checkRep := alphabet.Name(0)
	if cache.AddCheckChar() {
		name, err := tmpl.CheckRepertoireName()
		if err != nil {
			return nil, err
		}
		checkRep = name
	}

	gen := &generator.Generator{
		Store: s,
		Config: generator.Config{
			FirstPart:       cache.FirstPart(),
			MaskBody:        tmpl.Body,
			Unbounded:       tmpl.Unbounded(),
			GeneratorType:   cache.GeneratorType(),
			LongTerm:        cache.LongTerm(),
			Wrap:            cache.Wrap(),
			AddCheckChar:    cache.AddCheckChar(),
			CheckRepertoire: checkRep,
			OATop:           cache.OATop(),
			PerCounter:      cache.PerCounter(),
		},
		Log: log,
	}

	q := &queue.Subsystem{
		Store:     s,
		FirstPart: cache.FirstPart(),
		PadWidth:  cache.PadWidth(),
		GenOnly:   cache.GenOnly(),
		Contact:   contact,
		Log:       log,
	}

	pool := &pregen.Pool{Store: s, Generator: gen, Contact: contact}

	return &Engine{
		Store:     s,
		Cache:     cache,
		Queue:     q,
		Pool:      pool,
		Generator: gen,
		Contact:   contact,
		Log:       log,
	}, nil
}

// validateAgainstTemplate is the queue.Validator required before
// enqueuing, backed by the template and check-char validation.
func (e *Engine) validateAgainstTemplate(id string) error {
	if e.Cache.NoGeneration() {
		return nil
	}
	if !strings.HasPrefix(id, e.Cache.FirstPart()) {
		return noiderr.New(noiderr.KindBadInput, "iderr: %s does not start with firstpart %q", id, e.Cache.FirstPart())
	}
	tmpl, err := template.Parse(e.Cache.Template())
	if err != nil {
		return err
	}
	if e.Cache.AddCheckChar() {
		repName, err := tmpl.CheckRepertoireName()
		if err != nil {
			return err
		}
		rep, err := alphabet.Lookup(repName)
		if err != nil {
			return err
		}
		if !alphabet.VerifyCheckChar(id, rep) {
			return noiderr.New(noiderr.KindBadInput, "iderr: %s fails check character validation", id)
		}
	}
	return nil
}

// Enqueue delegates to the queue subsystem with this engine's template
// validator wired in.
func (e *Engine) Enqueue(ids []string, when string, now time.Time) error {
	return e.Queue.Enqueue(e.validateAgainstTemplate, ids, when, now)
}

// Mint runs the full mint algorithm: pool, then queue, then fresh
// generation, in that order.
func (e *Engine) Mint(now time.Time) (string, error) {
	if e.Cache.NoGeneration() {
		return "", noiderr.New(noiderr.KindBadInput, "mint: bind-only minter has no template to generate from")
	}

	if id, ok, err := e.Pool.Pop(e.Contact, now); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	if id, ok, err := e.Queue.Consume(now); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	id, err := e.Generator.Next(circulation.Issued, e.Contact, now)
	if err != nil {
		return "", err
	}
	if e.Cache.LongTerm() {
		if err := e.Queue.HoldSet(id); err != nil {
			return "", err
		}
	}
	return id, nil
}

// MintMultiple mints up to count identifiers: it stops early on
// exhaustion and returns the prefix of successfully minted ids rather
// than failing the whole batch.
func (e *Engine) MintMultiple(count int, now time.Time) ([]string, error) {
	if count <= 0 {
		return nil, noiderr.New(noiderr.KindBadInput, "mintMultiple: count must be positive")
	}
	if count > MaxBatch {
		return nil, noiderr.New(noiderr.KindBadInput, "mintMultiple: count %d exceeds max batch %d", count, MaxBatch)
	}

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id, err := e.Mint(now)
		if err != nil {
			if noiderr.Of(err, noiderr.KindExhausted) {
				break
			}
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
