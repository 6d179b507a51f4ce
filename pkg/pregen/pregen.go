// Package pregen implements the pre-generation pool: a FIFO of
// already-minted identifiers under "R/p/<index>", recorded with
// circulation status 'p' instead of 'i', ready for latency-sensitive
// callers to pop ahead of the generator path.
package pregen

import (
	"time"

	"github.com/cdl-noid/noid/pkg/adminstate"
	"github.com/cdl-noid/noid/pkg/circulation"
	"github.com/cdl-noid/noid/pkg/generator"
	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
)

// MaxBatch is the pregenerate() batch cap.
const MaxBatch = 10000

// Pool wraps the store operations for the pre-generation pool.
type Pool struct {
	Store     store.Store
	Generator *generator.Generator
	Contact   string
}

// Count returns the current pregenerated count.
func (p *Pool) Count() (int64, error) {
	return adminstate.Pregenerated(p.Store)
}

// Pregenerate generates up to count fresh identifiers via the same
// generator path mint uses, recording each with circulation status 'p',
// and appends them to the tail of the pool. A single batch is capped at
// MaxBatch.
func (p *Pool) Pregenerate(count int, now time.Time) (int, error) {
	if count <= 0 {
		return 0, noiderr.New(noiderr.KindBadInput, "pregenerate: count must be positive")
	}
	if count > MaxBatch {
		return 0, noiderr.New(noiderr.KindBadInput, "pregenerate: count %d exceeds max batch %d", count, MaxBatch)
	}

	tail, err := adminstate.GetInt64(p.Store, schema.AdminKey("pregen_tail"), 0)
	if err != nil {
		return 0, err
	}

	generated := 0
	for i := 0; i < count; i++ {
		id, err := p.Generator.Next(circulation.Pregend, p.Contact, now)
		if err != nil {
			if noiderr.Of(err, noiderr.KindExhausted) {
				break
			}
			return generated, err
		}
		if err := p.Store.Set(schema.PregenSlotKey(tail), []byte(id)); err != nil {
			return generated, noiderr.Wrap(noiderr.KindIO, err)
		}
		tail++
		generated++
	}

	if generated == 0 {
		return 0, nil
	}
	if err := adminstate.SetInt64(p.Store, schema.AdminKey("pregen_tail"), tail); err != nil {
		return generated, err
	}
	if _, err := adminstate.IncrCount(p.Store, "pregenerated", int64(generated)); err != nil {
		return generated, err
	}
	return generated, nil
}

// Pop removes and returns the identifier at the pool head, rewriting its
// circulation SVEC leading byte from 'p' to 'i' as the mint fast path
// requires. ok is false when the pool is empty.
func (p *Pool) Pop(contact string, now time.Time) (id string, ok bool, err error) {
	head, err := adminstate.GetInt64(p.Store, schema.AdminKey("pregen_head"), 0)
	if err != nil {
		return "", false, err
	}
	key := schema.PregenSlotKey(head)
	raw, present, err := p.Store.Get(key)
	if err != nil {
		return "", false, noiderr.Wrap(noiderr.KindIO, err)
	}
	if !present {
		return "", false, nil
	}
	id = string(raw)

	if err := p.Store.Delete(key); err != nil {
		return "", false, noiderr.Wrap(noiderr.KindIO, err)
	}
	if err := adminstate.SetInt64(p.Store, schema.AdminKey("pregen_head"), head+1); err != nil {
		return "", false, err
	}
	if _, err := adminstate.IncrCount(p.Store, "pregenerated", -1); err != nil {
		return "", false, err
	}

	circKey := schema.IDKey(id, schema.SuffixCirculation)
	rawRec, present, err := p.Store.Get(circKey)
	if err != nil {
		return "", false, noiderr.Wrap(noiderr.KindIO, err)
	}
	if present {
		rec, err := circulation.Parse(string(rawRec))
		if err != nil {
			return "", false, err
		}
		if rec.Current() == circulation.Pregend {
			rec.SVEC = string(circulation.Issued) + rec.SVEC[1:]
			rec.Date = circulation.DateStamp(now)
			rec.Contact = contact
			if err := p.Store.Set(circKey, []byte(rec.String())); err != nil {
				return "", false, noiderr.Wrap(noiderr.KindIO, err)
			}
		}
	}
	return id, true, nil
}
