// Package queue implements the FIFO recyclable-identifier queue and the
// per-identifier hold flag: ripening by wall-clock time, the
// fseqnum/gseqnum sequence counters that keep queue keys sorting correctly
// under byte order, and the guarded pop sequence a mint consults before
// falling back to fresh generation.
package queue

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cdl-noid/noid/pkg/adminstate"
	"github.com/cdl-noid/noid/pkg/circulation"
	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
)

// Mode is the enqueue scheduling mode.
type Mode int

const (
	ModeNow Mode = iota
	ModeDelay
	ModeFirst
	ModeLVF
	ModeDelete
)

// When is a parsed enqueue-mode argument.
type When struct {
	Mode  Mode
	Delay time.Duration
}

// ParseWhen parses the enqueue(when, ids) mode argument: "now", "first",
// "lvf", "delete", or "<N>s"/"<N>d".
func ParseWhen(raw string) (When, error) {
	switch raw {
	case "now":
		return When{Mode: ModeNow}, nil
	case "first":
		return When{Mode: ModeFirst}, nil
	case "lvf":
		return When{Mode: ModeLVF}, nil
	case "delete":
		return When{Mode: ModeDelete}, nil
	}
	if len(raw) < 2 {
		return When{}, noiderr.New(noiderr.KindBadInput, "queue: invalid mode %q", raw)
	}
	unit := raw[len(raw)-1]
	n, err := parsePositiveInt(raw[:len(raw)-1])
	if err != nil {
		return When{}, noiderr.New(noiderr.KindBadInput, "queue: invalid mode %q", raw)
	}
	switch unit {
	case 's':
		return When{Mode: ModeDelay, Delay: time.Duration(n) * time.Second}, nil
	case 'd':
		return When{Mode: ModeDelay, Delay: time.Duration(n) * 24 * time.Hour}, nil
	default:
		return When{}, noiderr.New(noiderr.KindBadInput, "queue: invalid mode %q", raw)
	}
}

func parsePositiveInt(s string) (int64, error) {
	var n int64
	if s == "" {
		return 0, noiderr.New(noiderr.KindBadInput, "empty numeric part")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, noiderr.New(noiderr.KindBadInput, "not a number: %q", s)
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}

// Validator validates a candidate identifier against its governing
// template, unless genonly is false.
type Validator func(id string) error

// Subsystem bundles the store and configuration the queue/hold operations
// of one session need.
type Subsystem struct {
	Store     store.Store
	FirstPart string
	PadWidth  int
	GenOnly   bool
	Contact   string
	Log       *logrus.Entry
}

// idSuffix strips the firstpart prefix from id, leaving the bare suffix a
// queue key's <paddedid> component sorts on.
func (q *Subsystem) idSuffix(id string) string {
	return strings.TrimPrefix(id, q.FirstPart)
}

func padSuffix(suffix string, width int) string {
	if width <= 0 || len(suffix) >= width {
		return suffix
	}
	return strings.Repeat("0", width-len(suffix)) + suffix
}

// Enqueue validates each candidate, rejects held identifiers, derives the
// queue key's qdate and seqnum from the parsed mode, and transitions
// circulation state.
func (q *Subsystem) Enqueue(validate Validator, ids []string, when string, now time.Time) error {
	parsed, err := ParseWhen(when)
	if err != nil {
		return err
	}
	if parsed.Mode == ModeDelete {
		return q.dequeue(ids, now)
	}

	for _, id := range ids {
		if id == "" {
			return noiderr.New(noiderr.KindBadInput, "queue: empty identifier")
		}
		if q.GenOnly && validate != nil {
			if err := validate(id); err != nil {
				return err
			}
		}
		held, err := q.Store.Exists(schema.IDKey(id, schema.SuffixHold))
		if err != nil {
			return noiderr.Wrap(noiderr.KindIO, err)
		}
		if held {
			return noiderr.New(noiderr.KindCirculationConflict,
				"a hold has been set for %s and must be released before the identifier can be queued", id)
		}

		qdate, seqnum, err := q.deriveQDateSeqnum(parsed, now)
		if err != nil {
			return err
		}
		padded := padSuffix(q.idSuffix(id), q.PadWidth)
		key := schema.QueueKey(qdate, seqnum, padded)
		if err := q.Store.Set(key, []byte(id)); err != nil {
			return noiderr.Wrap(noiderr.KindIO, err)
		}
		if _, err := adminstate.IncrCount(q.Store, "queued", 1); err != nil {
			return err
		}
		if err := q.transition(id, circulation.Queued, now); err != nil {
			return err
		}
	}
	return nil
}

func (q *Subsystem) deriveQDateSeqnum(w When, now time.Time) (string, int, error) {
	switch w.Mode {
	case ModeFirst:
		seq, err := adminstate.Incr(q.Store, schema.AdminKey("fseqnum"), 0)
		if err != nil {
			return "", 0, err
		}
		if seq == 0 {
			seq = 1
		}
		if err := adminstate.SetInt64(q.Store, schema.AdminKey("fseqnum"), seq+1); err != nil {
			return "", 0, err
		}
		return schema.ZeroDate, int(seq), nil
	case ModeLVF:
		return schema.ZeroDate, 0, nil
	case ModeNow:
		return q.nextGSeqnum(circulation.DateStamp(now))
	case ModeDelay:
		return q.nextGSeqnum(circulation.DateStamp(now.Add(w.Delay)))
	default:
		return "", 0, noiderr.New(noiderr.KindBadInput, "queue: unsupported mode")
	}
}

// nextGSeqnum implements the real-time lane sequencing: gseqnum resets to
// 1 whenever qdate differs from the stored gseqnum_date.
func (q *Subsystem) nextGSeqnum(qdate string) (string, int, error) {
	storedDate, ok, err := q.Store.Get(schema.AdminKey("gseqnum_date"))
	if err != nil {
		return "", 0, noiderr.Wrap(noiderr.KindIO, err)
	}
	var seq int64 = 1
	if ok && string(storedDate) == qdate {
		prev, err := adminstate.GetInt64(q.Store, schema.AdminKey("gseqnum"), 0)
		if err != nil {
			return "", 0, err
		}
		seq = prev + 1
	} else {
		if err := q.Store.Set(schema.AdminKey("gseqnum_date"), []byte(qdate)); err != nil {
			return "", 0, noiderr.Wrap(noiderr.KindIO, err)
		}
	}
	if err := adminstate.SetInt64(q.Store, schema.AdminKey("gseqnum"), seq); err != nil {
		return "", 0, err
	}
	return qdate, int(seq), nil
}

// dequeue implements the "delete" enqueue mode: remove any prior queue
// entry for each id.
func (q *Subsystem) dequeue(ids []string, now time.Time) error {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	pairs, err := q.Store.Range(schema.QueuePrefix, 0)
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	for _, p := range pairs {
		id := string(p.Value)
		if !want[id] {
			continue
		}
		if err := q.Store.Delete(p.Key); err != nil {
			return noiderr.Wrap(noiderr.KindIO, err)
		}
		if _, err := adminstate.IncrCount(q.Store, "queued", -1); err != nil {
			return err
		}
		if err := q.transition(id, circulation.Unqueued, now); err != nil {
			return err
		}
		delete(want, id)
	}
	return nil
}

func (q *Subsystem) transition(id string, status circulation.Status, now time.Time) error {
	key := schema.IDKey(id, schema.SuffixCirculation)
	raw, ok, err := q.Store.Get(key)
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	date := circulation.DateStamp(now)
	if !ok {
		rec := circulation.New(status, date, q.Contact, "")
		return noiderr.Wrap(noiderr.KindIO, q.Store.Set(key, []byte(rec.String())))
	}
	rec, err := circulation.Parse(string(raw))
	if err != nil {
		return err
	}
	rec = rec.Prepend(status)
	rec.Date = date
	return noiderr.Wrap(noiderr.KindIO, q.Store.Set(key, []byte(rec.String())))
}

// Entry is one popped/peeked queue record.
type Entry struct {
	Key      []byte
	QDate    string
	SeqNum   int
	PaddedID string
	ID       string
}

func (q *Subsystem) peekHead() (*Entry, bool, error) {
	pairs, err := q.Store.Range(schema.QueuePrefix, 1)
	if err != nil {
		return nil, false, noiderr.Wrap(noiderr.KindIO, err)
	}
	if len(pairs) == 0 {
		return nil, false, nil
	}
	p := pairs[0]
	qdate, seq, padded, ok := schema.SplitQueueKey(p.Key)
	if !ok {
		return nil, false, noiderr.New(noiderr.KindIO, "malformed queue key %q", p.Key)
	}
	return &Entry{Key: p.Key, QDate: qdate, SeqNum: seq, PaddedID: padded, ID: string(p.Value)}, true, nil
}

func (q *Subsystem) removeHead(e *Entry) error {
	if err := q.Store.Delete(e.Key); err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	if _, err := adminstate.IncrCount(q.Store, "queued", -1); err != nil {
		return err
	}
	return q.resetFseqnumIfEmpty()
}

// resetFseqnumIfEmpty resets fseqnum to 1 only when the queue empties
// after a mint.
func (q *Subsystem) resetFseqnumIfEmpty() error {
	pairs, err := q.Store.Range(schema.QueuePrefix, 1)
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	if len(pairs) == 0 {
		return adminstate.SetInt64(q.Store, schema.AdminKey("fseqnum"), 1)
	}
	return nil
}

// Consume is the mint-time queue consumption: peek the head, check
// ripeness, pop it while honoring the per-status guards, and retry on any
// skip until the queue yields a usable id or runs dry.
func (q *Subsystem) Consume(now time.Time) (id string, ok bool, err error) {
	for {
		head, found, err := q.peekHead()
		if err != nil {
			return "", false, err
		}
		if !found {
			return "", false, nil
		}

		if head.QDate != schema.ZeroDate {
			qtime, parseErr := time.Parse("20060102150405", head.QDate)
			if parseErr == nil && now.UTC().Before(qtime) {
				return "", false, nil // not ripe yet
			}
		}

		held, err := q.Store.Exists(schema.IDKey(head.ID, schema.SuffixHold))
		if err != nil {
			return "", false, noiderr.Wrap(noiderr.KindIO, err)
		}
		if held {
			q.logf("queue: %s is held, dropping from queue", head.ID)
			if err := q.removeHead(head); err != nil {
				return "", false, err
			}
			continue
		}

		raw, recOk, err := q.Store.Get(schema.IDKey(head.ID, schema.SuffixCirculation))
		if err != nil {
			return "", false, noiderr.Wrap(noiderr.KindIO, err)
		}
		var cur circulation.Status
		if recOk {
			rec, err := circulation.Parse(string(raw))
			if err != nil {
				return "", false, err
			}
			cur = rec.Current()
		}

		switch cur {
		case circulation.Queued, 0:
			if cur == 0 {
				q.logf("queue: %s had no prior circulation record (pre-cycle)", head.ID)
			}
			if err := q.removeHead(head); err != nil {
				return "", false, err
			}
			return head.ID, true, nil
		case circulation.Issued:
			q.logf("queue: %s already issued while queued, skipping", head.ID)
		case circulation.Unqueued:
			q.logf("queue: %s marked unqueued, skipping", head.ID)
		default:
			q.logf("queue: %s unexpected circulation state %q, skipping", head.ID, string(cur))
		}
		if err := q.removeHead(head); err != nil {
			return "", false, err
		}
	}
}

func (q *Subsystem) logf(format string, args ...interface{}) {
	if q.Log != nil {
		q.Log.Errorf(format, args...)
	}
}

// HoldSet implements hold.set(id): idempotent.
func (q *Subsystem) HoldSet(id string) error {
	key := schema.IDKey(id, schema.SuffixHold)
	exists, err := q.Store.Exists(key)
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	if exists {
		return nil
	}
	if err := q.Store.Set(key, []byte{1}); err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	_, err = adminstate.IncrCount(q.Store, "held", 1)
	return err
}

// HoldRelease implements hold.release(id): idempotent.
func (q *Subsystem) HoldRelease(id string) error {
	key := schema.IDKey(id, schema.SuffixHold)
	exists, err := q.Store.Exists(key)
	if err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	if !exists {
		return nil
	}
	if err := q.Store.Delete(key); err != nil {
		return noiderr.Wrap(noiderr.KindIO, err)
	}
	_, err = adminstate.IncrCount(q.Store, "held", -1)
	return err
}

// IsHeld reports whether id currently carries a hold.
func (q *Subsystem) IsHeld(id string) (bool, error) {
	ok, err := q.Store.Exists(schema.IDKey(id, schema.SuffixHold))
	if err != nil {
		return false, noiderr.Wrap(noiderr.KindIO, err)
	}
	return ok, nil
}
