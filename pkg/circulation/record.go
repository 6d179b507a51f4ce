// Package circulation models the per-identifier circulation record (SVEC):
// "SVEC|date|contact|counter", where SVEC is a leftmost-extended history
// string over {i, q, u, p}.
package circulation

import (
	"strings"
	"time"

	"github.com/cdl-noid/noid/pkg/noiderr"
)

// Status is one character of an SVEC history.
type Status byte

const (
	Issued   Status = 'i'
	Queued   Status = 'q'
	Unqueued Status = 'u'
	Pregend  Status = 'p'
)

// Record is a parsed circulation record.
type Record struct {
	SVEC    string
	Date    string
	Contact string
	Counter string
}

// DateStamp formats t the way circulation records stamp dates: UTC, to the
// second, matching the 14-digit form queue dates use.
func DateStamp(t time.Time) string {
	return t.UTC().Format("20060102150405")
}

// Parse splits a stored "SVEC|date|contact|counter" value.
func Parse(raw string) (Record, error) {
	parts := strings.SplitN(raw, "|", 4)
	if len(parts) != 4 {
		return Record{}, noiderr.New(noiderr.KindIO, "malformed circulation record %q", raw)
	}
	return Record{SVEC: parts[0], Date: parts[1], Contact: parts[2], Counter: parts[3]}, nil
}

// String serializes the record back to its stored form.
func (r Record) String() string {
	return r.SVEC + "|" + r.Date + "|" + r.Contact + "|" + r.Counter
}

// Current returns the leftmost (current) status character, or 0 if SVEC is empty.
func (r Record) Current() Status {
	if r.SVEC == "" {
		return 0
	}
	return Status(r.SVEC[0])
}

// Prepend returns a copy of r with s prepended to the SVEC history: the
// history is always leftmost-extended, never overwritten.
func (r Record) Prepend(s Status) Record {
	r.SVEC = string(s) + r.SVEC
	return r
}

// New starts a fresh record with a single-character SVEC.
func New(s Status, date, contact, counter string) Record {
	return Record{SVEC: string(s), Date: date, Contact: contact, Counter: counter}
}
