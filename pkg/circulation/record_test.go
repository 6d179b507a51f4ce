package circulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateStamp(t *testing.T) {
	ts := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "20260729120000", DateStamp(ts))
}

func TestParseAndString(t *testing.T) {
	raw := "iu|20260729120000|admin|3"
	rec, err := Parse(raw)
	assert.NoError(t, err)
	assert.Equal(t, "iu", rec.SVEC)
	assert.Equal(t, "20260729120000", rec.Date)
	assert.Equal(t, "admin", rec.Contact)
	assert.Equal(t, "3", rec.Counter)
	assert.Equal(t, raw, rec.String())

	_, err = Parse("too|few|parts")
	assert.Error(t, err)
}

func TestCurrent(t *testing.T) {
	rec := New(Issued, "20260729120000", "admin", "1")
	assert.Equal(t, Issued, rec.Current())

	var empty Record
	assert.Equal(t, Status(0), empty.Current())
}

func TestPrepend(t *testing.T) {
	rec := New(Issued, "20260729120000", "admin", "1")
	rec = rec.Prepend(Queued)
	assert.Equal(t, "qi", rec.SVEC)
	assert.Equal(t, Queued, rec.Current())
}
