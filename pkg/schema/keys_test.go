package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminKey(t *testing.T) {
	assert.Equal(t, []byte("R/template"), AdminKey("template"))
	assert.Equal(t, []byte("R/c3/value"), AdminKeyf("c%d/value", 3))
	assert.Equal(t, []byte("R/R/note"), UserNoteKey("note"))
}

func TestIDKeyRoundtrip(t *testing.T) {
	key := IDKey("ark:/12345/abc", "R/c")
	assert.Equal(t, []byte("ark:/12345/abc\tR/c"), key)

	id, suffix, ok := SplitIDKey(key)
	assert.True(t, ok)
	assert.Equal(t, "ark:/12345/abc", id)
	assert.Equal(t, "R/c", suffix)

	_, _, ok = SplitIDKey([]byte("no-separator"))
	assert.False(t, ok)
}

func TestIDPrefix(t *testing.T) {
	assert.Equal(t, []byte("ark:/12345/abc\t"), IDPrefix("ark:/12345/abc"))
}

func TestIsReservedSuffix(t *testing.T) {
	assert.True(t, IsReservedSuffix("R/c"))
	assert.True(t, IsReservedSuffix("R/h"))
	assert.False(t, IsReservedSuffix("title"))
}

func TestQueueKeyRoundtrip(t *testing.T) {
	key := QueueKey("20260729120000", 7, "abc123")
	assert.Equal(t, []byte("R/q/20260729120000/000007/abc123"), key)

	qdate, seqnum, paddedID, ok := SplitQueueKey(key)
	assert.True(t, ok)
	assert.Equal(t, "20260729120000", qdate)
	assert.Equal(t, 7, seqnum)
	assert.Equal(t, "abc123", paddedID)

	_, _, _, ok = SplitQueueKey([]byte("R/notqueue/x"))
	assert.False(t, ok)
}

func TestPregenSlotKey(t *testing.T) {
	assert.Equal(t, []byte("R/p/42"), PregenSlotKey(42))
}
