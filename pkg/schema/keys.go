// Package schema builds and parses the flat key-value namespace: administrative
// keys under the "R/" prefix, and per-identifier keys of the form
// "<id>\t<suffix>".
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// IDSuffixSep is the byte separating an identifier from its element or
// reserved suffix in a per-identifier key.
const IDSuffixSep = "\t"

// Reserved per-identifier suffixes.
const (
	SuffixCirculation = "R/c"
	SuffixHold        = "R/h"
	SuffixPepper      = "R/p"
)

// AdminKey builds an administrative key, e.g. AdminKey("template") == "R/template".
func AdminKey(name string) []byte {
	return []byte("R/" + name)
}

// AdminKeyf builds an administrative key from a format string, e.g.
// AdminKeyf("c%d/value", 3) == "R/c3/value".
func AdminKeyf(format string, args ...interface{}) []byte {
	return AdminKey(fmt.Sprintf(format, args...))
}

// UserNoteKey builds a "R/R/<key>" user-notes admin key.
func UserNoteKey(key string) []byte {
	return AdminKey("R/" + key)
}

// IDKey builds a per-identifier key "<id>\t<suffix>".
func IDKey(id, suffix string) []byte {
	return []byte(id + IDSuffixSep + suffix)
}

// IDPrefix builds the range-scan prefix "<id>\t" used to enumerate every
// binding and reserved suffix for an identifier.
func IDPrefix(id string) []byte {
	return []byte(id + IDSuffixSep)
}

// SplitIDKey splits a per-identifier key back into its id and suffix.
func SplitIDKey(key []byte) (id, suffix string, ok bool) {
	s := string(key)
	i := strings.Index(s, IDSuffixSep)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+len(IDSuffixSep):], true
}

// IsReservedSuffix reports whether suffix is one of the admin sub-keys
// (those beginning with "R/") rather than a user element binding.
func IsReservedSuffix(suffix string) bool {
	return strings.HasPrefix(suffix, "R/")
}

// QueuePrefix is the scan prefix for every queue entry.
var QueuePrefix = []byte("R/q/")

// QueueKey builds a queue entry key "R/q/<qdate>/<seqnum>/<paddedid>".
func QueueKey(qdate string, seqnum int, paddedID string) []byte {
	return []byte(fmt.Sprintf("R/q/%s/%06d/%s", qdate, seqnum, paddedID))
}

// ZeroDate is the all-zero 14-digit date lane used by the "first" and "lvf"
// enqueue modes.
const ZeroDate = "00000000000000"

// SplitQueueKey parses a queue entry key back into its qdate, seqnum and
// padded identifier suffix.
func SplitQueueKey(key []byte) (qdate string, seqnum int, paddedID string, ok bool) {
	s := string(key)
	if !strings.HasPrefix(s, string(QueuePrefix)) {
		return "", 0, "", false
	}
	rest := s[len(QueuePrefix):]
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 {
		return "", 0, "", false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, "", false
	}
	return parts[0], n, parts[2], true
}

// PregenSlotKey builds a pre-generation pool slot key "R/p/<index>".
func PregenSlotKey(index int64) []byte {
	return AdminKeyf("p/%d", index)
}
