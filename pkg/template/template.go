// Package template parses and formats noid prefix.mask templates.
package template

import (
	"strings"

	"github.com/cdl-noid/noid/pkg/alphabet"
	"github.com/cdl-noid/noid/pkg/noiderr"
)

// NoLimit is the capacity sentinel for unbounded templates.
const NoLimit int64 = -1

// Mode is the leading mask letter: random, sequential, or sequential
// with an unbounded run-on repertoire.
type Mode byte

const (
	Random              Mode = 'r'
	Sequential          Mode = 's'
	SequentialUnbounded Mode = 'z'
)

// Template is a parsed prefix.mask identifier-space descriptor.
type Template struct {
	Raw          string
	Prefix       string
	Mode         Mode
	Body         string // repertoire letters, mode and trailing 'k' stripped
	HasCheck     bool
	Capacity     int64 // NoLimit for unbounded templates
	NoGeneration bool  // true for the empty template: bind-only minter
}

var validMaskLetters = map[rune]bool{
	'd': true, 'e': true, 'i': true, 'x': true, 'v': true,
	'E': true, 'w': true, 'c': true, 'l': true,
}

// Parse parses "prefix.mask" into a Template. An empty template string is
// valid and yields a bind-only minter.
func Parse(raw string) (*Template, error) {
	if raw == "" {
		return &Template{NoGeneration: true}, nil
	}

	dot := strings.LastIndexByte(raw, '.')
	if dot < 0 {
		return nil, noiderr.New(noiderr.KindBadTemplate, "template %q: missing '.' separating prefix and mask", raw)
	}
	prefix, mask := raw[:dot], raw[dot+1:]
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	if len(mask) < 2 {
		return nil, noiderr.New(noiderr.KindBadTemplate, "template %q: mask %q too short", raw, mask)
	}

	mode := Mode(mask[0])
	if mode != Random && mode != Sequential && mode != SequentialUnbounded {
		return nil, noiderr.New(noiderr.KindBadTemplate, "template %q: position %d: invalid mode letter %q", raw, dot+1, mask[0])
	}

	rest := mask[1:]
	hasCheck := strings.HasSuffix(rest, "k")
	body := rest
	if hasCheck {
		body = rest[:len(rest)-1]
	}
	if body == "" {
		return nil, noiderr.New(noiderr.KindBadTemplate, "template %q: empty repertoire body", raw)
	}
	for i, c := range body {
		if !validMaskLetters[c] {
			return nil, noiderr.New(noiderr.KindBadTemplate, "template %q: position %d: invalid repertoire letter %q", raw, dot+2+i, c)
		}
	}

	capacity := NoLimit
	if mode != SequentialUnbounded {
		capacity = 1
		for _, c := range body {
			rep, err := alphabet.Lookup(alphabet.Name(c))
			if err != nil {
				return nil, err
			}
			capacity *= int64(rep.Len())
		}
	}

	return &Template{
		Raw:      raw,
		Prefix:   prefix,
		Mode:     mode,
		Body:     body,
		HasCheck: hasCheck,
		Capacity: capacity,
	}, nil
}

func validatePrefix(prefix string) error {
	for i, c := range prefix {
		isAlnum := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if !isAlnum {
			return noiderr.New(noiderr.KindBadTemplate, "prefix %q: position %d: character %q not alphanumeric", prefix, i, c)
		}
	}
	return nil
}

// Format reconstructs the "prefix.mask" string: Parse(Format(t)) == t
// for every valid template t.
func (t *Template) Format() string {
	if t.NoGeneration {
		return ""
	}
	var b strings.Builder
	b.WriteString(t.Prefix)
	b.WriteByte('.')
	b.WriteByte(byte(t.Mode))
	b.WriteString(t.Body)
	if t.HasCheck {
		b.WriteByte('k')
	}
	return b.String()
}

// Unbounded reports whether the template admits arbitrarily large identifiers.
func (t *Template) Unbounded() bool {
	return t.Mode == SequentialUnbounded
}

// CheckRepertoireName auto-detects the repertoire to use for check-character
// computation.
func (t *Template) CheckRepertoireName() (alphabet.Name, error) {
	return alphabet.AutoDetect(t.Body)
}
