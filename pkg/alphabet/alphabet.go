// Package alphabet defines the nine named character repertoires used by the
// identifier codec and computes/verifies check characters over them. Table
// order is the integer-to-digit mapping and must never be reordered.
package alphabet

import (
	"strings"

	"github.com/cdl-noid/noid/pkg/noiderr"
)

// Name identifies one of the nine repertoires by its mask letter.
type Name byte

const (
	Digit       Name = 'd'
	Extended    Name = 'e'
	NumericX    Name = 'i'
	Hex         Name = 'x'
	Lower       Name = 'v'
	ExtendedMix Name = 'E'
	Wide        Name = 'w'
	Printable   Name = 'c'
	NoL         Name = 'l'
)

// Repertoire is one fixed-order character list.
type Repertoire struct {
	Name  Name
	Chars []rune
}

// Len returns the repertoire's cardinality (base of its positional system).
func (r Repertoire) Len() int { return len(r.Chars) }

// Index returns the position of c in the repertoire, or -1 if absent.
func (r Repertoire) Index(c rune) int {
	for i, rc := range r.Chars {
		if rc == c {
			return i
		}
	}
	return -1
}

var registry = map[Name]Repertoire{
	Digit:       {Digit, []rune("0123456789")},
	Extended:    {Extended, []rune("0123456789bcdfghjkmnpqrstvwxz")},
	NumericX:    {NumericX, []rune("0123456789x")},
	Hex:         {Hex, []rune("0123456789abcdef_")},
	Lower:       {Lower, []rune("0123456789abcdefghijklmnopqrstuvwxyz_")},
	ExtendedMix: {ExtendedMix, []rune("123456789bcdfghjkmnpqrstvwxzBCDFGHJKMNPQRSTVWXZ")},
	Wide:        {Wide, []rune("0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ#*+@_")},
	Printable:   {Printable, printableRepertoire()},
	NoL:         {NoL, []rune("0123456789abcdefghijkmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")},
}

// printableRepertoire builds "c": printable ASCII minus {%-./\}, in
// ascending code-point order. Excluding those five characters from the 94
// printable non-space codes yields exactly 89, the upper cardinality bound
// for any repertoire.
func printableRepertoire() []rune {
	excluded := map[rune]bool{'%': true, '-': true, '.': true, '/': true, '\\': true}
	out := make([]rune, 0, 89)
	for r := rune('!'); r <= rune('~'); r++ {
		if excluded[r] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Lookup returns the repertoire for a mask letter.
func Lookup(name Name) (Repertoire, error) {
	rep, ok := registry[name]
	if !ok {
		return Repertoire{}, noiderr.New(noiderr.KindBadTemplate, "unknown repertoire %q", byte(name))
	}
	return rep, nil
}

// All returns every repertoire, ordered by ascending cardinality (the order
// AutoDetect prefers when searching for the smallest fit).
func All() []Repertoire {
	order := []Name{Digit, NumericX, Hex, Extended, Lower, ExtendedMix, NoL, Wide, Printable}
	reps := make([]Repertoire, 0, len(order))
	for _, n := range order {
		reps = append(reps, registry[n])
	}
	return reps
}

// AutoDetect scans the mask letters used and returns the smallest
// repertoire whose character set is a superset of every character the
// mask's repertoires can produce. Masks that mix only 'd' and 'e' retain
// 'e' for historical compatibility; a mask of 'd' alone follows the
// generic search and yields 'd'.
func AutoDetect(maskLetters string) (Name, error) {
	used := map[Name]bool{}
	for _, c := range maskLetters {
		used[Name(c)] = true
	}
	if len(used) == 0 {
		return 0, noiderr.New(noiderr.KindBadTemplate, "empty mask body")
	}

	onlyDE := true
	for n := range used {
		if n != Digit && n != Extended {
			onlyDE = false
			break
		}
	}
	if onlyDE && used[Extended] {
		return Extended, nil
	}

	union := map[rune]bool{}
	for n := range used {
		rep, err := Lookup(n)
		if err != nil {
			return 0, err
		}
		for _, c := range rep.Chars {
			union[c] = true
		}
	}

	for _, candidate := range All() {
		if supersetOf(candidate, union) {
			return candidate.Name, nil
		}
	}
	return 0, noiderr.New(noiderr.KindBadTemplate, "no repertoire covers mask %q", maskLetters)
}

func supersetOf(rep Repertoire, union map[rune]bool) bool {
	set := map[rune]bool{}
	for _, c := range rep.Chars {
		set[c] = true
	}
	for c := range union {
		if !set[c] {
			return false
		}
	}
	return true
}

// Encode implements n2xdig: encode non-negative integer n using the
// repertoires named (right to left) by maskBody. If unbounded is true
// (mask mode 'z'), the leftmost repertoire repeats indefinitely once the
// fixed body is exhausted and n is still non-zero; otherwise encoding stops
// once the fixed body is exhausted regardless of n.
func Encode(n uint64, maskBody string, unbounded bool) (string, error) {
	letters := []rune(maskBody)
	if len(letters) == 0 {
		return "", noiderr.New(noiderr.KindBadTemplate, "empty mask body")
	}

	var digits []rune
	i := len(letters) - 1
	for i >= 0 {
		rep, err := Lookup(Name(letters[i]))
		if err != nil {
			return "", err
		}
		base := uint64(rep.Len())
		digits = append(digits, rep.Chars[n%base])
		n /= base
		i--
	}

	if unbounded && n > 0 {
		rep, err := Lookup(Name(letters[0]))
		if err != nil {
			return "", err
		}
		base := uint64(rep.Len())
		for n > 0 {
			digits = append(digits, rep.Chars[n%base])
			n /= base
		}
	}

	// digits were appended least-significant first; reverse.
	for l, r := 0, len(digits)-1; l < r; l, r = l+1, r-1 {
		digits[l], digits[r] = digits[r], digits[l]
	}
	return string(digits), nil
}

const checkSentinel = '+'

// AppendCheckPlaceholder appends the '+' sentinel that a 'k'-suffixed mask
// reserves for the check character.
func AppendCheckPlaceholder(id string) string {
	return id + string(checkSentinel)
}

// CheckChar computes the check character for id against repertoire rep:
// each character of id (except a trailing '+') indexes into rep; characters
// absent from rep contribute zero. The weighted sum Σ cᵢ·(i+1) mod |rep|
// selects the result.
func CheckChar(id string, rep Repertoire) rune {
	body := strings.TrimSuffix(id, string(checkSentinel))
	index := make(map[rune]int, rep.Len())
	for i, c := range rep.Chars {
		index[c] = i
	}

	sum := 0
	for i, c := range []rune(body) {
		sum += index[c] * (i + 1) // map zero-value models "absent contributes zero"
	}
	sum %= rep.Len()
	return rep.Chars[sum]
}

// WithCheckChar replaces a trailing '+' sentinel with the computed check
// character, or appends one if id has none yet.
func WithCheckChar(id string, rep Repertoire) string {
	check := CheckChar(id, rep)
	if strings.HasSuffix(id, string(checkSentinel)) {
		return id[:len(id)-1] + string(check)
	}
	return id + string(check)
}

// VerifyCheckChar reports whether id's last character is the correct check
// character for the rest of id against rep.
func VerifyCheckChar(id string, rep Repertoire) bool {
	if len(id) == 0 {
		return false
	}
	runes := []rune(id)
	body, want := string(runes[:len(runes)-1]), runes[len(runes)-1]
	return CheckChar(body, rep) == want
}
