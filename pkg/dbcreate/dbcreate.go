// Package dbcreate implements the database creator: validates creation
// inputs, materializes every admin record a fresh minter needs, and emits
// the human-readable creation report that becomes a database directory's
// README.
package dbcreate

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cdl-noid/noid/pkg/alphabet"
	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/template"
)

// Term is the identifier-durability term recorded at creation.
type Term string

const (
	TermLong   Term = "long"
	TermMedium Term = "medium"
	TermShort  Term = "short"
	TermNone   Term = "-"
)

// subCounterBuckets is the fixed sub-counter partitioning: a bounded,
// random-mode total is spread across this many buckets.
const subCounterBuckets = 293

var naanPattern = regexp.MustCompile(`^\d{5}$`)

// Options bundles everything Create needs: the create(settings, contact,
// template, term, naan, naa, subnaa) parameters.
type Options struct {
	Contact      string
	Template     string
	Term         Term
	NAAN         string
	NAA          string
	SubNAA       string
	GeneratorPRNG string // recorded as R/generator_random for random minters
	Notes        map[string]string
	Now          time.Time
}

// Validate checks the creation inputs before any state is written.
func (o Options) Validate() error {
	if o.Contact == "" {
		return noiderr.New(noiderr.KindBadInput, "contact must not be empty")
	}
	switch o.Term {
	case TermLong, TermMedium, TermShort, TermNone:
	default:
		return noiderr.New(noiderr.KindBadInput, "term must be one of long, medium, short, -")
	}
	if o.Term == TermLong {
		if !naanPattern.MatchString(o.NAAN) {
			return noiderr.New(noiderr.KindBadInput, "term=long requires a 5-digit naan, got %q", o.NAAN)
		}
		if o.NAA == "" || o.SubNAA == "" {
			return noiderr.New(noiderr.KindBadInput, "term=long requires non-empty naa and subnaa")
		}
	}
	return nil
}

// Create parses the template, writes every admin record into s (which the
// caller has already opened), and returns the human-readable creation
// report.
func Create(s store.Store, opts Options) (report string, err error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	tmpl, err := template.Parse(opts.Template)
	if err != nil {
		return "", err
	}

	firstPart := opts.NAAN
	if firstPart != "" && tmpl.Prefix != "" {
		firstPart = firstPart + "/" + tmpl.Prefix
	} else {
		firstPart = tmpl.Prefix
	}

	generatorType := "sequential"
	if !tmpl.NoGeneration && tmpl.Mode == template.Random {
		generatorType = "random"
	}

	admin := map[string]string{
		"template":        tmpl.Format(),
		"prefix":          tmpl.Prefix,
		"mask":            maskString(tmpl),
		"firstpart":       firstPart,
		"generator_type":  generatorType,
		"naan":            opts.NAAN,
		"naa":             opts.NAA,
		"subnaa":          opts.SubNAA,
		"longterm":        boolString(opts.Term == TermLong),
		"wrap":            boolString(opts.Term != TermLong && !tmpl.NoGeneration && !tmpl.Unbounded()),
		"addcheckchar":    boolString(!tmpl.NoGeneration && tmpl.HasCheck),
		"oacounter":       "0",
		"held":            "0",
		"queued":          "0",
		"pregenerated":    "0",
		"fseqnum":         "1",
		"gseqnum":         "0",
		"gseqnum_date":    "",
		"pregen_head":     "0",
		"pregen_tail":     "0",
		"genonly":         "true",
	}

	if generatorType == "random" {
		admin["generator_random"] = opts.GeneratorPRNG
		if admin["generator_random"] == "" {
			admin["generator_random"] = "lcg48"
		}
	}

	if !tmpl.NoGeneration && tmpl.HasCheck {
		repName, err := tmpl.CheckRepertoireName()
		if err != nil {
			return "", err
		}
		admin["checkrepertoire"] = string(repName)
		rep, err := alphabet.Lookup(repName)
		if err != nil {
			return "", err
		}
		admin["checkalphabet"] = string(rep.Chars)
	}

	total := int64(template.NoLimit)
	if !tmpl.NoGeneration {
		total = tmpl.Capacity
	}
	admin["total"] = strconv.FormatInt(total, 10)

	oatop := total
	admin["oatop"] = strconv.FormatInt(oatop, 10)

	padWidth := 0
	if total > 0 {
		padWidth = len(strconv.FormatInt(total-1, 10))
	}
	admin["padwidth"] = strconv.Itoa(padWidth)

	var perCounter int64
	var saclist []string
	if generatorType == "random" && total > 0 {
		perCounter = int64(math.Ceil(float64(total) / float64(subCounterBuckets)))
		remaining := total
		i := 0
		for remaining > 0 {
			top := perCounter
			if remaining < top {
				top = remaining
			}
			name := fmt.Sprintf("c%d", i)
			admin[name+"/value"] = "0"
			admin[name+"/top"] = strconv.FormatInt(top, 10)
			saclist = append(saclist, name)
			remaining -= top
			i++
		}
	}
	admin["percounter"] = strconv.FormatInt(perCounter, 10)
	admin["saclist"] = joinList(saclist)
	admin["siclist"] = ""

	admin["properties"] = properties(opts, tmpl, generatorType)

	for name, value := range admin {
		if err := s.Set(schema.AdminKey(name), []byte(value)); err != nil {
			return "", noiderr.Wrap(noiderr.KindIO, err)
		}
	}
	for key, value := range opts.Notes {
		if err := s.Set(schema.UserNoteKey(key), []byte(value)); err != nil {
			return "", noiderr.Wrap(noiderr.KindIO, err)
		}
	}

	return renderReport(opts, tmpl, admin), nil
}

func maskString(tmpl *template.Template) string {
	if tmpl.NoGeneration {
		return ""
	}
	return string(tmpl.Mode) + tmpl.Body + checkSuffix(tmpl)
}

func checkSuffix(tmpl *template.Template) string {
	if tmpl.HasCheck {
		return "k"
	}
	return ""
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func joinList(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.Join(names, " ") + " "
}

var vowels = map[rune]bool{'a': true, 'e': true, 'i': true, 'o': true, 'u': true}

func hasVowelRun(s string, runLen int) bool {
	run := 0
	for _, c := range strings.ToLower(s) {
		if vowels[c] {
			run++
			if run >= runLen {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// consonantOnlyRepertoires are the mask repertoire letters whose character
// lists contain no vowel, used by the "E" properties bit below.
var consonantOnlyRepertoires = map[byte]bool{'d': true, 'e': true, 'i': true, 'E': true}

// properties derives the seven-letter "GRANITE" durability mnemonic.
// Each position is upper-case when its named condition holds, lower-case
// otherwise.
func properties(opts Options, tmpl *template.Template, generatorType string) string {
	bits := make([]byte, 7)

	bits[0] = flag('g', naanPattern.MatchString(opts.NAAN) && opts.NAAN != "00000")
	bits[1] = flag('r', generatorType == "random")
	bits[2] = flag('a', !hasVowelRun(tmpl.Prefix+tmpl.Body, 3))
	bits[3] = flag('n', opts.Term == TermLong)
	bits[4] = flag('i', !strings.Contains(tmpl.Prefix, "-"))
	bits[5] = flag('t', tmpl.HasCheck)

	noVowelText := !hasVowelRun(tmpl.Prefix, 1)
	onlyConsonantReps := true
	for _, c := range tmpl.Body {
		if !consonantOnlyRepertoires[byte(c)] {
			onlyConsonantReps = false
			break
		}
	}
	bits[6] = flag('e', noVowelText && onlyConsonantReps)

	return string(bits)
}

func flag(letter byte, on bool) byte {
	if on {
		return letter - ('a' - 'A')
	}
	return letter
}

func renderReport(opts Options, tmpl *template.Template, admin map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "noid database creation report\n")
	fmt.Fprintf(&b, "generated: %s\n\n", opts.Now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "contact:       %s\n", opts.Contact)
	fmt.Fprintf(&b, "term:          %s\n", opts.Term)
	fmt.Fprintf(&b, "naan/naa/subnaa: %s / %s / %s\n", opts.NAAN, opts.NAA, opts.SubNAA)
	if tmpl.NoGeneration {
		fmt.Fprintf(&b, "template:      (none — bind-only minter)\n")
	} else {
		fmt.Fprintf(&b, "template:      %s\n", tmpl.Format())
		fmt.Fprintf(&b, "firstpart:     %s\n", admin["firstpart"])
		fmt.Fprintf(&b, "generator:     %s\n", admin["generator_type"])
		fmt.Fprintf(&b, "total:         %s\n", admin["total"])
		fmt.Fprintf(&b, "padwidth:      %s\n", admin["padwidth"])
	}
	fmt.Fprintf(&b, "properties:    %s\n", admin["properties"])

	var noteKeys []string
	for k := range opts.Notes {
		noteKeys = append(noteKeys, k)
	}
	sort.Strings(noteKeys)
	if len(noteKeys) > 0 {
		fmt.Fprintf(&b, "\nnotes:\n")
		for _, k := range noteKeys {
			fmt.Fprintf(&b, "  %s: %s\n", k, opts.Notes[k])
		}
	}
	return b.String()
}
