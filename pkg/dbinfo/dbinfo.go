// Package dbinfo implements the dbinfo and validate CLI-facing operations:
// a verbosity-tiered report over a database's admin state, and standalone
// template-against-identifier validation.
package dbinfo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cdl-noid/noid/pkg/admincache"
	"github.com/cdl-noid/noid/pkg/adminstate"
	"github.com/cdl-noid/noid/pkg/alphabet"
	"github.com/cdl-noid/noid/pkg/noiderr"
	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/template"
	"github.com/cdl-noid/noid/pkg/utils"
)

// Verbosity selects how much of a database's state dbinfo prints: brief,
// full, or dump.
type Verbosity int

const (
	Brief Verbosity = iota
	Full
	Dump
)

// ParseVerbosity parses a dbinfo CLI argument.
func ParseVerbosity(raw string) (Verbosity, error) {
	switch raw {
	case "", "brief":
		return Brief, nil
	case "full":
		return Full, nil
	case "dump":
		return Dump, nil
	default:
		return 0, noiderr.New(noiderr.KindBadInput, "dbinfo: unknown verbosity %q, want brief, full, or dump", raw)
	}
}

// dumpLimit bounds the raw key/value listing dbinfo dump prints: a
// diagnostic aid, not a backup format.
const dumpLimit = 10000

// briefFields lists the admin scalars brief verbosity prints, in display
// order.
var briefFields = []string{
	"template", "prefix", "mask", "firstpart",
	"generator_type", "generator_random",
	"naan", "naa", "subnaa",
	"longterm", "wrap", "addcheckchar", "checkrepertoire",
	"total", "oatop", "padwidth", "percounter",
	"genonly", "properties",
}

// Report renders a database's admin state at the requested verbosity.
func Report(s store.Store, cache *admincache.Cache, level Verbosity) (string, error) {
	var b strings.Builder

	scalars := make(map[string]string, len(briefFields))
	for _, name := range briefFields {
		if v, ok := cache.Get(name); ok {
			scalars[name] = v
		}
	}
	b.WriteString("admin scalars:")
	b.WriteString(utils.FormatMap(2, scalars))

	counts, err := liveCounts(s)
	if err != nil {
		return "", err
	}
	b.WriteString("live counters:")
	b.WriteString(utils.FormatMap(2, counts))

	if level == Brief {
		return b.String(), nil
	}

	subTable, err := subCounterTable(s)
	if err != nil {
		return "", err
	}
	if subTable != "" {
		b.WriteString("\nsub-counters:\n")
		b.WriteString(subTable)
		b.WriteString("\n")
	}

	queueDepth, err := countPrefix(s, schema.QueuePrefix)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "\nqueue entries: %d\n", queueDepth)

	if level == Full {
		return b.String(), nil
	}

	dump, err := rawDump(s)
	if err != nil {
		return "", err
	}
	b.WriteString("\nraw key/value dump")
	if dump.truncated {
		fmt.Fprintf(&b, " (first %d pairs)", dumpLimit)
	}
	b.WriteString(":\n")
	b.WriteString(dump.text)

	return b.String(), nil
}

func liveCounts(s store.Store) (map[string]string, error) {
	oacounter, err := adminstate.OACounter(s)
	if err != nil {
		return nil, err
	}
	held, err := adminstate.Held(s)
	if err != nil {
		return nil, err
	}
	queued, err := adminstate.Queued(s)
	if err != nil {
		return nil, err
	}
	pregenerated, err := adminstate.Pregenerated(s)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"oacounter":    fmt.Sprint(oacounter),
		"held":         fmt.Sprint(held),
		"queued":       fmt.Sprint(queued),
		"pregenerated": fmt.Sprint(pregenerated),
	}, nil
}

func subCounterTable(s store.Store) (string, error) {
	pairs, err := s.Range(schema.AdminKey("saclist"), 0)
	if err != nil {
		return "", noiderr.Wrap(noiderr.KindIO, err)
	}
	var saclist string
	for _, p := range pairs {
		if string(p.Key) == string(schema.AdminKey("saclist")) {
			saclist = string(p.Value)
		}
	}
	names := strings.Fields(saclist)
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)

	rows := [][]string{{"counter", "value", "top"}}
	for _, name := range names {
		value, err := adminstate.GetInt64(s, schema.AdminKeyf("%s/value", name), 0)
		if err != nil {
			return "", err
		}
		top, err := adminstate.GetInt64(s, schema.AdminKeyf("%s/top", name), 0)
		if err != nil {
			return "", err
		}
		rows = append(rows, []string{name, fmt.Sprint(value), fmt.Sprint(top)})
	}
	return utils.RenderTable(rows)
}

func countPrefix(s store.Store, prefix []byte) (int, error) {
	pairs, err := s.Range(prefix, 0)
	if err != nil {
		return 0, noiderr.Wrap(noiderr.KindIO, err)
	}
	return len(pairs), nil
}

type dumpResult struct {
	text      string
	truncated bool
}

func rawDump(s store.Store) (dumpResult, error) {
	pairs, err := s.Range(nil, dumpLimit+1)
	if err != nil {
		return dumpResult{}, noiderr.Wrap(noiderr.KindIO, err)
	}
	truncated := len(pairs) > dumpLimit
	if truncated {
		pairs = pairs[:dumpLimit]
	}
	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "%s = %s\n", p.Key, displayValue(p.Value))
	}
	return dumpResult{text: b.String(), truncated: truncated}, nil
}

// displayValue renders a stored value for the dump listing; the one-byte
// hold-flag sentinel isn't printable text, so it gets a symbolic rendering.
func displayValue(v []byte) string {
	if len(v) == 1 && v[0] == 1 {
		return "<hold>"
	}
	return string(v)
}

// ValidateAgainstTemplate implements the standalone validate operation:
// parse-candidate-against-template, then recompute the check character
// when the template calls for one. It never consults a live database —
// only the template and candidate identifier text.
func ValidateAgainstTemplate(templateStr, id string) error {
	tmpl, err := template.Parse(templateStr)
	if err != nil {
		return err
	}
	if tmpl.NoGeneration {
		return noiderr.New(noiderr.KindBadInput, "iderr: %s cannot be validated against an empty template", id)
	}
	if !strings.HasPrefix(id, tmpl.Prefix) {
		return noiderr.New(noiderr.KindBadInput, "iderr: %s does not start with prefix %q", id, tmpl.Prefix)
	}
	if !tmpl.HasCheck {
		return nil
	}
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
	return nil
}
