// Package utils carries the small set of text-formatting helpers a
// text-only CLI needs: line splitting, table rendering, and map formatting
// for dbinfo reports. Reports are written verbatim to on-disk README/log
// files that must stay byte-plain, so no escape-code coloring belongs
// here.
package utils

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-errors/errors"
	"github.com/mattn/go-runewidth"
)

// SplitLines takes a multiline string and splits it on newlines, stripping
// \r's.
func SplitLines(multilineString string) []string {
	multilineString = strings.Replace(multilineString, "\r", "", -1)
	if multilineString == "" || multilineString == "\n" {
		return make([]string, 0)
	}
	lines := strings.Split(multilineString, "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}
	return lines
}

// WithPadding right-pads str to padding display columns, rune-width aware.
func WithPadding(str string, padding int) string {
	if padding < runewidth.StringWidth(str) {
		return str
	}
	return str + strings.Repeat(" ", padding-runewidth.StringWidth(str))
}

// NormalizeLinefeeds removes all Windows and Mac style line feeds.
func NormalizeLinefeeds(str string) string {
	str = strings.Replace(str, "\r\n", "\n", -1)
	str = strings.Replace(str, "\r", "", -1)
	return str
}

// Max returns the maximum of two integers.
func Max(x, y int) int {
	if x > y {
		return x
	}
	return y
}

// RenderTable takes an array of string arrays and returns an aligned table,
// used by dbinfo's sub-counter listing at the full/dump verbosity levels.
func RenderTable(rows [][]string) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if !displayArraysAligned(rows) {
		return "", errors.New("each item must return the same number of strings to display")
	}

	columnPadWidths := getPadWidths(rows)
	paddedDisplayRows := getPaddedDisplayStrings(rows, columnPadWidths)

	return strings.Join(paddedDisplayRows, "\n"), nil
}

func getPadWidths(rows [][]string) []int {
	if len(rows[0]) <= 1 {
		return []int{}
	}
	columnPadWidths := make([]int, len(rows[0])-1)
	for i := range columnPadWidths {
		for _, cells := range rows {
			if runewidth.StringWidth(cells[i]) > columnPadWidths[i] {
				columnPadWidths[i] = runewidth.StringWidth(cells[i])
			}
		}
	}
	return columnPadWidths
}

func getPaddedDisplayStrings(rows [][]string, columnPadWidths []int) []string {
	paddedDisplayRows := make([]string, len(rows))
	for i, cells := range rows {
		for j, columnPadWidth := range columnPadWidths {
			paddedDisplayRows[i] += WithPadding(cells[j], columnPadWidth) + " "
		}
		paddedDisplayRows[i] += cells[len(columnPadWidths)]
	}
	return paddedDisplayRows
}

// displayArraysAligned returns true if every row has the same column count.
func displayArraysAligned(stringArrays [][]string) bool {
	for _, strs := range stringArrays {
		if len(strs) != len(stringArrays[0]) {
			return false
		}
	}
	return true
}

// FormatMapItem renders one key/value line for FormatMap.
func FormatMapItem(padding int, k string, v interface{}) string {
	return fmt.Sprintf("%s%s: %v\n", strings.Repeat(" ", padding), k, v)
}

// FormatMap is for displaying a sorted key/value map, used by dbinfo's brief
// verbosity level to render the admin scalar table.
func FormatMap(padding int, m map[string]string) string {
	if len(m) == 0 {
		return "none\n"
	}

	output := "\n"

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		output += FormatMapItem(padding, key, m[key])
	}

	return output
}

type multiErr []error

func (m multiErr) Error() string {
	var b bytes.Buffer
	b.WriteString("encountered multiple errors:")
	for _, err := range m {
		b.WriteString("\n\t... " + err.Error())
	}
	return b.String()
}

// CloseMany closes every closer, returning a combined error if any failed.
func CloseMany(closers []io.Closer) error {
	errs := make([]error, 0, len(closers))
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return multiErr(errs)
	}
	return nil
}

// SafeTruncate truncates str to at most limit bytes.
func SafeTruncate(str string, limit int) string {
	if len(str) > limit {
		return str[0:limit]
	}
	return str
}
