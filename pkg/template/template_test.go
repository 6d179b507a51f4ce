package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSequentialFixedWidth(t *testing.T) {
	tmpl, err := Parse(".sdd")
	require.NoError(t, err)
	assert.Equal(t, Sequential, tmpl.Mode)
	assert.Equal(t, "dd", tmpl.Body)
	assert.False(t, tmpl.HasCheck)
	assert.Equal(t, int64(100), tmpl.Capacity)
}

func TestParseWithCheckChar(t *testing.T) {
	tmpl, err := Parse("fk.redek")
	require.NoError(t, err)
	assert.Equal(t, "fk", tmpl.Prefix)
	assert.Equal(t, Random, tmpl.Mode)
	assert.True(t, tmpl.HasCheck)
	assert.Equal(t, "ede", tmpl.Body)
}

func TestParseUnboundedHasNoLimit(t *testing.T) {
	tmpl, err := Parse(".zd")
	require.NoError(t, err)
	assert.Equal(t, NoLimit, tmpl.Capacity)
	assert.True(t, tmpl.Unbounded())
}

func TestParseEmptyTemplateIsBindOnly(t *testing.T) {
	tmpl, err := Parse("")
	require.NoError(t, err)
	assert.True(t, tmpl.NoGeneration)
}

func TestParseRejectsBadMode(t *testing.T) {
	_, err := Parse("ab.qdd")
	assert.Error(t, err)
}

func TestParseRejectsBadRepertoireLetter(t *testing.T) {
	_, err := Parse("ab.sdQ")
	assert.Error(t, err)
}

func TestFormatRoundTrip(t *testing.T) {
	cases := []string{".sdd", "fk.redek", ".zd", "tst3.rde"}
	for _, raw := range cases {
		tmpl, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, tmpl.Format())

		reparsed, err := Parse(tmpl.Format())
		require.NoError(t, err)
		assert.Equal(t, tmpl, reparsed)
	}
}
