package admincache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cdl-noid/noid/pkg/schema"
	"github.com/cdl-noid/noid/pkg/store"
	"github.com/cdl-noid/noid/pkg/store/memstore"
)

func newLoadedCache(t *testing.T, extra map[string]string) *Cache {
	t.Helper()
	s := memstore.New()
	assert.NoError(t, s.Open("", store.ModeCreate))
	for name, value := range extra {
		assert.NoError(t, s.Set(schema.AdminKey(name), []byte(value)))
	}
	c, err := Load(s)
	assert.NoError(t, err)
	return c
}

func TestLoadPrefetchesImmutableKeys(t *testing.T) {
	c := newLoadedCache(t, map[string]string{
		"template":        "ark.zek",
		"firstpart":       "12345/ark",
		"longterm":        "true",
		"total":           "1000",
		"checkrepertoire": "e",
	})

	v, ok := c.Get("template")
	assert.True(t, ok)
	assert.Equal(t, "ark.zek", v)

	_, ok = c.Get("genonly")
	assert.False(t, ok)
}

func TestTypedAccessors(t *testing.T) {
	c := newLoadedCache(t, map[string]string{
		"template":        "ark.zek",
		"firstpart":       "12345/ark",
		"mask":            "zek",
		"generator_type":  "sequential",
		"longterm":        "true",
		"wrap":            "false",
		"addcheckchar":    "1",
		"checkrepertoire": "e",
		"total":           "1000",
		"oatop":           "999",
		"padwidth":        "6",
		"percounter":      "100",
		"naan":            "12345",
		"properties":      "GRANITE",
	})

	assert.Equal(t, "ark.zek", c.Template())
	assert.Equal(t, "12345/ark", c.FirstPart())
	assert.Equal(t, "zek", c.Mask())
	assert.Equal(t, "sequential", c.GeneratorType())
	assert.True(t, c.LongTerm())
	assert.False(t, c.Wrap())
	assert.True(t, c.AddCheckChar())
	assert.Equal(t, "e", c.CheckRepertoire())
	assert.Equal(t, int64(1000), c.Total())
	assert.Equal(t, int64(999), c.OATop())
	assert.Equal(t, 6, c.PadWidth())
	assert.Equal(t, int64(100), c.PerCounter())
	assert.Equal(t, "12345", c.NAAN())
	assert.Equal(t, "GRANITE", c.Properties())
	assert.False(t, c.NoGeneration())
}

func TestGenOnlyDefaultsTrue(t *testing.T) {
	c := newLoadedCache(t, nil)
	assert.True(t, c.GenOnly())

	c = newLoadedCache(t, map[string]string{"genonly": "false"})
	assert.False(t, c.GenOnly())
}

func TestNoGenerationWhenTemplateEmpty(t *testing.T) {
	c := newLoadedCache(t, nil)
	assert.True(t, c.NoGeneration())
}

func TestClose(t *testing.T) {
	c := newLoadedCache(t, map[string]string{"template": "ark.zek"})
	c.Close()
	_, ok := c.Get("template")
	assert.False(t, ok)
}
