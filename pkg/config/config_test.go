package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, BackendBolt, s.DefaultBackend)
	assert.Equal(t, "lcg48", s.DefaultPRNG)
	assert.False(t, s.PersistentConnections)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	assert.NoError(t, err)
	assert.Equal(t, Default().DefaultBackend, s.DefaultBackend)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yml")
	content := "defaultBackend: sqlite\ncontact: admin@example.org\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, BackendSQLite, s.DefaultBackend)
	assert.Equal(t, "admin@example.org", s.Contact)
	// Untouched fields keep their default.
	assert.Equal(t, "lcg48", s.DefaultPRNG)
}

func TestDBPath(t *testing.T) {
	s := Settings{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "mydb"), s.DBPath("mydb"))
}

func TestValidate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	s := Settings{DataDir: dir}
	assert.NoError(t, s.Validate())

	info, err := os.Stat(dir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())

	empty := Settings{}
	assert.Error(t, empty.Validate())
}
