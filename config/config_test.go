package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnv(t *testing.T) {
	cfg := DefaultAppConfig()
	err := ApplyEnv(cfg, []string{
		"PLANTCATALOG_WEB_PORT=9000",
		"PLANTCATALOG_WEB_CORS_ORIGINS=http://a.test,http://b.test",
		"PLANTCATALOG_STORAGE_BOLT_FILE=/tmp/x.db",
		"PLANTCATALOG_CATALOG_SEED_ON_EMPTY=false",
		"PLANTCATALOG_SYSTEM_DEBUG=1",
		"HOME=/root",
		"PLANTCATALOG_BROKEN",
	})
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Web.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Web.CorsOrigins)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.BoltFile)
	assert.False(t, cfg.Catalog.SeedOnEmpty)
	assert.True(t, cfg.System.Debug)
	// untouched keys keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.Web.Host)
	assert.Equal(t, "bolt", cfg.Storage.Driver)
}

func TestLoadConfigEnvWinsOverYaml(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "plantd.yml")
	yml := "system:\n  workdir: " + dir + "\nweb:\n  port: 8080\nstorage:\n  driver: memory\n"
	require.NoError(t, os.WriteFile(cfile, []byte(yml), 0o644))

	t.Setenv("PLANTCATALOG_WEB_PORT", "7070")
	cfg, err := LoadConfig(cfile)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Web.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.True(t, cfg.Catalog.SeedOnEmpty)
	assert.DirExists(t, cfg.GetDataDir())
	assert.Equal(t, filepath.Join(dir, "data", "plants.db"), cfg.BoltPath())
}

func TestLoadConfigBadYaml(t *testing.T) {
	cfile := filepath.Join(t.TempDir(), "plantd.yml")
	require.NoError(t, os.WriteFile(cfile, []byte("web: [unclosed"), 0o644))
	_, err := LoadConfig(cfile)
	assert.Error(t, err)
}
