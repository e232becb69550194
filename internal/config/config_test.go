package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv2ics/internal/config"
)

func TestLoadWithoutPathUsesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTimezone, cfg.Timezone)
	assert.Equal(t, "-//csv2ics//EN", cfg.ProdID)
	assert.Equal(t, []string{"utf-8-sig", "utf-8", "windows-1251"}, cfg.Encodings)
	assert.Empty(t, cfg.Method)
}

func TestLoadCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "csv2ics.yaml")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTimezone, cfg.Timezone)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Timezone, again.Timezone)
	assert.Equal(t, cfg.Encodings, again.Encodings)
	assert.Equal(t, cfg.Listen, again.Listen)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csv2ics.yaml")
	yml := `timezone: ""
method: publish
output_ext: ical
columns:
  start: [beginn]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Timezone)
	assert.Equal(t, "PUBLISH", cfg.Method)
	assert.Equal(t, ".ical", cfg.OutputExt)
	assert.Equal(t, []string{"beginn"}, cfg.Columns.Start)
	// Untouched keys keep their defaults.
	assert.Equal(t, config.DefaultProdID, cfg.ProdID)
	assert.Equal(t, config.DefaultEncodings, cfg.Encodings)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: [unclosed"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CSV2ICS_TIMEZONE", "Asia/Seoul")
	t.Setenv("CSV2ICS_LOG_LEVEL", "debug")
	t.Setenv("CSV2ICS_LISTEN", ":9999")
	t.Setenv("CSV2ICS_MAX_UPLOAD_BYTES", "1024")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
}

func TestSaveRejectsEmptyInput(t *testing.T) {
	assert.Error(t, config.Save("", config.DefaultConfig()))
	assert.Error(t, config.Save(filepath.Join(t.TempDir(), "x.yaml"), nil))
}
