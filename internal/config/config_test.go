package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/apiscope/internal/endpoint"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apiscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, []string{"POST"}, cfg.BodyMethods)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Strict)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := writeFile(t, `
input: ./openapi.yaml
base-url: http://localhost:8000
timeout: 5s
include_tags: blocks, txs
bodyMethods: [post, get]
log:
  level: debug
  pretty: true
`)
	t.Setenv("APISCOPE_BASE_URL", "http://api.internal")
	t.Setenv("APISCOPE_CONCURRENCY", "8")
	t.Setenv("APISCOPE_LOG_LEVEL", "WARN")
	t.Setenv("APISCOPE_STRICT", "true")
	t.Setenv("APISCOPE_UNRELATED", "ignored")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./openapi.yaml", cfg.Input)
	assert.Equal(t, "http://api.internal", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"blocks", "txs"}, cfg.IncludeTags)
	assert.Equal(t, []string{"POST", "GET"}, cfg.BodyMethods)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.True(t, cfg.Strict)

	methods, err := cfg.Methods()
	require.NoError(t, err)
	assert.Equal(t, []endpoint.Method{endpoint.POST, endpoint.GET}, methods)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		key     string
	}{
		{"unknown field", "color: blue\n", "color"},
		{"bad bool", "strict: maybe\n", "strict"},
		{"bad list element", "includeTags: [1]\n", "includeTags"},
		{"bad method", "bodyMethods: [fetch]\n", "bodyMethods"},
		{"bad concurrency", "concurrency: 0\n", "concurrency"},
	}
	for _, tt := range tests {
		_, err := Load(writeFile(t, tt.content))
		var ce *Error
		if assert.ErrorAs(t, err, &ce, tt.name) {
			assert.Equal(t, tt.key, ce.Key, tt.name)
		}
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var ce *Error
	assert.ErrorAs(t, err, &ce)

	_, err = Load(writeFile(t, "includeTags: [a]\nexcludeTags: a\n"))
	assert.ErrorContains(t, err, "overlap")
}

func TestLoad_BadEnvironmentValue(t *testing.T) {
	t.Setenv("APISCOPE_RETRIES", "many")
	_, err := Load("")
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "APISCOPE_RETRIES", ce.Key)
}

func TestSanitizeList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "b"}, SanitizeList([]string{" a", "", "b", "a "}))
	assert.Nil(t, SanitizeList([]string{" ", ""}))
}
