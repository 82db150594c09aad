package config

import (
	"os"
	"path/filepath"
	"testing"

	"loki/internal/digest"
	"loki/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, digest.SHA1, cfg.Core.Hash)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[core]
hash = "xxh3"
compression = true

[diff]
context = 5
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, digest.XXH3, cfg.Core.Hash)
	assert.True(t, cfg.Core.Compression)
	assert.Equal(t, 256, cfg.Core.CacheSize, "unset keys keep their default")
	assert.Equal(t, 5, cfg.Diff.Context)
	assert.True(t, cfg.Diff.Color)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", `log_level = `},
		{"unknown hash", "[core]\nhash = \"md5\"\n"},
		{"bad level", `log_level = "chatty"`},
		{"unknown key", `colour = true`},
		{"negative context", "[diff]\ncontext = -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			assert.True(t, errors.Is(err, errors.ErrValidation), "got %v", err)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Core.Hash = digest.XXH3

	data, err := cfg.Encode()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, data, 0644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
