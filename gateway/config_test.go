package gateway

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ":8080", config.ListenAddr)
	assert.Equal(t, "gemini-2.5-flash", config.Model)
	assert.Equal(t, int64(15*1024*1024), config.MaxImageBytes)
	assert.Equal(t, int64(20*1024*1024), config.MaxAudioBytes)
	assert.Equal(t, 2*time.Minute, config.UpstreamTimeout.Duration)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lantern.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr = ":9090"
max_image_bytes = 1048576
upstream_timeout = "30s"
`), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	// overridden
	assert.Equal(t, ":9090", config.ListenAddr)
	assert.Equal(t, int64(1048576), config.MaxImageBytes)
	assert.Equal(t, 30*time.Second, config.UpstreamTimeout.Duration)

	// defaults kept for the rest
	assert.Equal(t, "gemini-2.5-flash", config.Model)
	assert.Equal(t, int64(20*1024*1024), config.MaxAudioBytes)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lantern.toml")
	require.NoError(t, os.WriteFile(path, []byte(`upstream_timeout = "not a duration"`), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
