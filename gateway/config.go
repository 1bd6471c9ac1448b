package gateway

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so TOML files can use "90s" style values.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the gateway server configuration. It is passed explicitly to
// New; nothing reads it as ambient state, so tests can run gateways with
// different limits side by side.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string `toml:"listen_addr"`

	// Upstream model name (e.g., "gemini-2.5-flash")
	Model string `toml:"model"`

	// Directory for request-scoped staged uploads. Empty means a
	// directory under the system temp dir.
	StagingDir string `toml:"staging_dir"`

	// Per-file size caps, enforced at staging time.
	MaxImageBytes int64 `toml:"max_image_bytes"`
	MaxAudioBytes int64 `toml:"max_audio_bytes"`

	// Bound on the outbound inference call. On expiry the request is
	// relayed as UpstreamUnavailable and staged files are cleaned up.
	UpstreamTimeout Duration `toml:"upstream_timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		Model:           "gemini-2.5-flash",
		MaxImageBytes:   15 * 1024 * 1024,
		MaxAudioBytes:   20 * 1024 * 1024,
		UpstreamTimeout: Duration{2 * time.Minute},
	}
}

// LoadConfig reads a TOML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return config, nil
}
