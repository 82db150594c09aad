// internal/config/config.go
package config

import (
	"bytes"
	"fmt"
	"os"

	"loki/internal/digest"
	"loki/internal/errors"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
)

// FileName is the config file inside the repository directory.
const FileName = "config.toml"

type Config struct {
	LogLevel string `toml:"log_level"` // debug, info, warn, error

	Core struct {
		Hash        digest.Algorithm `toml:"hash"`
		Compression bool             `toml:"compression"`
		CacheSize   int              `toml:"cache_size"`
	} `toml:"core"`

	Diff struct {
		Context int  `toml:"context"`
		Color   bool `toml:"color"`
	} `toml:"diff"`
}

// Default returns the configuration written by init.
func Default() *Config {
	cfg := &Config{LogLevel: "warn"}
	cfg.Core.Hash = digest.DefaultAlgorithm
	cfg.Core.CacheSize = 256
	cfg.Diff.Context = 3
	cfg.Diff.Color = true
	return cfg
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.IO("reading config", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("parsing %s: %v", path, err), nil)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.ValidationError(fmt.Sprintf("unknown config keys in %s", path), undecoded)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside the store.
func (c *Config) Validate() error {
	if err := c.Core.Hash.Validate(); err != nil {
		return err
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return errors.ValidationError(fmt.Sprintf("invalid log_level %q", c.LogLevel), nil)
	}

	if c.Core.CacheSize < 0 {
		return errors.ValidationError("core.cache_size cannot be negative", nil)
	}
	if c.Diff.Context < 0 {
		return errors.ValidationError("diff.context cannot be negative", nil)
	}
	return nil
}

// Encode renders the config as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}
