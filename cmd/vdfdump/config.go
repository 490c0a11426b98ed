package main

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/andreyvit/vdf/vdfcache"
)

// Config holds everything that can be set from a YAML file. Command-line
// flags override file values.
type Config struct {
	Format  string `yaml:"format"`
	Compact bool   `yaml:"compact"`
	Arrays  bool   `yaml:"arrays"`

	Strict   bool `yaml:"strict"`
	AltEnd   bool `yaml:"alt_end"`
	MaxDepth int  `yaml:"max_depth"`
	Hashes   bool `yaml:"hashes"`

	Cache            string               `yaml:"cache"`
	CacheCompression vdfcache.Compression `yaml:"cache_compression"`

	LogLevel slog.Level `yaml:"log_level"`
	Verbose  bool       `yaml:"verbose"`
}

func defaultConfig() Config {
	return Config{
		Format:           "summary",
		CacheCompression: vdfcache.CompressionZstd,
		LogLevel:         slog.LevelWarn,
	}
}

// loadConfig reads path over the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (cfg *Config) validate() error {
	switch cfg.Format {
	case "summary", "json", "cbor":
	default:
		return fmt.Errorf("unknown format %q (wanted summary, json or cbor)", cfg.Format)
	}
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative")
	}
	return nil
}
