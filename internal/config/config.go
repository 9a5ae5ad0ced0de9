// Package config loads the weft command configuration (weft.yaml).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config represents the structure of weft.yaml.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Engine   EngineConfig  `yaml:"engine"`
	Cache    CacheConfig   `yaml:"cache"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// EngineConfig bounds a run.
type EngineConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
	MaxFrames      int `yaml:"max_frames"`
	EventBuffer    int `yaml:"event_buffer"`
}

// CacheConfig selects the dependency cache shared by runs.
type CacheConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr   string        `yaml:"addr"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

// MetricsConfig configures the HTTP surface started by `weft run --serve`.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		Engine: EngineConfig{
			MaxFrames:   64,
			EventBuffer: 256,
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "weft:cache:",
			},
		},
		Metrics: MetricsConfig{Addr: ":2112"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the engine cannot use.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", CacheMemory, CacheRedis, c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for the redis backend")
	}
	if c.Engine.MaxConcurrency < 0 || c.Engine.MaxFrames < 0 || c.Engine.EventBuffer < 0 {
		return fmt.Errorf("engine limits must not be negative")
	}
	return nil
}
