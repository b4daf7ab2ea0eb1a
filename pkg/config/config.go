package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileName is the optional config file read from the working directory.
const FileName = "vertex-graph.toml"

// EnvPrefix prefixes every environment override, e.g. VERTEX_GRAPH_PORT=9090.
const EnvPrefix = "VERTEX_GRAPH_"

// Config holds all configuration for the application
type Config struct {
	DataDir           string `koanf:"data"`
	Port              int    `koanf:"port"`
	OpenBrowser       bool   `koanf:"open"`
	Watch             bool   `koanf:"watch"`
	StateDir          string `koanf:"state"` // Empty keeps view state in memory for the session
	Width             int    `koanf:"width"`
	Height            int    `koanf:"height"`
	FPS               int    `koanf:"fps"`
	Verbosity         string `koanf:"verbosity"`
	VerboseCnt        int    `koanf:"verbose"`
	LogFormat         string `koanf:"log-format"`
	CountsConcurrency int    `koanf:"counts-concurrency"`
}

// Defaults returns the built-in values of every key.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"data":               ".",
		"port":               8080,
		"open":               true,
		"watch":              true,
		"state":              "",
		"width":              1280,
		"height":             800,
		"fps":                30,
		"verbosity":          "",
		"verbose":            0,
		"log-format":         "text",
		"counts-concurrency": 8,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return load(f, FileName)
}

func load(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	// We ignore errors here as the file might not exist
	_ = k.Load(file.Provider(path), toml.Parser())

	// 3. Environment Variables
	// Underscores map to dashes so VERTEX_GRAPH_LOG_FORMAT sets log-format
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("invalid fps %d", c.FPS)
	}
	if c.CountsConcurrency <= 0 {
		return fmt.Errorf("invalid counts-concurrency %d", c.CountsConcurrency)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format %q", c.LogFormat)
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
