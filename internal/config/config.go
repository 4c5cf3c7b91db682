// Package config loads and validates the YAML settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Memory modes.
const (
	MemoryNone   = "none"
	MemorySimple = "simple"
	MemorySmart  = "smart"
)

// RouteConfig is one provider/model pair for completion fallback, tried
// in file order.
type RouteConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// EmbeddingConfig selects the embedding provider for smart memory.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // ollama | openai
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// Config is the full settings file.
type Config struct {
	Workspace          string          `yaml:"workspace"`
	MemoryMode         string          `yaml:"memory_mode"`
	MaxMemories        int             `yaml:"max_memories"`
	MaxConcurrentTurns int             `yaml:"max_concurrent_turns"`
	Embedding          EmbeddingConfig `yaml:"embedding"`
	Routes             []RouteConfig   `yaml:"routes"`

	// APIKey is never read from the file; see Load.
	APIKey string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		Workspace:          filepath.Join(home, ".picobot"),
		MemoryMode:         MemorySimple,
		MaxMemories:        1000,
		MaxConcurrentTurns: 4,
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
		},
		Routes: []RouteConfig{
			{Provider: "openai", Model: "gpt-4o-mini"},
		},
	}
}

// Load reads path over the defaults. A missing file is not an error;
// the defaults apply. The completion API key always comes from the
// PICOBOT_API_KEY (or OPENAI_API_KEY) environment variable, never the
// file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if key := os.Getenv("PICOBOT_API_KEY"); key != "" {
		cfg.APIKey = key
	} else {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot start with.
func (c *Config) Validate() error {
	if c.Workspace == "" {
		return fmt.Errorf("workspace must be set")
	}
	switch c.MemoryMode {
	case MemoryNone, MemorySimple, MemorySmart:
	default:
		return fmt.Errorf("memory_mode must be none, simple, or smart; got %q", c.MemoryMode)
	}
	if c.MaxMemories <= 0 {
		return fmt.Errorf("max_memories must be positive; got %d", c.MaxMemories)
	}
	if c.MaxConcurrentTurns <= 0 {
		return fmt.Errorf("max_concurrent_turns must be positive; got %d", c.MaxConcurrentTurns)
	}
	if len(c.Routes) == 0 {
		return fmt.Errorf("at least one model route is required")
	}
	for i, r := range c.Routes {
		if r.Provider == "" || r.Model == "" {
			return fmt.Errorf("route %d: provider and model are required", i)
		}
	}
	if c.MemoryMode == MemorySmart && c.Embedding.Model == "" {
		return fmt.Errorf("smart memory requires an embedding model")
	}
	return nil
}
