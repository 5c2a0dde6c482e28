// Package config holds process configuration: non-secret settings from a
// YAML file, secrets and model selection from the environment (see env.go).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the application configuration loaded from config.yaml.
// Every field has a working default, so the file is optional.
type Settings struct {
	Server  ServerSettings  `yaml:"server"`
	Context ContextSettings `yaml:"context"`
	Scraper ScraperSettings `yaml:"scraper"`
	Prompt  PromptSettings  `yaml:"prompt"`
}

type ServerSettings struct {
	Port int `yaml:"port"`
}

type ContextSettings struct {
	// TokenBudget is the per-conversation ledger ceiling; eviction triggers
	// when the total reaches it.
	TokenBudget int `yaml:"token_budget"`
	// ProtectedHead is how many leading ledger entries eviction must keep.
	ProtectedHead int `yaml:"protected_head"`
	// Encoding names the tiktoken encoding used for counting.
	Encoding string `yaml:"encoding"`
	// IdleTTLMinutes is how long an idle conversation survives in the
	// registry before eviction.
	IdleTTLMinutes int `yaml:"idle_ttl_minutes"`
}

type ScraperSettings struct {
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	MaxContentLength int    `yaml:"max_content_length"`
	StorageDir       string `yaml:"storage_dir"`
	// LLMClean enables the model-driven noise-removal pass over scraped
	// markdown.
	LLMClean bool `yaml:"llm_clean"`
}

type PromptSettings struct {
	// Path optionally overrides the embedded system prompt.
	Path string `yaml:"path"`
}

// Defaults returns the built-in configuration.
func Defaults() Settings {
	return Settings{
		Server: ServerSettings{Port: 8000},
		Context: ContextSettings{
			TokenBudget:    65536,
			ProtectedHead:  1,
			Encoding:       "cl100k_base",
			IdleTTLMinutes: 30,
		},
		Scraper: ScraperSettings{
			TimeoutSeconds:   60,
			MaxContentLength: 100_000,
			StorageDir:       "storage/scraped_content",
			LLMClean:         true,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error: the
// defaults apply unchanged. An unreadable or invalid file is an error — a
// present config that cannot take effect should never be ignored silently.
func Load(path string) (Settings, error) {
	s := Defaults()
	if path == "" {
		return s, s.Validate()
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, s.Validate()
	}
	if err != nil {
		return s, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse config %s: %w", path, err)
	}
	return s, s.Validate()
}

// Validate checks ranges that would otherwise fail deep inside the stack.
func (s Settings) Validate() error {
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", s.Server.Port)
	}
	if s.Context.TokenBudget < 0 {
		return fmt.Errorf("context.token_budget cannot be negative")
	}
	if s.Context.ProtectedHead < 1 {
		return fmt.Errorf("context.protected_head must be at least 1 (the system message)")
	}
	if s.Context.IdleTTLMinutes <= 0 {
		return fmt.Errorf("context.idle_ttl_minutes must be positive")
	}
	if s.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be positive")
	}
	if s.Scraper.StorageDir == "" {
		return fmt.Errorf("scraper.storage_dir cannot be empty")
	}
	return nil
}

// IdleTTL returns the registry TTL as a duration.
func (s Settings) IdleTTL() time.Duration {
	return time.Duration(s.Context.IdleTTLMinutes) * time.Minute
}

// ScrapeTimeout returns the scraper HTTP timeout as a duration.
func (s Settings) ScrapeTimeout() time.Duration {
	return time.Duration(s.Scraper.TimeoutSeconds) * time.Second
}
