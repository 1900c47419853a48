// Package config loads the contentbot YAML configuration.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources      Sources      `yaml:"sources"`
	Pipeline     Pipeline     `yaml:"pipeline"`
	Rewrite      Rewrite      `yaml:"rewrite"`
	Images       Images       `yaml:"images"`
	Distribution Distribution `yaml:"distribution"`
	Output       Output       `yaml:"output"`
	Server       Server       `yaml:"server"`
}

type Sources struct {
	Feeds        []Feed   `yaml:"feeds"`
	Fallbacks    []string `yaml:"fallbacks"`
	MaxRetries   int      `yaml:"max_retries"`
	TimeoutSecs  int      `yaml:"timeout_seconds"`
	Concurrency  int      `yaml:"concurrency"`
	MinBodyChars int      `yaml:"min_body_chars"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Pipeline struct {
	MaxStoriesPerRun int     `yaml:"max_stories_per_run"`
	QualityThreshold float64 `yaml:"quality_threshold"`
	Schedule         string  `yaml:"schedule"` // cron expression
}

type Rewrite struct {
	Provider    string `yaml:"provider"` // "openai" or "ollama"
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
	DailyLimit  int    `yaml:"daily_limit"`
	MaxAttempts int    `yaml:"max_attempts"`
}

type Images struct {
	AccessKeyEnv string `yaml:"access_key_env"`
	HourlyLimit  int    `yaml:"hourly_limit"`
	FallbackURL  string `yaml:"fallback_url"`
}

type Distribution struct {
	MaxHashtags int        `yaml:"max_hashtags"`
	TimeoutSecs int        `yaml:"timeout_seconds"`
	SiteBaseURL string     `yaml:"site_base_url"`
	Facebook    Facebook   `yaml:"facebook"`
	Twitter     Twitter    `yaml:"twitter"`
	LinkedIn    LinkedIn   `yaml:"linkedin"`
	Newsletter  Newsletter `yaml:"newsletter"`
}

type Facebook struct {
	Enabled        bool   `yaml:"enabled"`
	AccessTokenEnv string `yaml:"access_token_env"`
	PageIDEnv      string `yaml:"page_id_env"`
}

type Twitter struct {
	Enabled        bool   `yaml:"enabled"`
	BearerTokenEnv string `yaml:"bearer_token_env"`
}

type LinkedIn struct {
	Enabled        bool   `yaml:"enabled"`
	AccessTokenEnv string `yaml:"access_token_env"`
	OrgIDEnv       string `yaml:"org_id_env"`
}

type Newsletter struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	ListID    int    `yaml:"list_id"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for contentbot.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "contentbot")
}

// DataDir returns the XDG data directory for contentbot.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "contentbot")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/contentbot/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'contentbot init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			MaxRetries:   3,
			TimeoutSecs:  10,
			Concurrency:  4,
			MinBodyChars: 300,
		},
		Pipeline: Pipeline{
			MaxStoriesPerRun: 10,
			QualityThreshold: 0.7,
			Schedule:         "0 9 * * 1,3,5",
		},
		Rewrite: Rewrite{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			OllamaURL:   "http://localhost:11434",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   2000,
			DailyLimit:  100,
			MaxAttempts: 3,
		},
		Images: Images{
			AccessKeyEnv: "UNSPLASH_ACCESS_KEY",
			HourlyLimit:  50,
			FallbackURL:  "https://images.unsplash.com/photo-1488646953014-85cb44e25828?auto=format&q=80&w=2400",
		},
		Distribution: Distribution{
			MaxHashtags: 5,
			TimeoutSecs: 15,
			SiteBaseURL: "https://www.globaltravelreport.com",
			Facebook: Facebook{
				Enabled:        true,
				AccessTokenEnv: "FACEBOOK_ACCESS_TOKEN",
				PageIDEnv:      "FACEBOOK_PAGE_ID",
			},
			Twitter: Twitter{
				Enabled:        true,
				BearerTokenEnv: "TWITTER_BEARER_TOKEN",
			},
			LinkedIn: LinkedIn{
				Enabled:        true,
				AccessTokenEnv: "LINKEDIN_ACCESS_TOKEN",
				OrgIDEnv:       "LINKEDIN_ORG_ID",
			},
			Newsletter: Newsletter{
				Enabled:   true,
				APIKeyEnv: "BREVO_API_KEY",
			},
		},
		Server: Server{Port: 8600},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// FeedTimeout returns the per-source fetch timeout.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Sources.TimeoutSecs) * time.Second
}

// DistributionTimeout returns the per-channel dispatch timeout.
func (c *Config) DistributionTimeout() time.Duration {
	return time.Duration(c.Distribution.TimeoutSecs) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
