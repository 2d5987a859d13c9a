package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the environment variables that override file settings.
const EnvPrefix = "THREAD_"

const (
	DeleteSoft   = "soft"
	DeleteRemove = "remove"
)

type Config struct {
	// Site
	BaseURL       string `koanf:"base_url"`
	ArticleID     string `koanf:"article_id"`
	SortMode      string `koanf:"sort_mode"`
	CSRFToken     string `koanf:"csrf_token"`
	Authenticated bool   `koanf:"authenticated"`

	// Requests
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// Session state
	SessionDB string `koanf:"session_db"` // empty keeps state in memory

	// Presentation
	IndentStep     int           `koanf:"indent_step"` // px per nesting level
	RepliesVisible bool          `koanf:"replies_visible"`
	DeleteMode     string        `koanf:"delete_mode"`
	ToastTTL       time.Duration `koanf:"toast_ttl"`

	// Logging
	LogLevel string `koanf:"log_level"`

	// ServeUser is who requests to the local serve command are made as.
	ServeUser string `koanf:"serve_user"`
}

func Default() *Config {
	return &Config{
		BaseURL:        "http://localhost:8000",
		SortMode:       "newest",
		Authenticated:  true,
		RequestTimeout: 10 * time.Second,
		IndentStep:     20,
		RepliesVisible: true,
		DeleteMode:     DeleteSoft,
		ToastTTL:       5 * time.Second,
		LogLevel:       "info",
		ServeUser:      "alice",
	}
}

// Load starts from the defaults, applies the YAML file at path if it exists
// and then THREAD_* environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	switch c.SortMode {
	case "newest", "oldest", "most_upvoted":
	default:
		return fmt.Errorf("invalid sort_mode %q: must be one of newest, oldest, most_upvoted", c.SortMode)
	}
	switch c.DeleteMode {
	case DeleteSoft, DeleteRemove:
	default:
		return fmt.Errorf("invalid delete_mode %q: must be soft or remove", c.DeleteMode)
	}
	if c.IndentStep < 0 {
		return fmt.Errorf("indent_step must be non-negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	return nil
}
