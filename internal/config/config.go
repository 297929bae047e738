package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the persistent application configuration
type Config struct {
	// Backend
	APIBaseURL        string  `json:"api_base_url" validate:"required,url"`
	AppBaseURL        string  `json:"app_base_url" validate:"omitempty,url"` // share links
	Token             string  `json:"token,omitempty"`
	RequestsPerSecond float64 `json:"requests_per_second" validate:"gte=0"`

	// Discover feed location
	Country string   `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
	Lat     *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lng     *float64 `json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`

	// Feed
	PageSize         int      `json:"page_size" validate:"min=1,max=50"`
	HighlightsLimit  int      `json:"highlights_limit" validate:"min=1,max=200"`
	Sort             string   `json:"sort" validate:"required"`
	ExcludeMediaURLs []string `json:"exclude_media_urls,omitempty"`

	// MetricsAddr, when set, serves Prometheus metrics (e.g. "127.0.0.1:9464")
	MetricsAddr string `json:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:        "http://localhost:4000",
		AppBaseURL:        "https://varsityhub.app",
		RequestsPerSecond: 8,
		PageSize:          6,
		HighlightsLimit:   40,
		Sort:              "trending",
	}
}

// Dir is Sideline's state directory, ~/.sideline.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sideline")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(Dir(), "config.json")
}

// HistoryPath is the watch history database.
func HistoryPath() string {
	return filepath.Join(Dir(), "history.db")
}

// Load reads .env from the working directory (if present), then the config
// file, then environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := LoadFrom(ConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// LoadFrom reads config from path, or returns defaults when it doesn't
// exist. Fields missing from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SIDELINE_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SIDELINE_API_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := getenv("SIDELINE_TOKEN"); v != "" {
		c.Token = v
	}
	if v := getenv("SIDELINE_COUNTRY"); v != "" {
		c.Country = v
	}
	if v := getenv("SIDELINE_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := getenv("SIDELINE_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PageSize = n
		}
	}
	c.Country = strings.ToUpper(strings.TrimSpace(c.Country))
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Save writes config to ConfigPath.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // Restrictive permissions for the token
}
