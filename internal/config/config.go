package config

import (
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/matheuskafuri/hntop/internal/hn"
	"github.com/matheuskafuri/hntop/internal/logging"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

type Config struct {
	APIBaseURL     string `yaml:"api_base_url"`
	Limit          int    `yaml:"limit"`
	Concurrency    int    `yaml:"concurrency"`
	RequestTimeout string `yaml:"request_timeout"`
	AllowPartial   bool   `yaml:"allow_partial"`
	StaleTime      string `yaml:"stale_time"`
	RefetchOnMount bool   `yaml:"refetch_on_mount"`
	LogLevel       string `yaml:"log_level"`
}

// BaseURL returns the API root, letting HNTOP_API_URL win over the file.
func (c *Config) BaseURL() string {
	if u := os.Getenv("HNTOP_API_URL"); u != "" {
		return u
	}
	if c.APIBaseURL == "" {
		return hn.DefaultBaseURL
	}
	return c.APIBaseURL
}

// TimeoutDuration returns the fetch deadline. Zero means none.
func (c *Config) TimeoutDuration() time.Duration {
	if c.RequestTimeout == "" {
		return 0
	}
	d, err := ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0
	}
	return d
}

func (c *Config) StaleDuration() time.Duration {
	d, err := ParseDuration(c.StaleTime)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

func (c *Config) Level() slog.Level {
	lvl, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseDuration accepts Go durations plus a whole-day "Nd" form.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "hntop", "config.yaml")
}

func LogPath() string {
	return filepath.Join(xdg.StateHome, "hntop", "hntop.log")
}

// Default returns the embedded configuration.
func Default() *Config {
	cfg, err := loadDefaults()
	if err != nil {
		panic(err)
	}
	return cfg
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path, or the default location when path is empty.
// Keys missing from the file keep their default values. A missing file is
// created from the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: the embedded defaults still apply.
			_ = writeDefaults(path)
			if err := validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	// BaseURL includes the HNTOP_API_URL override.
	u, err := url.Parse(cfg.BaseURL())
	if err != nil {
		return fmt.Errorf("api_base_url: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_base_url: scheme must be http or https, got %q", u.Scheme)
	}
	if cfg.Limit < 1 || cfg.Limit > hn.MaxStories {
		return fmt.Errorf("limit must be between 1 and %d, got %d", hn.MaxStories, cfg.Limit)
	}
	if cfg.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", cfg.Concurrency)
	}
	if cfg.RequestTimeout != "" {
		if _, err := ParseDuration(cfg.RequestTimeout); err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
	}
	if _, err := ParseDuration(cfg.StaleTime); err != nil {
		return fmt.Errorf("stale_time: %w", err)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
