// Package config loads the manuwatch YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scriptnet/manuwatch/notify"
)

// Config is the top-level configuration.
type Config struct {
	// Database is the stores database path.
	Database string `yaml:"database"`
	// Listen is the admin API address. Empty disables the API.
	Listen string `yaml:"listen"`

	Poll    PollConfig    `yaml:"poll"`
	Browser BrowserConfig `yaml:"browser"`
	Crawl   CrawlConfig   `yaml:"crawl"`

	SMTP notify.SMTPConfig `yaml:"smtp"`
}

// PollConfig controls the scheduler.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// BrowserConfig controls Chrome acquisition.
type BrowserConfig struct {
	// ControlURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome per crawl.
	ControlURL string `yaml:"control_url"`
	// Headful disables headless mode, for debugging against a display.
	Headful bool `yaml:"headful"`
}

// CrawlConfig controls crawl timeouts.
type CrawlConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	KeyDelay       time.Duration `yaml:"key_delay"`
}

// Load reads a YAML configuration file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = "data/manuwatch.db"
	}
	if c.Listen == "" {
		c.Listen = ":8086"
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = 15 * time.Minute
	}
	if c.Crawl.DefaultTimeout <= 0 {
		c.Crawl.DefaultTimeout = 20 * time.Second
	}
	if c.Crawl.ProbeTimeout <= 0 {
		c.Crawl.ProbeTimeout = 5 * time.Second
	}
	if c.Crawl.KeyDelay <= 0 {
		c.Crawl.KeyDelay = 100 * time.Millisecond
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.Sender == "" {
		c.SMTP.Sender = "Manuwatch"
	}
}
