package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scriptnet/manuwatch/config"
)

func TestLoad(t *testing.T) {
	raw := `
database: /var/lib/manuwatch/stores.db
listen: "127.0.0.1:9090"
poll:
  interval: 5m
browser:
  control_url: ws://127.0.0.1:9222/devtools/browser/abc
  headful: true
crawl:
  default_timeout: 30s
  probe_timeout: 3s
smtp:
  server: smtp.example.com
  port: 465
  address: robot@example.com
  password: secret
  sender: Journal Watch
`
	path := filepath.Join(t.TempDir(), "manuwatch.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Database != "/var/lib/manuwatch/stores.db" {
		t.Errorf("database = %q", cfg.Database)
	}
	if cfg.Listen != "127.0.0.1:9090" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Poll.Interval != 5*time.Minute {
		t.Errorf("poll interval = %v", cfg.Poll.Interval)
	}
	if cfg.Browser.ControlURL == "" || !cfg.Browser.Headful {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if cfg.Crawl.DefaultTimeout != 30*time.Second || cfg.Crawl.ProbeTimeout != 3*time.Second {
		t.Errorf("crawl = %+v", cfg.Crawl)
	}
	// Unset fields pick up defaults.
	if cfg.Crawl.KeyDelay != 100*time.Millisecond {
		t.Errorf("key delay = %v", cfg.Crawl.KeyDelay)
	}
	if cfg.SMTP.Port != 465 || cfg.SMTP.Sender != "Journal Watch" {
		t.Errorf("smtp = %+v", cfg.SMTP)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("want error for a missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.Database != "data/manuwatch.db" {
		t.Errorf("database = %q", cfg.Database)
	}
	if cfg.Listen != ":8086" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Poll.Interval != 15*time.Minute {
		t.Errorf("poll interval = %v", cfg.Poll.Interval)
	}
	if cfg.Crawl.DefaultTimeout != 20*time.Second {
		t.Errorf("default timeout = %v", cfg.Crawl.DefaultTimeout)
	}
	if cfg.Crawl.ProbeTimeout != 5*time.Second {
		t.Errorf("probe timeout = %v", cfg.Crawl.ProbeTimeout)
	}
	if cfg.SMTP.Port != 587 {
		t.Errorf("smtp port = %d", cfg.SMTP.Port)
	}
}
