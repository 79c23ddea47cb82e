package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BinaryCat17/RapidServer/pkg/controlplane/store"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.ListenAddress != "0.0.0.0:8080" {
		t.Errorf("listen_address = %q", cfg.ListenAddress)
	}
	if cfg.Database.Type != store.DatabaseTypeSQLite {
		t.Errorf("database type = %q", cfg.Database.Type)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load without config file failed: %v", err)
	}
	if cfg.ListenAddress != Default().ListenAddress {
		t.Errorf("listen_address = %q", cfg.ListenAddress)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for explicit missing file")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rapidserver.yaml")
	content := `
listen_address: 127.0.0.1:9000
public_root: /srv/rapid/public
shutdown_timeout: 5s
database:
  type: sqlite
  sqlite:
    path: /tmp/rapid.db
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:9000" {
		t.Errorf("listen_address = %q", cfg.ListenAddress)
	}
	if cfg.PublicRoot != "/srv/rapid/public" {
		t.Errorf("public_root = %q", cfg.PublicRoot)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("shutdown_timeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.Database.SQLite.Path != "/tmp/rapid.db" {
		t.Errorf("sqlite path = %q", cfg.Database.SQLite.Path)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RAPID_LISTEN_ADDRESS", "127.0.0.1:7777")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:7777" {
		t.Errorf("listen_address = %q, want env override", cfg.ListenAddress)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen address", func(c *Config) { c.ListenAddress = "" }},
		{"address without port", func(c *Config) { c.ListenAddress = "localhost" }},
		{"empty public root", func(c *Config) { c.PublicRoot = "" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown database type", func(c *Config) { c.Database.Type = "oracle" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "rapidserver.yaml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("write sample failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("sample config invalid: %v", err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}
