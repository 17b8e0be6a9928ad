package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./bookrack.db" {
			t.Errorf("expected database path ./bookrack.db, got %s", config.Database.Path)
		}

		if config.Storage.Driver != "sqlite" {
			t.Errorf("expected storage driver sqlite, got %s", config.Storage.Driver)
		}

		if config.Catalog.MaxRetries != 2 {
			t.Errorf("expected catalog max_retries 2, got %d", config.Catalog.MaxRetries)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[catalog]
base_url = "https://catalog.example.com"
timeout_seconds = 5
max_retries = 4

[storage]
driver = "badger"
badger_dir = "/tmp/state"

[downloads]
dir = "/tmp/books"
workers = 8
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Catalog.BaseURL != "https://catalog.example.com" {
			t.Errorf("expected base_url https://catalog.example.com, got %s", config.Catalog.BaseURL)
		}
		if config.Catalog.Timeout() != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", config.Catalog.Timeout())
		}
		if config.Storage.Driver != "badger" {
			t.Errorf("expected badger driver, got %s", config.Storage.Driver)
		}
		if config.Downloads.Workers != 8 {
			t.Errorf("expected 8 workers, got %d", config.Downloads.Workers)
		}
		if config.Database.Path != "./bookrack.db" {
			t.Errorf("unset values should keep defaults, got database path %s", config.Database.Path)
		}
	})

	t.Run("LoadConfig Rejects Unknown Driver", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[storage]\ndriver = \"etcd\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrUnknownDriver) {
			t.Errorf("expected ErrUnknownDriver, got %v", err)
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Durations Fall Back", func(t *testing.T) {
		if got := (CatalogConfig{}).Timeout(); got != 30*time.Second {
			t.Errorf("expected 30s default timeout, got %v", got)
		}
		if got := (CacheConfig{}).TTL(); got != 24*time.Hour {
			t.Errorf("expected 24h default TTL, got %v", got)
		}
	})
}
