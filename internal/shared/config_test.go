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

		if config.Database.Path != "./livewatch.db" {
			t.Errorf("expected database path ./livewatch.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Twitch.PageSize != 100 {
			t.Errorf("expected page size 100, got %d", config.Twitch.PageSize)
		}

		if !config.Twitch.ShowHosting {
			t.Error("expected hosting display to be enabled by default")
		}

		if config.Queue.Concurrency != 4 {
			t.Errorf("expected queue concurrency 4, got %d", config.Queue.Concurrency)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("expected default config to be valid, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[twitch]
client_id = "test_client_id"
show_mature = true
show_hosting = false
page_size = 25

[queue]
concurrency = 2
timeout = "5s"

[server]
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Twitch.ClientID != "test_client_id" {
			t.Errorf("expected client_id test_client_id, got %s", config.Twitch.ClientID)
		}
		if !config.Twitch.ShowMature || config.Twitch.ShowHosting {
			t.Errorf("expected mature on and hosting off, got %+v", config.Twitch)
		}
		if config.Twitch.PageSize != 25 {
			t.Errorf("expected page size 25, got %d", config.Twitch.PageSize)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Database.Path != "./livewatch.db" {
			t.Errorf("expected unset keys to keep defaults, got database path %s", config.Database.Path)
		}

		timeout, err := config.QueueTimeout()
		if err != nil || timeout != 5*time.Second {
			t.Errorf("expected queue timeout 5s, got %v (%v)", timeout, err)
		}
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")
		if err := os.WriteFile(configPath, []byte("[twitch]\nclient_id = \"from_file\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		t.Setenv("LIVEWATCH_TWITCH_CLIENT_ID", "from_env")
		t.Setenv("LIVEWATCH_DB_PATH", "/tmp/env.db")

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Twitch.ClientID != "from_env" {
			t.Errorf("expected env client id to win, got %s", config.Twitch.ClientID)
		}
		if config.Database.Path != "/tmp/env.db" {
			t.Errorf("expected env database path, got %s", config.Database.Path)
		}
	})

	t.Run("Credentials", func(t *testing.T) {
		tt := []struct {
			name     string
			clientID string
			wantErr  bool
		}{
			{name: "example placeholder", clientID: "your_twitch_client_id", wantErr: true},
			{name: "empty", clientID: "", wantErr: true},
			{name: "configured", clientID: "abc123", wantErr: false},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				cfg := TwitchConfig{ClientID: tc.clientID}
				err := cfg.Credentials()
				if tc.wantErr && !errors.Is(err, ErrMissingCredentials) {
					t.Errorf("expected ErrMissingCredentials, got %v", err)
				}
				if !tc.wantErr && err != nil {
					t.Errorf("expected no error, got %v", err)
				}
			})
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tt := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "zero concurrency", mutate: func(c *Config) { c.Queue.Concurrency = 0 }},
			{name: "zero page size", mutate: func(c *Config) { c.Twitch.PageSize = 0 }},
			{name: "negative rate", mutate: func(c *Config) { c.Queue.RatePerSecond = -1 }},
			{name: "bad queue timeout", mutate: func(c *Config) { c.Queue.Timeout = "soon" }},
			{name: "bad schedule timeout", mutate: func(c *Config) { c.Schedule.Timeout = "1 hour" }},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				config := DefaultConfig()
				tc.mutate(config)

				err := config.Validate()
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
