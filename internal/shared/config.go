package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file, with environment overrides.
type Config struct {
	Twitch   TwitchConfig   `toml:"twitch"`
	Queue    QueueConfig    `toml:"queue"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Schedule ScheduleConfig `toml:"schedule"`
	Log      LogConfig      `toml:"log"`
}

// TwitchConfig contains credentials and display preferences for the Twitch provider.
type TwitchConfig struct {
	ClientID     string `toml:"client_id" env:"LIVEWATCH_TWITCH_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"LIVEWATCH_TWITCH_CLIENT_SECRET"`
	TokenURL     string `toml:"token_url" env:"LIVEWATCH_TWITCH_TOKEN_URL"`
	BaseURL      string `toml:"base_url" env:"LIVEWATCH_TWITCH_BASE_URL"`
	HostsURL     string `toml:"hosts_url" env:"LIVEWATCH_TWITCH_HOSTS_URL"`
	PageSize     int    `toml:"page_size" env:"LIVEWATCH_TWITCH_PAGE_SIZE"`
	ShowPlaylist bool   `toml:"show_playlist" env:"LIVEWATCH_TWITCH_SHOW_PLAYLIST"`
	ShowMature   bool   `toml:"show_mature" env:"LIVEWATCH_TWITCH_SHOW_MATURE"`
	ShowHosting  bool   `toml:"show_hosting" env:"LIVEWATCH_TWITCH_SHOW_HOSTING"`
}

// QueueConfig bounds outbound request concurrency and rate.
type QueueConfig struct {
	Concurrency   int     `toml:"concurrency" env:"LIVEWATCH_QUEUE_CONCURRENCY"`
	RatePerSecond float64 `toml:"rate_per_second" env:"LIVEWATCH_QUEUE_RATE"`
	Burst         int     `toml:"burst" env:"LIVEWATCH_QUEUE_BURST"`
	Timeout       string  `toml:"timeout" env:"LIVEWATCH_QUEUE_TIMEOUT"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"LIVEWATCH_DB_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host" env:"LIVEWATCH_SERVER_HOST"`
	Port int    `toml:"port" env:"LIVEWATCH_SERVER_PORT"`
}

// ScheduleConfig holds cron specs for background polling.
type ScheduleConfig struct {
	Channels  string `toml:"channels" env:"LIVEWATCH_SCHEDULE_CHANNELS"`
	Favorites string `toml:"favorites" env:"LIVEWATCH_SCHEDULE_FAVORITES"`
	Timeout   string `toml:"timeout" env:"LIVEWATCH_SCHEDULE_TIMEOUT"`
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Level string `toml:"level" env:"LIVEWATCH_LOG_LEVEL"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults; environment variables win over both.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides config fields from LIVEWATCH_* environment variables.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks numeric bounds and duration strings.
func (c *Config) Validate() error {
	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("%w: queue.concurrency must be positive", ErrInvalidConfig)
	}
	if c.Twitch.PageSize <= 0 {
		return fmt.Errorf("%w: twitch.page_size must be positive", ErrInvalidConfig)
	}
	if c.Queue.RatePerSecond < 0 {
		return fmt.Errorf("%w: queue.rate_per_second must not be negative", ErrInvalidConfig)
	}
	if _, err := c.QueueTimeout(); err != nil {
		return err
	}
	if _, err := c.ScheduleTimeout(); err != nil {
		return err
	}
	return nil
}

// placeholderClientID is the client_id shipped in config.example.toml.
const placeholderClientID = "your_twitch_client_id"

// Credentials reports [ErrMissingCredentials] until a real client ID is configured.
//
// It is checked when the Twitch provider is built rather than in [Config.Validate], so commands that never
// reach the API work with the example config.
func (t TwitchConfig) Credentials() error {
	if t.ClientID == "" || t.ClientID == placeholderClientID {
		return fmt.Errorf("%w: set twitch.client_id or LIVEWATCH_TWITCH_CLIENT_ID", ErrMissingCredentials)
	}
	return nil
}

// QueueTimeout returns the per-request transport timeout. Empty means no timeout.
func (c *Config) QueueTimeout() (time.Duration, error) {
	return parseDuration("queue.timeout", c.Queue.Timeout)
}

// ScheduleTimeout returns the deadline applied to each scheduled poll.
func (c *Config) ScheduleTimeout() (time.Duration, error) {
	return parseDuration("schedule.timeout", c.Schedule.Timeout)
}

// Address returns the host:port the HTTP server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
	}
	return d, nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidArgument)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
