package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	ScoreSaber ScoreSaberConfig `toml:"scoresaber"`
	Crawl      CrawlConfig      `toml:"crawl"`
	Database   DatabaseConfig   `toml:"database"`
	Playlist   PlaylistConfig   `toml:"playlist"`
}

// ScoreSaberConfig contains ScoreSaber API client settings.
type ScoreSaberConfig struct {
	BaseURL        string `toml:"base_url"`
	PageSize       int    `toml:"page_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// CrawlConfig contains crawl and reconciliation settings.
type CrawlConfig struct {
	MaxPages  int     `toml:"max_pages"`
	BatchSize int     `toml:"batch_size"`
	RateLimit float64 `toml:"rate_limit"` // page requests per second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PlaylistConfig contains playlist generation settings.
type PlaylistConfig struct {
	Title       string `toml:"title"`
	Author      string `toml:"author"`
	Description string `toml:"description"`
	Output      string `toml:"output"`
}

// Timeout returns the per-request timeout as a [time.Duration].
func (c ScoreSaberConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks settings that would make a crawl misbehave rather than fail loudly.
func (c *Config) Validate() error {
	if c.ScoreSaber.PageSize <= 0 {
		return fmt.Errorf("%w: scoresaber.page_size must be positive", ErrInvalidConfig)
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("%w: crawl.max_pages must be positive", ErrInvalidConfig)
	}
	if c.Crawl.BatchSize <= 0 {
		return fmt.Errorf("%w: crawl.batch_size must be positive", ErrInvalidConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
