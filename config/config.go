package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ryandem1/minesweeper-async/adapters/redis"
	"github.com/ryandem1/minesweeper-async/adapters/sqlx"
	"github.com/ryandem1/minesweeper-async/core"
	"github.com/ryandem1/minesweeper-async/latency"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// EnvPrefix is prepended to every environment variable name. Nested sections
// add their own segment, e.g. SWEEPER_STORAGE_REDIS_ADDR.
const EnvPrefix = "SWEEPER"

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"ENV"`
	Profile     string      `json:"profile" env:"PROFILE"`

	// Server configuration
	Server ServerConfig `json:"server" env:"SERVER"`

	// Board generation defaults
	Board BoardConfig `json:"board" env:"BOARD"`

	// Outstanding board limits and event dispatch
	App AppConfig `json:"app" env:"APP"`

	// Scoring configuration
	Scoring ScoringConfig `json:"scoring" env:"SCORING"`

	// Artificial latency per operation class
	Latency latency.Config `json:"latency" env:"LATENCY"`

	// Storage configuration
	Storage StorageConfig `json:"storage" env:"STORAGE"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" env:"LOG"`

	// Security configuration
	Security SecurityConfig `json:"security" env:"SECURITY"`

	// Outbound event delivery
	Webhooks WebhookConfig `json:"webhooks" env:"WEBHOOK"`

	// Leaderboard of checked boards
	Leaderboard LeaderboardConfig `json:"leaderboard" env:"LEADERBOARD"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"ADDR"`
	PathPrefix        string        `json:"path_prefix" env:"PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" env:"CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// BoardConfig is the board generated when a create request names no
// settings, plus the largest area a request may ask for.
type BoardConfig struct {
	Length    int `json:"length" env:"LENGTH"`
	Height    int `json:"height" env:"HEIGHT"`
	Mines     int `json:"mines" env:"MINES"`
	MaxSpaces int `json:"max_spaces" env:"MAX_SPACES"`
}

// Spec converts the section to a board spec.
func (b BoardConfig) Spec() core.BoardSpec {
	return core.BoardSpec{Length: b.Length, Height: b.Height, Mines: b.Mines}
}

// AppConfig holds process-wide limits.
type AppConfig struct {
	MaxBoards   int  `json:"max_boards" env:"MAX_BOARDS"`
	AsyncEvents bool `json:"async_events" env:"ASYNC_EVENTS"`
}

// ScoringConfig selects how checked boards are scored.
type ScoringConfig struct {
	Policy           string `json:"policy" env:"POLICY"`
	EnforceFlagLimit bool   `json:"enforce_flag_limit" env:"ENFORCE_FLAG_LIMIT"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string       `json:"adapter" env:"ADAPTER"`
	Redis   redis.Config `json:"redis,omitempty" env:"REDIS"`
	SQL     sqlx.Config  `json:"sql,omitempty" env:"SQL"`
	File    FileConfig   `json:"file,omitempty" env:"FILE"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" env:"PATH"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"LEVEL"`
	Format     string            `json:"format" env:"FORMAT"`
	Output     string            `json:"output" env:"OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" env:"ATTRIBUTES"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" env:"RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" env:"RATE_LIMIT"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" env:"RPM"`
	BurstSize         int           `json:"burst_size" env:"BURST"`
	CleanupInterval   time.Duration `json:"cleanup_interval" env:"CLEANUP"`
}

// WebhookConfig lists endpoints that receive scored boards.
type WebhookConfig struct {
	Endpoints []string      `json:"endpoints,omitempty" env:"ENDPOINTS"`
	Events    []string      `json:"events,omitempty" env:"EVENTS"`
	Timeout   time.Duration `json:"timeout" env:"TIMEOUT"`
}

// LeaderboardConfig caps how many checked boards are ranked.
type LeaderboardConfig struct {
	Size int `json:"size" env:"SIZE"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Load from environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return errors.New("config file must have .json extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(path string) (*Config, error) {
	// Validate the path for security
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	// Open the file safely after validation
	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Environment variables override file values
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Board: BoardConfig{
			Length:    9,
			Height:    9,
			Mines:     10,
			MaxSpaces: 10000,
		},
		App: AppConfig{
			MaxBoards:   5,
			AsyncEvents: true,
		},
		Scoring: ScoringConfig{
			Policy:           core.PolicyStrict,
			EnforceFlagLimit: true,
		},
		Storage: StorageConfig{
			Adapter: "memory",
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/sweeper-score.json",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 600,
				BurstSize:         50,
				CleanupInterval:   5 * time.Minute,
			},
		},
		Webhooks: WebhookConfig{
			Timeout: 2 * time.Second,
		},
		Leaderboard: LeaderboardConfig{
			Size: 100,
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	// Validate environment
	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Board.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("board config: %v", err))
	}

	if err := c.App.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("app config: %v", err))
	}

	if err := c.Scoring.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("scoring config: %v", err))
	}

	if err := c.Latency.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("latency config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Webhooks.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("webhook config: %v", err))
	}

	if err := c.Leaderboard.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("leaderboard config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	// Create a copy for redaction
	cfg := *c

	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}
	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
