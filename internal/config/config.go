package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Search     SearchConfig     `yaml:"search"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Notify     NotifyConfig     `yaml:"notify"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int      `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
}

// ProviderConfig describes one external data provider. An empty API key means
// the deterministic offline fallback is used instead of the live client.
type ProviderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	MaxRetries        int     `yaml:"max_retries"`
	RetryDelaySeconds int     `yaml:"retry_delay_seconds"`
}

// Live reports whether this provider has credentials for live use
func (p ProviderConfig) Live() bool {
	return p.APIKey != "" && p.BaseURL != ""
}

// GetTimeout returns the request timeout as a duration
func (p ProviderConfig) GetTimeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// GetRetryDelay returns the retry delay as a duration
func (p ProviderConfig) GetRetryDelay() time.Duration {
	return time.Duration(p.RetryDelaySeconds) * time.Second
}

// ProvidersConfig contains per-provider settings
type ProvidersConfig struct {
	Listings      ProviderConfig `yaml:"listings"`
	Distress      ProviderConfig `yaml:"distress"`
	Liens         ProviderConfig `yaml:"liens"`
	AVM           ProviderConfig `yaml:"avm"`
	PointEstimate ProviderConfig `yaml:"point_estimate"`
}

// PipelineConfig contains scan pipeline settings
type PipelineConfig struct {
	MaxPages        int `yaml:"max_pages"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
	CacheMaxEntries int `yaml:"cache_max_entries"`
}

// GetCacheTTL returns the result cache TTL as a duration
func (c PipelineConfig) GetCacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// EnrichmentConfig contains enrichment tier budgets
type EnrichmentConfig struct {
	DistressBatchSize  int     `yaml:"distress_batch_size"`
	RefineBatchSize    int     `yaml:"refine_batch_size"`
	ValidateBatchSize  int     `yaml:"validate_batch_size"`
	MinScoreToValidate int     `yaml:"min_score_to_validate"`
	BlendPriorWeight   float64 `yaml:"blend_prior_weight"`
}

// RateLimitConfig contains scan rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// WatchLocation is one area the monitor re-scans on schedule
type WatchLocation struct {
	Name        string  `yaml:"name"`
	Latitude    float64 `yaml:"latitude"`
	Longitude   float64 `yaml:"longitude"`
	RadiusMiles float64 `yaml:"radius_miles"`
}

// MonitorConfig contains scheduled monitoring settings
type MonitorConfig struct {
	Enabled        bool            `yaml:"enabled"`
	RunTime        string          `yaml:"run_time"` // HH:MM
	MinAlertScore  int             `yaml:"min_alert_score"`
	WatchLocations []WatchLocation `yaml:"watch_locations"`
}

// NotifyConfig contains alerting settings
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			AllowOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Type: "mysql",
			MySQL: MySQLConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "realdeal",
				Database: "realdeal",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "realdeal",
				Database: "realdeal",
				SSLMode:  "disable",
			},
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Host: "http://localhost:7700",
			},
		},
		Pipeline: PipelineConfig{
			MaxPages:        5,
			CacheTTLMinutes: 5,
			CacheMaxEntries: 200,
		},
		Enrichment: EnrichmentConfig{
			DistressBatchSize:  15,
			RefineBatchSize:    20,
			ValidateBatchSize:  2,
			MinScoreToValidate: 70,
			BlendPriorWeight:   0.6,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 10,
			RequestsPerHour:   120,
			RequestsPerDay:    600,
		},
		Monitor: MonitorConfig{
			Enabled:       false,
			RunTime:       "06:00",
			MinAlertScore: 70,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields the
// defaults.
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
