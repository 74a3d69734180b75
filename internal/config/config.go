package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration represents the complete exporter configuration
type Configuration struct {
	Tail    TailConfig    `yaml:"tail"`
	Server  ServerConfig  `yaml:"server"`
	Buckets BucketConfig  `yaml:"buckets"`
	Logging LoggingConfig `yaml:"logging"`
}

// TailConfig represents log tailing settings
type TailConfig struct {
	// Pattern is the filesystem glob naming the access logs to tail.
	// It is re-evaluated on every scrape.
	Pattern string `yaml:"pattern"`
}

// ServerConfig represents HTTP server settings
type ServerConfig struct {
	Address      string        `yaml:"address"`
	MetricsPath  string        `yaml:"metrics_path"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// BucketConfig represents histogram bucket generation settings.
// Bounds are generated geometrically: Start, Start*Factor, Start*Factor^2, ...
type BucketConfig struct {
	Start  float64 `yaml:"start"`
	Factor float64 `yaml:"factor"`
	Count  int     `yaml:"count"`
}

// LoggingConfig represents process logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Tail: TailConfig{
			Pattern: "/var/log/nginx/*.log",
		},
		Server: ServerConfig{
			Address:      "0.0.0.0:9090",
			MetricsPath:  "/metrics",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Buckets: BucketConfig{
			Start:  0.005,
			Factor: 2.0,
			Count:  10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("NGINX_EXPORTER_LOG_PATH"); val != "" {
		c.Tail.Pattern = val
	}
	if val := os.Getenv("NGINX_EXPORTER_LISTEN"); val != "" {
		c.Server.Address = val
	}
	if val := os.Getenv("NGINX_EXPORTER_METRICS_PATH"); val != "" {
		c.Server.MetricsPath = val
	}
	if val := os.Getenv("NGINX_EXPORTER_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("NGINX_EXPORTER_LOG_FORMAT"); val != "" {
		c.Logging.Format = val
	}
	if val := os.Getenv("NGINX_EXPORTER_BUCKET_START"); val != "" {
		if start, err := strconv.ParseFloat(val, 64); err == nil {
			c.Buckets.Start = start
		}
	}
	if val := os.Getenv("NGINX_EXPORTER_BUCKET_FACTOR"); val != "" {
		if factor, err := strconv.ParseFloat(val, 64); err == nil {
			c.Buckets.Factor = factor
		}
	}
	if val := os.Getenv("NGINX_EXPORTER_BUCKET_COUNT"); val != "" {
		if count, err := strconv.Atoi(val); err == nil {
			c.Buckets.Count = count
		}
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	if c.Tail.Pattern == "" {
		return fmt.Errorf("tail pattern must not be empty")
	}

	if c.Server.Address == "" {
		return fmt.Errorf("server address must not be empty")
	}

	if !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return fmt.Errorf("metrics_path must start with /: %s", c.Server.MetricsPath)
	}

	if c.Buckets.Start <= 0 {
		return fmt.Errorf("bucket start must be greater than 0")
	}
	if c.Buckets.Factor <= 1 {
		return fmt.Errorf("bucket factor must be greater than 1")
	}
	if c.Buckets.Count <= 0 {
		return fmt.Errorf("bucket count must be greater than 0")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if strings.ToLower(c.Logging.Level) == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid logging level: %s (must be one of: %s)",
			c.Logging.Level, strings.Join(validLogLevels, ", "))
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid logging format: %s (must be json or console)", c.Logging.Format)
	}

	return nil
}
