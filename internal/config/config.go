// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config represents the application configuration
type Config struct {
	APIName                 string `env:"SW_API_APP_NAME" default:"Stockwatch API"`
	APIVersion              string `env:"SW_API_APP_VERSION" default:"v1"`
	ServerPort              string `env:"SW_API_SERVER_PORT" default:"3007"`
	ServerLogLevel          string `env:"SW_API_SERVER_LOG_LEVEL" default:"info"`
	PostgresDsn             string `env:"SW_API_PG_DSN" default:""`
	PostgresLogLevel        string `env:"SW_API_PG_LOG_LEVEL" default:"warn"`
	RedisHost               string `env:"SW_API_REDIS_HOST" default:""`
	RedisPort               string `env:"SW_API_REDIS_PORT" default:"6379"`
	RedisPassword           string `env:"SW_API_REDIS_PASSWORD" default:""`
	RefreshFaultProbability string `env:"SW_API_REFRESH_FAULT_PROBABILITY" default:"0.1"`
	RefreshDelayMs          string `env:"SW_API_REFRESH_DELAY_MS" default:"1000"`
	AutoRefreshCron         string `env:"SW_API_AUTO_REFRESH_CRON" default:""`
	SeedSampleData          string `env:"SW_API_SEED_SAMPLE_DATA" default:"true"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the application configuration
func Get() (*Config, error) {
	once.Do(func() {
		instance, err = loadConfig()
	})
	return instance, err
}

// loadConfig loads configuration from environment variables
func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables, falling back
// to each field's default tag when the variable is unset.
func (c *Config) loadFromEnv() error {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			return fmt.Errorf("missing env tag for field %s", field.Name)
		}

		value := os.Getenv(envTag)
		if value == "" {
			value = field.Tag.Get("default")
		}

		v.Field(i).SetString(value)
	}

	return nil
}

// FaultProbability returns the refresh fault-injection probability in [0, 1].
func (c *Config) FaultProbability() float64 {
	p, err := strconv.ParseFloat(c.RefreshFaultProbability, 64)
	if err != nil || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// RefreshDelay returns the artificial refresh latency.
func (c *Config) RefreshDelay() time.Duration {
	ms, err := strconv.Atoi(c.RefreshDelayMs)
	if err != nil || ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// SeedEnabled reports whether sample data is seeded on startup.
func (c *Config) SeedEnabled() bool {
	return c.SeedSampleData == "true"
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i).String()

		// Mask sensitive fields
		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password", "url"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if value == "" {
		return value
	}
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}
