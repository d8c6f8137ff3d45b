package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (CALCHAT_LIMITS_MAX_ROUNDS, ...)
const EnvPrefix = "CALCHAT"

// Config represents the calchat configuration
type Config struct {
	Model    ModelConfig    `mapstructure:"model"`
	CalCom   CalComConfig   `mapstructure:"calcom"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ModelConfig contains planner model configuration
type ModelConfig struct {
	Type        string        `mapstructure:"type"` // "openai", "ollama" or "llamacpp"
	BaseURL     string        `mapstructure:"base_url"`
	ModelName   string        `mapstructure:"model_name"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CalComConfig contains scheduling provider settings
type CalComConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	APIVersion         string        `mapstructure:"api_version"`
	DefaultEventTypeID int           `mapstructure:"default_event_type_id"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// LimitsConfig contains orchestration limits
type LimitsConfig struct {
	MaxRounds        int           `mapstructure:"max_rounds"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	PlannerTimeout   time.Duration `mapstructure:"planner_timeout"`
	MaxParallelTools int           `mapstructure:"max_parallel_tools"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig contains operation audit log settings
type DatabaseConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Driver        string        `mapstructure:"driver"` // "sqlite3" or "postgres"
	DSN           string        `mapstructure:"dsn"`
	Retention     time.Duration `mapstructure:"retention"`
	PruneSchedule string        `mapstructure:"prune_schedule"`
}

// LoggingConfig contains log settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "auto", "console" or "json"
}

var defaults = map[string]any{
	"model.type":                   "openai",
	"model.base_url":               "",
	"model.model_name":             "gpt-4o-mini",
	"model.api_key":                "",
	"model.temperature":            0.2,
	"model.timeout":                "120s",
	"calcom.api_key":               "",
	"calcom.base_url":              "https://api.cal.com/v2",
	"calcom.api_version":           "2024-08-13",
	"calcom.default_event_type_id": 0,
	"calcom.timeout":               "30s",
	"limits.max_rounds":            10,
	"limits.operation_timeout":     "30s",
	"limits.planner_timeout":       "120s",
	"limits.max_parallel_tools":    1,
	"server.host":                  "0.0.0.0",
	"server.port":                  8000,
	"database.enabled":             false,
	"database.driver":              "sqlite3",
	"database.dsn":                 "calchat.db",
	"database.retention":           "720h",
	"database.prune_schedule":      "@daily",
	"logging.level":                "info",
	"logging.format":               "auto",
}

// legacyEnv maps config keys to the environment variables older deployments use
var legacyEnv = map[string]string{
	"calcom.api_key":               "CAL_API_KEY",
	"calcom.default_event_type_id": "CAL_EVENT_TYPE_ID",
	"model.api_key":                "OPENAI_API_KEY",
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, legacy)
	}
	return v
}

// Load loads configuration from a file; an empty path reads defaults and environment only
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadDefault attempts to load .calchat.yaml from current directory or home,
// falling back to environment-only configuration
func LoadDefault() (*Config, error) {
	if path := findDefault(); path != "" {
		return Load(path)
	}
	return Load("")
}

func findDefault() string {
	names := []string{".calchat.yaml", ".calchat.yml", ".calchat.json"}
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	for _, name := range names {
		homePath := filepath.Join(home, name)
		if _, err := os.Stat(homePath); err == nil {
			return homePath
		}
	}
	return ""
}

// setDefaults fills in values that depend on other settings
func (c *Config) setDefaults() {
	if c.Model.BaseURL == "" {
		switch c.Model.Type {
		case "ollama":
			c.Model.BaseURL = "http://localhost:11434/v1"
		case "llamacpp":
			c.Model.BaseURL = "http://localhost:8080/v1"
		}
	}
	if c.Limits.MaxRounds <= 0 {
		c.Limits.MaxRounds = 10
	}
	if c.Limits.MaxParallelTools <= 0 {
		c.Limits.MaxParallelTools = 1
	}
	c.CalCom.BaseURL = strings.TrimRight(c.CalCom.BaseURL, "/")
	c.Logging.Level = strings.ToLower(c.Logging.Level)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Model.Type {
	case "openai":
		if c.Model.APIKey == "" {
			return fmt.Errorf("model.api_key is required for openai backend")
		}
	case "ollama", "llamacpp":
		if c.Model.ModelName == "" {
			return fmt.Errorf("model.model_name is required for %s backend", c.Model.Type)
		}
	default:
		return fmt.Errorf("invalid model type: %s (must be 'openai', 'ollama' or 'llamacpp')", c.Model.Type)
	}

	if c.CalCom.APIKey == "" {
		return fmt.Errorf("calcom.api_key is required (set CAL_API_KEY)")
	}
	if c.CalCom.DefaultEventTypeID < 0 {
		return fmt.Errorf("calcom.default_event_type_id must not be negative: %d", c.CalCom.DefaultEventTypeID)
	}

	if c.Limits.OperationTimeout <= 0 || c.Limits.PlannerTimeout <= 0 {
		return fmt.Errorf("limits timeouts must be positive")
	}

	if c.Database.Enabled {
		if c.Database.Driver != "sqlite3" && c.Database.Driver != "postgres" {
			return fmt.Errorf("invalid database driver: %s (must be 'sqlite3' or 'postgres')", c.Database.Driver)
		}
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when the audit log is enabled")
		}
	}

	return nil
}
