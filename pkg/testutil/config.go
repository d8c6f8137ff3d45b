// Package testutil provides programmable planners, an in-memory calendar and
// configuration helpers for orchestration tests.
package testutil

import (
	"time"

	"github.com/soypete/calchat/pkg/config"
)

// NewTestConfig creates a minimal configuration for testing.
func NewTestConfig() *config.Config {
	return &config.Config{
		Model: config.ModelConfig{
			Type:        "ollama",
			ModelName:   "test-model",
			BaseURL:     "http://localhost:11434/v1",
			Temperature: 0.2,
			Timeout:     10 * time.Second,
		},
		CalCom: config.CalComConfig{
			APIKey:             "cal_test",
			BaseURL:            "http://localhost:0/v2",
			DefaultEventTypeID: DefaultEventTypeID,
			Timeout:            5 * time.Second,
		},
		Limits: config.LimitsConfig{
			MaxRounds:        10,
			OperationTimeout: 5 * time.Second,
			PlannerTimeout:   5 * time.Second,
			MaxParallelTools: 1,
		},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
		},
		Logging: config.LoggingConfig{
			Level:  "error", // Minimize output in tests
			Format: "json",
		},
	}
}

// NewTestConfigWithMaxRounds creates a test config with a specific round cap.
func NewTestConfigWithMaxRounds(maxRounds int) *config.Config {
	cfg := NewTestConfig()
	cfg.Limits.MaxRounds = maxRounds
	return cfg
}
