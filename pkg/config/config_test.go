package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates tests from keys set in the developer's shell
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CAL_API_KEY", "CAL_EVENT_TYPE_ID", "OPENAI_API_KEY",
		"CALCHAT_CALCOM_API_KEY", "CALCHAT_MODEL_API_KEY", "CALCHAT_MODEL_TYPE",
		"CALCHAT_CALCOM_DEFAULT_EVENT_TYPE_ID", "CALCHAT_LIMITS_MAX_ROUNDS",
	} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		ext      string
		wantErr  bool
		errMsg   string
		validate func(*testing.T, *Config)
	}{
		{
			name: "valid openai config",
			ext:  ".yaml",
			content: `
model:
  type: openai
  api_key: sk-test
calcom:
  api_key: cal_test
  default_event_type_id: 42
`,
			validate: func(t *testing.T, c *Config) {
				assert.Equal(t, "openai", c.Model.Type)
				assert.Equal(t, 42, c.CalCom.DefaultEventTypeID)
				assert.Equal(t, "https://api.cal.com/v2", c.CalCom.BaseURL)
				assert.Equal(t, 10, c.Limits.MaxRounds)
				assert.Equal(t, 30*time.Second, c.Limits.OperationTimeout)
				assert.Equal(t, 1, c.Limits.MaxParallelTools)
				assert.Equal(t, "0.0.0.0:8000", c.Server.Addr())
			},
		},
		{
			name: "valid ollama config gets local base url",
			ext:  ".json",
			content: `{
				"model": {"type": "ollama", "model_name": "qwen2.5:7b"},
				"calcom": {"api_key": "cal_test", "base_url": "http://localhost:9999/v2/"},
				"limits": {"max_rounds": 4, "operation_timeout": "5s"}
			}`,
			validate: func(t *testing.T, c *Config) {
				assert.Equal(t, "http://localhost:11434/v1", c.Model.BaseURL)
				assert.Equal(t, "http://localhost:9999/v2", c.CalCom.BaseURL)
				assert.Equal(t, 4, c.Limits.MaxRounds)
				assert.Equal(t, 5*time.Second, c.Limits.OperationTimeout)
			},
		},
		{
			name: "invalid model type",
			ext:  ".yaml",
			content: `
model:
  type: invalid
calcom:
  api_key: cal_test
`,
			wantErr: true,
			errMsg:  "invalid model type",
		},
		{
			name: "openai missing api key",
			ext:  ".yaml",
			content: `
calcom:
  api_key: cal_test
`,
			wantErr: true,
			errMsg:  "model.api_key is required",
		},
		{
			name: "missing calcom credentials",
			ext:  ".yaml",
			content: `
model:
  api_key: sk-test
`,
			wantErr: true,
			errMsg:  "calcom.api_key is required",
		},
		{
			name: "audit log with unknown driver",
			ext:  ".yaml",
			content: `
model:
  api_key: sk-test
calcom:
  api_key: cal_test
database:
  enabled: true
  driver: mysql
`,
			wantErr: true,
			errMsg:  "invalid database driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "calchat"+tt.ext)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			cfg, err := Load(path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAL_API_KEY", "cal_legacy")
	t.Setenv("CAL_EVENT_TYPE_ID", "1234")
	t.Setenv("OPENAI_API_KEY", "sk-legacy")
	t.Setenv("CALCHAT_LIMITS_MAX_ROUNDS", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "cal_legacy", cfg.CalCom.APIKey)
	assert.Equal(t, 1234, cfg.CalCom.DefaultEventTypeID)
	assert.Equal(t, "sk-legacy", cfg.Model.APIKey)
	assert.Equal(t, 3, cfg.Limits.MaxRounds)
}

func TestPrefixedEnvWinsOverLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAL_API_KEY", "cal_legacy")
	t.Setenv("CALCHAT_CALCOM_API_KEY", "cal_new")
	t.Setenv("OPENAI_API_KEY", "sk-legacy")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "cal_new", cfg.CalCom.APIKey)
}
