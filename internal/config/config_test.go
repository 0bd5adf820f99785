package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
agent:
  id: "test-agent"
  hostname: "test-host"
api:
  endpoint: "https://api.example.com"
  timeout_seconds: 5
collection:
  interval_seconds: 60
  flush_interval_seconds: 10
  batch_size: 100
  disk:
    enabled: true
`

func TestLoadFromBytes_ValidConfig(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "test-agent", cfg.Agent.ID)
	assert.Equal(t, "test-host", cfg.Hostname())
	assert.Equal(t, "https://api.example.com", cfg.API.Endpoint)
	assert.Equal(t, 60*time.Second, cfg.CollectInterval())
	assert.Equal(t, 10*time.Second, cfg.FlushInterval())
	assert.Equal(t, 5*time.Second, cfg.APITimeout())
}

func TestLoadFromBytes_Defaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
agent:
  id: "test-agent"
api:
  endpoint: "https://api.example.com"
`))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.APITimeout())
	assert.Equal(t, 3, cfg.API.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff())
	assert.Equal(t, 100, cfg.Collection.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.FlushInterval())
	assert.True(t, cfg.Collection.Disk.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromBytes_EnvOverrides(t *testing.T) {
	t.Setenv("SENTINEL_API_ENDPOINT", "https://env.example.com")
	t.Setenv("SENTINEL_API_KEY", "env-key")

	cfg, err := LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.API.Endpoint)
	assert.Equal(t, "env-key", cfg.API.APIKey)
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty agent id", func(c *Config) { c.Agent.ID = "" }},
		{"empty endpoint", func(c *Config) { c.API.Endpoint = "" }},
		{"zero collection interval", func(c *Config) { c.Collection.IntervalSeconds = 0 }},
		{"zero flush interval", func(c *Config) { c.Collection.FlushIntervalSeconds = 0 }},
		{"zero batch size", func(c *Config) { c.Collection.BatchSize = 0 }},
		{"zero timeout", func(c *Config) { c.API.TimeoutSeconds = 0 }},
		{"zero max retries", func(c *Config) { c.API.MaxRetries = 0 }},
		{"blank api key", func(c *Config) { c.API.APIKey = "   " }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadFromBytes([]byte(validYAML))
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestHostname_FallsBackToOS(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
agent:
  id: "test-agent"
api:
  endpoint: "https://api.example.com"
`))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Hostname())
}
