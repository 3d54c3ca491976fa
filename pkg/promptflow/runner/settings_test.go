package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/promptflow/pkg/promptflow/config"
	pferrors "github.com/randalmurphal/promptflow/pkg/promptflow/errors"
	"github.com/randalmurphal/promptflow/pkg/promptflow/llm"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 3, s.Budget)
	assert.Equal(t, pferrors.DefaultPolicy, s.Policy)
	assert.Equal(t, 1000, s.MaxSteps)
	assert.Equal(t, ProviderOpenAI, s.Provider)
	assert.Equal(t, "memory", s.JournalDriver)
}

func TestSettingsFromConfig(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
models: [gpt-4o, gpt-4o-mini]
max_steps: 50
retry:
  budget: 5
  rate_limit_delay: 2s
  server_error_delay: 4s
  honor_retry_after: true
llm:
  provider: claude-cli
  base_url: http://localhost:11434/v1
  api_key_env: LOCAL_KEY
  requests_per_second: 2
  timeout: 30s
  claude_path: /opt/claude
journal:
  driver: sqlite
  dsn: /tmp/journal.db
`))
	require.NoError(t, err)

	s := SettingsFromConfig(cfg)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, s.Models)
	assert.Equal(t, 50, s.MaxSteps)
	assert.Equal(t, 5, s.Budget)
	assert.Equal(t, pferrors.Policy{
		RateLimitDelay:   2 * time.Second,
		ServerErrorDelay: 4 * time.Second,
		HonorRetryAfter:  true,
	}, s.Policy)
	assert.Equal(t, ProviderClaudeCLI, s.Provider)
	assert.Equal(t, "http://localhost:11434/v1", s.BaseURL)
	assert.Equal(t, "LOCAL_KEY", s.APIKeyEnv)
	assert.Equal(t, 2.0, s.RequestsPerSecond)
	assert.Equal(t, 30*time.Second, s.RequestTimeout)
	assert.Equal(t, "/opt/claude", s.ClaudePath)
	assert.Equal(t, "sqlite", s.JournalDriver)
	assert.Equal(t, "/tmp/journal.db", s.JournalDSN)
}

func TestSettingsFromConfig_Empty(t *testing.T) {
	assert.Equal(t, DefaultSettings(), SettingsFromConfig(config.New(nil)))
}

func TestNewClient(t *testing.T) {
	s := DefaultSettings()
	c, err := s.NewClient()
	require.NoError(t, err)
	assert.IsType(t, &llm.OpenAI{}, c)

	s.Provider = ProviderClaudeCLI
	c, err = s.NewClient()
	require.NoError(t, err)
	assert.IsType(t, &llm.ClaudeCLI{}, c)

	s.Provider = "carrier-pigeon"
	_, err = s.NewClient()
	assert.ErrorContains(t, err, `unknown llm provider "carrier-pigeon"`)
}
