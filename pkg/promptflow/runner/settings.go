package runner

import (
	"fmt"
	"os"
	"time"

	"github.com/randalmurphal/promptflow/pkg/promptflow/config"
	pferrors "github.com/randalmurphal/promptflow/pkg/promptflow/errors"
	"github.com/randalmurphal/promptflow/pkg/promptflow/execute"
	"github.com/randalmurphal/promptflow/pkg/promptflow/llm"
)

// Providers accepted in Settings.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderClaudeCLI = "claude-cli"
)

// Settings holds the run-wide configuration a chain file does not carry.
type Settings struct {
	// Models is the default roster for chains that name none.
	Models []string

	// Budget is the retry budget per leaf.
	Budget int

	// Policy holds the recovery delays.
	Policy pferrors.Policy

	// MaxSteps bounds the leaves a run may execute from inside loops.
	MaxSteps int

	Provider          string
	BaseURL           string
	APIKeyEnv         string
	RequestsPerSecond float64
	RequestTimeout    time.Duration
	ClaudePath        string

	JournalDriver string
	JournalDSN    string
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() Settings {
	return Settings{
		Budget:         execute.DefaultBudget,
		Policy:         pferrors.DefaultPolicy,
		MaxSteps:       1000,
		Provider:       ProviderOpenAI,
		BaseURL:        "https://api.openai.com/v1",
		APIKeyEnv:      "OPENAI_API_KEY",
		RequestTimeout: 2 * time.Minute,
		ClaudePath:     "claude",
		JournalDriver:  "memory",
	}
}

// SettingsFromConfig reads settings, falling back to DefaultSettings for
// anything cfg does not set.
func SettingsFromConfig(cfg config.Config) Settings {
	s := DefaultSettings()

	s.Models = cfg.StringSlice("models", s.Models)
	s.Budget = cfg.Int("retry.budget", s.Budget)
	s.Policy.RateLimitDelay = cfg.Duration("retry.rate_limit_delay", s.Policy.RateLimitDelay)
	s.Policy.ServerErrorDelay = cfg.Duration("retry.server_error_delay", s.Policy.ServerErrorDelay)
	s.Policy.HonorRetryAfter = cfg.Bool("retry.honor_retry_after", s.Policy.HonorRetryAfter)
	s.MaxSteps = cfg.Int("max_steps", s.MaxSteps)

	llmCfg := cfg.Section("llm")
	s.Provider = llmCfg.String("provider", s.Provider)
	s.BaseURL = llmCfg.String("base_url", s.BaseURL)
	s.APIKeyEnv = llmCfg.String("api_key_env", s.APIKeyEnv)
	s.RequestsPerSecond = llmCfg.Float("requests_per_second", s.RequestsPerSecond)
	s.RequestTimeout = llmCfg.Duration("timeout", s.RequestTimeout)
	s.ClaudePath = llmCfg.String("claude_path", s.ClaudePath)

	s.JournalDriver = cfg.String("journal.driver", s.JournalDriver)
	s.JournalDSN = cfg.String("journal.dsn", s.JournalDSN)
	return s
}

// NewClient builds the completion client the settings describe.
func (s Settings) NewClient() (llm.Client, error) {
	switch s.Provider {
	case "", ProviderOpenAI:
		opts := []llm.OpenAIOption{
			llm.WithBaseURL(s.BaseURL),
			llm.WithHTTPTimeout(s.RequestTimeout),
			llm.WithRateLimit(s.RequestsPerSecond, 1),
		}
		if s.APIKeyEnv != "" {
			opts = append(opts, llm.WithAPIKey(os.Getenv(s.APIKeyEnv)))
		}
		return llm.NewOpenAI(opts...), nil
	case ProviderClaudeCLI:
		return llm.NewClaudeCLI(
			llm.WithClaudePath(s.ClaudePath),
			llm.WithTimeout(s.RequestTimeout),
		), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}
