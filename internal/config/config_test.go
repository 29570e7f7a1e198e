package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/turn-engine/pkg/prompts"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "LLM_PROVIDER", "MODEL_NAME", "REDIS_URL",
		"ORACLE_TIMEOUT", "ORACLE_TEMPERATURE", "SESSION_TTL", "WORKER_COUNT", "CONFIG_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, 30*time.Second, cfg.OracleTimeout)
	assert.Equal(t, 0.85, cfg.OracleTemperature)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 1, cfg.WorkerCount)
	assert.Equal(t, prompts.DefaultRating, cfg.Narrative.Rating)
	assert.Equal(t, prompts.DefaultMaxWords, cfg.Narrative.MaxWords)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("MODEL_NAME", "claude-test")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("ORACLE_TIMEOUT", "5s")
	t.Setenv("ORACLE_TEMPERATURE", "0.4")
	t.Setenv("WORKER_COUNT", "3")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, 3, cfg.WorkerCount)

	pc := cfg.ProviderConfig()
	assert.Equal(t, "anthropic", pc.Provider)
	assert.Equal(t, "sk-ant", pc.APIKey)
	assert.Equal(t, "claude-test", pc.ModelName)
	assert.Equal(t, 0.4, pc.Options.Temperature)

	rc := cfg.Resolver()
	assert.Equal(t, 5*time.Second, rc.Timeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ORACLE_TIMEOUT", "soon"},
		{"SESSION_TTL", "1 day"},
		{"WORKER_COUNT", "many"},
		{"WORKER_COUNT", "0"},
		{"ORACLE_TEMPERATURE", "warm"},
		{"CONFIG_FILE", filepath.Join(os.TempDir(), "does-not-exist.yaml")},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_NarrativeOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narrative.yaml")
	require.NoError(t, os.WriteFile(path, []byte("setting: a haunted lighthouse\nrating: G\nnarration_width: 400\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	rc := cfg.Resolver()
	assert.Equal(t, "a haunted lighthouse", rc.Prompt.Setting)
	assert.Equal(t, "G", rc.Prompt.Rating)
	assert.Equal(t, uint(400), rc.MaxNarrationWidth)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, prompts.DefaultMaxWords, rc.Prompt.MaxWords)
}

func TestLoad_MalformedOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narrative.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rating: [unterminated\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_APIKey(t *testing.T) {
	cfg := &Config{
		OpenAIAPIKey:    "o",
		AnthropicAPIKey: "a",
		VeniceAPIKey:    "v",
		GeminiAPIKey:    "g",
	}
	tests := map[string]string{
		"openai":    "o",
		"chatgpt":   "o",
		"anthropic": "a",
		"venice":    "v",
		"gemini":    "g",
		"ollama":    "",
	}
	for provider, want := range tests {
		cfg.LLMProvider = provider
		if got := cfg.APIKey(); got != want {
			t.Errorf("APIKey() for %s = %q, want %q", provider, got, want)
		}
	}
}
