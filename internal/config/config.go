package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/turn-engine/internal/resolver"
	"github.com/jwebster45206/turn-engine/internal/services"
	"github.com/jwebster45206/turn-engine/pkg/prompts"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	LLMProvider     string
	ModelName       string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	VeniceAPIKey    string
	GeminiAPIKey    string
	OllamaURL       string

	// RedisURL is optional for the API; without it only stateless turns are served.
	RedisURL    string
	SessionTTL  time.Duration
	WorkerCount int

	OracleTimeout     time.Duration
	OracleTemperature float64

	Narrative Narrative
}

// Narrative is the optional YAML overlay named by CONFIG_FILE.
type Narrative struct {
	Setting        string `yaml:"setting"`
	Rating         string `yaml:"rating"`
	MaxWords       int    `yaml:"max_words"`
	NarrationWidth uint   `yaml:"narration_width"`
	LogLimit       int    `yaml:"log_limit"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		ModelName:       os.Getenv("MODEL_NAME"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		VeniceAPIKey:    os.Getenv("VENICE_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		OllamaURL:       os.Getenv("OLLAMA_URL"),

		RedisURL: os.Getenv("REDIS_URL"),
		Narrative: Narrative{
			Setting:  prompts.DefaultSetting,
			Rating:   prompts.DefaultRating,
			MaxWords: prompts.DefaultMaxWords,
		},
	}

	var err error
	if cfg.OracleTimeout, err = getDuration("ORACLE_TIMEOUT", resolver.DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.WorkerCount, err = getInt("WORKER_COUNT", 1); err != nil {
		return nil, err
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.OracleTemperature, err = getFloat("ORACLE_TEMPERATURE", services.DefaultTemperature); err != nil {
		return nil, err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadNarrative(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadNarrative overlays the fields present in the YAML file.
func (c *Config) loadNarrative(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.Narrative); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case "openai", "chatgpt":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "venice":
		return c.VeniceAPIKey
	case "gemini":
		return c.GeminiAPIKey
	}
	return ""
}

func (c *Config) ProviderConfig() services.ProviderConfig {
	return services.ProviderConfig{
		Provider:  c.LLMProvider,
		ModelName: c.ModelName,
		APIKey:    c.APIKey(),
		BaseURL:   c.OllamaURL,
		Options:   services.Options{Temperature: c.OracleTemperature},
	}
}

func (c *Config) Resolver() resolver.Config {
	return resolver.Config{
		Timeout:  c.OracleTimeout,
		LogLimit: c.Narrative.LogLimit,
		Prompt: prompts.Settings{
			Setting:  c.Narrative.Setting,
			Rating:   c.Narrative.Rating,
			MaxWords: c.Narrative.MaxWords,
		},
		MaxNarrationWidth: c.Narrative.NarrationWidth,
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
