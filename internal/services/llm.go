package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/turn-engine/pkg/chat"
)

const (
	DefaultTemperature = 0.85
	DefaultMaxTokens   = 700
)

// LLMService is the oracle: one blocking call per turn, raw text back.
type LLMService interface {
	// InitModel prepares the model on startup
	InitModel(ctx context.Context, modelName string) error

	// Chat sends the messages and returns the model's raw reply.
	// Every provider asks for JSON output.
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}

// Options tunes generation for every provider.
type Options struct {
	Temperature float64
	MaxTokens   int
}

func (o Options) withDefaults() Options {
	if o.Temperature <= 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

// ProviderConfig selects and configures an oracle provider.
type ProviderConfig struct {
	Provider  string
	ModelName string
	APIKey    string
	BaseURL   string // ollama only
	Options   Options
}

// Providers lists the supported provider names.
var Providers = []string{"openai", "anthropic", "venice", "ollama", "gemini"}

// New builds the LLMService named by cfg.Provider.
func New(ctx context.Context, cfg ProviderConfig, logger *slog.Logger) (LLMService, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider != "ollama" && cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required when using %s provider", provider)
	}

	switch provider {
	case "openai", "chatgpt":
		return NewChatGPTService(cfg.APIKey, cfg.ModelName, cfg.Options), nil
	case "anthropic":
		return NewAnthropicService(cfg.APIKey, cfg.ModelName, cfg.Options, logger), nil
	case "venice":
		return NewVeniceService(cfg.APIKey, cfg.ModelName, cfg.Options), nil
	case "ollama":
		return NewOllamaService(cfg.BaseURL, cfg.ModelName, cfg.Options, logger), nil
	case "gemini":
		return NewGeminiService(ctx, cfg.APIKey, cfg.ModelName, cfg.Options)
	default:
		return nil, fmt.Errorf("invalid LLM provider %q, supported: %s", cfg.Provider, strings.Join(Providers, ", "))
	}
}
