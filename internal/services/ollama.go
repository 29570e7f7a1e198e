package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/turn-engine/pkg/chat"
)

const DefaultOllamaURL = "http://localhost:11434"

// OllamaService implements LLMService for a self-hosted Ollama server.
type OllamaService struct {
	baseURL    string
	modelName  string
	options    Options
	httpClient *http.Client
	logger     *slog.Logger
}

type OllamaChatRequest struct {
	Model    string             `json:"model"`
	Messages []chat.ChatMessage `json:"messages"`
	Stream   bool               `json:"stream"`
	Format   string             `json:"format"`
	Options  map[string]any     `json:"options,omitempty"`
}

type OllamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

func NewOllamaService(baseURL string, modelName string, opts Options, logger *slog.Logger) *OllamaService {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaService{
		baseURL:   strings.TrimRight(baseURL, "/"),
		modelName: modelName,
		options:   opts.withDefaults(),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// InitModel pulls the model when the server does not have it yet.
func (s *OllamaService) InitModel(ctx context.Context, modelName string) error {
	s.logger.Info("Initializing LLM model", "model", modelName)

	ready, err := s.isModelReady(ctx, modelName)
	if err != nil {
		return fmt.Errorf("failed to check model readiness: %w", err)
	}
	if ready {
		s.logger.Info("Model already available", "model", modelName)
		return nil
	}

	s.logger.Info("Model not found, pulling it", "model", modelName)
	if err := s.pullModel(ctx, modelName); err != nil {
		return fmt.Errorf("failed to pull model: %w", err)
	}
	s.logger.Info("Model pulled successfully", "model", modelName)
	return nil
}

func (s *OllamaService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	request := OllamaChatRequest{
		Model:    s.modelName,
		Messages: messages,
		Stream:   false,
		Format:   "json",
		Options: map[string]any{
			"temperature": s.options.Temperature,
			"num_predict": s.options.MaxTokens,
		},
	}

	s.logger.Debug("Making Ollama chat request", "model", s.modelName, "message_count", len(messages))

	body, err := postJSON(ctx, s.httpClient, "ollama", s.baseURL+"/api/chat", nil, request)
	if err != nil {
		return nil, err
	}

	var resp OllamaChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("API error: %s", resp.Error)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	return &chat.ChatResponse{
		Message: resp.Message.Content,
		Model:   resp.Model,
	}, nil
}

func (s *OllamaService) isModelReady(ctx context.Context, modelName string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}

	var tagsResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, model := range tagsResp.Models {
		if model.Name == modelName || strings.TrimSuffix(model.Name, ":latest") == modelName {
			return true, nil
		}
	}
	return false, nil
}

func (s *OllamaService) pullModel(ctx context.Context, modelName string) error {
	client := &http.Client{
		Timeout: 10 * time.Minute,
	}
	_, err := postJSON(ctx, client, "ollama", s.baseURL+"/api/pull", nil, map[string]any{
		"name":   modelName,
		"stream": false,
	})
	return err
}
