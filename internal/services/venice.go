package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/turn-engine/pkg/chat"
	"github.com/jwebster45206/turn-engine/pkg/turn"
)

const (
	veniceBaseURL = "https://api.venice.ai/api/v1"
)

// VeniceService implements LLMService for Venice AI
type VeniceService struct {
	apiKey     string
	modelName  string
	baseURL    string
	options    Options
	httpClient *http.Client
}

type VeniceResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema VeniceJSONSchema `json:"json_schema"`
}

type VeniceJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type VeniceParameters struct {
	IncludeVeniceSystemPrompt bool   `json:"include_venice_system_prompt"`
	EnableWebSearch           string `json:"enable_web_search"`
}

// VeniceChatRequest represents the request structure for Venice AI chat completions
type VeniceChatRequest struct {
	Model            string                `json:"model"`
	Messages         []chat.ChatMessage    `json:"messages"`
	Temperature      float64               `json:"temperature,omitempty"`
	MaxTokens        int                   `json:"max_tokens,omitempty"`
	Stream           bool                  `json:"stream"`
	ResponseFormat   *VeniceResponseFormat `json:"response_format,omitempty"`
	VeniceParameters VeniceParameters      `json:"venice_parameters"`
}

// VeniceChatChoice represents a single choice in the Venice AI response
type VeniceChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// VeniceChatResponse represents the response structure for Venice AI chat completions
type VeniceChatResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []VeniceChatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewVeniceService creates a new Venice AI service
func NewVeniceService(apiKey string, modelName string, opts Options) *VeniceService {
	return &VeniceService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   veniceBaseURL,
		options:   opts.withDefaults(),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// InitModel initializes the model (Venice AI doesn't require explicit model initialization)
func (v *VeniceService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// turnResultFormat describes the turn result as a json_schema response format.
// Patches stay open objects since their keys are game-defined.
func turnResultFormat() *VeniceResponseFormat {
	tags := make([]string, 0, len(turn.ActionTypes))
	for _, at := range turn.ActionTypes {
		tags = append(tags, string(at))
	}

	return &VeniceResponseFormat{
		Type: "json_schema",
		JSONSchema: VeniceJSONSchema{
			Name:   "turn_result",
			Strict: false,
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"narration": map[string]any{
						"type": "string",
					},
					"actions": map[string]any{
						"type":     "array",
						"maxItems": turn.MaxActions,
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"type":  map[string]any{"type": "string", "enum": tags},
								"args":  map[string]any{"type": "object"},
								"label": map[string]any{"type": "string"},
								"cmd":   map[string]any{"type": "string"},
							},
							"required": []string{"type"},
						},
					},
					"state_patch":  map[string]any{"type": "object"},
					"memory_patch": map[string]any{"type": "object"},
					"effects": map[string]any{
						"type":                 "object",
						"additionalProperties": map[string]any{"type": "number"},
					},
				},
				"required": []string{"narration", "actions", "state_patch", "memory_patch", "effects"},
			},
		},
	}
}

// Chat generates a chat response using Venice AI
func (v *VeniceService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	request := VeniceChatRequest{
		Model:          v.modelName,
		Messages:       messages,
		Temperature:    v.options.Temperature,
		MaxTokens:      v.options.MaxTokens,
		ResponseFormat: turnResultFormat(),
		VeniceParameters: VeniceParameters{
			IncludeVeniceSystemPrompt: false,
			EnableWebSearch:           "off",
		},
	}

	body, err := postJSON(ctx, v.httpClient, "venice", v.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + v.apiKey}, request)
	if err != nil {
		return nil, err
	}

	var resp VeniceChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	return &chat.ChatResponse{
		Message: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}, nil
}
