package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/turn-engine/pkg/chat"
)

const (
	chatGPTBaseURL = "https://api.openai.com/v1"

	DefaultChatGPTModel = "gpt-4o-mini"
)

// ChatGPTService implements LLMService for OpenAI chat completions in JSON mode.
type ChatGPTService struct {
	apiKey     string
	modelName  string
	baseURL    string
	options    Options
	httpClient *http.Client
}

type ChatGPTResponseFormat struct {
	Type string `json:"type"`
}

// ChatGPTRequest is the chat completions request body.
type ChatGPTRequest struct {
	Model          string                 `json:"model"`
	Messages       []chat.ChatMessage     `json:"messages"`
	Temperature    float64                `json:"temperature"`
	MaxTokens      int                    `json:"max_tokens,omitempty"`
	ResponseFormat *ChatGPTResponseFormat `json:"response_format,omitempty"`
}

type ChatGPTChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		Refusal string `json:"refusal,omitempty"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// ChatGPTResponse is the chat completions response body.
type ChatGPTResponse struct {
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Choices []ChatGPTChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewChatGPTService creates an OpenAI-backed oracle. An empty model name
// selects DefaultChatGPTModel.
func NewChatGPTService(apiKey string, modelName string, opts Options) *ChatGPTService {
	if modelName == "" {
		modelName = DefaultChatGPTModel
	}
	return &ChatGPTService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   chatGPTBaseURL,
		options:   opts.withDefaults(),
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// InitModel is a no-op; OpenAI models need no warmup.
func (c *ChatGPTService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

func (c *ChatGPTService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	request := ChatGPTRequest{
		Model:          c.modelName,
		Messages:       messages,
		Temperature:    c.options.Temperature,
		MaxTokens:      c.options.MaxTokens,
		ResponseFormat: &ChatGPTResponseFormat{Type: "json_object"},
	}

	body, err := postJSON(ctx, c.httpClient, "openai", c.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + c.apiKey}, request)
	if err != nil {
		return nil, err
	}

	var resp ChatGPTResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("model refused to respond: %s", choice.Message.Refusal)
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	return &chat.ChatResponse{
		Message: choice.Message.Content,
		Model:   resp.Model,
	}, nil
}
