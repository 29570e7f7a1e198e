package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jwebster45206/turn-engine/pkg/chat"
)

const DefaultGeminiModel = "gemini-1.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiService implements LLMService for Google Gemini with a JSON response MIME type.
type GeminiService struct {
	client    *genai.Client
	modelName string
	options   Options
	newModel  func(system string) contentGenerator
}

func NewGeminiService(ctx context.Context, apiKey string, modelName string, opts Options) (*GeminiService, error) {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	g := &GeminiService{
		client:    client,
		modelName: modelName,
		options:   opts.withDefaults(),
	}
	g.newModel = g.generativeModel
	return g, nil
}

func (g *GeminiService) generativeModel(system string) contentGenerator {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(float32(g.options.Temperature))
	model.SetMaxOutputTokens(int32(g.options.MaxTokens))
	model.ResponseMIMEType = "application/json"
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	return model
}

func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Close releases the underlying client.
func (g *GeminiService) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *GeminiService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	var system []string
	var parts []genai.Part
	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			system = append(system, msg.Content)
			continue
		}
		parts = append(parts, genai.Text(msg.Content))
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	resp, err := g.newModel(strings.Join(system, "\n\n")).GenerateContent(ctx, parts...)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, &StatusError{Provider: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	text := geminiText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}
	return &chat.ChatResponse{Message: text, Model: g.modelName}, nil
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
