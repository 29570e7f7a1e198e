package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func newTestGemini(gen *fakeGenerator, gotSystem *string) *GeminiService {
	g := &GeminiService{modelName: DefaultGeminiModel, options: Options{}.withDefaults()}
	g.newModel = func(system string) contentGenerator {
		*gotSystem = system
		return gen
	}
	return g
}

func TestGeminiService_Chat(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"narration":`), genai.Text(`"ok"}`)}},
		}},
	}}
	var system string
	service := newTestGemini(gen, &system)

	resp, err := service.Chat(context.Background(), testMessages())
	require.NoError(t, err)
	assert.Equal(t, `{"narration":"ok"}`, resp.Message)
	assert.Equal(t, "Return JSON.", system)
	require.Len(t, gen.parts, 1)
	assert.Equal(t, genai.Text(`{"playerInput":"hide"}`), gen.parts[0])
}

func TestGeminiService_Errors(t *testing.T) {
	tests := []struct {
		name       string
		gen        *fakeGenerator
		wantStatus int
		wantEmpty  bool
	}{
		{
			name:       "api error",
			gen:        &fakeGenerator{err: &googleapi.Error{Code: http.StatusServiceUnavailable, Message: "overloaded"}},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:      "no candidates",
			gen:       &fakeGenerator{resp: &genai.GenerateContentResponse{}},
			wantEmpty: true,
		},
		{
			name:      "nil content",
			gen:       &fakeGenerator{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}},
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var system string
			service := newTestGemini(tt.gen, &system)
			_, err := service.Chat(context.Background(), testMessages())
			require.Error(t, err)
			if tt.wantEmpty {
				assert.ErrorIs(t, err, ErrEmptyResponse)
			}
			if tt.wantStatus != 0 {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, tt.wantStatus, statusErr.StatusCode)
			}
		})
	}
}

func TestGeminiService_CloseWithoutClient(t *testing.T) {
	assert.NoError(t, (&GeminiService{}).Close())
}
