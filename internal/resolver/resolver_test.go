package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/turn-engine/internal/services"
	"github.com/jwebster45206/turn-engine/pkg/chat"
	"github.com/jwebster45206/turn-engine/pkg/prompts"
	"github.com/jwebster45206/turn-engine/pkg/turn"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResolver(llm services.LLMService) *Resolver {
	return New(llm, Config{Timeout: time.Second}, testLogger())
}

func TestResolveTurn_MalformedOracleText(t *testing.T) {
	mock := services.NewMockLLMAPI()
	mock.SetResponse("not json at all")

	out, err := newTestResolver(mock).ResolveTurn(context.Background(), chat.TurnRequest{PlayerInput: "hide"})
	require.NoError(t, err)

	want := turn.TurnResult{
		Narration:   turn.DefaultNarration,
		Actions:     []turn.Action{},
		StatePatch:  turn.Container{},
		MemoryPatch: turn.Container{},
		Effects:     turn.Effects{},
	}
	if diff := cmp.Diff(want, out.Result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, out.Fallback)
	assert.Empty(t, out.NextState)
	assert.Empty(t, out.NextMemory)
}

func TestResolveTurn_DropsUnknownAction(t *testing.T) {
	mock := services.NewMockLLMAPI()
	mock.SetResponse(`{"narration":"You dash.","state_patch":{"hp":80},"actions":[{"type":"bogusTag"}]}`)

	req := chat.TurnRequest{
		PlayerInput: "run",
		State:       map[string]any{"hp": 100.0, "location": "alley"},
	}
	out, err := newTestResolver(mock).ResolveTurn(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "You dash.", out.Result.Narration)
	assert.Equal(t, turn.Container{"hp": 80.0}, out.Result.StatePatch)
	assert.Equal(t, []turn.Action{}, out.Result.Actions)
	assert.Equal(t, turn.Container{"hp": 80.0, "location": "alley"}, out.NextState)
	assert.Equal(t, 100.0, req.State["hp"], "caller state must not be mutated")
}

func TestResolveTurn_ProseWrappedReply(t *testing.T) {
	mock := services.NewMockLLMAPI()
	mock.SetResponse("Sure! Here you go:\n```json\n" +
		`{"narration":"The door hisses open.","actions":[{"type":"set_scene","args":{"scene":"lobby"}}],"memory_patch":{"goal":"reach the roof"},"effects":{"hpDelta":-5}}` +
		"\n```")

	out, err := newTestResolver(mock).ResolveTurn(context.Background(), chat.TurnRequest{
		PlayerInput: "open door",
		Memory:      map[string]any{"fear": "heights"},
	})
	require.NoError(t, err)

	assert.Equal(t, "The door hisses open.", out.Result.Narration)
	require.Len(t, out.Result.Actions, 1)
	assert.Equal(t, turn.ActionSetScene, out.Result.Actions[0].Type)
	assert.Equal(t, turn.Effects{"hpDelta": -5}, out.Result.Effects)
	assert.Equal(t, turn.Container{"fear": "heights", "goal": "reach the roof"}, out.NextMemory)
}

func TestResolveTurn_NeverStalls(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason turn.FailureReason
	}{
		{"transport", errors.New("dial tcp: connection refused"), turn.ReasonTransport},
		{"bad status", &services.StatusError{Provider: "openai", StatusCode: 503}, turn.ReasonBadStatus},
		{"empty", services.ErrEmptyResponse, turn.ReasonEmptyResponse},
		{"wrapped deadline", fmt.Errorf("failed to make request: %w", context.DeadlineExceeded), turn.ReasonTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := services.NewMockLLMAPI()
			mock.SetChatError(tt.err)

			state := map[string]any{"hp": 42.0}
			out, err := newTestResolver(mock).ResolveTurn(context.Background(), chat.TurnRequest{
				PlayerInput: "hide",
				State:       state,
			})
			require.NoError(t, err)

			assert.True(t, out.Fallback)
			assert.Equal(t, tt.reason, out.Reason)
			assert.NotEmpty(t, out.Result.Narration)
			assert.NotNil(t, out.Result.Actions)
			assert.Empty(t, out.Result.StatePatch)
			assert.Empty(t, out.Result.MemoryPatch)
			assert.Empty(t, out.Result.Effects)
			assert.Equal(t, turn.Container{"hp": 42.0}, out.NextState)
		})
	}
}

func TestResolveTurn_TimeoutReachesFallback(t *testing.T) {
	mock := services.NewMockLLMAPI()
	mock.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	r := New(mock, Config{Timeout: 20 * time.Millisecond}, testLogger())
	start := time.Now()
	out, err := r.ResolveTurn(context.Background(), chat.TurnRequest{PlayerInput: "wait"})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, out.Fallback)
	assert.Equal(t, turn.ReasonTimeout, out.Reason)
	assert.Equal(t, turn.Fallback(turn.ReasonTimeout), out.Result)
}

func TestResolveTurn_NilResponseIsEmpty(t *testing.T) {
	mock := services.NewMockLLMAPI()
	mock.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, nil
	}

	out, err := newTestResolver(mock).ResolveTurn(context.Background(), chat.TurnRequest{})
	require.NoError(t, err)
	assert.True(t, out.Fallback)
	assert.Equal(t, turn.ReasonEmptyResponse, out.Reason)
}

func TestResolveTurn_InvalidRequest(t *testing.T) {
	mock := services.NewMockLLMAPI()
	req := chat.TurnRequest{PlayerInput: string(make([]byte, chat.MaxPlayerInputLength+1))}

	_, err := newTestResolver(mock).ResolveTurn(context.Background(), req)
	assert.ErrorIs(t, err, chat.ErrInvalidRequest)

	_, calls := mock.GetCalls()
	assert.Empty(t, calls, "invalid input must not reach the oracle")
}

func TestResolveTurn_LogTruncation(t *testing.T) {
	mock := services.NewMockLLMAPI()

	log := make([]any, 20)
	for i := range log {
		log[i] = map[string]any{"player": fmt.Sprintf("input-%d", i), "narration": "..."}
	}

	_, err := newTestResolver(mock).ResolveTurn(context.Background(), chat.TurnRequest{
		PlayerInput: "look",
		Log:         log,
	})
	require.NoError(t, err)

	_, calls := mock.GetCalls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, chat.ChatRoleSystem, calls[0].Messages[0].Role)

	var payload prompts.Payload
	require.NoError(t, json.Unmarshal([]byte(calls[0].Messages[1].Content), &payload))
	require.Len(t, payload.RecentLog, 12)
	first := payload.RecentLog[0].(map[string]any)
	last := payload.RecentLog[11].(map[string]any)
	assert.Equal(t, "input-8", first["player"])
	assert.Equal(t, "input-19", last["player"])
	assert.Equal(t, "look", payload.PlayerInput)
}

func TestResolveTurn_FiltersNarration(t *testing.T) {
	mock := services.NewMockLLMAPI()
	mock.SetResponse(`{"narration":"Well, shit. The agent is here."}`)

	out, err := newTestResolver(mock).ResolveTurn(context.Background(), chat.TurnRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Well, shoot. The agent is here.", out.Result.Narration)

	unrated := New(mock, Config{Prompt: prompts.Settings{Rating: "R"}}, testLogger())
	out, err = unrated.ResolveTurn(context.Background(), chat.TurnRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Well, shit. The agent is here.", out.Result.Narration)
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want turn.FailureReason
	}{
		{"deadline", context.DeadlineExceeded, turn.ReasonTimeout},
		{"canceled", context.Canceled, turn.ReasonTransport},
		{"status", fmt.Errorf("wrap: %w", &services.StatusError{StatusCode: 500}), turn.ReasonBadStatus},
		{"empty", fmt.Errorf("wrap: %w", services.ErrEmptyResponse), turn.ReasonEmptyResponse},
		{"other", errors.New("boom"), turn.ReasonTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyFailure(tt.err); got != tt.want {
				t.Errorf("ClassifyFailure(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New(services.NewMockLLMAPI(), Config{}, testLogger())
	assert.Equal(t, DefaultTimeout, r.cfg.Timeout)
	assert.Equal(t, prompts.DefaultLogLimit, r.cfg.LogLimit)
	assert.NotNil(t, r.normalizer.Filter)
}
