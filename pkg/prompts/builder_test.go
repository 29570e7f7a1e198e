package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/jwebster45206/turn-engine/pkg/chat"
	"github.com/jwebster45206/turn-engine/pkg/turn"
)

func TestNew(t *testing.T) {
	builder := New()
	if builder == nil {
		t.Fatal("New() returned nil")
	}
	if builder.logLimit != DefaultLogLimit {
		t.Errorf("expected default log limit %d, got %d", DefaultLogLimit, builder.logLimit)
	}
}

func TestBuilder_FluentInterface(t *testing.T) {
	builder := New().
		WithPlayerInput("jack in").
		WithState(turn.Container{"location": "rooftop"}).
		WithMemory(turn.Container{"goal": "find the Oracle"}).
		WithLog(turn.Log{"hello"}).
		WithLogLimit(3)

	if builder.playerInput != "jack in" {
		t.Errorf("expected player input to be set, got %q", builder.playerInput)
	}
	if builder.state["location"] != "rooftop" {
		t.Errorf("expected state to be set, got %v", builder.state)
	}
	if builder.memory["goal"] != "find the Oracle" {
		t.Errorf("expected memory to be set, got %v", builder.memory)
	}
	if builder.logLimit != 3 {
		t.Errorf("expected log limit 3, got %d", builder.logLimit)
	}
}

func TestBuilder_WithLogLimitIgnoresNonPositive(t *testing.T) {
	builder := New().WithLogLimit(0).WithLogLimit(-4)
	if builder.logLimit != DefaultLogLimit {
		t.Errorf("expected default log limit, got %d", builder.logLimit)
	}
}

func TestBuilder_Build(t *testing.T) {
	messages, err := New().
		WithPlayerInput("look around").
		WithState(turn.Container{"hp": 10.0}).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != chat.ChatRoleSystem {
		t.Errorf("expected first message to be system, got %q", messages[0].Role)
	}
	if messages[1].Role != chat.ChatRoleUser {
		t.Errorf("expected second message to be user, got %q", messages[1].Role)
	}

	var payload Payload
	if err := json.Unmarshal([]byte(messages[1].Content), &payload); err != nil {
		t.Fatalf("user message is not JSON: %v", err)
	}
	if payload.PlayerInput != "look around" {
		t.Errorf("expected playerInput to round trip, got %q", payload.PlayerInput)
	}
	if payload.State["hp"] != 10.0 {
		t.Errorf("expected state.hp 10, got %v", payload.State["hp"])
	}
	if payload.Memory == nil {
		t.Error("expected memory to encode as an empty object")
	}
	if payload.RecentLog == nil || len(payload.RecentLog) != 0 {
		t.Errorf("expected empty recentLog, got %v", payload.RecentLog)
	}
}

func TestBuilder_LogWindow(t *testing.T) {
	log := make(turn.Log, 20)
	for i := range log {
		log[i] = fmt.Sprintf("entry-%d", i)
	}

	payload := New().WithLog(log).Payload()
	if len(payload.RecentLog) != DefaultLogLimit {
		t.Fatalf("expected %d log entries, got %d", DefaultLogLimit, len(payload.RecentLog))
	}
	if payload.RecentLog[0] != "entry-8" {
		t.Errorf("expected window to start at entry-8, got %v", payload.RecentLog[0])
	}
	if payload.RecentLog[DefaultLogLimit-1] != "entry-19" {
		t.Errorf("expected window to end at entry-19, got %v", payload.RecentLog[DefaultLogLimit-1])
	}
	if len(log) != 20 {
		t.Error("caller log was modified")
	}
}

func TestBuilder_ShortLogPassesThrough(t *testing.T) {
	payload := New().WithLog(turn.Log{"a", "b"}).Payload()
	if len(payload.RecentLog) != 2 {
		t.Errorf("expected 2 entries, got %d", len(payload.RecentLog))
	}
}

func TestSystemInstruction(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		contains []string
	}{
		{
			name:     "defaults",
			settings: Settings{},
			contains: []string{DefaultSetting, "Keep it PG-13.", "<= 160 words", "At most 5 actions", "No markdown, no code fences"},
		},
		{
			name:     "custom",
			settings: Settings{Setting: "a noir detective story", Rating: "G", MaxWords: 80},
			contains: []string{"a noir detective story", "Keep it G.", "<= 80 words", "slapstick"},
		},
		{
			name:     "unknown rating has no guidance",
			settings: Settings{Rating: "NC-17"},
			contains: []string{"Keep it NC-17.\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SystemInstruction(tt.settings)
			if err != nil {
				t.Fatalf("SystemInstruction() error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected instruction to contain %q", want)
				}
			}
		})
	}
}

func TestSystemInstruction_ListsEveryActionType(t *testing.T) {
	got, err := SystemInstruction(Settings{})
	if err != nil {
		t.Fatalf("SystemInstruction() error: %v", err)
	}
	for _, at := range turn.ActionTypes {
		if !strings.Contains(got, string(at)) {
			t.Errorf("expected instruction to mention %q", at)
		}
	}
}
