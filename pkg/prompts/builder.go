package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/turn-engine/pkg/chat"
	"github.com/jwebster45206/turn-engine/pkg/turn"
)

// DefaultLogLimit is how many log entries reach the oracle.
const DefaultLogLimit = 12

// Payload is the user message body sent to the oracle.
type Payload struct {
	PlayerInput string         `json:"playerInput"`
	State       turn.Container `json:"state"`
	Memory      turn.Container `json:"memory"`
	RecentLog   turn.Log       `json:"recentLog"`
}

// Builder constructs the oracle request for one turn using a fluent interface.
type Builder struct {
	settings    Settings
	playerInput string
	state       turn.Container
	memory      turn.Container
	log         turn.Log
	logLimit    int
}

// New creates a builder with default settings and log window.
func New() *Builder {
	return &Builder{
		logLimit: DefaultLogLimit,
	}
}

func (b *Builder) WithSettings(s Settings) *Builder {
	b.settings = s
	return b
}

func (b *Builder) WithPlayerInput(input string) *Builder {
	b.playerInput = input
	return b
}

func (b *Builder) WithState(state turn.Container) *Builder {
	b.state = state
	return b
}

func (b *Builder) WithMemory(memory turn.Container) *Builder {
	b.memory = memory
	return b
}

func (b *Builder) WithLog(log turn.Log) *Builder {
	b.log = log
	return b
}

// WithLogLimit sets the log window. Non-positive values keep the default.
func (b *Builder) WithLogLimit(limit int) *Builder {
	if limit > 0 {
		b.logLimit = limit
	}
	return b
}

// Payload returns the user payload with the log already windowed and nil
// containers replaced by empty ones.
func (b *Builder) Payload() Payload {
	state := b.state
	if state == nil {
		state = turn.Container{}
	}
	memory := b.memory
	if memory == nil {
		memory = turn.Container{}
	}
	return Payload{
		PlayerInput: b.playerInput,
		State:       state,
		Memory:      memory,
		RecentLog:   RecentLog(b.log, b.logLimit),
	}
}

// Build returns the system instruction followed by the JSON user payload.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	system, err := SystemInstruction(b.settings)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(b.Payload())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal turn payload: %w", err)
	}

	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: system},
		{Role: chat.ChatRoleUser, Content: string(payload)},
	}, nil
}

// RecentLog returns the last limit entries of log.
func RecentLog(log turn.Log, limit int) turn.Log {
	return log.Recent(limit)
}
