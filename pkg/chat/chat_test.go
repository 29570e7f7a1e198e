package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestTurnRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "empty input is allowed", input: "", wantErr: false},
		{name: "ordinary input", input: "hide behind the vending machine", wantErr: false},
		{name: "input at limit", input: strings.Repeat("a", MaxPlayerInputLength), wantErr: false},
		{name: "input over limit", input: strings.Repeat("a", MaxPlayerInputLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := TurnRequest{PlayerInput: tt.input}
			err := req.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Errorf("Expected ErrInvalidRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestTurnRequest_DecodeDefaults(t *testing.T) {
	var req TurnRequest
	if err := json.Unmarshal([]byte(`{"playerInput":"hide"}`), &req); err != nil {
		t.Fatalf("Failed to decode request: %v", err)
	}

	if req.PlayerInput != "hide" {
		t.Errorf("Expected playerInput 'hide', got '%s'", req.PlayerInput)
	}
	if req.State != nil || req.Memory != nil || req.Log != nil {
		t.Errorf("Expected missing containers to decode as nil, got %v %v %v", req.State, req.Memory, req.Log)
	}
}

func TestTurnRequest_DecodeRejectsWrongShapes(t *testing.T) {
	var req TurnRequest
	if err := json.Unmarshal([]byte(`{"state":[1,2,3]}`), &req); err == nil {
		t.Error("Expected an error decoding an array into state")
	}
}
