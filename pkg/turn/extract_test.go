package turn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected any
		wantErr  bool
	}{
		{
			name:     "bare object",
			raw:      `{"narration":"You dash."}`,
			expected: map[string]any{"narration": "You dash."},
		},
		{
			name:     "object wrapped in prose",
			raw:      `Sure! Here is the turn: {"narration":"You dash."} Hope that helps.`,
			expected: map[string]any{"narration": "You dash."},
		},
		{
			name:     "object in markdown fence",
			raw:      "```json\n{\"narration\":\"You dash.\",\"effects\":{\"hpDelta\":-5}}\n```",
			expected: map[string]any{"narration": "You dash.", "effects": map[string]any{"hpDelta": -5.0}},
		},
		{
			name:     "nested objects survive the brace scan",
			raw:      `note: {"state_patch":{"loc":{"x":1}}} end`,
			expected: map[string]any{"state_patch": map[string]any{"loc": map[string]any{"x": 1.0}}},
		},
		{
			name:     "non-object JSON is returned as parsed",
			raw:      `[1,2]`,
			expected: []any{1.0, 2.0},
		},
		{
			name:    "not json at all",
			raw:     "not json at all",
			wantErr: true,
		},
		{
			name:    "empty text",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "closing brace before opening brace",
			raw:     "} nothing here {",
			wantErr: true,
		},
		{
			name:    "braces around invalid json",
			raw:     "prefix {narration: nope} suffix",
			wantErr: true,
		},
		{
			name:    "stray brace inside prose after payload",
			raw:     `{"narration":"ok"} and then a } appears`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.raw)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrNoStructuredData), "expected ErrNoStructuredData, got %v", err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtract_RoundTripWithProse(t *testing.T) {
	payload := `{"narration":"Rain hammers the rooftop.","actions":[{"type":"noop","label":"jump","cmd":"jump"}],"state_patch":{"hp":80,"location":"rooftop"},"memory_patch":{},"effects":{"hpDelta":-20}}`
	want, err := Extract(payload)
	require.NoError(t, err)

	prefixes := []string{"", "Here you go:\n", "```json\n", "The agent smiles. "}
	suffixes := []string{"", "\n```", " Let me know if you need more.", "\n\n-- end"}

	for _, prefix := range prefixes {
		for _, suffix := range suffixes {
			got, err := Extract(prefix + payload + suffix)
			require.NoError(t, err, "prefix %q suffix %q", prefix, suffix)
			assert.Equal(t, want, got, "prefix %q suffix %q", prefix, suffix)
		}
	}
}
