package turn

import (
	"strings"

	"github.com/muesli/reflow/truncate"
)

const (
	// DefaultNarration is used whenever the oracle gives no usable narration.
	DefaultNarration = "Neo-static flickers. You steady yourself. Even a weird move shifts fate here. What's your next play?"

	// DefaultMaxNarrationWidth bounds narration length in display cells.
	DefaultMaxNarrationWidth = 1200

	narrationTail = "…"
)

// TextFilter rewrites narration before it reaches the player.
type TextFilter interface {
	FilterText(text string) string
}

// Normalizer turns whatever Extract produced into a TurnResult. The zero
// value is ready to use.
type Normalizer struct {
	// Filter, when set, is applied to the narration.
	Filter TextFilter
	// MaxNarrationWidth overrides DefaultMaxNarrationWidth when non-zero.
	MaxNarrationWidth uint
	// DefaultNarration overrides the package default when non-empty.
	DefaultNarration string
}

// Normalize is Normalizer{}.Normalize.
func Normalize(parsed any) TurnResult {
	return Normalizer{}.Normalize(parsed)
}

// Normalize never fails. Each field is checked on its own, so a broken
// actions array does not cost the turn its narration. A parsed value that
// is not an object yields an all-default result.
func (n Normalizer) Normalize(parsed any) TurnResult {
	obj, _ := parsed.(map[string]any)

	return TurnResult{
		Narration:   n.narration(obj["narration"]),
		Actions:     normalizeActions(obj["actions"]),
		StatePatch:  normalizePatch(obj["state_patch"]),
		MemoryPatch: normalizePatch(obj["memory_patch"]),
		Effects:     normalizeEffects(obj["effects"]),
	}
}

func (n Normalizer) defaultNarration() string {
	if n.DefaultNarration != "" {
		return n.DefaultNarration
	}
	return DefaultNarration
}

func (n Normalizer) narration(v any) string {
	text, ok := v.(string)
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return n.defaultNarration()
	}

	if n.Filter != nil {
		text = strings.TrimSpace(n.Filter.FilterText(text))
		if text == "" {
			return n.defaultNarration()
		}
	}

	width := n.MaxNarrationWidth
	if width == 0 {
		width = DefaultMaxNarrationWidth
	}
	return truncate.StringWithTail(text, width, narrationTail)
}

// normalizeActions keeps at most MaxActions elements, then drops the ones
// the engine does not recognize.
func normalizeActions(v any) []Action {
	items, ok := v.([]any)
	if !ok {
		return []Action{}
	}
	if len(items) > MaxActions {
		items = items[:MaxActions]
	}

	actions := make([]Action, 0, len(items))
	for _, item := range items {
		if action, ok := DecodeAction(item); ok {
			actions = append(actions, action)
		}
	}
	return actions
}

func normalizePatch(v any) Container {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return Container{}
	}
	return Container(m)
}

func normalizeEffects(v any) Effects {
	m, ok := v.(map[string]any)
	if !ok {
		return Effects{}
	}
	effects := make(Effects, len(m))
	for name, raw := range m {
		if amount, ok := raw.(float64); ok {
			effects[name] = amount
		}
	}
	return effects
}
