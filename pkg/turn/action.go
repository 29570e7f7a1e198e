package turn

import (
	"strings"
	"unicode"
)

// MaxActions is the most actions a TurnResult carries.
const MaxActions = 5

// ActionType is one of the verbs the engine's dispatcher knows how to run.
type ActionType string

const (
	ActionUnknown        ActionType = ""
	ActionSpawnEncounter ActionType = "spawn_encounter"
	ActionAwardResource  ActionType = "award_resource"
	ActionOfferShop      ActionType = "offer_shop"
	ActionSetScene       ActionType = "set_scene"
	ActionSaveCheckpoint ActionType = "save_checkpoint"
	ActionGameOver       ActionType = "game_over"
	ActionNoop           ActionType = "noop"
)

// ActionTypes lists the recognized tags in the order they are documented
// to the oracle.
var ActionTypes = []ActionType{
	ActionSpawnEncounter,
	ActionAwardResource,
	ActionOfferShop,
	ActionSetScene,
	ActionSaveCheckpoint,
	ActionGameOver,
	ActionNoop,
}

var actionAliases = map[string]ActionType{
	"no_op": ActionNoop,
	"none":  ActionNoop,
}

// Action is a single engine instruction or player suggestion.
type Action struct {
	Type  ActionType     `json:"type"`
	Args  map[string]any `json:"args,omitempty"`
	Label string         `json:"label,omitempty"`
	Cmd   string         `json:"cmd,omitempty"`
}

// ParseActionType maps an oracle tag onto the closed set. Matching ignores
// case and treats camelCase, kebab-case and spaces as snake_case.
func ParseActionType(tag string) (ActionType, bool) {
	key := foldTag(tag)
	if key == "" {
		return ActionUnknown, false
	}
	if at, ok := actionAliases[key]; ok {
		return at, true
	}
	for _, at := range ActionTypes {
		if string(at) == key {
			return at, true
		}
	}
	return ActionUnknown, false
}

func foldTag(tag string) string {
	tag = strings.TrimSpace(tag)
	var sb strings.Builder
	var prev rune
	for _, r := range tag {
		switch {
		case r == '-' || r == ' ' || r == '_':
			if prev != '_' {
				sb.WriteRune('_')
			}
			prev = '_'
			continue
		case unicode.IsUpper(r):
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				sb.WriteRune('_')
			}
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
		prev = r
	}
	return strings.Trim(sb.String(), "_")
}

// DecodeAction checks one element of the oracle's actions array. It reports
// false for anything the engine must not see: non-objects, unknown tags,
// and tagless entries that do not even carry a suggestion.
func DecodeAction(v any) (Action, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Action{}, false
	}

	label, _ := obj["label"].(string)
	cmd, _ := obj["cmd"].(string)
	label = strings.TrimSpace(label)
	cmd = strings.TrimSpace(cmd)

	var at ActionType
	switch tag := obj["type"].(type) {
	case string:
		if at, ok = ParseActionType(tag); !ok {
			return Action{}, false
		}
	case nil:
		// Plain suggestion: {"label": "...", "cmd": "..."}
		if label == "" && cmd == "" {
			return Action{}, false
		}
		at = ActionNoop
	default:
		return Action{}, false
	}

	action := Action{Type: at, Label: label, Cmd: cmd}
	if args, ok := obj["args"].(map[string]any); ok && len(args) > 0 {
		action.Args = args
	}
	return action, true
}
