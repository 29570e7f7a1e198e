package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/jwebster45206/turn-engine/pkg/turn"
)

const (
	DefaultSetting  = "a Matrix-themed text RPG"
	DefaultRating   = "PG-13"
	DefaultMaxWords = 160
)

// SystemInstructionTemplate is the fixed contract sent with every turn:
// tone, the world-state vocabulary, and the exact output schema.
const SystemInstructionTemplate = `You are the adaptive game engine for {{.Setting}}.
Core goals: fast-paced cinematic narration, accept ANY input, and progress the story.
You must NEVER refuse or stall. If input is strange, interpret creatively and move forward.

STYLE:
- Tight, vivid prose (<= 4 sentences per turn), high momentum, cinematic beats.
- Use present tense.
- Keep it {{.Rating}}.{{with .RatingGuidance}} {{.}}{{end}}

WORLD STATE:
- "state": mutable world state (location, hp/mp, inventory, credits, threat, boss phases, etc.)
- "memory": long-lived player-focused memory (facts, goals, NPCs, style preferences). Keep it compact.
- "recentLog": the last exchanges, for local context only.

RESPONSE FORMAT (JSON only):
{
  "narration": "string (<= {{.MaxWords}} words, tight, cinematic, moves plot forward)",
  "actions": [ {"type": "one of: {{.ActionTypes}}", "args": {}, "label": "short clickable text", "cmd": "what the player might type next"} ],
  "state_patch": { "...only changed keys..." },
  "memory_patch": { "...only changed keys..." },
  "effects": { "hpDelta": 0, "mpDelta": 0, "creditsDelta": 0 }
}

RULES:
- Always return valid JSON. No markdown, no code fences.
- At most {{.MaxActions}} actions. Use "noop" for plain suggestions the player might type.
- Patches are shallow: a key you include replaces the old value entirely, so resend whole nested objects.
- Effects are numbers only.
- If the player's input is off-track, interpret it and continue the quest.
- Update memory minimally (add a goal if the player sets one, remember a chosen weapon, note fears).
- If combat escalates, include consequences in state_patch/effects but keep narration concise.
- If the player tries meta commands (save/reset/help), reflect them narratively, but still return valid JSON.`

var ratingGuidance = map[string]string{
	"G":     "No violence beyond slapstick and no frightening imagery.",
	"PG":    "Mild peril only. No profanity.",
	"PG-13": "No graphic content and no strong profanity.",
	"R":     "Mature themes are allowed; avoid gratuitous detail.",
}

var systemInstruction = template.Must(template.New("system").Parse(SystemInstructionTemplate))

// Settings fills in the system instruction.
type Settings struct {
	Setting  string
	Rating   string
	MaxWords int
}

func (s Settings) withDefaults() Settings {
	if strings.TrimSpace(s.Setting) == "" {
		s.Setting = DefaultSetting
	}
	if strings.TrimSpace(s.Rating) == "" {
		s.Rating = DefaultRating
	}
	if s.MaxWords <= 0 {
		s.MaxWords = DefaultMaxWords
	}
	return s
}

// SystemInstruction renders the instruction for the given settings.
func SystemInstruction(s Settings) (string, error) {
	s = s.withDefaults()

	tags := make([]string, 0, len(turn.ActionTypes))
	for _, at := range turn.ActionTypes {
		tags = append(tags, string(at))
	}

	data := struct {
		Setting        string
		Rating         string
		RatingGuidance string
		MaxWords       int
		MaxActions     int
		ActionTypes    string
	}{
		Setting:        s.Setting,
		Rating:         s.Rating,
		RatingGuidance: ratingGuidance[strings.ToUpper(s.Rating)],
		MaxWords:       s.MaxWords,
		MaxActions:     turn.MaxActions,
		ActionTypes:    strings.Join(tags, ", "),
	}

	var buf bytes.Buffer
	if err := systemInstruction.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render system instruction: %w", err)
	}
	return buf.String(), nil
}
