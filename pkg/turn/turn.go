// Package turn normalizes oracle output into the contract the game engine
// consumes: it extracts structured data from free text, coerces it into a
// TurnResult field by field, synthesizes a playable fallback when the oracle
// is unreachable, and merges shallow patches into caller-owned containers.
package turn

// Container is an open-ended JSON object owned by the caller. State and
// memory are both containers; they differ only in what the oracle is told
// to keep in them.
type Container map[string]any

// Clone returns a shallow copy. Nested values are shared.
func (c Container) Clone() Container {
	out := make(Container, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Effects maps a named delta (hpDelta, creditsDelta, ...) to its amount.
type Effects map[string]float64

// Log is the ordered list of prior exchanges. Entries are opaque to this
// package: player/narration pairs or raw strings both pass through.
type Log []any

// Recent returns the last n entries, or the whole log when it is shorter.
func (l Log) Recent(n int) Log {
	if n <= 0 {
		return Log{}
	}
	if len(l) <= n {
		out := make(Log, len(l))
		copy(out, l)
		return out
	}
	out := make(Log, n)
	copy(out, l[len(l)-n:])
	return out
}

// TurnResult is the canonical output of one turn. Every field is always
// populated, with empty values rather than nil, so it encodes as
// {"narration":"...","actions":[],"state_patch":{},"memory_patch":{},"effects":{}}.
type TurnResult struct {
	Narration   string    `json:"narration"`
	Actions     []Action  `json:"actions"`
	StatePatch  Container `json:"state_patch"`
	MemoryPatch Container `json:"memory_patch"`
	Effects     Effects   `json:"effects"`
}
