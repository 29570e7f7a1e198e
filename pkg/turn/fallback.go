package turn

// FailureReason says why the oracle call produced no text to normalize.
type FailureReason string

const (
	ReasonTransport     FailureReason = "transport"      // network or request construction error
	ReasonTimeout       FailureReason = "timeout"        // deadline hit before a response
	ReasonBadStatus     FailureReason = "bad_status"     // provider answered non-2xx
	ReasonEmptyResponse FailureReason = "empty_response" // provider answered with no content
)

// FallbackNarration is shown whenever the oracle could not be reached.
const FallbackNarration = "Static surges across the lines. The connection is noisy, but you can still move. Try another action."

var fallbackNarrations = map[FailureReason]string{
	ReasonTimeout: "The signal drags like syrup and the world stutters, frozen mid-frame. It catches up with you. Try another action.",
}

// Fallback returns the turn used when the oracle call itself failed: a
// valid, playable turn with safe suggestions and nothing to apply. The
// result depends only on reason.
func Fallback(reason FailureReason) TurnResult {
	narration, ok := fallbackNarrations[reason]
	if !ok {
		narration = FallbackNarration
	}

	return TurnResult{
		Narration: narration,
		Actions: []Action{
			{Type: ActionNoop, Label: "scan room", Cmd: "scan room"},
			{Type: ActionNoop, Label: "answer phone", Cmd: "answer phone"},
			{Type: ActionNoop, Label: "hide", Cmd: "hide"},
		},
		StatePatch:  Container{},
		MemoryPatch: Container{},
		Effects:     Effects{},
	}
}
