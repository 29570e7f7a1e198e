package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/turn-engine/internal/resolver"
	"github.com/jwebster45206/turn-engine/pkg/chat"
	"github.com/jwebster45206/turn-engine/pkg/turn"
)

// ResolveOutput is printed by the resolve command.
type ResolveOutput struct {
	Result     turn.TurnResult    `json:"result"`
	NextState  turn.Container     `json:"next_state"`
	NextMemory turn.Container     `json:"next_memory"`
	Fallback   bool               `json:"fallback"`
	Reason     turn.FailureReason `json:"reason,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [request.json]",
		Short: "Resolve one turn request against the configured oracle",
		Long: `Read a turn request ({"playerInput","state","memory","log"}) from a file,
or stdin, run it through the oracle and print the result with the merged
state and memory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var req chat.TurnRequest
			if len(bytes.TrimSpace(raw)) > 0 {
				if err := json.Unmarshal(raw, &req); err != nil {
					return fmt.Errorf("invalid turn request: %w", err)
				}
			}

			log := rootOpts.logger(cmd)
			llm, cfg, err := rootOpts.oracle(cmd.Context(), log)
			if err != nil {
				return fmt.Errorf("failed to set up oracle: %w", err)
			}
			if closer, ok := llm.(io.Closer); ok {
				defer func() { _ = closer.Close() }()
			}

			out, err := resolver.New(llm, cfg, log).ResolveTurn(cmd.Context(), req)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), ResolveOutput{
				Result:     out.Result,
				NextState:  out.NextState,
				NextMemory: out.NextMemory,
				Fallback:   out.Fallback,
				Reason:     out.Reason,
			})
		},
	}

	return cmd
}
