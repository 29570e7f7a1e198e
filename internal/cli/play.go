package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/jwebster45206/turn-engine/internal/resolver"
	"github.com/jwebster45206/turn-engine/internal/sessions"
	"github.com/jwebster45206/turn-engine/internal/worker"
	"github.com/jwebster45206/turn-engine/pkg/turn"
)

var (
	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	suggestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow
)

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	var stateJSON string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play an in-memory session in the terminal",
		Long: `Play turns against the configured oracle. State, memory and the log are
kept in memory for the life of the process.

Type /state to print the current state, /quit to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			initial := turn.Container{}
			if stateJSON != "" {
				if err := json.Unmarshal([]byte(stateJSON), &initial); err != nil {
					return fmt.Errorf("invalid --state: %w", err)
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

			store := sessions.NewMemoryStore()
			s := sessions.New(initial, nil)
			if err := store.Save(cmd.Context(), s); err != nil {
				return err
			}
			processor := worker.NewTurnProcessor(store, resolver.New(llm, cfg, log), log)

			return playLoop(cmd, processor, store, s, rootOpts.Width)
		},
	}

	cmd.Flags().StringVar(&stateJSON, "state", "", "initial state as a JSON object")

	return cmd
}

func playLoop(cmd *cobra.Command, processor *worker.TurnProcessor, store sessions.Store, s *sessions.Session, width int) error {
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())
	ctx := cmd.Context()

	for {
		_, _ = fmt.Fprint(out, promptStyle.Render("> "))
		if !in.Scan() {
			_, _ = fmt.Fprintln(out)
			return in.Err()
		}

		input := strings.TrimSpace(in.Text())
		switch input {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/state":
			current, err := store.Load(ctx, s.ID)
			if err != nil {
				return err
			}
			if err := writeJSON(out, current.State); err != nil {
				return err
			}
			continue
		}

		result, err := processor.ProcessTurn(ctx, s.ID, input)
		if err != nil {
			return err
		}
		renderTurn(out, result, width)
	}
}

func renderTurn(w io.Writer, st *worker.SessionTurn, width int) {
	if st.Fallback {
		_, _ = fmt.Fprintln(w, noticeStyle.Render(fmt.Sprintf("(oracle unavailable: %s)", st.Reason)))
	}
	_, _ = fmt.Fprintln(w, narratorStyle.Render(wordwrap.String(st.Result.Narration, width)))

	for _, a := range st.Result.Actions {
		if a.Label == "" {
			continue
		}
		line := "  * " + a.Label
		if a.Cmd != "" && a.Cmd != a.Label {
			line += " (" + a.Cmd + ")"
		}
		_, _ = fmt.Fprintln(w, suggestionStyle.Render(line))
	}
	_, _ = fmt.Fprintln(w)
}
