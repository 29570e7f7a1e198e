package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/turn-engine/pkg/prompts"
	"github.com/jwebster45206/turn-engine/pkg/textfilter"
	"github.com/jwebster45206/turn-engine/pkg/turn"
)

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	var rating string
	var width uint

	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize a raw oracle reply into a TurnResult",
		Long: `Read raw oracle text from a file, or stdin when no file is given, and
print the canonical TurnResult it normalizes to.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			parsed, err := turn.Extract(string(raw))
			if err != nil && rootOpts.Verbose {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			n := turn.Normalizer{MaxNarrationWidth: width}
			if f := textfilter.ForRating(rating); f != nil {
				n.Filter = f
			}
			return writeJSON(cmd.OutOrStdout(), n.Normalize(parsed))
		},
	}

	cmd.Flags().StringVar(&rating, "rating", prompts.DefaultRating, "content rating used to filter narration")
	cmd.Flags().UintVar(&width, "narration-width", turn.DefaultMaxNarrationWidth, "maximum narration width")

	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
