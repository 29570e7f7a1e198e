package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/turn-engine/internal/config"
	"github.com/jwebster45206/turn-engine/internal/resolver"
	"github.com/jwebster45206/turn-engine/internal/services"
)

// OracleFactory builds the oracle and resolver settings used by resolve and play.
type OracleFactory func(ctx context.Context, log *slog.Logger) (services.LLMService, resolver.Config, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Width   int

	oracle OracleFactory
}

// NewRootCommand creates the turnctl root command, wired to the
// environment-configured oracle.
func NewRootCommand() *cobra.Command {
	return newRootCommand(configuredOracle)
}

func newRootCommand(oracle OracleFactory) *cobra.Command {
	opts := &RootOptions{oracle: oracle}

	cmd := &cobra.Command{
		Use:   "turnctl",
		Short: "Operate the turn engine from a terminal",
		Long: `turnctl runs the turn pipeline locally: normalize raw oracle replies,
resolve a single turn request, or play an in-memory session.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log oracle calls to stderr")
	cmd.PersistentFlags().IntVar(&opts.Width, "width", 80, "wrap width for narration in play")

	cmd.AddCommand(NewNormalizeCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewPlayCommand(opts))

	return cmd
}

// logger writes to stderr so JSON on stdout stays clean.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = cmd.ErrOrStderr()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func configuredOracle(ctx context.Context, log *slog.Logger) (services.LLMService, resolver.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, resolver.Config{}, err
	}
	llm, err := services.New(ctx, cfg.ProviderConfig(), log)
	if err != nil {
		return nil, resolver.Config{}, err
	}
	if err := llm.InitModel(ctx, cfg.ModelName); err != nil {
		return nil, resolver.Config{}, err
	}
	return llm, cfg.Resolver(), nil
}
