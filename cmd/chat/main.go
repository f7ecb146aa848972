package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ai-gateway/chat-relay/internal/chat"
	"github.com/ai-gateway/chat-relay/internal/config"
	"github.com/ai-gateway/chat-relay/internal/repl"
	"github.com/ai-gateway/chat-relay/internal/routing"
)

func newRootCmd() *cobra.Command {
	var (
		providerName string
		systemPrompt string
		verbose      bool
	)
	cmd := &cobra.Command{
		Use:          "chat",
		Short:        "Chat with the configured LLM provider in the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("provider") {
				cfg.Provider = providerName
			}
			if cmd.Flags().Changed("system") {
				cfg.SystemPrompt = systemPrompt
			}

			route, err := routing.Default().Resolve(cfg)
			if err != nil {
				return err
			}
			relay := chat.NewRelay(route.Client, chat.WithLogger(logger))
			banner := fmt.Sprintf("Connected to %s (%s). Type /reset to clear history, /exit to quit.", route.Provider, route.Model)
			r := repl.New(relay, chat.NewTranscript(cfg.SystemPrompt), banner)
			return r.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&providerName, "provider", "", "provider to use: groq, openai or gemini (default: first with a credential)")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt (default: configured prompt)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every provider call")
	return cmd
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	cmd := newRootCmd()
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
