package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/cvrgpt/internal/chat"
	"github.com/sells-group/cvrgpt/internal/events"
	"github.com/sells-group/cvrgpt/internal/server"
	"github.com/sells-group/cvrgpt/pkg/anthropic"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST and chat API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var classifier chat.IntentClassifier = chat.KeywordClassifier{}
		if cfg.Chat.Classifier == "llm" {
			classifier = chat.NewLLMClassifier(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
		}
		threads := chat.NewThreadStore(cfg.ThreadTTL())
		orch := chat.NewOrchestrator(env.provider, threads, classifier)

		srv := server.New(env.provider, events.NewFixture(cfg.Events.Dir), orch, env.store, cfg.Server)
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
