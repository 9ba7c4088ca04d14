package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/grammiz/internal/app"
	"github.com/abhisek/grammiz/internal/questiongen"
	"github.com/abhisek/grammiz/internal/session"
	"github.com/abhisek/grammiz/internal/tutor"
)

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	e, err := openEnv(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	skipWelcome, _ := cmd.Flags().GetBool("skip-welcome")
	opts := app.Options{
		Stats:       e.stats,
		EventRepo:   e.store.EventRepo(),
		Logger:      e.logger,
		LLMTimeout:  e.cfg.LLMTimeout,
		QuizCount:   e.cfg.QuizCount,
		Difficulty:  e.cfg.Difficulty,
		SkipWelcome: skipWelcome,
	}

	provider, err := e.provider(cmd.Context())
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Practice will be unavailable; history and saved questions still work.")
		e.logger.Warn("llm unavailable", "err", err)
	} else {
		gen := questiongen.New(provider, questiongen.DefaultConfig())
		opts.Runner = session.NewRunner(gen, e.stats, session.WithGenerateTimeout(e.cfg.LLMTimeout))
		opts.Tutor = tutor.New(provider, tutor.DefaultConfig())
		e.logger.Info("llm ready", "model", provider.ModelID())
	}

	return app.Run(opts)
}
