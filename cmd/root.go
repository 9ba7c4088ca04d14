package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/grammiz/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "grammiz",
	Short: "AI grammar practice in the terminal",
	Long: `Grammiz generates multiple-choice grammar questions with an LLM, tracks
the ones you get wrong, and lets you ask a tutor follow-up questions.

Set one of GRAMMIZ_ANTHROPIC_API_KEY, GRAMMIZ_OPENAI_API_KEY,
GRAMMIZ_GEMINI_API_KEY or GRAMMIZ_OPENROUTER_API_KEY (or the standard
ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, OPENROUTER_API_KEY)
to enable practice.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides GRAMMIZ_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to TOML config file (overrides GRAMMIZ_CONFIG env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then GRAMMIZ_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
