package cmd

import (
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a practice session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func init() {
	rootCmd.Flags().Bool("skip-welcome", false, "Open the home screen directly")
	playCmd.Flags().Bool("skip-welcome", false, "Open the home screen directly")
}
