package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/grammiz/internal/backup"
	"github.com/abhisek/grammiz/internal/stats"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print a backup code for your stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		code, err := e.backupService().Export(cmd.Context())
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [code]",
	Short: "Replace your stats with a backup code",
	Long: `Replace local stats with the contents of a backup code. The code is read
from the argument, or from stdin when omitted. A restore point is saved
first; undo with "grammiz restore".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		us, err := e.backupService().Import(cmd.Context(), code)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported: %s\n", describeStats(us))
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Undo the last import or pull",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		us, err := e.backupService().Restore(cmd.Context())
		if errors.Is(err, backup.ErrNoRestorePoint) {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to restore.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored: %s\n", describeStats(us))
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Sync stats with the configured backup endpoint",
}

var backupPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload your stats and print the sync ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := e.backupService().Push(cmd.Context())
		if err != nil {
			return fmt.Errorf("push: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pushed. Sync ID: %s\n", id)
		return nil
	},
}

var backupPullCmd = &cobra.Command{
	Use:   "pull <sync-id>",
	Short: "Replace your stats with the backup stored under a sync ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		us, err := e.backupService().Pull(cmd.Context(), args[0])
		if errors.Is(err, backup.ErrNotFound) {
			return fmt.Errorf("no backup stored under %s", backup.NormalizeSyncID(args[0]))
		}
		if err != nil {
			return fmt.Errorf("pull: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pulled: %s\n", describeStats(us))
		return nil
	},
}

// readCode returns the code from args, or the trimmed contents of r.
func readCode(r io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read code: %w", err)
	}
	code := strings.TrimSpace(string(b))
	if code == "" {
		return "", errors.New("no backup code given")
	}
	return code, nil
}

func describeStats(us stats.UserStats) string {
	return fmt.Sprintf("%d answered, %d correct, %d wrong answers, %d saved",
		us.TotalQuestionsAttempted, us.TotalCorrectAnswers, len(us.WrongHistory), len(us.SavedHistory))
}

func init() {
	backupCmd.AddCommand(backupPushCmd)
	backupCmd.AddCommand(backupPullCmd)
}
