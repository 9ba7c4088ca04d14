package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/grammiz/internal/stats"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print wrong-answer or saved question history",
	RunE: func(cmd *cobra.Command, args []string) error {
		listName, _ := cmd.Flags().GetString("list")
		format, _ := cmd.Flags().GetString("format")

		list, ok := stats.ParseList(listName)
		if !ok {
			return fmt.Errorf("unknown list %q (want wrong or saved)", listName)
		}

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		snap := e.stats.Snapshot()
		entries := snap.WrongHistory
		if list == stats.ListSaved {
			entries = snap.SavedHistory
		}
		return writeHistory(cmd.OutOrStdout(), entries, format)
	},
}

var clearCmd = &cobra.Command{
	Use:       "clear <details|saved>",
	Short:     "Empty the wrong-answer details or the saved questions",
	Long:      "Empty one history list. Miss counts per grammar point are kept, so weak-topic practice is unaffected.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(stats.ClearDetails), string(stats.ClearSaved)},
	RunE: func(cmd *cobra.Command, args []string) error {
		target := stats.ClearTarget(args[0])
		if target != stats.ClearDetails && target != stats.ClearSaved {
			return fmt.Errorf("unknown target %q (want details or saved)", args[0])
		}

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		e.stats.Clear(target)
		if err := e.stats.LastWriteError(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s.\n", target)
		return nil
	},
}

// historyRow is the exported shape of one history entry.
type historyRow struct {
	Time         string   `json:"time" yaml:"time"`
	GrammarPoint string   `json:"grammarPoint" yaml:"grammarPoint"`
	Question     string   `json:"question" yaml:"question"`
	Translation  string   `json:"translation,omitempty" yaml:"translation,omitempty"`
	Options      []string `json:"options" yaml:"options"`
	Answer       string   `json:"answer" yaml:"answer"`
	YourAnswer   string   `json:"yourAnswer" yaml:"yourAnswer"`
	Explanation  string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

func toHistoryRows(entries []stats.WrongQuestion) []historyRow {
	rows := make([]historyRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, historyRow{
			Time:         e.Time().UTC().Format(time.RFC3339),
			GrammarPoint: e.GrammarPoint,
			Question:     e.Text,
			Translation:  e.Translation,
			Options:      e.Options,
			Answer:       optionText(e.Options, e.AnswerIndex),
			YourAnswer:   optionText(e.Options, e.UserAnswerIndex),
			Explanation:  e.Explanation,
		})
	}
	return rows
}

func optionText(options []string, i int) string {
	if i < 0 || i >= len(options) {
		return ""
	}
	return options[i]
}

// writeHistory renders entries as a table, JSON or YAML.
func writeHistory(w io.Writer, entries []stats.WrongQuestion, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toHistoryRows(entries))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toHistoryRows(entries)); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		if len(entries) == 0 {
			fmt.Fprintln(w, "No entries.")
			return nil
		}
		fmt.Fprintf(w, "%-16s  %-20s  %-20s  %-20s  %s\n", "Time", "Grammar point", "Answer", "Yours", "Question")
		fmt.Fprintln(w, strings.Repeat("─", 100))
		for _, r := range toHistoryRows(entries) {
			t, _ := time.Parse(time.RFC3339, r.Time)
			fmt.Fprintf(w, "%-16s  %-20s  %-20s  %-20s  %s\n",
				t.Local().Format("2006-01-02 15:04"),
				truncate(r.GrammarPoint, 20),
				truncate(r.Answer, 20),
				truncate(r.YourAnswer, 20),
				r.Question)
		}
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
}

func init() {
	historyCmd.Flags().StringP("list", "l", string(stats.ListWrong), "History list: wrong or saved")
	historyCmd.Flags().StringP("format", "f", "table", "Output format: table, json or yaml")
}
