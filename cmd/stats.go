package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/grammiz/internal/stats"
	"github.com/abhisek/grammiz/internal/store"
)

// statsWeakLimit is how many weak grammar points the stats command lists.
const statsWeakLimit = 5

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		topics, err := e.store.EventRepo().TopicAccuracy(cmd.Context())
		if err != nil {
			return fmt.Errorf("query topic accuracy: %w", err)
		}
		printStats(cmd.OutOrStdout(), e.stats, topics)
		return nil
	},
}

func printStats(w io.Writer, st *stats.Store, topics []store.TopicAccuracy) {
	snap := st.Snapshot()
	today := st.Today()

	fmt.Fprintf(w, "Questions answered:  %d\n", snap.TotalQuestionsAttempted)
	fmt.Fprintf(w, "Correct answers:     %d\n", snap.TotalCorrectAnswers)
	fmt.Fprintf(w, "Accuracy:            %.0f%%\n", st.Accuracy()*100)
	fmt.Fprintf(w, "Today:               %d answered, %d correct\n", today.Attempted, today.Correct)
	fmt.Fprintf(w, "Study time:          %s\n", time.Duration(snap.TotalStudyTime)*time.Second)
	fmt.Fprintf(w, "Wrong answers kept:  %d\n", len(snap.WrongHistory))
	fmt.Fprintf(w, "Saved questions:     %d\n", len(snap.SavedHistory))
	if snap.SyncID != "" {
		fmt.Fprintf(w, "Sync ID:             %s (last push %s)\n",
			snap.SyncID, time.UnixMilli(snap.LastSyncTime).Local().Format("2006-01-02 15:04"))
	}

	weak := st.SelectWeakTopics(statsWeakLimit)
	if len(weak) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Weakest grammar points")
		fmt.Fprintln(w, strings.Repeat("─", 40))
		for i, t := range weak {
			fmt.Fprintf(w, "%d. %s (%d wrong)\n", i+1, t, snap.WrongCounts.Get(t))
		}
	}

	if len(topics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Accuracy by grammar point")
		fmt.Fprintln(w, strings.Repeat("─", 40))
		for _, t := range topics {
			fmt.Fprintf(w, "%-24s  %3d/%-3d  %3.0f%%\n", t.GrammarPoint, t.Correct, t.Attempted, t.Accuracy()*100)
		}
	}
}
