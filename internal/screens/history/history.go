// Package history shows the wrong-answer and saved question lists along
// with past sessions.
package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/grammiz/internal/router"
	"github.com/abhisek/grammiz/internal/screen"
	"github.com/abhisek/grammiz/internal/stats"
	"github.com/abhisek/grammiz/internal/store"
	"github.com/abhisek/grammiz/internal/ui/components"
	"github.com/abhisek/grammiz/internal/ui/layout"
	"github.com/abhisek/grammiz/internal/ui/theme"
)

// Tab selects what the screen lists.
type Tab int

const (
	TabWrong Tab = iota
	TabSaved
	TabSessions
)

var tabLabels = []string{"Wrong answers", "Saved", "Sessions"}

// sessionLimit caps how many past sessions are loaded.
const sessionLimit = 50

type sessionsLoadedMsg struct {
	Sessions []store.SessionRecord
	Err      error
}

// HistoryScreen lists history entries. Entries can be expanded to show the
// full question and deleted from their list.
type HistoryScreen struct {
	stats     *stats.Store
	eventRepo store.EventRepo

	tab      Tab
	selected int
	expanded map[int]bool

	sessions []store.SessionRecord
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a HistoryScreen opened on tab. eventRepo may be nil, which
// leaves the sessions tab empty.
func New(st *stats.Store, eventRepo store.EventRepo, tab Tab) *HistoryScreen {
	return &HistoryScreen{
		stats:     st,
		eventRepo: eventRepo,
		tab:       tab,
		expanded:  make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	if s.eventRepo == nil {
		s.loaded = true
		return nil
	}
	repo := s.eventRepo
	return func() tea.Msg {
		records, err := repo.QuerySessionEvents(context.Background(), store.QueryOpts{Limit: sessionLimit * 2})
		if err != nil {
			return sessionsLoadedMsg{Err: err}
		}
		var finished []store.SessionRecord
		for _, r := range records {
			if r.Action == store.SessionEnd || r.Action == store.SessionCancelled {
				finished = append(finished, r)
			}
		}
		if len(finished) > sessionLimit {
			finished = finished[:sessionLimit]
		}
		return sessionsLoadedMsg{Sessions: finished}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "Tab", Description: "Switch list"},
		{Key: "↑↓", Description: "Navigate"},
	}
	if s.tab != TabSessions {
		hints = append(hints,
			layout.KeyHint{Key: "Enter", Description: "Details"},
			layout.KeyHint{Key: "D", Description: "Delete"},
		)
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

// entries returns the questions of the active list, newest first.
func (s *HistoryScreen) entries() []stats.WrongQuestion {
	snap := s.stats.Snapshot()
	switch s.tab {
	case TabWrong:
		return snap.WrongHistory
	case TabSaved:
		return snap.SavedHistory
	}
	return nil
}

func (s *HistoryScreen) rows() int {
	if s.tab == TabSessions {
		return len(s.sessions)
	}
	return len(s.entries())
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionsLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.sessions = msg.Sessions
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "tab":
			s.switchTab((s.tab + 1) % Tab(len(tabLabels)))
		case "shift+tab":
			s.switchTab((s.tab + Tab(len(tabLabels)) - 1) % Tab(len(tabLabels)))
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < s.rows()-1 {
				s.selected++
			}
		case "enter":
			if s.tab != TabSessions {
				s.expanded[s.selected] = !s.expanded[s.selected]
			}
		case "d", "D":
			s.deleteSelected()
		}
	}
	return s, nil
}

func (s *HistoryScreen) switchTab(t Tab) {
	s.tab = t
	s.selected = 0
	s.expanded = make(map[int]bool)
}

func (s *HistoryScreen) deleteSelected() {
	list := stats.ListWrong
	switch s.tab {
	case TabSaved:
		list = stats.ListSaved
	case TabSessions:
		return
	}
	entries := s.entries()
	if s.selected >= len(entries) {
		return
	}
	e := entries[s.selected]
	s.stats.DeleteEntry(list, e.Timestamp, e.Text)
	s.expanded = make(map[int]bool)
	if s.selected > 0 && s.selected >= len(entries)-1 {
		s.selected--
	}
}

func (s *HistoryScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.renderTabs()))
	b.WriteString("\n\n")

	switch s.tab {
	case TabSessions:
		b.WriteString(s.renderSessions(width))
	default:
		b.WriteString(s.renderEntries(width))
	}
	return b.String()
}

func (s *HistoryScreen) renderTabs() string {
	active := lipgloss.NewStyle().Foreground(theme.BgDark).Background(theme.ArcadeCyan).Bold(true).Padding(0, 1)
	inactive := lipgloss.NewStyle().Foreground(theme.TextDim).Padding(0, 1)

	parts := make([]string, len(tabLabels))
	for i, label := range tabLabels {
		if Tab(i) == s.tab {
			parts[i] = active.Render(label)
		} else {
			parts[i] = inactive.Render(label)
		}
	}
	return strings.Join(parts, " ")
}

func emptyMessage(width int, msg string) string {
	return lipgloss.NewStyle().
		Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
		Render("\n  " + msg)
}

func (s *HistoryScreen) renderEntries(width int) string {
	entries := s.entries()
	if len(entries) == 0 {
		if s.tab == TabSaved {
			return emptyMessage(width, "Nothing saved yet. Press S after answering to save a question.")
		}
		return emptyMessage(width, "No wrong answers recorded. Keep practicing!")
	}

	cw := min(width-8, 76)
	var b strings.Builder
	for i, e := range entries {
		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}
		text := e.Text
		if r := []rune(text); len(r) > cw-30 && cw > 40 {
			text = string(r[:cw-33]) + "..."
		}
		line := fmt.Sprintf("%s%s  [%s]  %s", prefix, e.Time().Local().Format("Jan 02"), e.GrammarPoint, text)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			lipgloss.NewStyle().Width(cw).Render(style.Render(line))))
		b.WriteString("\n")

		if s.expanded[i] {
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, renderDetail(e, cw)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderDetail(e stats.WrongQuestion, cw int) string {
	mc := components.NewMultiChoice(e.Text, e.Options, e.AnswerIndex)
	mc.Translation = e.Translation
	mc.Submitted = true
	mc.ChosenIndex = e.UserAnswerIndex

	body := mc.View()
	if e.Explanation != "" {
		body += "\n" + lipgloss.NewStyle().Foreground(theme.TextDim).Width(cw-6).Render(e.Explanation)
	}
	return lipgloss.NewStyle().
		Width(cw).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 2).
		Render(body)
}

func (s *HistoryScreen) renderSessions(width int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n  Loading history...")
	}
	if len(s.sessions) == 0 {
		return emptyMessage(width, "No sessions yet. Start practicing!")
	}

	var b strings.Builder
	for i, sess := range s.sessions {
		dateStr := sess.Timestamp.Local().Format("Jan 02, 2006 15:04")
		durationStr := fmt.Sprintf("%d:%02d", sess.DurationSecs/60, sess.DurationSecs%60)

		var accuracy float64
		if sess.Answered > 0 {
			accuracy = float64(sess.CorrectAnswers) / float64(sess.Answered) * 100
		}

		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}
		status := ""
		if sess.Action == store.SessionCancelled {
			status = "  (ended early)"
		}
		line := fmt.Sprintf("%s%s  %s  %d/%d answered  %.0f%% accuracy%s",
			prefix, dateStr, durationStr, sess.Answered, sess.QuestionsServed, accuracy, status)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}
	return b.String()
}
