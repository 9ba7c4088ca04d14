package app

import (
	"fmt"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/log"

	"github.com/abhisek/grammiz/internal/questiongen"
	"github.com/abhisek/grammiz/internal/router"
	"github.com/abhisek/grammiz/internal/screen"
	"github.com/abhisek/grammiz/internal/screens/home"
	"github.com/abhisek/grammiz/internal/screens/quiz"
	"github.com/abhisek/grammiz/internal/screens/welcome"
	"github.com/abhisek/grammiz/internal/session"
	"github.com/abhisek/grammiz/internal/stats"
	"github.com/abhisek/grammiz/internal/store"
	"github.com/abhisek/grammiz/internal/tutor"
	"github.com/abhisek/grammiz/internal/ui/layout"
)

// Options holds the dependencies injected into the TUI.
type Options struct {
	Stats *stats.Store

	// Runner and Tutor are nil when no LLM provider is configured.
	Runner *session.Runner
	Tutor  tutor.Tutor

	EventRepo store.EventRepo
	Logger    *log.Logger

	// LLMTimeout bounds tutor follow-ups. Zero uses the LLM default.
	LLMTimeout time.Duration

	QuizCount  int
	Difficulty questiongen.Difficulty

	// SkipWelcome opens the home screen directly.
	SkipWelcome bool
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	stats  *stats.Store
	width  int
	height int
}

// newAppModel creates a new AppModel starting at the welcome screen.
func newAppModel(opts Options) AppModel {
	deps := quiz.Deps{
		Stats:  opts.Stats,
		Runner: opts.Runner,
		Tutor:  opts.Tutor,
		Events: opts.EventRepo,
		Logger: opts.Logger,

		FollowUpTimeout: opts.LLMTimeout,
	}
	homeFactory := func() screen.Screen {
		return home.New(deps, home.Options{QuizCount: opts.QuizCount, Difficulty: opts.Difficulty})
	}

	var initial screen.Screen
	if opts.SkipWelcome {
		initial = homeFactory()
	} else {
		initial = welcome.New(homeFactory)
	}
	return AppModel{
		router: router.New(initial),
		stats:  opts.Stats,
	}
}

func (m AppModel) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) headerStats() layout.HeaderStats {
	if m.stats == nil {
		return layout.HeaderStats{}
	}
	return layout.HeaderStats{
		Attempted: m.stats.Snapshot().TotalQuestionsAttempted,
		Accuracy:  m.stats.Accuracy(),
		Today:     m.stats.Today().Attempted,
	}
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.headerStats(), m.width)

	var footerHints []layout.KeyHint
	if p, ok := active.(screen.KeyHintProvider); ok {
		footerHints = p.KeyHints()
	}
	if footerHints == nil {
		if m.router.Depth() > 1 {
			footerHints = []layout.KeyHint{
				{Key: "Esc", Description: "Back"},
			}
		} else {
			footerHints = []layout.KeyHint{
				{Key: "↑↓", Description: "Navigate"},
				{Key: "Enter", Description: "Select"},
			}
		}
	}
	footerHints = append(footerHints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
