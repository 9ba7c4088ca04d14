package home

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/grammiz/internal/questiongen"
	"github.com/abhisek/grammiz/internal/router"
	"github.com/abhisek/grammiz/internal/screen"
	"github.com/abhisek/grammiz/internal/screens/history"
	"github.com/abhisek/grammiz/internal/screens/quiz"
	"github.com/abhisek/grammiz/internal/ui/components"
	"github.com/abhisek/grammiz/internal/ui/layout"
)

// WeakTopicLimit is how many weak grammar points a focused session targets.
const WeakTopicLimit = 3

// Options configure the sessions started from the home screen.
type Options struct {
	QuizCount  int
	Difficulty questiongen.Difficulty
}

const (
	itemPractice = iota
	itemWeak
	itemWrong
	itemSaved
	itemExit
)

var menuLabels = []string{"PRACTICE", "WEAK TOPICS", "WRONG ANSWERS", "SAVED", "EXIT"}

// HomeScreen is the main home screen of the application.
type HomeScreen struct {
	deps quiz.Deps
	opts Options
	menu components.Menu
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates a new HomeScreen. deps.Runner may be nil when no LLM provider
// is configured; practice entries are then disabled.
func New(deps quiz.Deps, opts Options) *HomeScreen {
	if opts.QuizCount <= 0 {
		opts.QuizCount = 10
	}
	h := &HomeScreen{deps: deps, opts: opts}

	items := []components.MenuItem{
		itemPractice: {Label: menuLabels[itemPractice], Action: func() tea.Cmd {
			return h.startQuiz(nil, "Practice")
		}},
		itemWeak: {Label: menuLabels[itemWeak], Action: func() tea.Cmd {
			return h.startQuiz(h.deps.Stats.SelectWeakTopics(WeakTopicLimit), "Weak Topics")
		}},
		itemWrong: {Label: menuLabels[itemWrong], Action: func() tea.Cmd {
			return push(history.New(h.deps.Stats, h.deps.Events, history.TabWrong))
		}},
		itemSaved: {Label: menuLabels[itemSaved], Action: func() tea.Cmd {
			return push(history.New(h.deps.Stats, h.deps.Events, history.TabSaved))
		}},
		itemExit: {Label: menuLabels[itemExit], Action: func() tea.Cmd {
			return tea.Quit
		}},
	}
	h.menu = components.NewMenu(items)
	h.refresh()
	return h
}

func push(s screen.Screen) tea.Cmd {
	return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
}

func (h *HomeScreen) startQuiz(topics []string, title string) tea.Cmd {
	input := questiongen.GenerateInput{
		Count:      h.opts.QuizCount,
		Topics:     topics,
		Difficulty: h.opts.Difficulty,
	}
	return push(quiz.New(h.deps, input, title))
}

// refresh recomputes which entries are available. Stats change while other
// screens are on top, so this runs before every update and render.
func (h *HomeScreen) refresh() {
	noLLM := h.deps.Runner == nil
	h.menu.Items[itemPractice].Disabled = noLLM
	h.menu.Items[itemWeak].Disabled = noLLM || len(h.deps.Stats.SelectWeakTopics(1)) == 0

	if h.menu.Items[h.menu.Selected].Disabled {
		for i, item := range h.menu.Items {
			if !item.Disabled {
				h.menu.Selected = i
				break
			}
		}
	}
}

func (h *HomeScreen) disabled() map[int]bool {
	out := make(map[int]bool)
	for i, item := range h.menu.Items {
		if item.Disabled {
			out[i] = true
		}
	}
	return out
}

func (h *HomeScreen) dashboard() dashboard {
	snap := h.deps.Stats.Snapshot()
	return dashboard{
		attempted:  snap.TotalQuestionsAttempted,
		accuracy:   h.deps.Stats.Accuracy(),
		today:      h.deps.Stats.Today().Attempted,
		weakTopics: h.deps.Stats.SelectWeakTopics(WeakTopicLimit),
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	h.refresh()
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	h.refresh()

	// height is the content area; add back header, footer and frame borders
	// to estimate the terminal height.
	termHeight := height + layout.HeaderHeight + layout.FooterHeight + 2
	compact := layout.IsCompactHeight(termHeight) || layout.IsCompactWidth(width)

	cw := components.ContentWidth(width)
	d := h.dashboard()

	var sections []string
	sections = append(sections, renderTitle(cw, compact))

	if !compact {
		mascot := ChooseMascot(h.deps.Stats.Today(), d.attempted > 0)
		sections = append(sections, renderMascotBox(mascot, cw))
	}

	sections = append(sections, renderStatsBar(d, cw, compact))

	if h.deps.Runner == nil {
		sections = append(sections, renderLLMBanner(cw))
	}

	if termHeight < 28 {
		sections = append(sections, renderArcadeMenuCompact(menuLabels, h.menu.Selected, cw, h.disabled()))
	} else {
		sections = append(sections, renderArcadeMenu(menuLabels, h.menu.Selected, cw, h.disabled()))
	}

	return components.CabinetFrame(strings.Join(sections, "\n\n"), width, height)
}

func (h *HomeScreen) Title() string {
	return "Home"
}
