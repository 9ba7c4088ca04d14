package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/grammiz/internal/ui/theme"
)

// MultiChoice renders a multiple-choice question. Selection state is owned
// by the caller; the component only draws it.
type MultiChoice struct {
	Question     string
	Translation  string
	Options      []string
	CorrectIndex int
	Selected     int // -1 when nothing is selected
	Submitted    bool
	ChosenIndex  int
}

// NewMultiChoice creates a multiple-choice component with nothing selected.
func NewMultiChoice(question string, options []string, correctIndex int) MultiChoice {
	return MultiChoice{
		Question:     question,
		Options:      options,
		CorrectIndex: correctIndex,
		Selected:     -1,
		ChosenIndex:  -1,
	}
}

// OptionLabel returns the letter shown before option i.
func OptionLabel(i int) string {
	return string(rune('A' + i))
}

// Next returns the option below the current selection, wrapping to the
// first option when nothing is selected.
func (m MultiChoice) Next() int {
	if m.Selected < 0 {
		return 0
	}
	if m.Selected < len(m.Options)-1 {
		return m.Selected + 1
	}
	return m.Selected
}

// Prev returns the option above the current selection.
func (m MultiChoice) Prev() int {
	if m.Selected <= 0 {
		return 0
	}
	return m.Selected - 1
}

// View renders the question and its options.
func (m MultiChoice) View() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(m.Question))
	if m.Translation != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).Render(m.Translation))
	}
	b.WriteString("\n\n")

	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Selected && !m.Submitted {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s)  %s", prefix, OptionLabel(i), opt)

		var style lipgloss.Style
		switch {
		case m.Submitted && i == m.CorrectIndex:
			style = theme.Correct
			line += "  ✓"
		case m.Submitted && i == m.ChosenIndex:
			style = theme.Incorrect
			line += "  ✗"
		case m.Submitted:
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		case i == m.Selected:
			style = theme.Selected
		default:
			style = theme.Unselected
		}
		b.WriteString(style.Render(line) + "\n")
	}
	return b.String()
}

// IsCorrect returns true if the user chose the correct answer.
func (m MultiChoice) IsCorrect() bool {
	return m.Submitted && m.ChosenIndex == m.CorrectIndex
}
