package quiz

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/grammiz/internal/tutor"
	"github.com/abhisek/grammiz/internal/ui/components"
	"github.com/abhisek/grammiz/internal/ui/theme"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (s *QuizScreen) spinner() string {
	return spinnerFrames[s.frame%len(spinnerFrames)]
}

func (s *QuizScreen) View(width, height int) string {
	if s.errMsg != "" {
		return renderError(width, s.errMsg)
	}
	if s.sess == nil {
		return s.renderLoading(width)
	}
	if s.confirmQuit {
		return s.renderQuitConfirm(width)
	}
	return s.renderQuestion(width)
}

func (s *QuizScreen) renderLoading(width int) string {
	msg := fmt.Sprintf("%s  Preparing %d questions...", s.spinner(), s.input.Count)
	if len(s.input.Topics) > 0 {
		msg += "\n\n" + strings.Join(s.input.Topics, " · ")
	}
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("\n\n\n" + msg)
}

func (s *QuizScreen) renderQuestion(width int) string {
	cw := min(width-8, 76)
	q := s.sess.Current()
	index := s.sess.Index()

	var b strings.Builder

	// Info line: grammar point on the left, position and score on the right.
	correct := 0
	for _, a := range s.sess.Answers() {
		if a.Correct {
			correct++
		}
	}
	infoLeft := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(q.GrammarPoint)
	infoRight := lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("Q %d/%d  %s %d",
			index+1, s.sess.Len(),
			lipgloss.NewStyle().Foreground(theme.Success).Render("✓"),
			correct,
		))
	infoLine := infoLeft
	if pad := cw - lipgloss.Width(infoLeft) - lipgloss.Width(infoRight); pad > 0 {
		infoLine += strings.Repeat(" ", pad) + infoRight
	}
	b.WriteString(center(width, infoLine))
	b.WriteString("\n")

	progress := components.NewProgressBar("", float64(index)/float64(s.sess.Len()), false, cw)
	b.WriteString(center(width, progress.View()))
	b.WriteString("\n\n")

	card := lipgloss.NewStyle().Width(cw).Render(s.choice.View())
	b.WriteString(center(width, card))

	if s.lastAnswer != nil {
		b.WriteString("\n")
		b.WriteString(center(width, s.renderFeedback(cw)))
	}

	if err := s.deps.Stats.LastWriteError(); err != nil {
		b.WriteString("\n\n")
		b.WriteString(center(width, lipgloss.NewStyle().
			Foreground(theme.Accent).
			Render("⚠ Progress could not be saved to disk.")))
	}
	return b.String()
}

func (s *QuizScreen) renderFeedback(cw int) string {
	a := s.lastAnswer
	var b strings.Builder

	if a.Correct {
		b.WriteString(theme.Correct.Render("Correct!"))
	} else {
		b.WriteString(theme.Incorrect.Render("Not quite"))
		b.WriteString("  ")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(
			fmt.Sprintf("Answer: %s) %s",
				components.OptionLabel(a.Question.AnswerIndex),
				a.Question.Options[a.Question.AnswerIndex])))
	}
	if s.saved {
		b.WriteString("  ")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ArcadeYellow).Render("★ saved"))
	}
	b.WriteString("\n\n")

	if a.Question.Explanation != "" {
		b.WriteString(lipgloss.NewStyle().
			Width(cw).
			Foreground(theme.Text).
			Render(a.Question.Explanation))
		b.WriteString("\n")
	}

	if thread := s.sess.Thread(a.Index); len(thread) > 0 {
		b.WriteString("\n")
		b.WriteString(renderThread(thread, cw))
	}
	if s.sess.FollowUpPending() {
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Render(s.spinner() + " Tutor is thinking..."))
		b.WriteString("\n")
	}
	if s.asking {
		b.WriteString("\n")
		b.WriteString(s.followUp.View())
	}

	return lipgloss.NewStyle().
		Width(cw).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1).
		Render(b.String())
}

func renderThread(thread []tutor.Message, cw int) string {
	studentStyle := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)
	tutorStyle := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	body := lipgloss.NewStyle().Width(cw - 4).Foreground(theme.Text)
	failed := lipgloss.NewStyle().Foreground(theme.Error).Italic(true)

	var b strings.Builder
	for _, m := range thread {
		switch m.Role {
		case tutor.RoleStudent:
			b.WriteString(studentStyle.Render("You: "))
			b.WriteString(body.Render(m.Content))
			if m.Failed {
				b.WriteString("\n")
				b.WriteString(failed.Render("  (no reply, try asking again)"))
			}
		case tutor.RoleTutor:
			b.WriteString(tutorStyle.Render("Tutor: "))
			b.WriteString(body.Render(m.Content))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (s *QuizScreen) renderQuitConfirm(width int) string {
	answered := len(s.sess.Answers())
	note := "Nothing has been answered yet."
	if answered > 0 {
		note = fmt.Sprintf("Your %d answered %s stay recorded.", answered, plural(answered, "question", "questions"))
	}

	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(center(width, lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render("End session early?")))
	b.WriteString("\n")
	b.WriteString(center(width, lipgloss.NewStyle().Foreground(theme.TextDim).Render(note)))
	b.WriteString("\n\n")
	b.WriteString(center(width, lipgloss.NewStyle().Foreground(theme.Success).Render("[Y] Yes, end session")))
	b.WriteString("\n")
	b.WriteString(center(width, lipgloss.NewStyle().Foreground(theme.Text).Render("[N] No, keep going")))
	return b.String()
}

func renderError(width int, errMsg string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render(fmt.Sprintf("\n\n\n  %s\n\n  Press any key to go back.", errMsg))
}

func center(width int, s string) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
