// Package quiz is the screen that runs one practice session: it generates
// the questions, takes answers and shows feedback with tutor follow-ups.
package quiz

import (
	"context"
	"errors"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/log"

	"github.com/abhisek/grammiz/internal/llm"
	"github.com/abhisek/grammiz/internal/logging"
	"github.com/abhisek/grammiz/internal/questiongen"
	"github.com/abhisek/grammiz/internal/router"
	"github.com/abhisek/grammiz/internal/screen"
	"github.com/abhisek/grammiz/internal/screens/summary"
	"github.com/abhisek/grammiz/internal/session"
	"github.com/abhisek/grammiz/internal/stats"
	"github.com/abhisek/grammiz/internal/store"
	"github.com/abhisek/grammiz/internal/tutor"
	"github.com/abhisek/grammiz/internal/ui/components"
	"github.com/abhisek/grammiz/internal/ui/layout"
)

const spinnerInterval = 120 * time.Millisecond

// Deps are the services the quiz screen drives.
type Deps struct {
	Stats  *stats.Store
	Runner *session.Runner

	// Tutor answers follow-ups. Nil disables them.
	Tutor tutor.Tutor

	// Events receives answer and session events. Nil skips persistence.
	Events store.EventRepo

	// FollowUpTimeout bounds one tutor round trip. Zero means
	// llm.DefaultTimeout.
	FollowUpTimeout time.Duration

	Logger *log.Logger
}

// QuizScreen implements screen.Screen for an active session.
type QuizScreen struct {
	deps  Deps
	input questiongen.GenerateInput
	title string

	token session.Token
	sess  *session.Session

	choice      components.MultiChoice
	lastAnswer  *session.Answer
	saved       bool
	asking      bool
	followUp    components.TextInput
	confirmQuit bool
	done        bool

	frame  int
	errMsg string
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)

// New creates a QuizScreen that will request a question set for input.
func New(deps Deps, input questiongen.GenerateInput, title string) *QuizScreen {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.FollowUpTimeout <= 0 {
		deps.FollowUpTimeout = llm.DefaultTimeout
	}
	if title == "" {
		title = "Practice"
	}
	return &QuizScreen{
		deps:     deps,
		input:    input,
		title:    title,
		followUp: components.NewTextInput("Ask the tutor about this question...", 200),
	}
}

func (s *QuizScreen) Init() tea.Cmd {
	s.token = s.deps.Runner.Begin()
	s.deps.Logger.Debug("generating questions", "count", s.input.Count, "topics", s.input.Topics, "difficulty", s.input.Difficulty)
	return tea.Batch(s.generate(s.token), tickSpinner())
}

func (s *QuizScreen) Title() string {
	return s.title
}

func (s *QuizScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.errMsg != "":
		return []layout.KeyHint{{Key: "any key", Description: "Back"}}
	case s.sess == nil:
		return []layout.KeyHint{{Key: "Esc", Description: "Cancel"}}
	case s.confirmQuit:
		return []layout.KeyHint{
			{Key: "Y", Description: "End session"},
			{Key: "N", Description: "Keep going"},
		}
	case s.asking:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Send"},
			{Key: "Esc", Description: "Close"},
		}
	case s.sess.Phase() == session.PhaseAnswerSubmitted:
		hints := []layout.KeyHint{
			{Key: "Enter", Description: "Next"},
			{Key: "S", Description: "Save"},
		}
		if s.deps.Tutor != nil {
			hints = append(hints, layout.KeyHint{Key: "F", Description: "Ask tutor"})
		}
		return append(hints, layout.KeyHint{Key: "Esc", Description: "Quit"})
	}
	return []layout.KeyHint{
		{Key: "↑↓/1-4", Description: "Choose"},
		{Key: "Enter", Description: "Submit"},
		{Key: "Esc", Description: "Quit"},
	}
}

func (s *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case questionsReadyMsg:
		return s.handleQuestions(msg)

	case followUpDoneMsg:
		return s.handleFollowUp(msg)

	case spinnerTickMsg:
		if (s.sess == nil && s.errMsg == "") || (s.sess != nil && s.sess.FollowUpPending()) {
			s.frame++
			return s, tickSpinner()
		}
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.asking {
		var cmd tea.Cmd
		s.followUp, cmd = s.followUp.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *QuizScreen) generate(tok session.Token) tea.Cmd {
	runner := s.deps.Runner
	input := s.input
	return func() tea.Msg {
		qs, err := runner.Generate(context.Background(), tok, input)
		return questionsReadyMsg{Token: tok, Questions: qs, Err: err}
	}
}

func (s *QuizScreen) handleQuestions(msg questionsReadyMsg) (screen.Screen, tea.Cmd) {
	if msg.Token != s.token || errors.Is(msg.Err, session.ErrStale) {
		return s, nil
	}
	if msg.Err != nil {
		s.deps.Logger.Error("question generation failed", "err", msg.Err)
		s.errMsg = describeGenerateError(msg.Err)
		return s, nil
	}

	sess, err := s.deps.Runner.Start(msg.Token, msg.Questions, session.WithRequest(s.input))
	if errors.Is(err, session.ErrStale) {
		return s, nil
	}
	if err != nil {
		s.errMsg = err.Error()
		return s, nil
	}
	s.sess = sess
	s.loadQuestion()
	s.deps.Logger.Info("session started", "session", sess.ID(), "questions", sess.Len())
	return s, s.persist("session start", func(ctx context.Context, ev store.EventRepo) error {
		return ev.AppendSessionEvent(ctx, sess.EventData(store.SessionStart))
	})
}

func describeGenerateError(err error) string {
	if session.IsTimeout(err) {
		return "Generating questions took too long. Please try again."
	}
	var ve *questiongen.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return "Could not generate questions: " + err.Error()
}

func (s *QuizScreen) loadQuestion() {
	q := s.sess.Current()
	s.choice = components.NewMultiChoice(q.Text, q.Options, q.AnswerIndex)
	s.choice.Translation = q.Translation
	s.lastAnswer = nil
	s.saved = s.deps.Stats.IsSaved(q.Text)
	s.asking = false
	s.followUp.Reset()
}

func (s *QuizScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.errMsg != "" {
		return s, popScreen
	}
	if s.sess == nil {
		if key == "esc" {
			s.deps.Runner.Abandon()
			return s, popScreen
		}
		return s, nil
	}
	if s.done {
		return s, nil
	}
	if s.confirmQuit {
		switch key {
		case "y", "Y":
			return s, s.quit()
		case "n", "N", "esc":
			s.confirmQuit = false
		}
		return s, nil
	}
	if s.asking {
		return s.handleFollowUpKey(msg)
	}
	if key == "esc" {
		s.confirmQuit = true
		return s, nil
	}

	if s.sess.Phase() == session.PhaseAnswerSubmitted {
		return s.handleFeedbackKey(key)
	}
	return s.handleSelectionKey(key)
}

func (s *QuizScreen) handleSelectionKey(key string) (screen.Screen, tea.Cmd) {
	switch key {
	case "up", "k":
		s.selectOption(s.choice.Prev())
	case "down", "j":
		s.selectOption(s.choice.Next())
	case "enter":
		return s, s.submit()
	default:
		if idx, ok := optionIndex(key, len(s.choice.Options)); ok {
			s.selectOption(idx)
		}
	}
	return s, nil
}

// optionIndex maps "1".."9" and "a".."z" onto option positions.
func optionIndex(key string, n int) (int, bool) {
	if len(key) != 1 {
		return 0, false
	}
	c := key[0]
	var idx int
	switch {
	case c >= '1' && c <= '9':
		idx = int(c - '1')
	case c >= 'a' && c <= 'z':
		idx = int(c - 'a')
	case c >= 'A' && c <= 'Z':
		idx = int(c - 'A')
	default:
		return 0, false
	}
	return idx, idx < n
}

func (s *QuizScreen) selectOption(idx int) {
	if err := s.sess.SelectOption(idx); err != nil {
		return
	}
	s.choice.Selected = idx
}

func (s *QuizScreen) submit() tea.Cmd {
	a, err := s.sess.Submit()
	if err != nil {
		return nil
	}
	s.lastAnswer = &a
	s.choice.Submitted = true
	s.choice.ChosenIndex = a.Chosen
	if err := s.deps.Stats.LastWriteError(); err != nil {
		s.deps.Logger.Warn("stats not persisted", "err", err)
	}

	id := s.sess.ID()
	return s.persist("answer", func(ctx context.Context, ev store.EventRepo) error {
		return ev.AppendAnswerEvent(ctx, store.AnswerEventData{
			SessionID:    id,
			QuestionID:   a.Question.ID,
			GrammarPoint: a.Question.GrammarPoint,
			QuestionText: a.Question.Text,
			ChosenIndex:  a.Chosen,
			AnswerIndex:  a.Question.AnswerIndex,
			Correct:      a.Correct,
		})
	})
}

func (s *QuizScreen) handleFeedbackKey(key string) (screen.Screen, tea.Cmd) {
	switch key {
	case "s", "S":
		if s.lastAnswer != nil {
			s.saved = s.deps.Stats.ToggleSaved(s.lastAnswer.Question, s.lastAnswer.Chosen)
		}
	case "f", "F":
		if s.deps.Tutor != nil && !s.sess.FollowUpPending() {
			s.asking = true
			return s, s.followUp.Init()
		}
	case "enter", "n", "N":
		finished, err := s.sess.Advance()
		if err != nil {
			return s, nil
		}
		if finished {
			return s, s.finish(store.SessionEnd)
		}
		s.loadQuestion()
	}
	return s, nil
}

func (s *QuizScreen) handleFollowUpKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		s.asking = false
		return s, nil
	case "enter":
		ticket, err := s.sess.BeginFollowUp(s.followUp.Value())
		if err != nil {
			return s, nil
		}
		s.followUp.Reset()
		s.asking = false
		return s, tea.Batch(s.ask(ticket), tickSpinner())
	}
	var cmd tea.Cmd
	s.followUp, cmd = s.followUp.Update(msg)
	return s, cmd
}

func (s *QuizScreen) ask(ticket session.FollowUpTicket) tea.Cmd {
	t := s.deps.Tutor
	timeout := s.deps.FollowUpTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		reply, err := t.Ask(ctx, ticket.Context, ticket.Prior, ticket.Query)
		return followUpDoneMsg{Ticket: ticket, Reply: reply, Err: err}
	}
}

func (s *QuizScreen) handleFollowUp(msg followUpDoneMsg) (screen.Screen, tea.Cmd) {
	if s.sess == nil {
		return s, nil
	}
	if msg.Err != nil {
		s.deps.Logger.Warn("tutor follow-up failed", "err", msg.Err)
	}
	if err := s.sess.CompleteFollowUp(msg.Ticket, msg.Reply, msg.Err); err != nil {
		s.deps.Logger.Debug("dropped follow-up reply", "question", msg.Ticket.QuestionIndex, "err", err)
	}
	return s, nil
}

// quit abandons the session. Answers already submitted stay counted.
func (s *QuizScreen) quit() tea.Cmd {
	s.confirmQuit = false
	s.deps.Runner.Abandon()
	if len(s.sess.Answers()) == 0 {
		s.done = true
		ev := s.sess.EventData(store.SessionCancelled)
		return tea.Batch(
			s.persist("session cancel", func(ctx context.Context, r store.EventRepo) error {
				return r.AppendSessionEvent(ctx, ev)
			}),
			popScreen,
		)
	}
	return s.finish(store.SessionCancelled)
}

func (s *QuizScreen) finish(action string) tea.Cmd {
	s.done = true
	s.deps.Runner.Abandon()
	sum := s.sess.Summary()
	s.deps.Stats.AddStudyTime(sum.Duration)
	ev := s.sess.EventData(action)
	s.deps.Logger.Info("session finished", "session", sum.SessionID, "phase", sum.Phase, "attempted", sum.Attempted, "correct", sum.Correct)

	return tea.Batch(
		s.persist("session "+action, func(ctx context.Context, r store.EventRepo) error {
			return r.AppendSessionEvent(ctx, ev)
		}),
		func() tea.Msg {
			return router.ReplaceScreenMsg{Screen: summary.New(sum)}
		},
	)
}

// persist runs fn against the event repo off the UI goroutine. Failures are
// logged and never interrupt the quiz.
func (s *QuizScreen) persist(what string, fn func(context.Context, store.EventRepo) error) tea.Cmd {
	events := s.deps.Events
	if events == nil {
		return nil
	}
	logger := s.deps.Logger
	return func() tea.Msg {
		if err := fn(context.Background(), events); err != nil {
			logger.Warn("event not persisted", "event", what, "err", err)
		}
		return nil
	}
}

func popScreen() tea.Msg {
	return router.PopScreenMsg{}
}

func tickSpinner() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}
