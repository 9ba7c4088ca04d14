package quiz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/grammiz/internal/llm"
	"github.com/abhisek/grammiz/internal/questiongen"
	"github.com/abhisek/grammiz/internal/router"
	"github.com/abhisek/grammiz/internal/screens/summary"
	"github.com/abhisek/grammiz/internal/session"
	"github.com/abhisek/grammiz/internal/stats"
	"github.com/abhisek/grammiz/internal/store"
	"github.com/abhisek/grammiz/internal/tutor"
)

type fakeGenerator struct {
	questions []questiongen.Question
	err       error
	block     bool
}

func (g *fakeGenerator) Generate(ctx context.Context, _ questiongen.GenerateInput) ([]questiongen.Question, error) {
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return g.questions, g.err
}

type fakeTutor struct {
	reply string
	err   error
	calls int

	// block waits for the context to end instead of replying.
	block bool
}

func (f *fakeTutor) Ask(ctx context.Context, _ tutor.QuestionContext, _ []tutor.Message, _ string) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", &tutor.ChatError{Err: ctx.Err()}
	}
	return f.reply, f.err
}

// mockEventRepo implements store.EventRepo for testing.
type mockEventRepo struct {
	sessionEvents []store.SessionEventData
	answerEvents  []store.AnswerEventData
}

func (m *mockEventRepo) AppendLLMRequest(context.Context, store.LLMRequestEventData) error {
	return nil
}
func (m *mockEventRepo) QueryLLMEvents(context.Context, store.QueryOpts) ([]store.LLMEventRecord, error) {
	return nil, nil
}
func (m *mockEventRepo) GetLLMEvent(context.Context, int) (*store.LLMEventRecord, error) {
	return nil, nil
}
func (m *mockEventRepo) LLMUsageByPurpose(context.Context) ([]store.PurposeUsage, error) {
	return nil, nil
}
func (m *mockEventRepo) LLMUsageByModel(context.Context) ([]store.ModelUsage, error) {
	return nil, nil
}
func (m *mockEventRepo) AppendAnswerEvent(_ context.Context, data store.AnswerEventData) error {
	m.answerEvents = append(m.answerEvents, data)
	return nil
}
func (m *mockEventRepo) TopicAccuracy(context.Context) ([]store.TopicAccuracy, error) {
	return nil, nil
}
func (m *mockEventRepo) AppendSessionEvent(_ context.Context, data store.SessionEventData) error {
	m.sessionEvents = append(m.sessionEvents, data)
	return nil
}
func (m *mockEventRepo) QuerySessionEvents(context.Context, store.QueryOpts) ([]store.SessionRecord, error) {
	return nil, nil
}
func (m *mockEventRepo) AppendBackupEvent(context.Context, store.BackupEventData) error {
	return nil
}
func (m *mockEventRepo) QueryBackupEvents(context.Context, store.QueryOpts) ([]store.BackupEventRecord, error) {
	return nil, nil
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func testQuestions() []questiongen.Question {
	return []questiongen.Question{
		{
			ID:           "q1",
			Text:         "She ___ to school every day.",
			Options:      []string{"go", "goes", "going", "gone"},
			AnswerIndex:  1,
			Explanation:  "Third person singular takes -s.",
			GrammarPoint: "时态语态",
		},
		{
			ID:           "q2",
			Text:         "This is the book ___ I bought yesterday.",
			Options:      []string{"who", "which", "whom", "whose"},
			AnswerIndex:  1,
			Explanation:  "Use which for things.",
			GrammarPoint: "定语从句",
		},
	}
}

type fixture struct {
	screen *QuizScreen
	stats  *stats.Store
	events *mockEventRepo
	tutor  *fakeTutor
}

func newFixture(t *testing.T, gen *fakeGenerator) *fixture {
	t.Helper()
	st := stats.NewStore(stats.NewMemoryPersister())
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load stats: %v", err)
	}
	events := &mockEventRepo{}
	tut := &fakeTutor{reply: "Because the subject is singular."}
	deps := Deps{
		Stats:  st,
		Runner: session.NewRunner(gen, st, session.WithGenerateTimeout(50*time.Millisecond)),
		Tutor:  tut,
		Events: events,
	}
	s := New(deps, questiongen.GenerateInput{Count: 2, Difficulty: questiongen.DifficultyEasy}, "")
	return &fixture{screen: s, stats: st, events: events, tutor: tut}
}

// started returns a fixture whose questions have been delivered.
func started(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, &fakeGenerator{questions: testQuestions()})
	f.screen.Init()
	f.deliver()
	if f.screen.sess == nil {
		t.Fatalf("session not started: %s", f.screen.errMsg)
	}
	return f
}

// deliver runs the pending generation and feeds its result back.
func (f *fixture) deliver() {
	msg := f.screen.generate(f.screen.token)()
	run(f.screen.Update(msg))
}

func (f *fixture) send(msgs ...tea.Msg) []tea.Msg {
	var out []tea.Msg
	for _, m := range msgs {
		out = append(out, run(f.screen.Update(m))...)
	}
	return out
}

// run executes cmd and returns the messages it produced, flattening batches.
func run(_ interface{}, cmd tea.Cmd) []tea.Msg {
	return collect(cmd)
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func findMsg[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func TestQuizScreen_Title(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	if f.screen.Title() != "Practice" {
		t.Errorf("Title = %q, want Practice", f.screen.Title())
	}
}

func TestQuizScreen_LoadsQuestions(t *testing.T) {
	f := started(t)

	view := f.screen.View(100, 30)
	if !strings.Contains(view, "She ___ to school every day.") {
		t.Error("expected first question in view")
	}
	if !strings.Contains(view, "Q 1/2") {
		t.Error("expected progress indicator")
	}
	if len(f.events.sessionEvents) != 1 || f.events.sessionEvents[0].Action != store.SessionStart {
		t.Fatalf("expected a start event, got %+v", f.events.sessionEvents)
	}
	if f.events.sessionEvents[0].Difficulty != "easy" {
		t.Errorf("Difficulty = %q, want easy", f.events.sessionEvents[0].Difficulty)
	}
}

func TestQuizScreen_LoadingView(t *testing.T) {
	f := newFixture(t, &fakeGenerator{questions: testQuestions()})
	f.screen.Init()
	if view := f.screen.View(100, 30); !strings.Contains(view, "Preparing 2 questions") {
		t.Errorf("expected loading message, got %q", view)
	}
}

func TestQuizScreen_EnterWithoutSelection(t *testing.T) {
	f := started(t)
	f.send(specialKey(tea.KeyEnter))

	if f.screen.sess.Phase() != session.PhaseAwaitingSelection {
		t.Error("submit without a selection should be ignored")
	}
	if f.stats.Snapshot().TotalQuestionsAttempted != 0 {
		t.Error("nothing should be recorded")
	}
}

func TestQuizScreen_SubmitRecordsAnswer(t *testing.T) {
	f := started(t)
	f.send(keyPress('1'), specialKey(tea.KeyEnter))

	if f.screen.sess.Phase() != session.PhaseAnswerSubmitted {
		t.Fatalf("Phase = %v, want answer-submitted", f.screen.sess.Phase())
	}
	snap := f.stats.Snapshot()
	if snap.TotalQuestionsAttempted != 1 || snap.TotalCorrectAnswers != 0 {
		t.Errorf("counters = %d/%d, want 1/0", snap.TotalQuestionsAttempted, snap.TotalCorrectAnswers)
	}
	if len(snap.WrongHistory) != 1 {
		t.Errorf("wrong history len = %d, want 1", len(snap.WrongHistory))
	}
	if len(f.events.answerEvents) != 1 {
		t.Fatalf("answer events = %d, want 1", len(f.events.answerEvents))
	}
	if ev := f.events.answerEvents[0]; ev.ChosenIndex != 0 || ev.Correct || ev.GrammarPoint != "时态语态" {
		t.Errorf("unexpected answer event %+v", ev)
	}

	view := f.screen.View(100, 30)
	if !strings.Contains(view, "Not quite") || !strings.Contains(view, "Third person singular") {
		t.Error("expected feedback with explanation")
	}

	// A second Enter advances rather than resubmitting.
	f.send(specialKey(tea.KeyEnter))
	if f.stats.Snapshot().TotalQuestionsAttempted != 1 {
		t.Error("answer must not be recorded twice")
	}
	if f.screen.sess.Index() != 1 {
		t.Errorf("Index = %d, want 1", f.screen.sess.Index())
	}
}

func TestQuizScreen_ArrowSelection(t *testing.T) {
	f := started(t)
	f.send(specialKey(tea.KeyDown))
	if got, ok := f.screen.sess.Selected(); !ok || got != 0 {
		t.Fatalf("first Down: Selected = %d,%v want 0,true", got, ok)
	}

	// Down moves A, B, C; Up returns to B.
	f.send(specialKey(tea.KeyDown), specialKey(tea.KeyDown), specialKey(tea.KeyUp))
	if got, ok := f.screen.sess.Selected(); !ok || got != 1 {
		t.Errorf("Selected = %d,%v want 1,true", got, ok)
	}
	f.send(specialKey(tea.KeyEnter))
	if f.stats.Snapshot().TotalCorrectAnswers != 1 {
		t.Error("expected a correct answer")
	}
}

func TestQuizScreen_CompleteShowsSummary(t *testing.T) {
	f := started(t)
	f.send(keyPress('2'), specialKey(tea.KeyEnter), specialKey(tea.KeyEnter))
	msgs := f.send(keyPress('b'), specialKey(tea.KeyEnter), specialKey(tea.KeyEnter))

	replace, ok := findMsg[router.ReplaceScreenMsg](msgs)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %v", msgs)
	}
	sum, ok := replace.Screen.(*summary.SummaryScreen)
	if !ok {
		t.Fatalf("expected summary screen, got %T", replace.Screen)
	}
	if view := sum.View(100, 30); !strings.Contains(view, "Session complete!") || !strings.Contains(view, "Answered: 2/2") {
		t.Errorf("unexpected summary view %q", view)
	}

	last := f.events.sessionEvents[len(f.events.sessionEvents)-1]
	if last.Action != store.SessionEnd || last.Answered != 2 || last.CorrectAnswers != 2 {
		t.Errorf("unexpected end event %+v", last)
	}
	if f.screen.sess.Phase() != session.PhaseComplete {
		t.Errorf("Phase = %v, want complete", f.screen.sess.Phase())
	}
	if f.screen.deps.Runner.Active() != nil {
		t.Error("runner should release the finished session")
	}
}

func TestQuizScreen_QuitConfirm(t *testing.T) {
	f := started(t)
	f.send(specialKey(tea.KeyEscape))
	if !f.screen.confirmQuit {
		t.Fatal("Esc should ask for confirmation")
	}
	if view := f.screen.View(100, 30); !strings.Contains(view, "End session early?") {
		t.Error("expected quit confirmation view")
	}

	f.send(keyPress('n'))
	if f.screen.confirmQuit {
		t.Error("N should dismiss the confirmation")
	}
	if f.screen.sess.Phase() != session.PhaseAwaitingSelection {
		t.Error("session should continue")
	}
}

func TestQuizScreen_QuitKeepsSubmittedAnswers(t *testing.T) {
	f := started(t)
	f.send(keyPress('2'), specialKey(tea.KeyEnter), specialKey(tea.KeyEnter))
	f.send(keyPress('1'))

	msgs := f.send(specialKey(tea.KeyEscape), keyPress('y'))

	if f.screen.sess.Phase() != session.PhaseCancelled {
		t.Errorf("Phase = %v, want cancelled", f.screen.sess.Phase())
	}
	if got := f.stats.Snapshot().TotalQuestionsAttempted; got != 1 {
		t.Errorf("attempted = %d, want 1", got)
	}
	replace, ok := findMsg[router.ReplaceScreenMsg](msgs)
	if !ok {
		t.Fatal("expected summary after quitting with answers")
	}
	if view := replace.Screen.View(100, 30); !strings.Contains(view, "Session ended early") {
		t.Error("expected cancelled summary")
	}
	last := f.events.sessionEvents[len(f.events.sessionEvents)-1]
	if last.Action != store.SessionCancelled || last.Answered != 1 || last.QuestionsServed != 2 {
		t.Errorf("unexpected cancel event %+v", last)
	}
}

func TestQuizScreen_QuitBeforeAnsweringPops(t *testing.T) {
	f := started(t)
	msgs := f.send(specialKey(tea.KeyEscape), keyPress('y'))

	if _, ok := findMsg[router.PopScreenMsg](msgs); !ok {
		t.Fatal("expected PopScreenMsg")
	}
	if f.stats.Snapshot().TotalQuestionsAttempted != 0 {
		t.Error("nothing should be recorded")
	}
}

func TestQuizScreen_EscDuringLoadingDiscardsResult(t *testing.T) {
	f := newFixture(t, &fakeGenerator{questions: testQuestions()})
	f.screen.Init()
	tok := f.screen.token

	msgs := f.send(specialKey(tea.KeyEscape))
	if _, ok := findMsg[router.PopScreenMsg](msgs); !ok {
		t.Fatal("expected PopScreenMsg")
	}

	// The generation result arrives after the user left.
	f.send(questionsReadyMsg{Token: tok, Questions: testQuestions()})
	if f.screen.sess != nil {
		t.Error("late result must not start a session")
	}
	if f.screen.deps.Runner.Active() != nil {
		t.Error("runner should have no active session")
	}
}

func TestQuizScreen_GenerationError(t *testing.T) {
	f := newFixture(t, &fakeGenerator{err: &questiongen.GenerationError{Err: errors.New("boom")}})
	f.screen.Init()
	f.deliver()

	if f.screen.sess != nil {
		t.Fatal("no session on error")
	}
	if view := f.screen.View(100, 30); !strings.Contains(view, "Could not generate questions") {
		t.Errorf("expected error view, got %q", view)
	}
	msgs := f.send(keyPress('x'))
	if _, ok := findMsg[router.PopScreenMsg](msgs); !ok {
		t.Error("any key should go back")
	}
}

func TestQuizScreen_GenerationTimeout(t *testing.T) {
	f := newFixture(t, &fakeGenerator{block: true})
	f.screen.Init()
	f.deliver()

	if view := f.screen.View(100, 30); !strings.Contains(view, "took too long") {
		t.Errorf("expected timeout message, got %q", view)
	}
}

func TestQuizScreen_SaveToggle(t *testing.T) {
	f := started(t)
	f.send(keyPress('2'), specialKey(tea.KeyEnter))

	f.send(keyPress('s'))
	if len(f.stats.Snapshot().SavedHistory) != 1 || !f.screen.saved {
		t.Fatal("S should save the question")
	}
	if view := f.screen.View(100, 30); !strings.Contains(view, "saved") {
		t.Error("expected saved marker")
	}
	f.send(keyPress('s'))
	if len(f.stats.Snapshot().SavedHistory) != 0 || f.screen.saved {
		t.Error("second S should unsave")
	}
}

// typeFollowUp opens the follow-up input and types query without running
// the cursor blink commands the input returns.
func (f *fixture) typeFollowUp(query string) {
	f.screen.Update(keyPress('f'))
	for _, r := range query {
		f.screen.Update(keyPress(r))
	}
}

func askFollowUp(f *fixture, query string) []tea.Msg {
	f.typeFollowUp(query)
	msgs := f.send(specialKey(tea.KeyEnter))
	var out []tea.Msg
	for _, m := range msgs {
		out = append(out, f.send(m)...)
	}
	return out
}

func TestQuizScreen_FollowUp(t *testing.T) {
	f := started(t)
	f.send(keyPress('1'), specialKey(tea.KeyEnter))

	askFollowUp(f, "why")

	if f.tutor.calls != 1 {
		t.Fatalf("tutor calls = %d, want 1", f.tutor.calls)
	}
	thread := f.screen.sess.Thread(0)
	if len(thread) != 2 || thread[0].Content != "why" || thread[1].Role != tutor.RoleTutor {
		t.Fatalf("unexpected thread %+v", thread)
	}
	if view := f.screen.View(100, 40); !strings.Contains(view, "Because the subject is singular.") {
		t.Error("expected tutor reply in view")
	}
}

func TestQuizScreen_FollowUpFailure(t *testing.T) {
	f := started(t)
	f.tutor.err = &tutor.ChatError{Err: errors.New("offline")}
	f.send(keyPress('1'), specialKey(tea.KeyEnter))

	askFollowUp(f, "why")

	thread := f.screen.sess.Thread(0)
	if len(thread) != 1 || !thread[0].Failed {
		t.Fatalf("expected one failed student message, got %+v", thread)
	}
	if f.screen.sess.FollowUpPending() {
		t.Error("failure should clear the pending flag")
	}
	if view := f.screen.View(100, 40); !strings.Contains(view, "no reply") {
		t.Error("expected failure marker in view")
	}
}

func TestQuizScreen_FollowUpTimeout(t *testing.T) {
	f := started(t)
	f.screen.deps.FollowUpTimeout = 20 * time.Millisecond
	f.tutor.block = true
	f.send(keyPress('1'), specialKey(tea.KeyEnter))

	start := time.Now()
	askFollowUp(f, "why")
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("follow-up took %v, expected the timeout to end it", elapsed)
	}

	thread := f.screen.sess.Thread(0)
	if len(thread) != 1 || !thread[0].Failed {
		t.Fatalf("expected one failed student message, got %+v", thread)
	}
	if f.screen.sess.FollowUpPending() {
		t.Error("timeout should clear the pending flag")
	}
}

func TestQuizScreen_FollowUpTimeoutDefault(t *testing.T) {
	s := New(Deps{}, questiongen.GenerateInput{Count: 1}, "")
	if s.deps.FollowUpTimeout != llm.DefaultTimeout {
		t.Errorf("FollowUpTimeout = %v, want %v", s.deps.FollowUpTimeout, llm.DefaultTimeout)
	}
}

func TestQuizScreen_FollowUpAfterAdvanceIsDropped(t *testing.T) {
	f := started(t)
	f.send(keyPress('1'), specialKey(tea.KeyEnter))
	f.typeFollowUp("why")
	msgs := f.send(specialKey(tea.KeyEnter))
	done, ok := findMsg[followUpDoneMsg](msgs)
	if !ok {
		t.Fatal("expected follow-up result")
	}

	// Move on before the reply is applied.
	f.send(specialKey(tea.KeyEnter))
	f.send(done)

	if th := f.screen.sess.Thread(1); len(th) != 0 {
		t.Errorf("reply leaked into the next question: %+v", th)
	}
}

func TestQuizScreen_KeyHints(t *testing.T) {
	f := started(t)
	if hints := f.screen.KeyHints(); len(hints) != 3 {
		t.Errorf("selection hints = %d, want 3", len(hints))
	}
	f.send(keyPress('1'), specialKey(tea.KeyEnter))
	if hints := f.screen.KeyHints(); len(hints) != 4 {
		t.Errorf("feedback hints = %d, want 4", len(hints))
	}
}

func TestOptionIndex(t *testing.T) {
	tests := []struct {
		key  string
		want int
		ok   bool
	}{
		{"1", 0, true},
		{"4", 3, true},
		{"5", 0, false},
		{"b", 1, true},
		{"D", 3, true},
		{"e", 0, false},
		{"enter", 0, false},
	}
	for _, tt := range tests {
		got, ok := optionIndex(tt.key, 4)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("optionIndex(%q) = %d,%v want %d,%v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}
