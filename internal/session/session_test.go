package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/grammiz/internal/questiongen"
	"github.com/abhisek/grammiz/internal/stats"
	"github.com/abhisek/grammiz/internal/tutor"
)

type recorded struct {
	text    string
	chosen  int
	correct bool
}

type fakeRecorder struct {
	calls []recorded
}

func (r *fakeRecorder) RecordAnswer(q questiongen.Question, chosen int, correct bool) {
	r.calls = append(r.calls, recorded{text: q.Text, chosen: chosen, correct: correct})
}

func testQuestions(n int) []questiongen.Question {
	topics := []string{"时态语态", "定语从句", "冠词"}
	qs := make([]questiongen.Question, n)
	for i := range qs {
		qs[i] = questiongen.Question{
			ID:           fmt.Sprintf("q%d", i+1),
			Text:         fmt.Sprintf("Question %d ___.", i+1),
			Options:      []string{"a", "b", "c", "d"},
			AnswerIndex:  i % 4,
			Explanation:  "because",
			GrammarPoint: topics[i%len(topics)],
		}
	}
	return qs
}

func newTestSession(t *testing.T, n int) (*Session, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{}
	s, err := New(testQuestions(n), rec, WithID("test-session"))
	require.NoError(t, err)
	return s, rec
}

func answer(t *testing.T, s *Session, idx int) Answer {
	t.Helper()
	require.NoError(t, s.SelectOption(idx))
	a, err := s.Submit()
	require.NoError(t, err)
	return a
}

func TestNewRejectsEmptySession(t *testing.T) {
	s, err := New(nil, &fakeRecorder{})
	assert.Nil(t, s)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "questions", ve.Field)
}

func TestNewGeneratesID(t *testing.T) {
	s, err := New(testQuestions(1), &fakeRecorder{})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, PhaseAwaitingSelection, s.Phase())
}

func TestSelectOptionReplacesSelection(t *testing.T) {
	s, rec := newTestSession(t, 2)

	require.NoError(t, s.SelectOption(1))
	require.NoError(t, s.SelectOption(2))
	idx, ok := s.Selected()
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Empty(t, rec.calls, "selection has no side effects")

	var ve *ValidationError
	assert.ErrorAs(t, s.SelectOption(4), &ve)
	assert.ErrorAs(t, s.SelectOption(-1), &ve)
}

func TestSubmitRequiresSelection(t *testing.T) {
	s, rec := newTestSession(t, 1)
	_, err := s.Submit()
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Empty(t, rec.calls)
}

func TestSubmitRecordsOnce(t *testing.T) {
	s, rec := newTestSession(t, 2)

	a := answer(t, s, 0)
	assert.True(t, a.Correct)
	assert.Equal(t, PhaseAnswerSubmitted, s.Phase())

	_, err := s.Submit()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.ErrorIs(t, s.SelectOption(1), ErrAlreadySubmitted)
	assert.Len(t, rec.calls, 1, "resubmission must not record again")
}

func TestAdvanceFlow(t *testing.T) {
	s, rec := newTestSession(t, 3)

	_, err := s.Advance()
	assert.ErrorIs(t, err, ErrNotSubmitted)

	for i := 0; i < 3; i++ {
		assert.Equal(t, i, s.Index())
		answer(t, s, 1)
		done, err := s.Advance()
		require.NoError(t, err)
		assert.Equal(t, i == 2, done)
	}

	assert.Equal(t, PhaseComplete, s.Phase())
	answers := s.Answers()
	require.Len(t, answers, 3)
	for i, a := range answers {
		assert.Equal(t, i, a.Index)
		assert.Equal(t, fmt.Sprintf("q%d", i+1), a.Question.ID)
	}
	assert.Len(t, rec.calls, 3)

	_, err = s.Advance()
	assert.ErrorIs(t, err, ErrFinished)
	assert.ErrorIs(t, s.SelectOption(0), ErrFinished)
}

func TestAdvanceClearsSelection(t *testing.T) {
	s, _ := newTestSession(t, 2)
	answer(t, s, 3)
	_, err := s.Advance()
	require.NoError(t, err)

	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestCancelKeepsSubmittedAnswersOnly(t *testing.T) {
	persister := stats.NewMemoryPersister()
	st := stats.NewStore(persister, stats.WithLogger(log.New(io.Discard)))
	require.NoError(t, st.Load(context.Background()))
	before := st.Snapshot().TotalQuestionsAttempted

	s, err := New(testQuestions(5), st)
	require.NoError(t, err)

	answer(t, s, 0)
	_, err = s.Advance()
	require.NoError(t, err)
	answer(t, s, 0)
	_, err = s.Advance()
	require.NoError(t, err)

	// Third question selected but never submitted.
	require.NoError(t, s.SelectOption(2))
	s.Cancel()

	assert.Equal(t, PhaseCancelled, s.Phase())
	assert.Equal(t, before+2, st.Snapshot().TotalQuestionsAttempted)
	assert.Len(t, s.Answers(), 2)

	_, err = s.Submit()
	assert.ErrorIs(t, err, ErrFinished)
	assert.Equal(t, before+2, st.Snapshot().TotalQuestionsAttempted)
}

func TestCorrectAnswerLeavesWrongHistoryAlone(t *testing.T) {
	st := stats.NewStore(stats.NewMemoryPersister(), stats.WithLogger(log.New(io.Discard)))
	require.NoError(t, st.Load(context.Background()))

	qs := testQuestions(2)
	s, err := New(qs, st)
	require.NoError(t, err)

	answer(t, s, qs[0].AnswerIndex)
	snap := st.Snapshot()
	assert.Empty(t, snap.WrongHistory)
	assert.Equal(t, 0, snap.WrongCounts.Len())

	_, err = s.Advance()
	require.NoError(t, err)
	answer(t, s, (qs[1].AnswerIndex+1)%4)
	snap = st.Snapshot()
	assert.Len(t, snap.WrongHistory, 1)
	assert.Equal(t, 1, snap.WrongCounts.Get(qs[1].GrammarPoint))
}

func TestSessionCountsMatchAnswers(t *testing.T) {
	st := stats.NewStore(stats.NewMemoryPersister(), stats.WithLogger(log.New(io.Discard)))
	require.NoError(t, st.Load(context.Background()))

	qs := testQuestions(6)
	s, err := New(qs, st)
	require.NoError(t, err)

	wrong := 0
	for i, q := range qs {
		chosen := q.AnswerIndex
		if i%3 == 0 {
			chosen = (chosen + 1) % 4
			wrong++
		}
		answer(t, s, chosen)
		_, err := s.Advance()
		require.NoError(t, err)
	}

	snap := st.Snapshot()
	assert.Equal(t, len(qs), snap.TotalQuestionsAttempted)
	assert.Equal(t, len(qs)-wrong, snap.TotalCorrectAnswers)
}

type fakeTutor struct {
	mu      sync.Mutex
	reply   string
	err     error
	release chan struct{}
	priors  [][]tutor.Message
}

func (f *fakeTutor) Ask(ctx context.Context, _ tutor.QuestionContext, prior []tutor.Message, _ string) (string, error) {
	f.mu.Lock()
	f.priors = append(f.priors, prior)
	f.mu.Unlock()
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func TestFollowUpRequiresSubmission(t *testing.T) {
	s, _ := newTestSession(t, 1)
	_, err := s.BeginFollowUp("why?")
	assert.ErrorIs(t, err, ErrNotSubmitted)
}

func TestFollowUpRejectsEmptyQuery(t *testing.T) {
	s, _ := newTestSession(t, 1)
	answer(t, s, 1)

	_, err := s.BeginFollowUp("   ")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Empty(t, s.Thread(0))
}

func TestAskFollowUpAppendsTurns(t *testing.T) {
	s, _ := newTestSession(t, 1)
	answer(t, s, 1)

	ft := &fakeTutor{reply: "Because of the time marker."}
	reply, err := s.AskFollowUp(context.Background(), ft, "why not b?")
	require.NoError(t, err)
	assert.Equal(t, "Because of the time marker.", reply)

	_, err = s.AskFollowUp(context.Background(), ft, "and c?")
	require.NoError(t, err)

	thread := s.Thread(0)
	require.Len(t, thread, 4)
	assert.Equal(t, tutor.RoleStudent, thread[0].Role)
	assert.Equal(t, "why not b?", thread[0].Content)
	assert.Equal(t, tutor.RoleTutor, thread[1].Role)
	assert.Equal(t, "and c?", thread[2].Content)

	require.Len(t, ft.priors, 2)
	assert.Empty(t, ft.priors[0])
	assert.Len(t, ft.priors[1], 2, "prior excludes the new query")
}

func TestFollowUpOneInFlight(t *testing.T) {
	s, _ := newTestSession(t, 1)
	answer(t, s, 1)

	first, err := s.BeginFollowUp("first")
	require.NoError(t, err)
	assert.True(t, s.FollowUpPending())

	_, err = s.BeginFollowUp("second")
	assert.ErrorIs(t, err, ErrFollowUpPending)
	assert.Len(t, s.Thread(0), 1, "rejected ask must not touch the thread")

	require.NoError(t, s.CompleteFollowUp(first, "reply", nil))
	assert.False(t, s.FollowUpPending())

	_, err = s.BeginFollowUp("second")
	assert.NoError(t, err)
}

func TestFollowUpFailureMarksTurn(t *testing.T) {
	s, _ := newTestSession(t, 1)
	answer(t, s, 1)

	ft := &fakeTutor{err: &tutor.ChatError{Err: errors.New("network down")}}
	_, err := s.AskFollowUp(context.Background(), ft, "why?")
	var ce *tutor.ChatError
	require.ErrorAs(t, err, &ce)

	thread := s.Thread(0)
	require.Len(t, thread, 1)
	assert.Equal(t, "why?", thread[0].Content)
	assert.True(t, thread[0].Failed)
	assert.False(t, s.FollowUpPending())
}

func TestFollowUpStaleAfterAdvance(t *testing.T) {
	s, _ := newTestSession(t, 2)
	answer(t, s, 1)

	ticket, err := s.BeginFollowUp("why?")
	require.NoError(t, err)

	_, err = s.Advance()
	require.NoError(t, err)

	assert.ErrorIs(t, s.CompleteFollowUp(ticket, "late reply", nil), ErrStale)
	assert.Empty(t, s.Thread(1))
	assert.Len(t, s.Thread(0), 1)
}

func TestFollowUpStaleAfterCancel(t *testing.T) {
	s, _ := newTestSession(t, 2)
	answer(t, s, 1)

	ft := &fakeTutor{reply: "late", release: make(chan struct{})}
	errc := make(chan error, 1)
	go func() {
		_, err := s.AskFollowUp(context.Background(), ft, "why?")
		errc <- err
	}()

	require.Eventually(t, s.FollowUpPending, time.Second, time.Millisecond)
	s.Cancel()
	close(ft.release)

	assert.ErrorIs(t, <-errc, ErrStale)
	thread := s.Thread(0)
	require.Len(t, thread, 1)
	assert.Equal(t, tutor.RoleStudent, thread[0].Role)
}

func TestSummary(t *testing.T) {
	clock := time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC)
	rec := &fakeRecorder{}
	qs := testQuestions(4)
	s, err := New(qs, rec, WithClock(func() time.Time {
		clock = clock.Add(30 * time.Second)
		return clock
	}))
	require.NoError(t, err)

	answer(t, s, qs[0].AnswerIndex)
	_, _ = s.Advance()
	answer(t, s, (qs[1].AnswerIndex+1)%4)
	_, _ = s.Advance()
	answer(t, s, qs[2].AnswerIndex)
	_, _ = s.Advance()
	s.Cancel()

	sum := s.Summary()
	assert.Equal(t, PhaseCancelled, sum.Phase)
	assert.Equal(t, 4, sum.Served)
	assert.Equal(t, 3, sum.Attempted)
	assert.Equal(t, 2, sum.Correct)
	assert.InDelta(t, 2.0/3.0, sum.Accuracy, 1e-9)
	assert.Equal(t, 30*time.Second, sum.Duration)
	assert.Equal(t, []TopicResult{
		{Topic: "时态语态", Attempted: 1, Correct: 1},
		{Topic: "定语从句", Attempted: 1, Correct: 0},
		{Topic: "冠词", Attempted: 1, Correct: 1},
	}, sum.Topics)

	ev := s.EventData("cancelled")
	assert.Equal(t, s.ID(), ev.SessionID)
	assert.Equal(t, 3, ev.Answered)
	assert.Equal(t, 30, ev.DurationSecs)
}
