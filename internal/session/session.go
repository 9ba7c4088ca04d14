package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/grammiz/internal/questiongen"
	"github.com/abhisek/grammiz/internal/tutor"
)

// Recorder receives every submitted answer. *stats.Store implements it.
type Recorder interface {
	RecordAnswer(q questiongen.Question, chosen int, correct bool)
}

// Phase is the state of a session.
type Phase int

const (
	PhaseAwaitingSelection Phase = iota // Current question is open
	PhaseAnswerSubmitted                // Feedback shown, follow-ups allowed
	PhaseComplete                       // Last question advanced past
	PhaseCancelled                      // Abandoned before completion
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingSelection:
		return "awaiting-selection"
	case PhaseAnswerSubmitted:
		return "answer-submitted"
	case PhaseComplete:
		return "complete"
	case PhaseCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Finished reports whether the session accepts no more input.
func (p Phase) Finished() bool {
	return p == PhaseComplete || p == PhaseCancelled
}

// Answer is one submitted answer.
type Answer struct {
	Index    int
	Question questiongen.Question
	Chosen   int
	Correct  bool
}

// FollowUpTicket identifies one in-flight follow-up question. It carries
// everything needed to call the tutor outside the session lock.
type FollowUpTicket struct {
	QuestionIndex int
	Query         string
	Context       tutor.QuestionContext
	Prior         []tutor.Message

	generation uint64
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithID sets the session ID instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithRequest records the generation request the questions came from.
func WithRequest(in questiongen.GenerateInput) Option {
	return func(s *Session) { s.request = in }
}

// Session is a quiz over a fixed list of questions. Methods are safe for
// concurrent use so follow-up replies can be applied from a background
// goroutine.
type Session struct {
	mu sync.Mutex

	id        string
	questions []questiongen.Question
	recorder  Recorder
	request   questiongen.GenerateInput
	now       func() time.Time

	phase    Phase
	index    int
	selected int // -1 when nothing is selected
	answers  []Answer
	threads  [][]tutor.Message
	pending  bool

	// generation is bumped whenever the current thread stops accepting
	// replies, so late follow-up results can be detected.
	generation uint64

	startedAt time.Time
	endedAt   time.Time
}

// New starts a session over questions. An empty list is rejected before
// any state exists.
func New(questions []questiongen.Question, recorder Recorder, opts ...Option) (*Session, error) {
	if len(questions) == 0 {
		return nil, &ValidationError{Field: "questions", Message: "a session needs at least one question"}
	}
	if recorder == nil {
		return nil, &ValidationError{Field: "recorder", Message: "must not be nil"}
	}

	s := &Session{
		questions: append([]questiongen.Question(nil), questions...),
		recorder:  recorder,
		now:       time.Now,
		selected:  -1,
		threads:   make([][]tutor.Message, len(questions)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.New().String()
	}
	s.startedAt = s.now()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Request returns the generation request the session was built from.
func (s *Session) Request() questiongen.GenerateInput { return s.request }

// Len returns the number of questions.
func (s *Session) Len() int { return len(s.questions) }

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Index returns the position of the current question.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Current returns the current question.
func (s *Session) Current() questiongen.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.index]
}

// Selected returns the selected option, if any.
func (s *Session) Selected() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected >= 0
}

// SelectOption selects option idx of the current question, replacing any
// previous selection.
func (s *Session) SelectOption(idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseAnswerSubmitted:
		return ErrAlreadySubmitted
	case PhaseComplete, PhaseCancelled:
		return ErrFinished
	}
	if idx < 0 || idx >= len(s.questions[s.index].Options) {
		return &ValidationError{Field: "option", Message: "index out of range"}
	}
	s.selected = idx
	return nil
}

// Submit records the selected option for the current question and opens
// a fresh follow-up thread.
func (s *Session) Submit() (Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseAnswerSubmitted:
		return Answer{}, ErrAlreadySubmitted
	case PhaseComplete, PhaseCancelled:
		return Answer{}, ErrFinished
	}
	if s.selected < 0 {
		return Answer{}, ErrNoSelection
	}

	q := s.questions[s.index]
	a := Answer{
		Index:    s.index,
		Question: q,
		Chosen:   s.selected,
		Correct:  q.IsCorrect(s.selected),
	}
	s.recorder.RecordAnswer(q, a.Chosen, a.Correct)
	s.answers = append(s.answers, a)
	s.phase = PhaseAnswerSubmitted

	s.threads[s.index] = nil
	s.pending = false
	s.generation++
	return a, nil
}

// Advance moves to the next question. It reports true once the session is
// complete.
func (s *Session) Advance() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseAwaitingSelection:
		return false, ErrNotSubmitted
	case PhaseComplete, PhaseCancelled:
		return true, ErrFinished
	}

	s.generation++
	s.pending = false
	s.selected = -1

	if s.index == len(s.questions)-1 {
		s.phase = PhaseComplete
		s.endedAt = s.now()
		return true, nil
	}
	s.index++
	s.phase = PhaseAwaitingSelection
	return false, nil
}

// Cancel abandons the session. Answers already submitted stay recorded;
// the open selection and any pending follow-up are discarded.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Finished() {
		return
	}
	s.phase = PhaseCancelled
	s.selected = -1
	s.pending = false
	s.generation++
	s.endedAt = s.now()
}

// Answers returns the submitted answers in question order.
func (s *Session) Answers() []Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Answer(nil), s.answers...)
}

// Thread returns a copy of the follow-up thread for question i.
func (s *Session) Thread(i int) []tutor.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.threads) {
		return nil
	}
	return append([]tutor.Message(nil), s.threads[i]...)
}

// FollowUpPending reports whether a follow-up reply is outstanding.
func (s *Session) FollowUpPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// BeginFollowUp appends the student's query to the current thread and
// returns a ticket for the tutor call. Only one follow-up may be in flight.
func (s *Session) BeginFollowUp(query string) (FollowUpTicket, error) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseAwaitingSelection:
		return FollowUpTicket{}, ErrNotSubmitted
	case PhaseComplete, PhaseCancelled:
		return FollowUpTicket{}, ErrFinished
	}
	if query == "" {
		return FollowUpTicket{}, &ValidationError{Field: "query", Message: "must not be empty"}
	}
	if s.pending {
		return FollowUpTicket{}, ErrFollowUpPending
	}

	prior := append([]tutor.Message(nil), s.threads[s.index]...)
	s.threads[s.index] = append(s.threads[s.index], tutor.Message{Role: tutor.RoleStudent, Content: query})
	s.pending = true

	return FollowUpTicket{
		QuestionIndex: s.index,
		Query:         query,
		Context: tutor.QuestionContext{
			Question:    s.questions[s.index],
			ChosenIndex: s.answers[len(s.answers)-1].Chosen,
		},
		Prior:      prior,
		generation: s.generation,
	}, nil
}

// CompleteFollowUp applies the outcome of a ticket. On failure the
// student's message stays in the thread marked as failed. A ticket that
// no longer matches the current thread is discarded with ErrStale.
func (s *Session) CompleteFollowUp(t FollowUpTicket, reply string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.generation != s.generation || t.QuestionIndex != s.index || !s.pending {
		return ErrStale
	}
	s.pending = false

	thread := s.threads[s.index]
	if err != nil {
		if n := len(thread); n > 0 && thread[n-1].Role == tutor.RoleStudent {
			thread[n-1].Failed = true
		}
		return nil
	}
	s.threads[s.index] = append(thread, tutor.Message{Role: tutor.RoleTutor, Content: reply})
	return nil
}

// AskFollowUp runs a full follow-up round trip against t, blocking until
// the reply arrives or ctx is done.
func (s *Session) AskFollowUp(ctx context.Context, t tutor.Tutor, query string) (string, error) {
	ticket, err := s.BeginFollowUp(query)
	if err != nil {
		return "", err
	}

	reply, askErr := t.Ask(ctx, ticket.Context, ticket.Prior, ticket.Query)
	if err := s.CompleteFollowUp(ticket, reply, askErr); err != nil {
		return "", err
	}
	if askErr != nil {
		return "", askErr
	}
	return reply, nil
}
