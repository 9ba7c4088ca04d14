package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abhisek/grammiz/internal/questiongen"
)

// DefaultGenerateTimeout bounds one question generation call.
const DefaultGenerateTimeout = 10 * time.Second

// Token identifies one generation attempt. Only the newest token may start
// a session.
type Token uint64

// Runner coordinates question generation with session start so that a
// result arriving after the user navigated away is never applied.
type Runner struct {
	generator questiongen.Generator
	recorder  Recorder
	timeout   time.Duration

	mu     sync.Mutex
	token  Token
	cancel context.CancelFunc
	active *Session
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithGenerateTimeout overrides DefaultGenerateTimeout.
func WithGenerateTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(gen questiongen.Generator, recorder Recorder, opts ...RunnerOption) *Runner {
	r := &Runner{
		generator: gen,
		recorder:  recorder,
		timeout:   DefaultGenerateTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Begin invalidates any earlier attempt and returns a fresh token.
func (r *Runner) Begin() Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidateLocked()
	return r.token
}

// Generate asks the generator for questions on behalf of tok. A call that
// exceeds the timeout fails with *TimeoutError; a call whose token was
// superseded while in flight fails with ErrStale.
func (r *Runner) Generate(ctx context.Context, tok Token, in questiongen.GenerateInput) ([]questiongen.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.mu.Lock()
	if tok != r.token {
		r.mu.Unlock()
		return nil, ErrStale
	}
	r.cancel = cancel
	r.mu.Unlock()

	questions, err := r.generator.Generate(ctx, in)

	r.mu.Lock()
	stale := tok != r.token
	if !stale {
		r.cancel = nil
	}
	r.mu.Unlock()

	if stale {
		return nil, ErrStale
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Op: "question generation", After: r.timeout, Err: err}
		}
		return nil, err
	}
	return questions, nil
}

// Start builds the session for tok. It fails with ErrStale if another
// attempt began or the runner was abandoned since tok was issued.
func (r *Runner) Start(tok Token, questions []questiongen.Question, opts ...Option) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tok != r.token {
		return nil, ErrStale
	}
	s, err := New(questions, r.recorder, opts...)
	if err != nil {
		return nil, err
	}
	r.active = s
	return s, nil
}

// Active returns the running session, or nil.
func (r *Runner) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Abandon cancels any in-flight generation and the active session.
func (r *Runner) Abandon() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidateLocked()
}

func (r *Runner) invalidateLocked() {
	r.token++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.active != nil {
		r.active.Cancel()
		r.active = nil
	}
}
