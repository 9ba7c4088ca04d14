package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/grammiz/internal/questiongen"
)

type generatorFunc func(ctx context.Context, in questiongen.GenerateInput) ([]questiongen.Question, error)

func (f generatorFunc) Generate(ctx context.Context, in questiongen.GenerateInput) ([]questiongen.Question, error) {
	return f(ctx, in)
}

func blockingGenerator(started chan<- struct{}) generatorFunc {
	return func(ctx context.Context, in questiongen.GenerateInput) ([]questiongen.Question, error) {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return nil, &questiongen.GenerationError{Err: ctx.Err()}
	}
}

func TestRunnerGenerateAndStart(t *testing.T) {
	gen := generatorFunc(func(_ context.Context, in questiongen.GenerateInput) ([]questiongen.Question, error) {
		return testQuestions(in.Count), nil
	})
	rec := &fakeRecorder{}
	r := NewRunner(gen, rec)

	in := questiongen.GenerateInput{Count: 3, Difficulty: questiongen.DifficultyEasy}
	tok := r.Begin()
	qs, err := r.Generate(context.Background(), tok, in)
	require.NoError(t, err)
	require.Len(t, qs, 3)

	s, err := r.Start(tok, qs, WithRequest(in))
	require.NoError(t, err)
	assert.Same(t, s, r.Active())
	assert.Equal(t, in, s.Request())
}

func TestRunnerTimeout(t *testing.T) {
	r := NewRunner(blockingGenerator(nil), &fakeRecorder{}, WithGenerateTimeout(20*time.Millisecond))

	tok := r.Begin()
	_, err := r.Generate(context.Background(), tok, questiongen.GenerateInput{Count: 1})

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 20*time.Millisecond, te.After)
	assert.True(t, IsTimeout(err))
	assert.Nil(t, r.Active(), "no session after a timeout")
}

func TestRunnerGenerationErrorPassesThrough(t *testing.T) {
	boom := &questiongen.GenerationError{Err: errors.New("401 unauthorized")}
	gen := generatorFunc(func(context.Context, questiongen.GenerateInput) ([]questiongen.Question, error) {
		return nil, boom
	})
	r := NewRunner(gen, &fakeRecorder{})

	_, err := r.Generate(context.Background(), r.Begin(), questiongen.GenerateInput{Count: 1})
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
}

func TestRunnerAbandonDiscardsLateResult(t *testing.T) {
	started := make(chan struct{})
	r := NewRunner(blockingGenerator(started), &fakeRecorder{})

	tok := r.Begin()
	errc := make(chan error, 1)
	go func() {
		_, err := r.Generate(context.Background(), tok, questiongen.GenerateInput{Count: 2})
		errc <- err
	}()

	<-started
	r.Abandon()
	assert.ErrorIs(t, <-errc, ErrStale)

	_, err := r.Start(tok, testQuestions(2))
	assert.ErrorIs(t, err, ErrStale)
	assert.Nil(t, r.Active())
}

func TestRunnerBeginSupersedesEarlierToken(t *testing.T) {
	r := NewRunner(generatorFunc(func(_ context.Context, in questiongen.GenerateInput) ([]questiongen.Question, error) {
		return testQuestions(in.Count), nil
	}), &fakeRecorder{})

	old := r.Begin()
	qs, err := r.Generate(context.Background(), old, questiongen.GenerateInput{Count: 1})
	require.NoError(t, err)

	fresh := r.Begin()
	_, err = r.Start(old, qs)
	assert.ErrorIs(t, err, ErrStale)

	_, err = r.Generate(context.Background(), old, questiongen.GenerateInput{Count: 1})
	assert.ErrorIs(t, err, ErrStale)

	_, err = r.Start(fresh, qs)
	assert.NoError(t, err)
}

func TestRunnerAbandonCancelsActiveSession(t *testing.T) {
	r := NewRunner(nil, &fakeRecorder{})
	tok := r.Begin()
	s, err := r.Start(tok, testQuestions(2))
	require.NoError(t, err)

	r.Abandon()
	assert.Equal(t, PhaseCancelled, s.Phase())
	assert.Nil(t, r.Active())
}

func TestRunnerStartRejectsEmpty(t *testing.T) {
	r := NewRunner(nil, &fakeRecorder{})
	_, err := r.Start(r.Begin(), nil)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}
