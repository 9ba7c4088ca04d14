package tutor

import (
	"errors"
	"fmt"

	"github.com/abhisek/grammiz/internal/questiongen"
)

// Role identifies who wrote a chat message.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

// Message is one turn of a follow-up thread.
type Message struct {
	Role    Role
	Content string

	// Failed marks a student message whose reply never arrived. It stays in
	// the visible thread but is not sent back to the model.
	Failed bool
}

// QuestionContext is the answered question a thread is about.
type QuestionContext struct {
	Question    questiongen.Question
	ChosenIndex int
}

// ErrEmptyQuery is returned when the student asks nothing.
var ErrEmptyQuery = errors.New("follow-up question is empty")

// ChatError wraps any failure to obtain a tutor reply.
type ChatError struct {
	Err error
}

func (e *ChatError) Error() string {
	return fmt.Sprintf("tutor chat failed: %v", e.Err)
}

func (e *ChatError) Unwrap() error { return e.Err }
