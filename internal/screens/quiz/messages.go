package quiz

import (
	"time"

	"github.com/abhisek/grammiz/internal/questiongen"
	"github.com/abhisek/grammiz/internal/session"
)

// questionsReadyMsg is sent when question generation finishes.
type questionsReadyMsg struct {
	Token     session.Token
	Questions []questiongen.Question
	Err       error
}

// followUpDoneMsg carries the tutor reply for a follow-up ticket.
type followUpDoneMsg struct {
	Ticket session.FollowUpTicket
	Reply  string
	Err    error
}

// spinnerTickMsg animates the loading and thinking indicators.
type spinnerTickMsg time.Time
