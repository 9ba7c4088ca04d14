package session

import (
	"time"

	"github.com/abhisek/grammiz/internal/store"
)

// TopicResult is the per grammar point tally of a session.
type TopicResult struct {
	Topic     string
	Attempted int
	Correct   int
}

// Summary holds the data displayed when a session ends.
type Summary struct {
	SessionID string
	Phase     Phase
	Served    int
	Attempted int
	Correct   int
	Accuracy  float64
	Duration  time.Duration

	// Topics lists grammar points in the order they were first answered.
	Topics []TopicResult
}

// Summary tallies the submitted answers. Duration runs until the session
// finished, or until now while it is still open.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := s.endedAt
	if end.IsZero() {
		end = s.now()
	}

	sum := Summary{
		SessionID: s.id,
		Phase:     s.phase,
		Served:    s.index + 1,
		Attempted: len(s.answers),
		Duration:  end.Sub(s.startedAt),
	}

	pos := make(map[string]int)
	for _, a := range s.answers {
		topic := a.Question.GrammarPoint
		i, ok := pos[topic]
		if !ok {
			i = len(sum.Topics)
			pos[topic] = i
			sum.Topics = append(sum.Topics, TopicResult{Topic: topic})
		}
		sum.Topics[i].Attempted++
		if a.Correct {
			sum.Correct++
			sum.Topics[i].Correct++
		}
	}
	if sum.Attempted > 0 {
		sum.Accuracy = float64(sum.Correct) / float64(sum.Attempted)
	}
	return sum
}

// EventData builds the session event for action from the current tally.
func (s *Session) EventData(action string) store.SessionEventData {
	sum := s.Summary()
	return store.SessionEventData{
		SessionID:       sum.SessionID,
		Action:          action,
		Difficulty:      string(s.request.Difficulty),
		Topics:          s.request.Topics,
		QuestionsServed: sum.Served,
		Answered:        sum.Attempted,
		CorrectAnswers:  sum.Correct,
		DurationSecs:    int(sum.Duration / time.Second),
	}
}
