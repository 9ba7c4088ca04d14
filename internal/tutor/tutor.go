package tutor

import (
	"context"
	"errors"
	"strings"

	"github.com/abhisek/grammiz/internal/llm"
)

// Tutor answers follow-up questions about an answered question.
type Tutor interface {
	// Ask sends query with the prior thread and returns the reply text.
	// Failures are *ChatError.
	Ask(ctx context.Context, qc QuestionContext, prior []Message, query string) (string, error)
}

// Config controls the LLM tutor.
type Config struct {
	MaxTokens   int
	Temperature float64

	// MaxHistory caps how many prior messages are sent. Zero sends all.
	MaxHistory int
}

// DefaultConfig returns the standard tutor settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   1024,
		Temperature: 0.3,
		MaxHistory:  10,
	}
}

// LLMTutor implements Tutor with a plain-text LLM conversation.
type LLMTutor struct {
	provider llm.Provider
	cfg      Config
}

// New creates an LLMTutor.
func New(provider llm.Provider, cfg Config) *LLMTutor {
	return &LLMTutor{provider: provider, cfg: cfg}
}

func (t *LLMTutor) Ask(ctx context.Context, qc QuestionContext, prior []Message, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", &ChatError{Err: ErrEmptyQuery}
	}

	ctx = llm.WithPurpose(ctx, "tutor")

	req := llm.Request{
		System:      systemPrompt,
		Messages:    t.buildMessages(qc, prior, query),
		MaxTokens:   t.cfg.MaxTokens,
		Temperature: t.cfg.Temperature,
	}

	resp, err := t.provider.Generate(ctx, req)
	if err != nil {
		return "", &ChatError{Err: err}
	}

	reply := resp.Text()
	if reply == "" {
		return "", &ChatError{Err: errors.New("empty reply")}
	}
	return reply, nil
}

// buildMessages lays out the conversation: the question context, the
// successful prior turns, then the new query. The context is folded into
// the first student turn so roles keep alternating.
func (t *LLMTutor) buildMessages(qc QuestionContext, prior []Message, query string) []llm.Message {
	var turns []Message
	for _, m := range prior {
		if !m.Failed {
			turns = append(turns, m)
		}
	}
	if t.cfg.MaxHistory > 0 && len(turns) > t.cfg.MaxHistory {
		turns = turns[len(turns)-t.cfg.MaxHistory:]
	}
	// The history must open with a student turn.
	for len(turns) > 0 && turns[0].Role != RoleStudent {
		turns = turns[1:]
	}

	msgs := make([]llm.Message, 0, len(turns)+1)
	intro := buildContextMessage(qc)
	for i, m := range turns {
		content := m.Content
		if i == 0 {
			content = intro + "\n\n" + content
		}
		msgs = append(msgs, llm.Message{Role: toLLMRole(m.Role), Content: content})
	}

	if len(msgs) == 0 {
		query = intro + "\n\n" + query
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: query})
}

func toLLMRole(r Role) llm.Role {
	if r == RoleTutor {
		return llm.RoleAssistant
	}
	return llm.RoleUser
}
