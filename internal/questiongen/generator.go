package questiongen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/grammiz/internal/llm"
)

// Generator produces grammar question sets.
type Generator interface {
	// Generate returns input.Count validated questions (or fewer when some
	// were dropped by validators, never zero). Bad input returns
	// *ValidationError; every other failure returns *GenerationError.
	Generate(ctx context.Context, input GenerateInput) ([]Question, error)
}

// LLMGenerator implements Generator using an LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// New creates a new LLMGenerator with the given provider and config.
func New(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

// questionSetOutput is the raw LLM response before validation.
type questionSetOutput struct {
	Questions []questionOutput `json:"questions"`
}

type questionOutput struct {
	Question     string   `json:"question"`
	Translation  string   `json:"translation"`
	Options      []string `json:"options"`
	AnswerIndex  int      `json:"answerIndex"`
	Explanation  string   `json:"explanation"`
	GrammarPoint string   `json:"grammarPoint"`
}

func (g *LLMGenerator) Generate(ctx context.Context, input GenerateInput) ([]Question, error) {
	if input.Count <= 0 {
		return nil, &ValidationError{Validator: "input", Message: "count must be positive"}
	}
	if g.config.MaxCount > 0 && input.Count > g.config.MaxCount {
		return nil, &ValidationError{
			Validator: "input",
			Message:   fmt.Sprintf("count %d exceeds the maximum of %d", input.Count, g.config.MaxCount),
		}
	}
	if input.Difficulty == "" {
		input.Difficulty = DifficultyMedium
	}

	ctx = llm.WithPurpose(ctx, "question-gen")

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(input, g.config)},
		},
		Schema:      QuestionSetSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	var raw questionSetOutput
	if err := json.Unmarshal([]byte(stripCodeFences(string(resp.Content))), &raw); err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("parse LLM response: %w", err)}
	}

	setID := uuid.NewString()[:8]
	questions := make([]Question, 0, len(raw.Questions))
	var rejected []error
	for i, out := range raw.Questions {
		q := Question{
			ID:           fmt.Sprintf("%s-%d", setID, i+1),
			Text:         strings.TrimSpace(out.Question),
			Translation:  strings.TrimSpace(out.Translation),
			Options:      out.Options,
			AnswerIndex:  out.AnswerIndex,
			Explanation:  out.Explanation,
			GrammarPoint: strings.TrimSpace(out.GrammarPoint),
			Difficulty:   input.Difficulty,
		}
		if verr := g.validate(&q, input); verr != nil {
			rejected = append(rejected, verr)
			continue
		}
		questions = append(questions, q)
		if len(questions) == input.Count {
			break
		}
	}

	if len(questions) == 0 {
		if len(rejected) == 0 {
			return nil, &GenerationError{Err: errors.New("LLM returned no questions")}
		}
		return nil, &GenerationError{Err: errors.Join(rejected...)}
	}

	return questions, nil
}

// validate runs the validator chain; the first failure stops it.
func (g *LLMGenerator) validate(q *Question, input GenerateInput) *ValidationError {
	for _, v := range g.config.Validators {
		if verr := v.Validate(q, input); verr != nil {
			return verr
		}
	}
	return nil
}
