package questiongen

import (
	"fmt"
	"slices"
	"strings"
)

// Validator checks a generated question.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier used in error messages.
	Name() string

	// Validate returns nil if q passes.
	Validate(q *Question, input GenerateInput) *ValidationError
}

// StructuralValidator checks that required fields are present, within
// length limits, and that AnswerIndex points at an option.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *Question, _ GenerateInput) *ValidationError {
	fail := func(msg string) *ValidationError {
		return &ValidationError{Validator: v.Name(), Message: msg, Retryable: true}
	}

	if strings.TrimSpace(q.Text) == "" {
		return fail("question is empty")
	}
	if len(q.Text) > 600 {
		return fail("question exceeds 600 characters")
	}
	if len(q.Options) < 2 {
		return fail(fmt.Sprintf("need at least 2 options, got %d", len(q.Options)))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fail(fmt.Sprintf("option %d is empty", i))
		}
	}
	if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
		return fail(fmt.Sprintf("answerIndex %d out of range for %d options", q.AnswerIndex, len(q.Options)))
	}
	if strings.TrimSpace(q.Explanation) == "" {
		return fail("explanation is empty")
	}
	if strings.TrimSpace(q.GrammarPoint) == "" {
		return fail("grammarPoint is empty")
	}
	return nil
}

// DuplicateOptionValidator rejects questions whose options repeat, which
// would make the correct answer ambiguous.
type DuplicateOptionValidator struct{}

func (v *DuplicateOptionValidator) Name() string { return "duplicate-option" }

func (v *DuplicateOptionValidator) Validate(q *Question, _ GenerateInput) *ValidationError {
	seen := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		key := strings.ToLower(strings.TrimSpace(opt))
		if seen[key] {
			return &ValidationError{
				Validator: v.Name(),
				Message:   fmt.Sprintf("option %q appears twice", opt),
				Retryable: true,
			}
		}
		seen[key] = true
	}
	return nil
}

// TopicValidator rejects questions outside the requested topics. Requests
// without topics accept anything.
type TopicValidator struct{}

func (v *TopicValidator) Name() string { return "topic" }

func (v *TopicValidator) Validate(q *Question, input GenerateInput) *ValidationError {
	if len(input.Topics) == 0 {
		return nil
	}
	if slices.Contains(input.Topics, q.GrammarPoint) {
		return nil
	}
	return &ValidationError{
		Validator: v.Name(),
		Message:   fmt.Sprintf("grammarPoint %q not among requested topics", q.GrammarPoint),
		Retryable: true,
	}
}
