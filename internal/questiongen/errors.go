package questiongen

import "fmt"

// ValidationError describes why a request or a generated question was rejected.
type ValidationError struct {
	Validator string // Name of the validator that failed ("input" for bad requests)
	Message   string
	Retryable bool // Whether regeneration is likely to fix this
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// GenerationError wraps any failure to produce a question set: transport,
// auth, timeout, unparseable output or a failed validator.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("question generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
