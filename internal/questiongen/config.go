package questiongen

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// Validators run in order on every generated question. A question that
	// fails any of them is dropped from the set.
	Validators []Validator

	// MaxTokens is the token budget for the LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxTopics caps how many focus topics are listed in the prompt.
	MaxTopics int

	// MaxCount caps the number of questions in a single request.
	MaxCount int
}

// DefaultConfig returns a Config with the standard validator chain.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&DuplicateOptionValidator{},
			&TopicValidator{},
		},
		MaxTokens:   4096,
		Temperature: 0.7,
		MaxTopics:   5,
		MaxCount:    20,
	}
}
