package questiongen

import "github.com/abhisek/grammiz/internal/llm"

// QuestionSetSchema defines the JSON the LLM must return for a question set.
var QuestionSetSchema = &llm.Schema{
	Name:        "grammar-question-set",
	Description: "A set of multiple-choice English grammar questions with answers and explanations",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question sentence, with ____ marking the blank",
						},
						"translation": map[string]any{
							"type":        "string",
							"description": "Chinese translation of the complete sentence",
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Exactly 4 answer choices, without letter prefixes",
						},
						"answerIndex": map[string]any{
							"type":        "integer",
							"minimum":     0,
							"maximum":     3,
							"description": "Zero-based index of the correct option",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Why the answer is correct and the distractors are wrong, in Chinese",
						},
						"grammarPoint": map[string]any{
							"type":        "string",
							"description": "The grammar point tested, chosen from the provided list",
						},
					},
					"required":             []any{"question", "translation", "options", "answerIndex", "explanation", "grammarPoint"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
