package questiongen

import "fmt"

// Question is one generated multiple-choice grammar item. It is never
// mutated after generation.
type Question struct {
	// ID identifies the question within the set it was generated in.
	ID string `json:"id"`

	// Text is the prompt shown to the student, usually a sentence with a blank.
	Text string `json:"question"`

	// Translation is an optional rendering of Text in the student's language.
	Translation string `json:"translation,omitempty"`

	// Options holds the answer choices in display order. At least two.
	Options []string `json:"options"`

	// AnswerIndex is the index into Options of the correct choice.
	AnswerIndex int `json:"answerIndex"`

	// Explanation is shown after the student answers.
	Explanation string `json:"explanation"`

	// GrammarPoint tags the concept being tested. Free-form, but the
	// generator is steered towards Taxonomy.
	GrammarPoint string `json:"grammarPoint"`

	Difficulty Difficulty `json:"difficulty,omitempty"`
}

// IsCorrect reports whether idx selects the correct option.
func (q Question) IsCorrect(idx int) bool {
	return idx == q.AnswerIndex
}

// Difficulty is the requested difficulty of a question set.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty converts a string into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	case "":
		return DifficultyMedium, nil
	}
	return "", fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", s)
}

// GenerateInput holds everything needed to request a question set.
type GenerateInput struct {
	// Count is the number of questions wanted. Must be positive.
	Count int

	// Topics narrows the set to these grammar points. Empty means the
	// generator picks freely from Taxonomy.
	Topics []string

	Difficulty Difficulty
}

// Taxonomy is the fixed list of grammar points the exam covers.
var Taxonomy = []string{
	"时态语态",
	"非谓语动词",
	"定语从句",
	"名词性从句",
	"状语从句",
	"虚拟语气",
	"情态动词",
	"冠词",
	"介词",
	"代词",
	"形容词副词",
	"连词",
	"倒装句",
	"强调句",
	"主谓一致",
	"固定搭配",
}
