package questiongen

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an English teacher writing grammar practice for Chinese high-school students preparing for the gaokao.

Rules:
- Generate exactly the requested number of single-blank multiple-choice questions.
- Each question has exactly 4 options and exactly one correct answer. Distractors should reflect common student mistakes.
- Mark the blank with ____ and keep each sentence natural and self-contained.
- The translation is the full sentence in Chinese with the correct answer filled in.
- The explanation is in Chinese and says why the answer is right and why the other options are wrong.
- grammarPoint must be one of the listed grammar points.
- Match the requested difficulty: easy is textbook usage, medium mixes two rules, hard uses exam-style traps.
- Do not repeat a sentence within the set.`

// buildUserMessage constructs the user message for a GenerateInput.
func buildUserMessage(input GenerateInput, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Number of questions: %d\n", input.Count)
	fmt.Fprintf(&b, "Difficulty: %s\n", input.Difficulty)

	b.WriteString("\nFocus on these grammar points:\n")
	b.WriteString(buildTopics(input.Topics, cfg.MaxTopics))

	b.WriteString("\n\nAllowed grammar points:\n")
	b.WriteString(strings.Join(Taxonomy, ", "))

	return b.String()
}

// buildTopics formats the focus topics, keeping at most max of them.
func buildTopics(topics []string, max int) string {
	if len(topics) == 0 {
		return "Any (mix them)"
	}
	if max > 0 && len(topics) > max {
		topics = topics[:max]
	}

	var b strings.Builder
	for i, t := range topics {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	return strings.TrimRight(b.String(), "\n")
}

// stripCodeFences removes a surrounding markdown code fence, which some
// models add even when asked for bare JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
