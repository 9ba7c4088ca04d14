package tutor

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a patient English grammar tutor helping a Chinese high-school student review a multiple-choice question they just answered.

Answer in Chinese unless the student writes in English. Keep replies short (under 150 words), focus on the grammar rule being tested, and give one extra example sentence when it helps. Do not invent a different correct answer than the one given.`

// buildContextMessage describes the question the thread is about.
func buildContextMessage(qc QuestionContext) string {
	q := qc.Question
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n", q.Text)
	if q.Translation != "" {
		fmt.Fprintf(&b, "Translation: %s\n", q.Translation)
	}
	b.WriteString("Options:\n")
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%c. %s\n", 'A'+i, opt)
	}
	fmt.Fprintf(&b, "Correct answer: %s\n", optionLabel(q.Options, q.AnswerIndex))
	fmt.Fprintf(&b, "Student chose: %s\n", optionLabel(q.Options, qc.ChosenIndex))
	fmt.Fprintf(&b, "Grammar point: %s\n", q.GrammarPoint)
	fmt.Fprintf(&b, "Explanation already shown: %s", q.Explanation)

	return b.String()
}

func optionLabel(options []string, idx int) string {
	if idx < 0 || idx >= len(options) {
		return "(none)"
	}
	return fmt.Sprintf("%c. %s", 'A'+idx, options[idx])
}
