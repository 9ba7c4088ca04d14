package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendAnswerEvent(ctx context.Context, data AnswerEventData) error {
	err := r.appendEvent(ctx, AnswerEventsTable.Name,
		[]string{
			"session_id", "question_id", "grammar_point", "question_text",
			"chosen_index", "answer_index", "correct",
		},
		[]any{
			data.SessionID, data.QuestionID, data.GrammarPoint, data.QuestionText,
			data.ChosenIndex, data.AnswerIndex, data.Correct,
		},
	)
	if err != nil {
		return fmt.Errorf("save answer event: %w", err)
	}
	return nil
}

func (r *eventRepo) TopicAccuracy(ctx context.Context) ([]TopicAccuracy, error) {
	sel := sqlite.Select(
		"grammar_point",
		entsql.As(entsql.Count("*"), "attempted"),
		entsql.As(entsql.Sum("correct"), "correct"),
	).
		From(entsql.Table(AnswerEventsTable.Name)).
		GroupBy("grammar_point").
		OrderBy("grammar_point")

	var out []TopicAccuracy
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		var t TopicAccuracy
		if err := rows.Scan(&t.GrammarPoint, &t.Attempted, &t.Correct); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query topic accuracy: %w", err)
	}
	return out, nil
}
