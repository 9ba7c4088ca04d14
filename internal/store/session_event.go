package store

import (
	"context"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendSessionEvent(ctx context.Context, data SessionEventData) error {
	topics, err := json.Marshal(data.Topics)
	if err != nil {
		return fmt.Errorf("marshal session topics: %w", err)
	}

	err = r.appendEvent(ctx, SessionEventsTable.Name,
		[]string{
			"session_id", "action", "difficulty", "topics",
			"questions_served", "answered", "correct_answers", "duration_secs",
		},
		[]any{
			data.SessionID, data.Action, data.Difficulty, string(topics),
			data.QuestionsServed, data.Answered, data.CorrectAnswers, data.DurationSecs,
		},
	)
	if err != nil {
		return fmt.Errorf("save session event: %w", err)
	}
	return nil
}

func (r *eventRepo) QuerySessionEvents(ctx context.Context, opts QueryOpts) ([]SessionRecord, error) {
	sel := sqlite.Select(
		"id", "sequence", "timestamp", "session_id", "action", "difficulty", "topics",
		"questions_served", "answered", "correct_answers", "duration_secs",
	).From(entsql.Table(SessionEventsTable.Name))
	applyQueryOpts(sel, opts)

	var out []SessionRecord
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		var (
			s      SessionRecord
			topics []byte
		)
		err := rows.Scan(
			&s.ID, &s.Sequence, &s.Timestamp, &s.SessionID, &s.Action, &s.Difficulty, &topics,
			&s.QuestionsServed, &s.Answered, &s.CorrectAnswers, &s.DurationSecs,
		)
		if err != nil {
			return err
		}
		if len(topics) > 0 {
			if err := json.Unmarshal(topics, &s.Topics); err != nil {
				return fmt.Errorf("unmarshal topics: %w", err)
			}
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	return out, nil
}
