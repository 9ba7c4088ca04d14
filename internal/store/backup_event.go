package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendBackupEvent(ctx context.Context, data BackupEventData) error {
	err := r.appendEvent(ctx, BackupEventsTable.Name,
		[]string{"action", "sync_id", "success", "error_message", "wrong_entries", "saved_entries"},
		[]any{data.Action, data.SyncID, data.Success, data.ErrorMessage, data.WrongEntries, data.SavedEntries},
	)
	if err != nil {
		return fmt.Errorf("save backup event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryBackupEvents(ctx context.Context, opts QueryOpts) ([]BackupEventRecord, error) {
	sel := sqlite.Select(
		"id", "sequence", "timestamp", "action", "sync_id", "success",
		"error_message", "wrong_entries", "saved_entries",
	).From(entsql.Table(BackupEventsTable.Name))
	applyQueryOpts(sel, opts)

	var out []BackupEventRecord
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		var b BackupEventRecord
		err := rows.Scan(
			&b.ID, &b.Sequence, &b.Timestamp, &b.Action, &b.SyncID, &b.Success,
			&b.ErrorMessage, &b.WrongEntries, &b.SavedEntries,
		)
		if err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query backup events: %w", err)
	}
	return out, nil
}
