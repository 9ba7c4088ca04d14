package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// snapshotRepo implements SnapshotRepo over the "snapshots" table.
type snapshotRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}

	if snap.Sequence == 0 {
		if snap.Sequence, err = r.seq.Next(ctx); err != nil {
			return err
		}
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	query, args := sqlite.Insert(SnapshotsTable.Name).
		Columns("sequence", "timestamp", "reason", "data").
		Values(snap.Sequence, snap.Timestamp, snap.Reason, string(data)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context) (*Snapshot, error) {
	sel := sqlite.Select("id", "sequence", "timestamp", "reason", "data").
		From(entsql.Table(SnapshotsTable.Name)).
		OrderBy(entsql.Desc("id")).
		Limit(1)

	var snap *Snapshot
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		var (
			s    Snapshot
			data []byte
		)
		if err := rows.Scan(&s.ID, &s.Sequence, &s.Timestamp, &s.Reason, &data); err != nil {
			return err
		}
		if err := json.Unmarshal(data, &s.Data); err != nil {
			return fmt.Errorf("unmarshal snapshot data: %w", err)
		}
		snap = &s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return snap, nil
}

func (r *snapshotRepo) Delete(ctx context.Context, id int) error {
	query, args := sqlite.Delete(SnapshotsTable.Name).
		Where(entsql.EQ("id", id)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("delete snapshot %d: %w", id, err)
	}
	return nil
}

func (r *snapshotRepo) Prune(ctx context.Context, keep int) error {
	// Find the newest snapshot that falls outside the keep window.
	sel := sqlite.Select("id").
		From(entsql.Table(SnapshotsTable.Name)).
		OrderBy(entsql.Desc("id")).
		Offset(keep).
		Limit(1)

	threshold := 0
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		return rows.Scan(&threshold)
	})
	if err != nil {
		return fmt.Errorf("query snapshots for prune: %w", err)
	}
	if threshold == 0 {
		return nil // fewer than keep snapshots exist
	}

	query, args := sqlite.Delete(SnapshotsTable.Name).
		Where(entsql.LTE("id", threshold)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
