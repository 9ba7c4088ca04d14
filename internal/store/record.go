package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// recordRepo implements RecordRepo over the "records" table.
type recordRepo struct {
	drv *entsql.Driver
}

func (r *recordRepo) Get(ctx context.Context, key string) ([]byte, error) {
	sel := sqlite.Select("value").
		From(entsql.Table(RecordsTable.Name)).
		Where(entsql.EQ("key", key)).
		Limit(1)

	var value []byte
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		return rows.Scan(&value)
	})
	if err != nil {
		return nil, fmt.Errorf("get record %q: %w", key, err)
	}
	return value, nil
}

func (r *recordRepo) Put(ctx context.Context, key string, value []byte) error {
	query, args := sqlite.Insert(RecordsTable.Name).
		Columns("key", "value", "updated_at").
		Values(key, string(value), time.Now().UTC()).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("put record %q: %w", key, err)
	}
	return nil
}
