package stats

import (
	"context"
	"encoding/json"
	"fmt"
)

// RecordKey is the storage key of the single stats record.
const RecordKey = "grammiz.user_stats"

// RecordStore is a key/value document store, such as store.RecordRepo.
type RecordStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// RecordPersister saves the full, untruncated UserStats as one JSON document
// under RecordKey.
type RecordPersister struct {
	records RecordStore
}

// NewRecordPersister returns a Persister backed by records.
func NewRecordPersister(records RecordStore) *RecordPersister {
	return &RecordPersister{records: records}
}

func (p *RecordPersister) Load(ctx context.Context) (*UserStats, error) {
	b, err := p.records.Get(ctx, RecordKey)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	var s UserStats
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode stats record: %w", err)
	}
	return &s, nil
}

func (p *RecordPersister) Save(ctx context.Context, s *UserStats) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode stats record: %w", err)
	}
	return p.records.Put(ctx, RecordKey, b)
}
