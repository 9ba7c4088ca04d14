package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abhisek/grammiz/internal/stats"
	"github.com/abhisek/grammiz/internal/store"
)

// SnapshotVersion is the SnapshotData version written by restore points.
const SnapshotVersion = 1

// KeepSnapshots is how many restore points survive after a new one is taken.
const KeepSnapshots = 5

// ErrNoRestorePoint is returned by Restore when nothing was saved.
var ErrNoRestorePoint = errors.New("no restore point available")

// Service runs export, import and remote sync against the stats store.
// Every operation that replaces local stats first saves a restore point.
type Service struct {
	stats     *stats.Store
	snapshots store.SnapshotRepo
	events    store.EventRepo
	remote    Remote
	logger    *log.Logger
	now       func() time.Time
	rand      io.Reader
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRemote sets the remote blob store used by Push and Pull.
func WithRemote(r Remote) ServiceOption {
	return func(s *Service) { s.remote = r }
}

// WithEvents records every operation in the backup event log.
func WithEvents(repo store.EventRepo) ServiceOption {
	return func(s *Service) { s.events = repo }
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l *log.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithServiceClock overrides the time source.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithRand sets the randomness source for new sync IDs.
func WithRand(r io.Reader) ServiceOption {
	return func(s *Service) { s.rand = r }
}

// NewService creates a Service.
func NewService(st *stats.Store, snapshots store.SnapshotRepo, opts ...ServiceOption) *Service {
	s := &Service{
		stats:     st,
		snapshots: snapshots,
		logger:    log.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export returns the backup code for the current stats.
func (s *Service) Export(ctx context.Context) (string, error) {
	snap := s.stats.Snapshot()
	code, err := Encode(snap, s.now())
	s.record(ctx, store.BackupExport, snap.SyncID, snap, err)
	return code, err
}

// Import replaces local stats with the decoded code. A code that fails to
// decode leaves local stats untouched.
func (s *Service) Import(ctx context.Context, code string) (stats.UserStats, error) {
	imported, err := Decode(code)
	if err != nil {
		s.record(ctx, store.BackupImport, "", stats.UserStats{}, err)
		return stats.UserStats{}, err
	}
	if err := s.saveRestorePoint(ctx, "import"); err != nil {
		s.record(ctx, store.BackupImport, imported.SyncID, imported, err)
		return stats.UserStats{}, err
	}
	merged := s.stats.Merge(imported)
	s.record(ctx, store.BackupImport, merged.SyncID, merged, nil)
	return merged, nil
}

// Push uploads the current stats, assigning a sync ID on first use.
func (s *Service) Push(ctx context.Context) (string, error) {
	if s.remote == nil {
		return "", ErrNoEndpoint
	}

	snap := s.stats.Snapshot()
	id := snap.SyncID
	if !ValidSyncID(id) {
		var err error
		if id, err = NewSyncID(s.rand); err != nil {
			return "", err
		}
		snap.SyncID = id
	}

	now := s.now()
	err := func() error {
		code, err := Encode(snap, now)
		if err != nil {
			return err
		}
		return s.remote.Put(ctx, id, code)
	}()
	s.record(ctx, store.BackupPush, id, snap, err)
	if err != nil {
		return "", err
	}

	s.stats.MarkSynced(id, now)
	return id, nil
}

// Pull downloads the stats stored under id and replaces local stats with
// them. Nothing changes locally if the download or decode fails.
func (s *Service) Pull(ctx context.Context, id string) (stats.UserStats, error) {
	if s.remote == nil {
		return stats.UserStats{}, ErrNoEndpoint
	}
	id = NormalizeSyncID(id)
	if !ValidSyncID(id) {
		err := &DecodeError{Reason: fmt.Sprintf("malformed sync id %q", id)}
		s.record(ctx, store.BackupPull, id, stats.UserStats{}, err)
		return stats.UserStats{}, err
	}

	pulled, err := func() (stats.UserStats, error) {
		code, err := s.remote.Get(ctx, id)
		if err != nil {
			return stats.UserStats{}, err
		}
		pulled, err := Decode(code)
		if err != nil {
			return stats.UserStats{}, err
		}
		return pulled, s.saveRestorePoint(ctx, "pull")
	}()
	if err != nil {
		s.record(ctx, store.BackupPull, id, stats.UserStats{}, err)
		return stats.UserStats{}, err
	}

	s.stats.Merge(pulled)
	s.stats.MarkSynced(id, s.now())
	merged := s.stats.Snapshot()
	s.record(ctx, store.BackupPull, id, merged, nil)
	return merged, nil
}

// Restore reverts local stats to the latest restore point and consumes it.
func (s *Service) Restore(ctx context.Context) (stats.UserStats, error) {
	restored, err := func() (stats.UserStats, error) {
		snap, err := s.snapshots.Latest(ctx)
		if err != nil {
			return stats.UserStats{}, err
		}
		if snap == nil || len(snap.Data.Stats) == 0 {
			return stats.UserStats{}, ErrNoRestorePoint
		}
		var us stats.UserStats
		if err := json.Unmarshal(snap.Data.Stats, &us); err != nil {
			return stats.UserStats{}, fmt.Errorf("decode restore point: %w", err)
		}
		merged := s.stats.Merge(us)
		if err := s.snapshots.Delete(ctx, snap.ID); err != nil {
			s.logger.Warn("delete restore point", "id", snap.ID, "err", err)
		}
		return merged, nil
	}()
	s.record(ctx, store.BackupRestore, restored.SyncID, restored, err)
	return restored, err
}

func (s *Service) saveRestorePoint(ctx context.Context, reason string) error {
	current := s.stats.Snapshot()
	b, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode restore point: %w", err)
	}
	snap := &store.Snapshot{
		Timestamp: s.now().UTC(),
		Reason:    reason,
		Data:      store.SnapshotData{Version: SnapshotVersion, Stats: b},
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("save restore point: %w", err)
	}
	if err := s.snapshots.Prune(ctx, KeepSnapshots); err != nil {
		s.logger.Warn("prune restore points", "err", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action, syncID string, us stats.UserStats, opErr error) {
	if opErr != nil {
		s.logger.Warn("backup failed", "action", action, "sync_id", syncID, "err", opErr)
	} else {
		s.logger.Info("backup", "action", action, "sync_id", syncID)
	}
	if s.events == nil {
		return
	}

	data := store.BackupEventData{
		Action:       action,
		SyncID:       syncID,
		Success:      opErr == nil,
		WrongEntries: len(us.WrongHistory),
		SavedEntries: len(us.SavedHistory),
	}
	if opErr != nil {
		data.ErrorMessage = opErr.Error()
	}
	if err := s.events.AppendBackupEvent(context.WithoutCancel(ctx), data); err != nil {
		s.logger.Warn("record backup event", "err", err)
	}
}
