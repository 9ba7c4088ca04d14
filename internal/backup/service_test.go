package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/grammiz/internal/questiongen"
	"github.com/abhisek/grammiz/internal/stats"
	"github.com/abhisek/grammiz/internal/store"
)

type fixture struct {
	db    *store.Store
	stats *stats.Store
	svc   *Service
	kv    *kvServer
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()
	db, err := store.Open("file:backup_" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := log.New(io.Discard)
	st := stats.NewStore(stats.NewRecordPersister(db.RecordRepo()), stats.WithLogger(logger))
	require.NoError(t, st.Load(context.Background()))

	kv, srv := newKVServer(t)
	svc := NewService(st, db.SnapshotRepo(),
		WithRemote(NewClient(srv.URL+"/grammiz", WithHTTPClient(srv.Client()))),
		WithEvents(db.EventRepo()),
		WithServiceLogger(logger),
		WithServiceClock(func() time.Time { return exportTime }),
		WithRand(bytes.NewReader([]byte{2, 3, 4, 5, 6, 7})),
	)
	return &fixture{db: db, stats: st, svc: svc, kv: kv}
}

func answerWrong(st *stats.Store, text, topic string) {
	st.RecordAnswer(questiongen.Question{
		Text:         text,
		Options:      []string{"a", "b"},
		AnswerIndex:  0,
		GrammarPoint: topic,
	}, 1, false)
}

func TestServiceExportImport(t *testing.T) {
	f := newFixture(t, "export_import")
	ctx := context.Background()

	answerWrong(f.stats, "one", "冠词")
	answerWrong(f.stats, "two", "介词")
	code, err := f.svc.Export(ctx)
	require.NoError(t, err)

	f.stats.Clear(stats.ClearDetails)
	answerWrong(f.stats, "three", "连词")

	merged, err := f.svc.Import(ctx, code)
	require.NoError(t, err)
	assert.Len(t, merged.WrongHistory, 2)
	assert.Equal(t, []string{"冠词", "介词"}, f.stats.SelectWeakTopics(0))

	// The pre-import state is kept as a restore point.
	restored, err := f.svc.Restore(ctx)
	require.NoError(t, err)
	require.Len(t, restored.WrongHistory, 1)
	assert.Equal(t, "three", restored.WrongHistory[0].Text)
	assert.Equal(t, []string{"冠词", "介词", "连词"}, f.stats.SelectWeakTopics(0), "counts survive a history clear")

	_, err = f.svc.Restore(ctx)
	assert.ErrorIs(t, err, ErrNoRestorePoint)

	events, err := f.db.EventRepo().QueryBackupEvents(ctx, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, store.BackupRestore, events[0].Action)
	assert.False(t, events[0].Success)
	assert.Equal(t, store.BackupExport, events[3].Action)
	assert.True(t, events[3].Success)
}

func TestServiceImportInvalidCodeLeavesStatsAlone(t *testing.T) {
	f := newFixture(t, "import_invalid")
	ctx := context.Background()

	answerWrong(f.stats, "one", "冠词")
	before := f.stats.Snapshot()

	_, err := f.svc.Import(ctx, "not a code")
	var de *DecodeError
	require.ErrorAs(t, err, &de)

	after := f.stats.Snapshot()
	assert.Equal(t, before.TotalQuestionsAttempted, after.TotalQuestionsAttempted)
	assert.Len(t, after.WrongHistory, 1)

	snap, err := f.db.SnapshotRepo().Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap, "no restore point for a failed import")
}

func TestServicePushPull(t *testing.T) {
	f := newFixture(t, "push_pull")
	ctx := context.Background()

	answerWrong(f.stats, "one", "时态语态")
	id, err := f.svc.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, "CDEFGH", id)
	_, stored := f.kv.get(id)
	assert.True(t, stored)

	snap := f.stats.Snapshot()
	assert.Equal(t, id, snap.SyncID)
	assert.Equal(t, exportTime.UnixMilli(), snap.LastSyncTime)

	// A second push reuses the assigned id.
	id2, err := f.svc.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.Equal(t, 2, f.kv.putCount())

	f.stats.Clear(stats.ClearDetails)
	pulled, err := f.svc.Pull(ctx, " cdefgh ")
	require.NoError(t, err)
	assert.Len(t, pulled.WrongHistory, 1)
	assert.Equal(t, id, pulled.SyncID)
}

func TestServicePullErrors(t *testing.T) {
	f := newFixture(t, "pull_errors")
	ctx := context.Background()

	_, err := f.svc.Pull(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Pull(ctx, "bad")
	var de *DecodeError
	assert.ErrorAs(t, err, &de)

	f.kv.set("YYYYYY", "%%% garbage")
	_, err = f.svc.Pull(ctx, "YYYYYY")
	assert.ErrorAs(t, err, &de)

	snap, err := f.db.SnapshotRepo().Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

type failingRemote struct{ err error }

func (r failingRemote) Put(context.Context, string, string) error { return r.err }
func (r failingRemote) Get(context.Context, string) (string, error) {
	return "", r.err
}

func TestServicePushFailureKeepsLocalState(t *testing.T) {
	f := newFixture(t, "push_failure")
	boom := &HTTPError{Method: "PUT", StatusCode: 500}
	f.svc.remote = failingRemote{err: boom}

	_, err := f.svc.Push(context.Background())
	assert.True(t, errors.Is(err, boom))
	assert.Empty(t, f.stats.Snapshot().SyncID)
}

func TestServiceWithoutRemote(t *testing.T) {
	f := newFixture(t, "no_remote")
	f.svc.remote = nil

	_, err := f.svc.Push(context.Background())
	assert.ErrorIs(t, err, ErrNoEndpoint)
	_, err = f.svc.Pull(context.Background(), "ABC234")
	assert.ErrorIs(t, err, ErrNoEndpoint)
}
