package store

import (
	"context"
	"encoding/json"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// RecordRepo stores JSON documents under fixed keys.
type RecordRepo interface {
	// Get returns the stored value, or nil if key was never written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error
}

// SnapshotData is the payload of a restore point.
type SnapshotData struct {
	Version int             `json:"version"`
	Stats   json.RawMessage `json:"stats,omitempty"`
}

// Snapshot is a point-in-time copy of the learner's stats, taken before a
// destructive operation such as an import.
type Snapshot struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	Reason    string
	Data      SnapshotData
}

// SnapshotRepo manages restore points.
type SnapshotRepo interface {
	// Save stores a new snapshot. A zero Sequence is assigned from the
	// global counter.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or nil if none exist.
	Latest(ctx context.Context) (*Snapshot, error)

	// Delete removes the snapshot with the given ID.
	Delete(ctx context.Context, id int) error

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, keep int) error
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEventRecord is a stored LLM request event.
type LLMEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates LLM calls for one purpose label.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates LLM calls for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// AnswerEventData records one submitted answer.
type AnswerEventData struct {
	SessionID    string
	QuestionID   string
	GrammarPoint string
	QuestionText string
	ChosenIndex  int
	AnswerIndex  int
	Correct      bool
}

// TopicAccuracy aggregates answer events for one grammar point.
type TopicAccuracy struct {
	GrammarPoint string
	Attempted    int
	Correct      int
}

// Accuracy returns Correct/Attempted, zero when nothing was attempted.
func (t TopicAccuracy) Accuracy() float64 {
	if t.Attempted == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Attempted)
}

// Session actions.
const (
	SessionStart     = "start"
	SessionEnd       = "end"
	SessionCancelled = "cancelled"
)

// SessionEventData records a quiz session lifecycle transition.
type SessionEventData struct {
	SessionID       string
	Action          string
	Difficulty      string
	Topics          []string
	QuestionsServed int
	Answered        int
	CorrectAnswers  int
	DurationSecs    int
}

// SessionRecord is a stored session event.
type SessionRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	SessionEventData
}

// Backup actions.
const (
	BackupExport  = "export"
	BackupImport  = "import"
	BackupPush    = "push"
	BackupPull    = "pull"
	BackupRestore = "restore"
)

// BackupEventData records one export, import, push, pull or restore.
type BackupEventData struct {
	Action       string
	SyncID       string
	Success      bool
	ErrorMessage string
	WrongEntries int
	SavedEntries int
}

// BackupEventRecord is a stored backup event.
type BackupEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	BackupEventData
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns LLM events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error)

	// GetLLMEvent returns a single LLM event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error)

	// LLMUsageByPurpose aggregates token usage per purpose label.
	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)

	// LLMUsageByModel aggregates token usage per model.
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)

	// AppendAnswerEvent records a submitted answer.
	AppendAnswerEvent(ctx context.Context, data AnswerEventData) error

	// TopicAccuracy aggregates answer events per grammar point.
	TopicAccuracy(ctx context.Context) ([]TopicAccuracy, error)

	// AppendSessionEvent records a session lifecycle event.
	AppendSessionEvent(ctx context.Context, data SessionEventData) error

	// QuerySessionEvents returns session events, newest first.
	QuerySessionEvents(ctx context.Context, opts QueryOpts) ([]SessionRecord, error)

	// AppendBackupEvent records a backup operation.
	AppendBackupEvent(ctx context.Context, data BackupEventData) error

	// QueryBackupEvents returns backup events, newest first.
	QueryBackupEvents(ctx context.Context, opts QueryOpts) ([]BackupEventRecord, error)
}
