package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abhisek/grammiz/internal/questiongen"
)

// Store owns the single UserStats aggregate for this device. Every mutation
// is written through to the Persister before the call returns.
type Store struct {
	persister Persister
	logger    *log.Logger
	now       func() time.Time

	mu           sync.Mutex
	stats        UserStats
	lastWriteErr error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and day keys.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used to warn about failed writes.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a Store with empty stats. Call Load to hydrate it.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		persister: p,
		logger:    log.Default(),
		now:       time.Now,
		stats:     Empty(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory stats with the persisted ones. A store with
// nothing persisted starts empty.
func (s *Store) Load(ctx context.Context) error {
	loaded, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if loaded == nil {
		s.stats = Empty()
		return nil
	}
	loaded.normalize()
	s.stats = *loaded
	return nil
}

// Snapshot returns a deep copy of the current stats.
func (s *Store) Snapshot() UserStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.Clone()
}

// LastWriteError returns the most recent *StorageWriteError, or nil if the
// last write succeeded.
func (s *Store) LastWriteError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWriteErr
}

// RecordAnswer counts one submitted answer. Wrong answers bump the topic's
// miss count and are pushed to the front of the wrong history.
func (s *Store) RecordAnswer(q questiongen.Question, chosen int, correct bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.stats.TotalQuestionsAttempted++
	day := s.stats.DailyStats.GetOrCreate(now.Format(DayKeyLayout))
	day.Attempted++

	if correct {
		s.stats.TotalCorrectAnswers++
		day.Correct++
	} else {
		s.stats.WrongCounts.Add(q.GrammarPoint, 1)
		entry := WrongQuestion{Question: q, UserAnswerIndex: chosen, Timestamp: now.UnixMilli()}
		s.stats.WrongHistory = prepend(s.stats.WrongHistory, entry)
	}

	s.persistLocked()
}

// ToggleSaved stars or un-stars a question, matching on its exact text.
// It reports whether the question is saved after the call.
func (s *Store) ToggleSaved(q questiongen.Question, chosen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := true
	if i := indexByText(s.stats.SavedHistory, q.Text); i >= 0 {
		s.stats.SavedHistory = removeAt(s.stats.SavedHistory, i)
		saved = false
	} else {
		entry := WrongQuestion{Question: q, UserAnswerIndex: chosen, Timestamp: s.now().UnixMilli()}
		s.stats.SavedHistory = prepend(s.stats.SavedHistory, entry)
	}

	s.persistLocked()
	return saved
}

// IsSaved reports whether a question with this text is in the saved list.
func (s *Store) IsSaved(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexByText(s.stats.SavedHistory, text) >= 0
}

// DeleteEntry removes the first entry of list matching both timestamp and
// text. Deleting a missing entry is a no-op. Miss counts are left alone.
func (s *Store) DeleteEntry(list List, timestamp int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := s.historyLocked(list)
	if hist == nil {
		return
	}
	for i, w := range *hist {
		if w.Timestamp == timestamp && w.Text == text {
			*hist = removeAt(*hist, i)
			s.persistLocked()
			return
		}
	}
}

// Clear empties one history. Miss counts and the other history are kept.
func (s *Store) Clear(target ClearTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch target {
	case ClearDetails:
		s.stats.WrongHistory = []WrongQuestion{}
	case ClearSaved:
		s.stats.SavedHistory = []WrongQuestion{}
	default:
		return
	}
	s.persistLocked()
}

// SelectWeakTopics returns up to limit topics with the highest miss counts.
func (s *Store) SelectWeakTopics(limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SelectWeakTopics(s.stats.WrongCounts, limit)
}

// Merge replaces the whole aggregate with imported (last write wins) and
// returns the new state.
func (s *Store) Merge(imported UserStats) UserStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := imported.Clone()
	next.normalize()
	s.stats = next
	s.persistLocked()
	return s.stats.Clone()
}

// AddStudyTime accumulates time spent in a session.
func (s *Store) AddStudyTime(d time.Duration) {
	secs := int64(d / time.Second)
	if secs <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalStudyTime += secs
	s.persistLocked()
}

// MarkSynced records the remote backup id and time of the last sync.
func (s *Store) MarkSynced(syncID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.SyncID = syncID
	s.stats.LastSyncTime = at.UnixMilli()
	s.persistLocked()
}

// Accuracy returns the overall fraction of correct answers.
func (s *Store) Accuracy() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats.TotalQuestionsAttempted == 0 {
		return 0
	}
	return float64(s.stats.TotalCorrectAnswers) / float64(s.stats.TotalQuestionsAttempted)
}

// Today returns today's counters.
func (s *Store) Today() DayRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.DailyStats.Get(s.now().Format(DayKeyLayout))
}

func (s *Store) historyLocked(list List) *[]WrongQuestion {
	switch list {
	case ListWrong:
		return &s.stats.WrongHistory
	case ListSaved:
		return &s.stats.SavedHistory
	}
	return nil
}

// persistLocked writes the current stats. A failed write is logged and kept
// for LastWriteError; it never rolls back the in-memory state.
func (s *Store) persistLocked() {
	snapshot := s.stats.Clone()
	if err := s.persister.Save(context.Background(), &snapshot); err != nil {
		werr := &StorageWriteError{Err: err}
		s.lastWriteErr = werr
		s.logger.Warn("stats not saved; keeping in-memory copy", "err", err)
		return
	}
	s.lastWriteErr = nil
}

// IsStorageWriteError reports whether err is a failed durable write.
func IsStorageWriteError(err error) bool {
	var werr *StorageWriteError
	return errors.As(err, &werr)
}

func prepend(hist []WrongQuestion, w WrongQuestion) []WrongQuestion {
	out := make([]WrongQuestion, 0, len(hist)+1)
	out = append(out, w)
	return append(out, hist...)
}

func removeAt(hist []WrongQuestion, i int) []WrongQuestion {
	out := make([]WrongQuestion, 0, len(hist)-1)
	out = append(out, hist[:i]...)
	return append(out, hist[i+1:]...)
}

func indexByText(hist []WrongQuestion, text string) int {
	for i, w := range hist {
		if w.Text == text {
			return i
		}
	}
	return -1
}
