package stats

import (
	"time"

	"github.com/abhisek/grammiz/internal/questiongen"
)

// DayKeyLayout formats the keys of DailyStats.
const DayKeyLayout = "2006-01-02"

// WrongQuestion is a question together with the student's chosen option and
// the time it was recorded. Entries are identified by (Text, Timestamp).
type WrongQuestion struct {
	questiongen.Question

	UserAnswerIndex int `json:"userAnswerIndex"`

	// Timestamp is the logical event time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Time returns Timestamp as a time.Time.
func (w WrongQuestion) Time() time.Time {
	return time.UnixMilli(w.Timestamp)
}

// DayRecord holds the attempted/correct counters for one calendar day.
type DayRecord struct {
	Attempted int `json:"attempted"`
	Correct   int `json:"correct"`
}

// DailyStats maps a YYYY-MM-DD key to that day's record.
type DailyStats map[string]*DayRecord

// GetOrCreate returns the record for key, creating an empty one on first use.
func (d DailyStats) GetOrCreate(key string) *DayRecord {
	rec, ok := d[key]
	if !ok || rec == nil {
		rec = &DayRecord{}
		d[key] = rec
	}
	return rec
}

// Get returns the record for key, or a zero record when the day has no
// activity. The result is a copy.
func (d DailyStats) Get(key string) DayRecord {
	if rec, ok := d[key]; ok && rec != nil {
		return *rec
	}
	return DayRecord{}
}

// UserStats is the durable per-device aggregate of quiz outcomes.
type UserStats struct {
	WrongCounts  TopicCounts     `json:"wrongCounts"`
	WrongHistory []WrongQuestion `json:"wrongHistory"`
	SavedHistory []WrongQuestion `json:"savedHistory"`

	TotalQuestionsAttempted int `json:"totalQuestionsAttempted"`
	TotalCorrectAnswers     int `json:"totalCorrectAnswers"`

	// TotalStudyTime is accumulated session time in seconds.
	TotalStudyTime int64 `json:"totalStudyTime"`

	DailyStats DailyStats `json:"dailyStats"`

	SyncID       string `json:"syncId,omitempty"`
	LastSyncTime int64  `json:"lastSyncTime,omitempty"`
}

// Empty returns a UserStats ready for use.
func Empty() UserStats {
	return UserStats{
		WrongHistory: []WrongQuestion{},
		SavedHistory: []WrongQuestion{},
		DailyStats:   DailyStats{},
	}
}

// Clone returns a deep copy of s.
func (s UserStats) Clone() UserStats {
	out := s
	out.WrongCounts = s.WrongCounts.Clone()
	out.WrongHistory = cloneHistory(s.WrongHistory)
	out.SavedHistory = cloneHistory(s.SavedHistory)
	out.DailyStats = make(DailyStats, len(s.DailyStats))
	for k, v := range s.DailyStats {
		if v == nil {
			continue
		}
		rec := *v
		out.DailyStats[k] = &rec
	}
	return out
}

// normalize replaces nil collections so callers never see nil slices/maps.
func (s *UserStats) normalize() {
	if s.WrongHistory == nil {
		s.WrongHistory = []WrongQuestion{}
	}
	if s.SavedHistory == nil {
		s.SavedHistory = []WrongQuestion{}
	}
	if s.DailyStats == nil {
		s.DailyStats = DailyStats{}
	}
}

func cloneHistory(in []WrongQuestion) []WrongQuestion {
	out := make([]WrongQuestion, len(in))
	for i, w := range in {
		w.Options = append([]string(nil), w.Options...)
		out[i] = w
	}
	return out
}

// List names one of the two question histories.
type List string

const (
	ListWrong List = "wrong"
	ListSaved List = "saved"
)

// ParseList converts a CLI/user string into a List.
func ParseList(s string) (List, bool) {
	switch List(s) {
	case ListWrong, ListSaved:
		return List(s), true
	}
	return "", false
}

// ClearTarget names the history emptied by Clear.
type ClearTarget string

const (
	// ClearDetails empties the wrong-answer history.
	ClearDetails ClearTarget = "details"
	// ClearSaved empties the saved (starred) history.
	ClearSaved ClearTarget = "saved"
)
