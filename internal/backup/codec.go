// Package backup converts user stats to and from the compact backup code
// used for manual copy-paste and remote sync.
package backup

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/grammiz/internal/stats"
)

// Transport caps. Entries beyond these are dropped on export.
const (
	MaxWrongEntries = 50
	MaxSavedEntries = 30
)

// FormatVersion is written into every code.
const FormatVersion = 1

// envelope is the transport structure. Keys are short to keep codes small.
type envelope struct {
	Version    int               `json:"v"`
	SyncID     string            `json:"id,omitempty"`
	ExportedAt int64             `json:"t"`
	Counts     stats.TopicCounts `json:"c"`
	Wrong      []entry           `json:"w"`
	Saved      []entry           `json:"s"`
	Attempted  int               `json:"tq,omitempty"`
	Correct    int               `json:"tc,omitempty"`
	StudyTime  int64             `json:"st,omitempty"`
	Daily      stats.DailyStats  `json:"d,omitempty"`
	LastSync   int64             `json:"ls,omitempty"`
}

// entry is a WrongQuestion flattened to the tuple
// [question, options, answerIndex, explanation, grammarPoint, userAnswerIndex, timestamp].
type entry stats.WrongQuestion

func (e entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		e.Text,
		e.Options,
		e.AnswerIndex,
		e.Explanation,
		e.GrammarPoint,
		e.UserAnswerIndex,
		e.Timestamp,
	})
}

// UnmarshalJSON decodes a tuple leniently: a short tuple or a field of the
// wrong type leaves that field zero.
func (e *entry) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	field := func(i int, v any) {
		if i < len(fields) {
			_ = json.Unmarshal(fields[i], v)
		}
	}

	*e = entry{}
	field(0, &e.Text)
	field(1, &e.Options)
	field(2, &e.AnswerIndex)
	field(3, &e.Explanation)
	field(4, &e.GrammarPoint)
	field(5, &e.UserAnswerIndex)
	field(6, &e.Timestamp)
	if e.Options == nil {
		e.Options = []string{}
	}
	e.ID = strconv.FormatInt(e.Timestamp, 10)
	return nil
}

// DecodeError reports a code that could not be parsed at all.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid backup code: %s: %v", e.Reason, e.Err)
	}
	return "invalid backup code: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode projects s into a backup code. Histories are truncated to their
// most recent MaxWrongEntries and MaxSavedEntries.
func Encode(s stats.UserStats, now time.Time) (string, error) {
	env := envelope{
		Version:    FormatVersion,
		SyncID:     s.SyncID,
		ExportedAt: now.UnixMilli(),
		Counts:     s.WrongCounts,
		Wrong:      toEntries(s.WrongHistory, MaxWrongEntries),
		Saved:      toEntries(s.SavedHistory, MaxSavedEntries),
		Attempted:  s.TotalQuestionsAttempted,
		Correct:    s.TotalCorrectAnswers,
		StudyTime:  s.TotalStudyTime,
		Daily:      s.DailyStats,
		LastSync:   s.LastSyncTime,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decode parses a backup code produced by Encode. Plain JSON is accepted
// too. Missing or malformed fields come back empty; only a code that is not
// a JSON object at all fails, with *DecodeError.
func Decode(code string) (stats.UserStats, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return stats.UserStats{}, &DecodeError{Reason: "empty code"}
	}

	raw := []byte(code)
	if raw[0] != '{' {
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(code), ""))
		if err != nil {
			return stats.UserStats{}, &DecodeError{Reason: "not base64", Err: err}
		}
		raw = b
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return stats.UserStats{}, &DecodeError{Reason: "not a JSON object", Err: err}
	}
	if fields == nil {
		return stats.UserStats{}, &DecodeError{Reason: "not a JSON object"}
	}

	out := stats.Empty()
	lenient(fields, "id", &out.SyncID)
	var counts stats.TopicCounts
	if err := json.Unmarshal(fields["c"], &counts); err == nil {
		out.WrongCounts = counts
	}
	out.WrongHistory = decodeEntries(fields["w"])
	out.SavedHistory = decodeEntries(fields["s"])
	lenient(fields, "tq", &out.TotalQuestionsAttempted)
	lenient(fields, "tc", &out.TotalCorrectAnswers)
	lenient(fields, "st", &out.TotalStudyTime)
	lenient(fields, "ls", &out.LastSyncTime)

	var daily stats.DailyStats
	lenient(fields, "d", &daily)
	for k, v := range daily {
		if v == nil {
			continue
		}
		v.Correct = min(v.Correct, v.Attempted)
		out.DailyStats[k] = v
	}
	out.TotalCorrectAnswers = min(out.TotalCorrectAnswers, out.TotalQuestionsAttempted)
	return out, nil
}

// ExportedAt returns the export time recorded in a code, if any.
func ExportedAt(code string) (time.Time, bool) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(code))
	if err != nil {
		b = []byte(code)
	}
	var env struct {
		T int64 `json:"t"`
	}
	if err := json.Unmarshal(b, &env); err != nil || env.T == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(env.T), true
}

func lenient(fields map[string]json.RawMessage, key string, v any) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(raw, []byte("null")) {
		return
	}
	_ = json.Unmarshal(raw, v)
}

func decodeEntries(raw json.RawMessage) []stats.WrongQuestion {
	out := []stats.WrongQuestion{}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		var e entry
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		out = append(out, stats.WrongQuestion(e))
	}
	return out
}

func toEntries(hist []stats.WrongQuestion, limit int) []entry {
	if len(hist) > limit {
		hist = hist[:limit]
	}
	out := make([]entry, len(hist))
	for i, w := range hist {
		out[i] = entry(w)
	}
	return out
}
