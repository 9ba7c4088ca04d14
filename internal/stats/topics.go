package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TopicCounts maps a grammar point to its cumulative miss count. It keeps
// topics in the order they were first seen, and that order survives JSON
// encoding (keys are written in insertion order).
type TopicCounts struct {
	order  []string
	counts map[string]int
}

// NewTopicCounts builds counts from ordered pairs. Repeated topics add up.
func NewTopicCounts(pairs ...TopicCount) TopicCounts {
	var tc TopicCounts
	for _, p := range pairs {
		tc.Add(p.Topic, p.Count)
	}
	return tc
}

// TopicCount is a single topic/count pair.
type TopicCount struct {
	Topic string `json:"topic" yaml:"topic"`
	Count int    `json:"count" yaml:"count"`
}

// Get returns the count for topic, zero when unseen.
func (tc TopicCounts) Get(topic string) int {
	return tc.counts[topic]
}

// Add increases topic's count by n, recording it as seen if new.
func (tc *TopicCounts) Add(topic string, n int) {
	if tc.counts == nil {
		tc.counts = make(map[string]int)
	}
	if _, ok := tc.counts[topic]; !ok {
		tc.order = append(tc.order, topic)
	}
	tc.counts[topic] += n
}

// set replaces topic's count, keeping its first-seen position.
func (tc *TopicCounts) set(topic string, n int) {
	if tc.counts == nil {
		tc.counts = make(map[string]int)
	}
	if _, ok := tc.counts[topic]; !ok {
		tc.order = append(tc.order, topic)
	}
	tc.counts[topic] = n
}

// Len returns the number of distinct topics.
func (tc TopicCounts) Len() int {
	return len(tc.order)
}

// Pairs returns all topics in first-seen order.
func (tc TopicCounts) Pairs() []TopicCount {
	out := make([]TopicCount, len(tc.order))
	for i, t := range tc.order {
		out[i] = TopicCount{Topic: t, Count: tc.counts[t]}
	}
	return out
}

// Clone returns an independent copy.
func (tc TopicCounts) Clone() TopicCounts {
	return NewTopicCounts(tc.Pairs()...)
}

// Equal reports whether both hold the same topics, counts and order.
func (tc TopicCounts) Equal(other TopicCounts) bool {
	if len(tc.order) != len(other.order) {
		return false
	}
	for i, t := range tc.order {
		if other.order[i] != t || other.counts[t] != tc.counts[t] {
			return false
		}
	}
	return true
}

func (tc TopicCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range tc.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", tc.counts[t])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (tc *TopicCounts) UnmarshalJSON(data []byte) error {
	*tc = TopicCounts{}
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("topic counts: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("topic counts: expected string key, got %v", tok)
		}
		var n float64
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("topic counts: value for %q: %w", key, err)
		}
		// A repeated key keeps the last value, like encoding/json.
		tc.set(key, int(n))
	}
	_, err = dec.Token()
	return err
}
