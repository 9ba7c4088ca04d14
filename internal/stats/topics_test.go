package stats

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicCountsJSONKeepsOrder(t *testing.T) {
	tc := NewTopicCounts(
		TopicCount{"非谓语动词", 4},
		TopicCount{"冠词", 1},
		TopicCount{"A \"quoted\" topic", 2},
	)

	b, err := json.Marshal(tc)
	require.NoError(t, err)
	assert.Equal(t, `{"非谓语动词":4,"冠词":1,"A \"quoted\" topic":2}`, string(b))

	var back TopicCounts
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, tc.Equal(back))
}

func TestTopicCountsUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []TopicCount
		wantErr bool
	}{
		{"empty object", `{}`, []TopicCount{}, false},
		{"null", `null`, []TopicCount{}, false},
		{"ordered", `{"z":1,"a":2}`, []TopicCount{{"z", 1}, {"a", 2}}, false},
		{"repeated key keeps last", `{"A":3,"b":1,"A":2}`, []TopicCount{{"A", 2}, {"b", 1}}, false},
		{"array", `[1,2]`, nil, true},
		{"string value", `{"a":"x"}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tc TopicCounts
			err := json.Unmarshal([]byte(tt.input), &tc)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tc.Pairs())
		})
	}
}

func TestTopicCountsCloneIsIndependent(t *testing.T) {
	tc := NewTopicCounts(TopicCount{"a", 1})
	c := tc.Clone()
	c.Add("a", 1)
	c.Add("b", 1)

	assert.Equal(t, 1, tc.Get("a"))
	assert.Equal(t, 1, tc.Len())
	assert.False(t, tc.Equal(c))
}

func TestUserStatsNullCountsDecode(t *testing.T) {
	var s UserStats
	require.NoError(t, json.Unmarshal([]byte(`{"wrongCounts":null,"totalQuestionsAttempted":3}`), &s))
	assert.Equal(t, 0, s.WrongCounts.Len())
	assert.Equal(t, 3, s.TotalQuestionsAttempted)
}
