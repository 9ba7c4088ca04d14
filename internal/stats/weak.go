package stats

import "sort"

// SelectWeakTopics returns topics ordered by miss count, highest first.
// Ties keep first-seen order. limit <= 0 returns every topic.
func SelectWeakTopics(counts TopicCounts, limit int) []string {
	pairs := counts.Pairs()
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Count > pairs[j].Count
	})

	if limit <= 0 || limit > len(pairs) {
		limit = len(pairs)
	}
	out := make([]string, 0, limit)
	for _, p := range pairs[:limit] {
		out = append(out, p.Topic)
	}
	return out
}
