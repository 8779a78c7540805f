package retrieval

import (
	"sort"
	"strings"
)

// DefaultLimit is the number of knowledge chunks injected into a prompt
// unless the caller asks for a different cap.
const DefaultLimit = 3

// Rank scores a flat knowledge base against a query by keyword overlap and
// returns the best-matching chunks, capped at limit.
//
// Scoring is bag-style on the query side: the query is lower-cased and split
// on whitespace with duplicates retained, and every query word found in the
// chunk's word set contributes one point — a word repeated in the query
// counts each time. This is a lexical heuristic, not semantic search: no
// stemming, no stop words, no normalization beyond case folding.
//
// Ties keep their knowledge-base order, and chunks that match nothing are
// never returned, so an empty or whitespace-only query yields nil.
func Rank(query string, knowledgeBase []string, limit int) []string {
	if len(knowledgeBase) == 0 || limit <= 0 {
		return nil
	}

	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return nil
	}

	type scored struct {
		chunk string
		score int
	}

	scores := make([]scored, 0, len(knowledgeBase))
	for _, chunk := range knowledgeBase {
		chunkWords := make(map[string]struct{})
		for _, w := range strings.Fields(strings.ToLower(chunk)) {
			chunkWords[w] = struct{}{}
		}
		score := 0
		for _, w := range queryWords {
			if _, ok := chunkWords[w]; ok {
				score++
			}
		}
		scores = append(scores, scored{chunk: chunk, score: score})
	}

	// Stable: equal scores keep their original relative order.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	var ranked []string
	for _, s := range scores {
		if s.score == 0 {
			break
		}
		ranked = append(ranked, s.chunk)
		if len(ranked) == limit {
			break
		}
	}
	return ranked
}
