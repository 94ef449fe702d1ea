package store

import (
	"sort"
	"strings"

	"github.com/rcliao/project-memory/internal/embedding"
	"github.com/rcliao/project-memory/internal/model"
)

type scored struct {
	entry model.Entry
	score float64
}

// rankBySimilarity orders candidates by cosine similarity to query, keeping
// candidate order for ties. Entries without a vector are dropped.
func rankBySimilarity(query []float32, candidates []model.Entry, limit int) []model.Entry {
	var ranked []scored
	for _, e := range candidates {
		if len(e.Embedding) == 0 {
			continue
		}
		ranked = append(ranked, scored{entry: e, score: embedding.CosineSimilarity(query, e.Embedding)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]model.Entry, len(ranked))
	for i, r := range ranked {
		out[i] = r.entry
	}
	return out
}

// importanceOrder sorts by importance desc, access count desc, then newest.
func importanceOrder(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		if a.AccessCount != b.AccessCount {
			return a.AccessCount > b.AccessCount
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func matchesFilter(e model.Entry, p SearchParams) bool {
	if p.Type != "" && e.Type != p.Type {
		return false
	}
	return e.Importance >= p.MinImportance
}

func containsFold(content, query string) bool {
	return strings.Contains(strings.ToLower(content), strings.ToLower(query))
}

func truncate(entries []model.Entry, limit int) []model.Entry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
