package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/project-memory/internal/model"
)

type opener func(t *testing.T, project string, opts ...Option) Store

// forEachBackend runs fn once per backend. Stores opened within one run share
// the same database or server.
func forEachBackend(t *testing.T, fn func(t *testing.T, open opener)) {
	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")
		fn(t, func(t *testing.T, project string, opts ...Option) Store {
			t.Helper()
			s, err := NewSQLiteStore(path, project, opts...)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		})
	})
	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		fn(t, func(t *testing.T, project string, opts ...Option) Store {
			t.Helper()
			s, err := NewRedisStore(context.Background(), RedisConfig{URL: "redis://" + mr.Addr()}, project, opts...)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		})
	})
}

func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func TestStoreAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		id, err := s.Store(ctx, model.NewEntry{
			Content:    "Use PostgreSQL for persistence",
			Type:       model.TypeDecision,
			Importance: 0.8,
			Embedding:  []float32{0.25, 0.5, 1},
			Metadata:   map[string]any{"author": "sam"},
			Tags:       []string{"db", "storage"},
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "proj", got.ProjectID)
		assert.Equal(t, "Use PostgreSQL for persistence", got.Content)
		assert.Equal(t, model.TypeDecision, got.Type)
		assert.InDelta(t, 0.8, got.Importance, 1e-9)
		assert.Equal(t, []float32{0.25, 0.5, 1}, got.Embedding)
		assert.Equal(t, "sam", got.Metadata["author"])
		assert.Equal(t, []string{"db", "storage"}, got.Tags)
		assert.Equal(t, 0, got.AccessCount)
		assert.False(t, got.CreatedAt.IsZero())

		missing, err := s.Get(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestImportanceClamped(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		high, err := s.Store(ctx, model.NewEntry{Content: "high", Type: model.TypeContext, Importance: 1.5})
		require.NoError(t, err)
		low, err := s.Store(ctx, model.NewEntry{Content: "low", Type: model.TypeContext, Importance: -0.3})
		require.NoError(t, err)

		got, _ := s.Get(ctx, high)
		assert.Equal(t, 1.0, got.Importance)
		got, _ = s.Get(ctx, low)
		assert.Equal(t, 0.0, got.Importance)
	})
}

func TestDeleteIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		id, err := s.Store(ctx, model.NewEntry{Content: "gone soon", Type: model.TypeTodo, Tags: []string{"x"}})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, id))
		require.NoError(t, s.Delete(ctx, id))
		require.NoError(t, s.Delete(ctx, "does-not-exist"))

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		byTag, err := s.GetByTags(ctx, []string{"x"}, 10)
		require.NoError(t, err)
		assert.Empty(t, byTag)
	})
}

func TestEvictionKeepsMostImportant(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		policy := DefaultRetention()
		policy.MaxMemories = 10
		s := open(t, "proj", WithRetention(policy))

		var ids []string
		for i := 0; i < 15; i++ {
			id, err := s.Store(ctx, model.NewEntry{
				Content:    fmt.Sprintf("entry %d", i),
				Type:       model.TypeContext,
				Importance: float64(i) / 20,
			})
			require.NoError(t, err)
			ids = append(ids, id)
		}

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, n)

		for i, id := range ids {
			got, err := s.Get(ctx, id)
			require.NoError(t, err)
			if i < 5 {
				assert.Nil(t, got, "entry %d should have been evicted", i)
			} else {
				assert.NotNil(t, got, "entry %d should remain", i)
			}
		}
	})
}

func TestEvictionPrefersLeastAccessed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		policy := DefaultRetention()
		policy.MaxMemories = 2
		s := open(t, "proj", WithRetention(policy))

		a, _ := s.Store(ctx, model.NewEntry{Content: "a", Type: model.TypeContext, Importance: 0.5})
		b, _ := s.Store(ctx, model.NewEntry{Content: "b", Type: model.TypeContext, Importance: 0.5})
		require.NoError(t, s.IncrementAccess(ctx, a))

		_, err := s.Store(ctx, model.NewEntry{Content: "c", Type: model.TypeContext, Importance: 0.5})
		require.NoError(t, err)

		gotA, _ := s.Get(ctx, a)
		gotB, _ := s.Get(ctx, b)
		assert.NotNil(t, gotA)
		assert.Nil(t, gotB)
	})
}

func TestExpiryExemptsImportant(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		clock, advance := fixedClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
		policy := DefaultRetention()
		policy.TTL = 24 * time.Hour
		s := open(t, "proj", WithRetention(policy), WithClock(clock))

		keep, err := s.Store(ctx, model.NewEntry{Content: "core decision", Type: model.TypeDecision, Importance: 0.9})
		require.NoError(t, err)
		drop, err := s.Store(ctx, model.NewEntry{Content: "passing thought", Type: model.TypeContext, Importance: 0.3})
		require.NoError(t, err)

		advance(48 * time.Hour)
		require.NoError(t, s.ApplyRetention(ctx))

		got, _ := s.Get(ctx, keep)
		assert.NotNil(t, got)
		got, _ = s.Get(ctx, drop)
		assert.Nil(t, got)

		n, _ := s.Count(ctx)
		assert.Equal(t, 1, n)
	})
}

func TestSearchByKeywordCaseInsensitive(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		id, _ := s.Store(ctx, model.NewEntry{Content: "Uses PostgreSQL for storage", Type: model.TypeDecision, Importance: 0.8})
		s.Store(ctx, model.NewEntry{Content: "Frontend is React", Type: model.TypeArchitecture, Importance: 0.8})
		s.Store(ctx, model.NewEntry{Content: "postgresql needs tuning", Type: model.TypeTodo, Importance: 0.5})

		results, err := s.SearchByKeyword(ctx, "POSTGRESQL", SearchParams{})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, id, results[0].ID, "higher importance first")
		assert.Equal(t, 1, results[0].AccessCount)

		got, _ := s.Get(ctx, id)
		assert.Equal(t, 1, got.AccessCount)

		typed, err := s.SearchByKeyword(ctx, "postgresql", SearchParams{Type: model.TypeTodo})
		require.NoError(t, err)
		require.Len(t, typed, 1)
		assert.Equal(t, model.TypeTodo, typed[0].Type)

		none, err := s.SearchByKeyword(ctx, "mysql", SearchParams{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestSearchByKeywordFoldsUnicode(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		id, err := s.Store(ctx, model.NewEntry{Content: "ÜBERSICHT der Ämter", Type: model.TypeContext})
		require.NoError(t, err)

		results, err := s.SearchByKeyword(ctx, "übersicht", SearchParams{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, id, results[0].ID)

		results, err = s.SearchByKeyword(ctx, "ämter", SearchParams{})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestSearchByKeywordLiteral(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		s.Store(ctx, model.NewEntry{Content: "coverage is 100% now", Type: model.TypeContext})
		s.Store(ctx, model.NewEntry{Content: "coverage is 1000 lines", Type: model.TypeContext})

		results, err := s.SearchByKeyword(ctx, "100%", SearchParams{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "coverage is 100% now", results[0].Content)
	})
}

func TestSearchByEmbeddingRanks(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		x, _ := s.Store(ctx, model.NewEntry{Content: "x axis", Type: model.TypeContext, Embedding: []float32{1, 0}})
		y, _ := s.Store(ctx, model.NewEntry{Content: "y axis", Type: model.TypeContext, Embedding: []float32{0, 1}})
		diag, _ := s.Store(ctx, model.NewEntry{Content: "diagonal", Type: model.TypeContext, Embedding: []float32{0.9, 0.1}})
		s.Store(ctx, model.NewEntry{Content: "no vector", Type: model.TypeContext})

		results, err := s.SearchByEmbedding(ctx, []float32{1, 0}, SearchParams{Limit: 3})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, x, results[0].ID)
		assert.Equal(t, diag, results[1].ID)
		assert.Equal(t, y, results[2].ID)

		top, err := s.SearchByEmbedding(ctx, []float32{0, 1}, SearchParams{Limit: 1})
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, y, top[0].ID)
		assert.Equal(t, 2, top[0].AccessCount)
	})
}

func TestSearchByEmbeddingFilters(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		s.Store(ctx, model.NewEntry{Content: "close but low", Type: model.TypeContext, Importance: 0.2, Embedding: []float32{1, 0}})
		want, _ := s.Store(ctx, model.NewEntry{Content: "farther decision", Type: model.TypeDecision, Importance: 0.9, Embedding: []float32{0.5, 0.5}})

		results, err := s.SearchByEmbedding(ctx, []float32{1, 0}, SearchParams{MinImportance: 0.5})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, want, results[0].ID)

		results, err = s.SearchByEmbedding(ctx, []float32{1, 0}, SearchParams{Type: model.TypeDecision})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, want, results[0].ID)
	})
}

func TestGetByTags(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		a, _ := s.Store(ctx, model.NewEntry{Content: "a", Type: model.TypeContext, Tags: []string{"go", "db"}})
		b, _ := s.Store(ctx, model.NewEntry{Content: "b", Type: model.TypeContext, Tags: []string{"golang"}})
		s.Store(ctx, model.NewEntry{Content: "c", Type: model.TypeContext, Tags: []string{"frontend"}})

		exact, err := s.GetByTags(ctx, []string{"go"}, 10)
		require.NoError(t, err)
		require.Len(t, exact, 1)
		assert.Equal(t, a, exact[0].ID)

		union, err := s.GetByTags(ctx, []string{"go", "golang"}, 10)
		require.NoError(t, err)
		require.Len(t, union, 2)
		assert.Equal(t, b, union[0].ID, "newest first")
		assert.Equal(t, a, union[1].ID)

		none, err := s.GetByTags(ctx, []string{"rust"}, 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestGetByTypeAndRecent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		first, _ := s.Store(ctx, model.NewEntry{Content: "first todo", Type: model.TypeTodo})
		s.Store(ctx, model.NewEntry{Content: "an issue", Type: model.TypeIssue})
		last, _ := s.Store(ctx, model.NewEntry{Content: "second todo", Type: model.TypeTodo})

		todos, err := s.GetByType(ctx, model.TypeTodo, 10)
		require.NoError(t, err)
		require.Len(t, todos, 2)
		assert.Equal(t, last, todos[0].ID)
		assert.Equal(t, first, todos[1].ID)

		recent, err := s.GetRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, last, recent[0].ID)
	})
}

func TestGetImportant(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		s.Store(ctx, model.NewEntry{Content: "minor", Type: model.TypeContext, Importance: 0.2})
		tie1, _ := s.Store(ctx, model.NewEntry{Content: "tie one", Type: model.TypeDecision, Importance: 0.9})
		tie2, _ := s.Store(ctx, model.NewEntry{Content: "tie two", Type: model.TypeDecision, Importance: 0.9})
		require.NoError(t, s.IncrementAccess(ctx, tie1))

		top, err := s.GetImportant(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, tie1, top[0].ID, "access count breaks importance ties")
		assert.Equal(t, tie2, top[1].ID)
	})
}

func TestUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		id, _ := s.Store(ctx, model.NewEntry{Content: "old", Type: model.TypeContext, Importance: 0.4, Tags: []string{"draft"}})

		content := "new"
		importance := 2.0
		require.NoError(t, s.Update(ctx, id, UpdateParams{
			Content:    &content,
			Importance: &importance,
			Metadata:   map[string]any{"reviewed": true},
			Tags:       []string{"final"},
		}))

		got, _ := s.Get(ctx, id)
		require.NotNil(t, got)
		assert.Equal(t, "new", got.Content)
		assert.Equal(t, 1.0, got.Importance)
		assert.Equal(t, true, got.Metadata["reviewed"])
		assert.Equal(t, []string{"final"}, got.Tags)

		drafts, _ := s.GetByTags(ctx, []string{"draft"}, 10)
		assert.Empty(t, drafts)
		finals, _ := s.GetByTags(ctx, []string{"final"}, 10)
		assert.Len(t, finals, 1)

		important, _ := s.GetImportant(ctx, 1)
		require.Len(t, important, 1)
		assert.Equal(t, id, important[0].ID)

		require.NoError(t, s.Update(ctx, id, UpdateParams{Tags: []string{}}))
		got, _ = s.Get(ctx, id)
		assert.Empty(t, got.Tags)
		assert.Equal(t, "new", got.Content)

		require.NoError(t, s.Update(ctx, "missing", UpdateParams{Content: &content}))
	})
}

func TestProjectIsolation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		alpha := open(t, "alpha")
		beta := open(t, "beta")

		id, err := alpha.Store(ctx, model.NewEntry{Content: "alpha only", Type: model.TypeContext})
		require.NoError(t, err)
		beta.Store(ctx, model.NewEntry{Content: "beta only", Type: model.TypeContext})

		got, err := beta.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, beta.Clear(ctx))
		n, _ := beta.Count(ctx)
		assert.Equal(t, 0, n)
		n, _ = alpha.Count(ctx)
		assert.Equal(t, 1, n)
	})
}

func TestStats(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "proj")

		s.Store(ctx, model.NewEntry{Content: "a", Type: model.TypeTodo, Embedding: []float32{1}})
		s.Store(ctx, model.NewEntry{Content: "b", Type: model.TypeTodo})
		s.Store(ctx, model.NewEntry{Content: "c", Type: model.TypeIssue})

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, "proj", st.ProjectID)
		assert.Equal(t, 3, st.Total)
		assert.Equal(t, 1, st.WithEmbedding)
		assert.Equal(t, map[string]int{"todo": 2, "issue": 1}, st.ByType)
		assert.True(t, s.IsAvailable(ctx))
	})
}
