package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/project-memory/internal/model"
)

func newTestRedisStore(t *testing.T, opts ...Option) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), RedisConfig{URL: "redis://" + mr.Addr(), KeyPrefix: "pm"}, "proj", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisConnectFailure(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{
		URL:            "redis://127.0.0.1:1",
		ConnectTimeout: 200 * time.Millisecond,
	}, "proj")
	assert.Error(t, err)

	_, err = NewRedisStore(context.Background(), RedisConfig{URL: "not a url"}, "proj")
	assert.Error(t, err)
}

func TestRedisKeyTTLFollowsImportance(t *testing.T) {
	policy := DefaultRetention()
	policy.TTL = time.Hour
	s, mr := newTestRedisStore(t, WithRetention(policy))
	ctx := context.Background()

	low, err := s.Store(ctx, model.NewEntry{Content: "low", Type: model.TypeContext, Importance: 0.3, Embedding: []float32{1}})
	require.NoError(t, err)
	high, err := s.Store(ctx, model.NewEntry{Content: "high", Type: model.TypeDecision, Importance: 0.9})
	require.NoError(t, err)

	assert.Equal(t, time.Hour, mr.TTL("pm:{proj}:entry:"+low))
	assert.Equal(t, time.Hour, mr.TTL("pm:{proj}:vec:"+low))
	assert.Equal(t, time.Duration(0), mr.TTL("pm:{proj}:entry:"+high))

	raised := 0.95
	require.NoError(t, s.Update(ctx, low, UpdateParams{Importance: &raised}))
	assert.Equal(t, time.Duration(0), mr.TTL("pm:{proj}:entry:"+low))
	assert.Equal(t, time.Duration(0), mr.TTL("pm:{proj}:vec:"+low))

	content := "still high"
	require.NoError(t, s.Update(ctx, high, UpdateParams{Content: &content}))
	assert.Equal(t, time.Duration(0), mr.TTL("pm:{proj}:entry:"+high))
}

func TestRedisSkipsExpiredRecords(t *testing.T) {
	policy := DefaultRetention()
	policy.TTL = time.Hour
	s, mr := newTestRedisStore(t, WithRetention(policy))
	ctx := context.Background()

	gone, _ := s.Store(ctx, model.NewEntry{Content: "fleeting", Type: model.TypeContext, Importance: 0.3, Tags: []string{"t"}})
	kept, _ := s.Store(ctx, model.NewEntry{Content: "lasting", Type: model.TypeContext, Importance: 0.9, Tags: []string{"t"}})

	mr.FastForward(2 * time.Hour)

	got, err := s.Get(ctx, gone)
	require.NoError(t, err)
	assert.Nil(t, got)

	recent, err := s.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, kept, recent[0].ID)

	tagged, err := s.GetByTags(ctx, []string{"t"}, 10)
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, kept, tagged[0].ID)
}

func TestRedisClearRemovesProjectKeys(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	mr.Set("unrelated", "value")

	s.Store(ctx, model.NewEntry{Content: "a", Type: model.TypeTodo, Tags: []string{"x"}, Embedding: []float32{1, 2}})
	require.NoError(t, s.Clear(ctx))

	assert.Equal(t, []string{"unrelated"}, mr.Keys())
}

func TestRedisClearKeepsOtherProjects(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	open := func(project string) *RedisStore {
		s, err := NewRedisStore(ctx, RedisConfig{URL: "redis://" + mr.Addr(), KeyPrefix: "pm"}, project)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	}
	acme := open("acme")
	api := open("acme:api")
	star := open("*")

	_, err := acme.Store(ctx, model.NewEntry{Content: "root", Type: model.TypeTodo, Tags: []string{"x"}})
	require.NoError(t, err)
	apiID, err := api.Store(ctx, model.NewEntry{Content: "nested", Type: model.TypeTodo, Tags: []string{"x"}, Embedding: []float32{1}})
	require.NoError(t, err)

	require.NoError(t, acme.Clear(ctx))
	require.NoError(t, star.Clear(ctx))

	n, err := acme.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := api.Get(ctx, apiID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []float32{1}, got.Embedding)
	n, err = api.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	tagged, err := api.GetByTags(ctx, []string{"x"}, 10)
	require.NoError(t, err)
	assert.Len(t, tagged, 1)
}

func TestRedisProjectKeysDoNotCollide(t *testing.T) {
	a := &RedisStore{ns: "pm:" + projectSegment("a")}
	nested := &RedisStore{ns: "pm:" + projectSegment("a:entry")}
	assert.NotEqual(t, a.entryKey("entry:X"), nested.entryKey("X"))
	assert.Equal(t, "pm:{a%3Aentry}:entry:X", nested.entryKey("X"))
	assert.Equal(t, `pm:{\*}:vec:*`, (&RedisStore{ns: "pm:{*}"}).pattern("vec", ""))
}

func TestRedisExpiringIndexTracksExemption(t *testing.T) {
	policy := DefaultRetention()
	policy.TTL = time.Hour
	s, _ := newTestRedisStore(t, WithRetention(policy))
	ctx := context.Background()

	low, err := s.Store(ctx, model.NewEntry{Content: "low", Type: model.TypeContext, Importance: 0.3})
	require.NoError(t, err)
	_, err = s.Store(ctx, model.NewEntry{Content: "high", Type: model.TypeDecision, Importance: 0.9})
	require.NoError(t, err)

	expiring := func() []string {
		ids, err := s.rdb.ZRange(ctx, s.expiringKey(), 0, -1).Result()
		require.NoError(t, err)
		return ids
	}
	assert.Equal(t, []string{low}, expiring())

	raised := 0.9
	require.NoError(t, s.Update(ctx, low, UpdateParams{Importance: &raised}))
	assert.Empty(t, expiring())

	lowered := 0.2
	require.NoError(t, s.Update(ctx, low, UpdateParams{Importance: &lowered}))
	assert.Equal(t, []string{low}, expiring())

	require.NoError(t, s.Delete(ctx, low))
	assert.Empty(t, expiring())
}

func TestRedisWriteAfterDeleteStaysDeleted(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	id, err := s.Store(ctx, model.NewEntry{Content: "short lived", Type: model.TypeContext})
	require.NoError(t, err)
	stale, err := s.load(ctx, s.rdb, id)
	require.NoError(t, err)
	require.NotNil(t, stale)

	require.NoError(t, s.Delete(ctx, id))
	stale.AccessCount++
	require.NoError(t, s.rewrite(ctx, stale))
	assert.False(t, mr.Exists("pm:{proj}:entry:"+id))

	content := "edited"
	require.NoError(t, s.Update(ctx, id, UpdateParams{Content: &content}))
	require.NoError(t, s.IncrementAccess(ctx, id))
	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("pm:{proj}:entry:"+id))
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0, -1.5, 3.25, 1e-7}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
	assert.Empty(t, decodeVector(nil))
}
