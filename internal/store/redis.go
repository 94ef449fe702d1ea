package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rcliao/project-memory/internal/model"
)

const (
	// DefaultConnectTimeout bounds the startup probe.
	DefaultConnectTimeout = 3 * time.Second
	DefaultKeyPrefix      = "project-memory"

	pageSize  = 200
	mgetBatch = 250
	txRetries = 3
)

// RedisConfig holds connection parameters for the primary backend.
type RedisConfig struct {
	URL            string
	ConnectTimeout time.Duration
	KeyPrefix      string
}

// RedisStore implements Store on Redis. Each entry is a JSON record under
// <prefix>:{<project>}:entry:<id> with its vector under a separate vec key.
// Sorted-set indexes (all, recent, importance, type:<t>, tag:<t>) map ids to
// scores and never expire; readers skip ids whose record is gone. The
// expiring index holds only entries that carry a TTL, keyed by creation time.
type RedisStore struct {
	rdb       *redis.Client
	ns        string
	projectID string
	opts      options
}

// NewRedisStore connects to Redis and waits up to cfg.ConnectTimeout for a
// PING. An error means the backend is unusable.
func NewRedisStore(ctx context.Context, cfg RedisConfig, projectID string, opts ...Option) (*RedisStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	ropts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	ropts.DialTimeout = timeout

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	rdb := redis.NewClient(ropts)
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &RedisStore{
		rdb:       rdb,
		ns:        prefix + ":" + projectSegment(projectID),
		projectID: projectID,
		opts:      buildOptions(opts),
	}, nil
}

// projectSegment escapes a project id so it holds no separator or glob
// metacharacter, then braces it so all of a project's keys share a hash slot.
func projectSegment(projectID string) string {
	return "{" + url.QueryEscape(projectID) + "}"
}

func (s *RedisStore) key(parts ...string) string {
	return s.ns + ":" + strings.Join(parts, ":")
}

// pattern builds a SCAN match pattern under this project's namespace.
func (s *RedisStore) pattern(parts ...string) string {
	return globEscape(s.ns) + ":" + strings.Join(parts, ":") + "*"
}

func globEscape(v string) string {
	var b strings.Builder
	for _, r := range v {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *RedisStore) entryKey(id string) string { return s.key("entry", id) }
func (s *RedisStore) vecKey(id string) string   { return s.key("vec", id) }
func (s *RedisStore) typeKey(t model.EntryType) string {
	return s.key("idx", "type", string(t))
}
func (s *RedisStore) tagKey(tag string) string { return s.key("idx", "tag", tag) }

func (s *RedisStore) allKey() string        { return s.key("idx", "all") }
func (s *RedisStore) recentKey() string     { return s.key("idx", "recent") }
func (s *RedisStore) importanceKey() string { return s.key("idx", "importance") }
func (s *RedisStore) expiringKey() string   { return s.key("idx", "expiring") }

func importanceScore(v float64) float64 {
	return math.Round(v * 1000)
}

func timeScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// expiry returns the key TTL for an entry; exempt entries never expire.
func (s *RedisStore) expiry(importance float64) time.Duration {
	p := s.opts.retention
	if p.TTL <= 0 || p.exempt(importance) {
		return 0
	}
	return p.TTL
}

func (s *RedisStore) Store(ctx context.Context, ne model.NewEntry) (string, error) {
	now := s.opts.now().UTC()
	e := model.Entry{
		ID:         newID(now),
		ProjectID:  s.projectID,
		Content:    ne.Content,
		Type:       ne.Type,
		Importance: model.ClampImportance(ne.Importance),
		Metadata:   ne.Metadata,
		Tags:       ne.Tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if e.Type == "" {
		e.Type = model.TypeContext
	}

	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode entry: %w", err)
	}
	ttl := s.expiry(e.Importance)
	score := timeScore(now)

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.entryKey(e.ID), data, ttl)
		if len(ne.Embedding) > 0 {
			pipe.Set(ctx, s.vecKey(e.ID), encodeVector(ne.Embedding), ttl)
		}
		member := redis.Z{Score: score, Member: e.ID}
		pipe.ZAdd(ctx, s.allKey(), member)
		pipe.ZAdd(ctx, s.recentKey(), member)
		pipe.ZAdd(ctx, s.typeKey(e.Type), member)
		pipe.ZAdd(ctx, s.importanceKey(), redis.Z{Score: importanceScore(e.Importance), Member: e.ID})
		for _, tag := range e.Tags {
			pipe.ZAdd(ctx, s.tagKey(tag), member)
		}
		if ttl > 0 {
			pipe.ZAdd(ctx, s.expiringKey(), member)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store entry: %w", err)
	}

	if err := s.ApplyRetention(ctx); err != nil {
		s.opts.logger.Warn("retention sweep failed", zap.String("project", s.projectID), zap.Error(err))
	}
	return e.ID, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Entry, error) {
	entries, _, err := s.fetch(ctx, []string{id}, true)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// fetch loads records for ids in order, with their vectors when withVectors
// is set. Ids whose record is gone are returned in missing.
func (s *RedisStore) fetch(ctx context.Context, ids []string, withVectors bool) (entries []model.Entry, missing []string, err error) {
	for start := 0; start < len(ids); start += mgetBatch {
		end := start + mgetBatch
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		keys := make([]string, 0, 2*len(batch))
		for _, id := range batch {
			keys = append(keys, s.entryKey(id))
		}
		if withVectors {
			for _, id := range batch {
				keys = append(keys, s.vecKey(id))
			}
		}
		vals, err := s.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, nil, fmt.Errorf("load entries: %w", err)
		}

		for i, id := range batch {
			raw, ok := vals[i].(string)
			if !ok {
				missing = append(missing, id)
				continue
			}
			var e model.Entry
			if err := json.Unmarshal([]byte(raw), &e); err != nil {
				s.opts.logger.Warn("skipping corrupt entry", zap.String("id", id), zap.Error(err))
				missing = append(missing, id)
				continue
			}
			if withVectors {
				if vec, ok := vals[len(batch)+i].(string); ok {
					e.Embedding = decodeVector([]byte(vec))
				}
			}
			entries = append(entries, e)
		}
	}
	return entries, missing, nil
}

// walk pages through a sorted set from the highest score and collects up to
// limit live entries accepted by keep. A negative limit walks the whole set.
func (s *RedisStore) walk(ctx context.Context, key string, limit int, keep func(model.Entry) bool) ([]model.Entry, error) {
	var out []model.Entry
	for start := int64(0); limit < 0 || len(out) < limit; start += pageSize {
		ids, err := s.rdb.ZRevRange(ctx, key, start, start+pageSize-1).Result()
		if err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		entries, _, err := s.fetch(ctx, ids, true)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if keep != nil && !keep(e) {
				continue
			}
			out = append(out, e)
			if limit >= 0 && len(out) == limit {
				break
			}
		}
		if len(ids) < pageSize {
			break
		}
	}
	return out, nil
}

func (s *RedisStore) SearchByEmbedding(ctx context.Context, vector []float32, p SearchParams) ([]model.Entry, error) {
	keep := func(e model.Entry) bool {
		return len(e.Embedding) > 0 && matchesFilter(e, p)
	}

	var candidates []model.Entry
	var err error
	if p.Type != "" {
		// The type index is ordered by time, so read it whole and pick the
		// most important.
		candidates, err = s.walk(ctx, s.typeKey(p.Type), -1, keep)
	} else {
		candidates, err = s.walk(ctx, s.importanceKey(), candidatePool, keep)
	}
	if err != nil {
		return nil, err
	}
	importanceOrder(candidates)
	candidates = truncate(candidates, candidatePool)

	results := rankBySimilarity(vector, candidates, limitOrDefault(p.Limit))
	return s.touch(ctx, results), nil
}

func (s *RedisStore) SearchByKeyword(ctx context.Context, query string, p SearchParams) ([]model.Entry, error) {
	matches, err := s.walk(ctx, s.allKey(), -1, func(e model.Entry) bool {
		return matchesFilter(e, p) && containsFold(e.Content, query)
	})
	if err != nil {
		return nil, err
	}
	importanceOrder(matches)
	return s.touch(ctx, truncate(matches, limitOrDefault(p.Limit))), nil
}

func (s *RedisStore) GetByType(ctx context.Context, t model.EntryType, limit int) ([]model.Entry, error) {
	return s.walk(ctx, s.typeKey(t), limitOrDefault(limit), nil)
}

func (s *RedisStore) GetByTags(ctx context.Context, tags []string, limit int) ([]model.Entry, error) {
	scores := map[string]float64{}
	for _, tag := range tags {
		members, err := s.rdb.ZRevRangeWithScores(ctx, s.tagKey(tag), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("read tag index: %w", err)
		}
		for _, z := range members {
			if id, ok := z.Member.(string); ok {
				scores[id] = z.Score
			}
		}
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] > ids[j]
	})

	entries, _, err := s.fetch(ctx, ids, true)
	if err != nil {
		return nil, err
	}
	return truncate(entries, limitOrDefault(limit)), nil
}

func (s *RedisStore) GetRecent(ctx context.Context, limit int) ([]model.Entry, error) {
	return s.walk(ctx, s.recentKey(), limitOrDefault(limit), nil)
}

func (s *RedisStore) GetImportant(ctx context.Context, limit int) ([]model.Entry, error) {
	limit = limitOrDefault(limit)
	// Over-read so access-count tiebreaks near the cut are honoured.
	entries, err := s.walk(ctx, s.importanceKey(), 2*limit, nil)
	if err != nil {
		return nil, err
	}
	importanceOrder(entries)
	return truncate(entries, limit), nil
}

// getter is satisfied by both a client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// load reads a record without its vector.
func (s *RedisStore) load(ctx context.Context, c getter, id string) (*model.Entry, error) {
	raw, err := c.Get(ctx, s.entryKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load entry: %w", err)
	}
	var e model.Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	return &e, nil
}

// Update watches the record so a concurrent delete or eviction aborts the
// write instead of resurrecting the entry.
func (s *RedisStore) Update(ctx context.Context, id string, p UpdateParams) error {
	for attempt := 0; attempt < txRetries; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			return s.update(ctx, tx, id, p)
		}, s.entryKey(id))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		return nil
	}
	return fmt.Errorf("update entry %s: %w", id, redis.TxFailedErr)
}

func (s *RedisStore) update(ctx context.Context, tx *redis.Tx, id string, p UpdateParams) error {
	e, err := s.load(ctx, tx, id)
	if err != nil || e == nil {
		return err
	}
	now := s.opts.now().UTC()
	oldTags := e.Tags
	wasExempt := s.expiry(e.Importance) == 0

	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.Importance != nil {
		e.Importance = model.ClampImportance(*p.Importance)
	}
	if p.Metadata != nil {
		e.Metadata = p.Metadata
	}
	if p.Tags != nil {
		e.Tags = p.Tags
	}
	e.UpdatedAt = now

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetArgs(ctx, s.entryKey(id), data, redis.SetArgs{Mode: "XX", KeepTTL: true})
		if p.Importance != nil {
			pipe.ZAdd(ctx, s.importanceKey(), redis.Z{Score: importanceScore(e.Importance), Member: id})
			s.adjustExpiry(ctx, pipe, e, wasExempt, now)
		}
		if p.Tags != nil {
			for _, tag := range oldTags {
				pipe.ZRem(ctx, s.tagKey(tag), id)
			}
			member := redis.Z{Score: timeScore(e.CreatedAt), Member: id}
			for _, tag := range e.Tags {
				pipe.ZAdd(ctx, s.tagKey(tag), member)
			}
		}
		return nil
	})
	if err == redis.Nil {
		return nil
	}
	return err
}

// adjustExpiry keeps key TTLs and the expiring index in line with the
// exemption rule after an importance change. Expiry stays anchored to the
// creation time.
func (s *RedisStore) adjustExpiry(ctx context.Context, pipe redis.Pipeliner, e *model.Entry, wasExempt bool, now time.Time) {
	exempt := s.expiry(e.Importance) == 0
	switch {
	case exempt && !wasExempt:
		pipe.Persist(ctx, s.entryKey(e.ID))
		pipe.Persist(ctx, s.vecKey(e.ID))
		pipe.ZRem(ctx, s.expiringKey(), e.ID)
	case !exempt && wasExempt:
		remaining := e.CreatedAt.Add(s.opts.retention.TTL).Sub(now)
		if remaining < time.Second {
			remaining = time.Second
		}
		pipe.Expire(ctx, s.entryKey(e.ID), remaining)
		pipe.Expire(ctx, s.vecKey(e.ID), remaining)
		pipe.ZAdd(ctx, s.expiringKey(), redis.Z{Score: timeScore(e.CreatedAt), Member: e.ID})
	}
}

// IncrementAccess is a read-modify-write without a lock; concurrent
// increments on one entry can be lost.
func (s *RedisStore) IncrementAccess(ctx context.Context, id string) error {
	e, err := s.load(ctx, s.rdb, id)
	if err != nil || e == nil {
		return err
	}
	e.AccessCount++
	e.UpdatedAt = s.opts.now().UTC()
	return s.rewrite(ctx, e)
}

// rewrite replaces a record in place, keeping its TTL. A record deleted
// since it was loaded stays deleted.
func (s *RedisStore) rewrite(ctx context.Context, e *model.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	err = s.rdb.SetArgs(ctx, s.entryKey(e.ID), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	e, err := s.load(ctx, s.rdb, id)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.entryKey(id), s.vecKey(id))
		s.unindex(ctx, pipe, id, e)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// unindex removes id from every index it may be in. With no record to say
// which type it had, every known type index is cleaned.
func (s *RedisStore) unindex(ctx context.Context, pipe redis.Pipeliner, id string, e *model.Entry) {
	pipe.ZRem(ctx, s.allKey(), id)
	pipe.ZRem(ctx, s.recentKey(), id)
	pipe.ZRem(ctx, s.importanceKey(), id)
	pipe.ZRem(ctx, s.expiringKey(), id)
	if e == nil {
		for t := range model.ValidTypes {
			pipe.ZRem(ctx, s.typeKey(t), id)
		}
		return
	}
	pipe.ZRem(ctx, s.typeKey(e.Type), id)
	for _, tag := range e.Tags {
		pipe.ZRem(ctx, s.tagKey(tag), id)
	}
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.rdb.ZCard(ctx, s.allKey()).Result()
	return int(n), err
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.scanKeys(ctx, s.pattern())
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += mgetBatch {
		end := start + mgetBatch
		if end > len(keys) {
			end = len(keys)
		}
		if err := s.rdb.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("clear project: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, 500).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan keys: %w", err)
	}
	return keys, nil
}

func (s *RedisStore) ApplyRetention(ctx context.Context) error {
	policy := s.opts.retention

	count, err := s.Count(ctx)
	if err != nil {
		return fmt.Errorf("count entries: %w", err)
	}
	if policy.evictCount(count) > 0 {
		ids, err := s.rdb.ZRange(ctx, s.allKey(), 0, -1).Result()
		if err != nil {
			return fmt.Errorf("read index: %w", err)
		}
		entries, missing, err := s.fetch(ctx, ids, false)
		if err != nil {
			return err
		}
		if err := s.prune(ctx, missing); err != nil {
			return err
		}
		if n := policy.evictCount(len(entries)); n > 0 {
			evictionOrder(entries)
			if err := s.deleteEntries(ctx, entries[:n]); err != nil {
				return fmt.Errorf("evict entries: %w", err)
			}
			s.opts.logger.Debug("evicted entries", zap.String("project", s.projectID), zap.Int("count", n))
		}
	}

	cutoff := policy.cutoff(s.opts.now())
	if cutoff.IsZero() {
		return nil
	}
	ids, err := s.rdb.ZRangeByScore(ctx, s.expiringKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("(%d", cutoff.UnixMilli()),
	}).Result()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	entries, missing, err := s.fetch(ctx, ids, false)
	if err != nil {
		return err
	}
	if err := s.prune(ctx, missing); err != nil {
		return err
	}
	now := s.opts.now()
	var expired []model.Entry
	var exempt []interface{}
	for _, e := range entries {
		switch {
		case policy.expired(e, now):
			expired = append(expired, e)
		case policy.exempt(e.Importance):
			exempt = append(exempt, e.ID)
		}
	}
	if len(exempt) > 0 {
		if err := s.rdb.ZRem(ctx, s.expiringKey(), exempt...).Err(); err != nil {
			return fmt.Errorf("trim expiring index: %w", err)
		}
	}
	if len(expired) > 0 {
		if err := s.deleteEntries(ctx, expired); err != nil {
			return fmt.Errorf("expire entries: %w", err)
		}
		s.opts.logger.Debug("expired entries", zap.String("project", s.projectID), zap.Int("count", len(expired)))
	}
	return nil
}

func (s *RedisStore) deleteEntries(ctx context.Context, entries []model.Entry) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := range entries {
			e := &entries[i]
			pipe.Del(ctx, s.entryKey(e.ID), s.vecKey(e.ID))
			s.unindex(ctx, pipe, e.ID, e)
		}
		return nil
	})
	return err
}

// prune drops index references to records that expired or vanished,
// including their tag indexes.
func (s *RedisStore) prune(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tagKeys, err := s.scanKeys(ctx, s.pattern("idx", "tag", ""))
	if err != nil {
		return err
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, s.vecKey(id))
			s.unindex(ctx, pipe, id, nil)
		}
		for _, k := range tagKeys {
			pipe.ZRem(ctx, k, members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("prune index: %w", err)
	}
	s.opts.logger.Debug("pruned dangling index entries", zap.String("project", s.projectID), zap.Int("count", len(ids)))
	return nil
}

func (s *RedisStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		Backend:   "redis",
		ProjectID: s.projectID,
		Location:  s.rdb.Options().Addr,
		ByType:    map[string]int{},
	}
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	st.Total = total

	typeKeys, err := s.scanKeys(ctx, s.pattern("idx", "type", ""))
	if err != nil {
		return nil, err
	}
	typePrefix := s.key("idx", "type", "")
	for _, k := range typeKeys {
		n, err := s.rdb.ZCard(ctx, k).Result()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			st.ByType[strings.TrimPrefix(k, typePrefix)] = int(n)
		}
	}

	vecKeys, err := s.scanKeys(ctx, s.pattern("vec", ""))
	if err != nil {
		return nil, err
	}
	st.WithEmbedding = len(vecKeys)
	return st, nil
}

func (s *RedisStore) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return s.rdb.Ping(ctx).Err() == nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// touch increments access for every surfaced entry and mirrors the change in
// the returned copies.
func (s *RedisStore) touch(ctx context.Context, entries []model.Entry) []model.Entry {
	for i := range entries {
		if err := s.IncrementAccess(ctx, entries[i].ID); err != nil {
			s.opts.logger.Warn("increment access failed", zap.String("id", entries[i].ID), zap.Error(err))
			continue
		}
		entries[i].AccessCount++
	}
	return entries
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
