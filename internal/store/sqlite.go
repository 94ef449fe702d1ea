package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rcliao/project-memory/internal/model"
)

// timeLayout is fixed width so that text order equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const entryColumns = `id, project_id, content, type, importance, embedding, metadata, tags,
	created_at, updated_at, access_count`

// SQLiteStore implements Store using a local SQLite file. It has no native
// expiry; retention runs as an explicit sweep after each store.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	projectID string
	opts      options
}

// NewSQLiteStore opens or creates a SQLite database at the given path, bound
// to projectID.
func NewSQLiteStore(dbPath, projectID string, opts ...Option) (*SQLiteStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:        db,
		path:      dbPath,
		projectID: projectID,
		opts:      buildOptions(opts),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id           TEXT PRIMARY KEY,
		project_id   TEXT NOT NULL,
		content      TEXT NOT NULL,
		type         TEXT NOT NULL DEFAULT 'context',
		importance   REAL NOT NULL DEFAULT 0.5,
		embedding    TEXT,
		metadata     TEXT,
		tags         TEXT,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_id);
	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(project_id, type);
	CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(project_id, importance DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(project_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Store(ctx context.Context, e model.NewEntry) (string, error) {
	now := s.opts.now().UTC()
	id := newID(now)

	typ := e.Type
	if typ == "" {
		typ = model.TypeContext
	}

	embeddingJSON, err := nullJSON(len(e.Embedding) > 0, e.Embedding)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	metaJSON, err := nullJSON(len(e.Metadata) > 0, e.Metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	tagsJSON, err := nullJSON(len(e.Tags) > 0, e.Tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}

	ts := now.Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		id, s.projectID, e.Content, string(typ), model.ClampImportance(e.Importance),
		embeddingJSON, metaJSON, tagsJSON, ts, ts)
	if err != nil {
		return "", fmt.Errorf("insert memory: %w", err)
	}

	// The entry is already durable; a failed sweep only delays cleanup.
	if err := s.ApplyRetention(ctx); err != nil {
		s.opts.logger.Warn("retention sweep failed", zap.String("project", s.projectID), zap.Error(err))
	}

	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM memories WHERE project_id = ? AND id = ?`,
		s.projectID, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStore) SearchByEmbedding(ctx context.Context, vector []float32, p SearchParams) ([]model.Entry, error) {
	where, args := s.filter(p)
	where = append(where, "embedding IS NOT NULL")
	args = append(args, candidatePool)

	candidates, err := s.query(ctx, `
		SELECT `+entryColumns+` FROM memories
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY importance DESC, access_count DESC, created_at DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}

	results := rankBySimilarity(vector, candidates, limitOrDefault(p.Limit))
	return s.touch(ctx, results), nil
}

// SearchByKeyword folds case in Go. SQLite's LIKE folds ASCII only, which
// would miss non-ASCII matches the Redis backend finds.
func (s *SQLiteStore) SearchByKeyword(ctx context.Context, query string, p SearchParams) ([]model.Entry, error) {
	where, args := s.filter(p)
	candidates, err := s.query(ctx, `
		SELECT `+entryColumns+` FROM memories
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY importance DESC, access_count DESC, created_at DESC`, args...)
	if err != nil {
		return nil, err
	}

	limit := limitOrDefault(p.Limit)
	var results []model.Entry
	for _, e := range candidates {
		if !containsFold(e.Content, query) {
			continue
		}
		results = append(results, e)
		if len(results) == limit {
			break
		}
	}
	return s.touch(ctx, results), nil
}

func (s *SQLiteStore) GetByType(ctx context.Context, t model.EntryType, limit int) ([]model.Entry, error) {
	return s.query(ctx, `
		SELECT `+entryColumns+` FROM memories
		WHERE project_id = ? AND type = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, s.projectID, string(t), limitOrDefault(limit))
}

// GetByTags matches each tag as a quoted JSON token, so "auth" does not
// match a stored "authentication".
func (s *SQLiteStore) GetByTags(ctx context.Context, tags []string, limit int) ([]model.Entry, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	var ors []string
	args := []interface{}{s.projectID}
	for _, tag := range tags {
		quoted, _ := json.Marshal(tag)
		ors = append(ors, `tags LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(string(quoted))+"%")
	}
	args = append(args, limitOrDefault(limit))

	return s.query(ctx, `
		SELECT `+entryColumns+` FROM memories
		WHERE project_id = ? AND (`+strings.Join(ors, " OR ")+`)
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, args...)
}

func (s *SQLiteStore) GetRecent(ctx context.Context, limit int) ([]model.Entry, error) {
	return s.query(ctx, `
		SELECT `+entryColumns+` FROM memories
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, s.projectID, limitOrDefault(limit))
}

func (s *SQLiteStore) GetImportant(ctx context.Context, limit int) ([]model.Entry, error) {
	return s.query(ctx, `
		SELECT `+entryColumns+` FROM memories
		WHERE project_id = ?
		ORDER BY importance DESC, access_count DESC, created_at DESC
		LIMIT ?`, s.projectID, limitOrDefault(limit))
}

func (s *SQLiteStore) Update(ctx context.Context, id string, p UpdateParams) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{s.opts.now().UTC().Format(timeLayout)}

	if p.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *p.Content)
	}
	if p.Importance != nil {
		sets = append(sets, "importance = ?")
		args = append(args, model.ClampImportance(*p.Importance))
	}
	if p.Metadata != nil {
		meta, err := nullJSON(len(p.Metadata) > 0, p.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		sets = append(sets, "metadata = ?")
		args = append(args, meta)
	}
	if p.Tags != nil {
		tags, err := nullJSON(len(p.Tags) > 0, p.Tags)
		if err != nil {
			return fmt.Errorf("encode tags: %w", err)
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}

	args = append(args, s.projectID, id)
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET `+strings.Join(sets, ", ")+` WHERE project_id = ? AND id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update memory: %w", err)
	}
	return nil
}

func (s *SQLiteStore) IncrementAccess(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET access_count = access_count + 1, updated_at = ?
		 WHERE project_id = ? AND id = ?`,
		s.opts.now().UTC().Format(timeLayout), s.projectID, id)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE project_id = ? AND id = ?`, s.projectID, id)
	return err
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE project_id = ?`, s.projectID).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE project_id = ?`, s.projectID)
	return err
}

func (s *SQLiteStore) ApplyRetention(ctx context.Context) error {
	policy := s.opts.retention

	count, err := s.Count(ctx)
	if err != nil {
		return fmt.Errorf("count memories: %w", err)
	}
	if n := policy.evictCount(count); n > 0 {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM memories WHERE id IN (
				SELECT id FROM memories WHERE project_id = ?
				ORDER BY importance ASC, access_count ASC, created_at ASC
				LIMIT ?)`, s.projectID, n)
		if err != nil {
			return fmt.Errorf("evict memories: %w", err)
		}
		evicted, _ := res.RowsAffected()
		s.opts.logger.Debug("evicted memories", zap.String("project", s.projectID), zap.Int64("count", evicted))
	}

	cutoff := policy.cutoff(s.opts.now())
	if cutoff.IsZero() {
		return nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memories WHERE project_id = ? AND created_at < ? AND importance < ?`,
		s.projectID, cutoff.UTC().Format(timeLayout), policy.ExemptImportance)
	if err != nil {
		return fmt.Errorf("expire memories: %w", err)
	}
	if expired, _ := res.RowsAffected(); expired > 0 {
		s.opts.logger.Debug("expired memories", zap.String("project", s.projectID), zap.Int64("count", expired))
	}
	return nil
}

func (s *SQLiteStore) IsAvailable(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// filter builds the shared WHERE clauses for search params.
func (s *SQLiteStore) filter(p SearchParams) ([]string, []interface{}) {
	where := []string{"project_id = ?"}
	args := []interface{}{s.projectID}
	if p.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(p.Type))
	}
	if p.MinImportance > 0 {
		where = append(where, "importance >= ?")
		args = append(args, p.MinImportance)
	}
	return where, args
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]model.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// touch increments access for every surfaced entry and mirrors the change in
// the returned copies.
func (s *SQLiteStore) touch(ctx context.Context, entries []model.Entry) []model.Entry {
	for i := range entries {
		if err := s.IncrementAccess(ctx, entries[i].ID); err != nil {
			s.opts.logger.Warn("increment access failed", zap.String("id", entries[i].ID), zap.Error(err))
			continue
		}
		entries[i].AccessCount++
	}
	return entries
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (model.Entry, error) {
	var e model.Entry
	var typ, createdAt, updatedAt string
	var embeddingJSON, metaJSON, tagsJSON sql.NullString

	err := row.Scan(
		&e.ID, &e.ProjectID, &e.Content, &typ, &e.Importance,
		&embeddingJSON, &metaJSON, &tagsJSON,
		&createdAt, &updatedAt, &e.AccessCount,
	)
	if err != nil {
		return e, err
	}

	e.Type = model.EntryType(typ)
	e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	e.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	if embeddingJSON.Valid {
		json.Unmarshal([]byte(embeddingJSON.String), &e.Embedding)
	}
	if metaJSON.Valid {
		json.Unmarshal([]byte(metaJSON.String), &e.Metadata)
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &e.Tags)
	}
	return e, nil
}

// nullJSON encodes v, or returns NULL when present is false.
func nullJSON(present bool, v interface{}) (interface{}, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
