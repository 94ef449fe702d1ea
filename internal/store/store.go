// Package store provides the memory storage interface and its Redis and
// SQLite implementations.
package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/project-memory/internal/model"
)

// SearchParams narrows a search.
type SearchParams struct {
	Limit         int
	Type          model.EntryType // empty means any type
	MinImportance float64
}

// UpdateParams holds the fields to change. Nil fields are left untouched; a
// non-nil empty Tags slice clears the tags.
type UpdateParams struct {
	Content    *string
	Importance *float64
	Metadata   map[string]any
	Tags       []string
}

// Store defines the memory storage interface. Every implementation is bound
// to a single project; ids from other projects resolve to not found.
type Store interface {
	// Store persists an entry, updates indexes and then applies retention.
	// Returns the new id.
	Store(ctx context.Context, e model.NewEntry) (string, error)

	// Get returns nil, nil when the id does not exist in this project.
	Get(ctx context.Context, id string) (*model.Entry, error)

	// SearchByEmbedding ranks a bounded candidate pool by cosine similarity.
	SearchByEmbedding(ctx context.Context, vector []float32, p SearchParams) ([]model.Entry, error)

	// SearchByKeyword matches content case-insensitively, with Unicode
	// case folding on every backend.
	SearchByKeyword(ctx context.Context, query string, p SearchParams) ([]model.Entry, error)

	GetByType(ctx context.Context, t model.EntryType, limit int) ([]model.Entry, error)

	// GetByTags returns entries carrying any of the tags.
	GetByTags(ctx context.Context, tags []string, limit int) ([]model.Entry, error)

	GetRecent(ctx context.Context, limit int) ([]model.Entry, error)
	GetImportant(ctx context.Context, limit int) ([]model.Entry, error)

	// Update is a no-op for unknown ids.
	Update(ctx context.Context, id string, p UpdateParams) error

	IncrementAccess(ctx context.Context, id string) error

	// Delete is idempotent.
	Delete(ctx context.Context, id string) error

	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error

	// ApplyRetention runs count eviction followed by age expiry.
	ApplyRetention(ctx context.Context) error

	Stats(ctx context.Context) (*Stats, error)

	// IsAvailable is a liveness probe.
	IsAvailable(ctx context.Context) bool

	Close() error
}

const (
	defaultLimit = 10
	// candidatePool caps how many entries are scored per embedding search.
	candidatePool = 100
)

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

// options are shared by both backends.
type options struct {
	retention RetentionPolicy
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a backend.
type Option func(*options)

// WithRetention overrides the default retention policy.
func WithRetention(p RetentionPolicy) Option {
	return func(o *options) { o.retention = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		retention: DefaultRetention(),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}
