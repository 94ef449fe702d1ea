// Package memory is the ProjectMemory facade: it binds one project to a
// storage backend and an optional embedding provider, and exposes the
// store/search/context operations callers use.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/project-memory/internal/embedding"
	"github.com/rcliao/project-memory/internal/model"
	"github.com/rcliao/project-memory/internal/store"
)

var (
	ErrNoProject = errors.New("project id is required")
	ErrNoStorage = errors.New("no storage backend available")
)

// Storage types reported by StorageType.
const (
	StoragePrimary   = "primary"
	StorageSecondary = "secondary"
)

// EmbeddingConfig selects the embedding providers. Fallback is tried when
// Primary cannot be constructed.
type EmbeddingConfig struct {
	Enabled   bool
	Primary   embedding.Config
	Fallback  embedding.Config
	CacheSize int64
	Guard     embedding.GuardConfig
}

// Config holds everything needed to open a ProjectMemory.
type Config struct {
	ProjectID string

	RedisURL            string
	RedisConnectTimeout time.Duration
	KeyPrefix           string

	SQLitePath string

	// Retention defaults to store.DefaultRetention when zero.
	Retention store.RetentionPolicy

	Embedding EmbeddingConfig

	ConversationSize int
}

type settings struct {
	logger    *zap.Logger
	embedder  embedding.Embedder
	storeOpts []store.Option
}

// Option configures New.
type Option func(*settings)

// WithLogger sets the logger used by the facade and its backend.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithEmbedder binds e directly instead of building one from the
// configuration.
func WithEmbedder(e embedding.Embedder) Option {
	return func(s *settings) { s.embedder = e }
}

// WithStoreOptions passes extra options to the backend.
func WithStoreOptions(opts ...store.Option) Option {
	return func(s *settings) { s.storeOpts = append(s.storeOpts, opts...) }
}

// ProjectMemory is safe for concurrent use.
type ProjectMemory struct {
	projectID    string
	store        store.Store
	storageType  string
	embedder     embedding.Embedder
	providerName string
	cache        *embedding.Cached
	conversation *Conversation
	logger       *zap.Logger
}

// New opens the memory for cfg.ProjectID. Embedding problems only disable
// semantic search. Redis is used when configured and reachable, otherwise
// SQLite; an error is returned only when neither can be opened.
func New(ctx context.Context, cfg Config, opts ...Option) (*ProjectMemory, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, ErrNoProject
	}

	st := settings{}
	for _, opt := range opts {
		opt(&st)
	}
	if st.logger == nil {
		st.logger = zap.NewNop()
	}
	log := st.logger.With(zap.String("project", cfg.ProjectID))

	m := &ProjectMemory{
		projectID:    cfg.ProjectID,
		conversation: NewConversation(cfg.ConversationSize),
		logger:       log,
	}
	m.bindEmbedder(cfg.Embedding, st.embedder)

	retention := cfg.Retention
	if retention == (store.RetentionPolicy{}) {
		retention = store.DefaultRetention()
	}
	storeOpts := append([]store.Option{
		store.WithLogger(log),
		store.WithRetention(retention),
	}, st.storeOpts...)

	if cfg.RedisURL != "" {
		rs, err := store.NewRedisStore(ctx, store.RedisConfig{
			URL:            cfg.RedisURL,
			ConnectTimeout: cfg.RedisConnectTimeout,
			KeyPrefix:      cfg.KeyPrefix,
		}, cfg.ProjectID, storeOpts...)
		switch {
		case err != nil:
			log.Warn("primary storage unavailable, using secondary", zap.Error(err))
		case !rs.IsAvailable(ctx):
			log.Warn("primary storage failed liveness probe, using secondary")
			rs.Close()
		default:
			m.store = rs
			m.storageType = StoragePrimary
		}
	}

	if m.store == nil {
		if cfg.SQLitePath == "" {
			m.closeCache()
			return nil, fmt.Errorf("%w: no sqlite path configured", ErrNoStorage)
		}
		ss, err := store.NewSQLiteStore(cfg.SQLitePath, cfg.ProjectID, storeOpts...)
		if err != nil {
			m.closeCache()
			return nil, fmt.Errorf("%w: %w", ErrNoStorage, err)
		}
		m.store = ss
		m.storageType = StorageSecondary
	}

	log.Info("project memory ready",
		zap.String("storage", m.storageType),
		zap.String("embedding", m.EmbeddingProvider()))
	return m, nil
}

// bindEmbedder resolves the embedder: an injected one wins, then the
// primary provider, then the fallback.
func (m *ProjectMemory) bindEmbedder(cfg EmbeddingConfig, injected embedding.Embedder) {
	e := injected
	if e == nil && cfg.Enabled {
		var err error
		e, err = embedding.New(cfg.Primary)
		if err != nil {
			m.logger.Warn("primary embedding provider unavailable", zap.Error(err))
			if cfg.Fallback.Provider != "" && cfg.Fallback.Provider != embedding.ProviderNone {
				e, err = embedding.New(cfg.Fallback)
				if err != nil {
					m.logger.Warn("fallback embedding provider unavailable", zap.Error(err))
				}
			}
		}
	}
	if e == nil {
		m.logger.Info("semantic search disabled")
		return
	}

	m.providerName = e.Name()
	guarded := embedding.Guard(e, cfg.Guard, m.logger)
	m.embedder = guarded
	if cfg.CacheSize > 0 {
		cached, err := embedding.NewCached(guarded, cfg.CacheSize)
		if err != nil {
			m.logger.Warn("embedding cache disabled", zap.Error(err))
			return
		}
		m.cache = cached
		m.embedder = cached
	}
}

func (m *ProjectMemory) closeCache() {
	if m.cache != nil {
		m.cache.Close()
	}
}

// embed returns nil when no provider is bound or the provider fails.
func (m *ProjectMemory) embed(ctx context.Context, text string) []float32 {
	if m.embedder == nil {
		return nil
	}
	v, err := m.embedder.Embed(ctx, text)
	if err != nil {
		m.logger.Warn("embedding failed, storing without vector", zap.Error(err))
		return nil
	}
	return v
}

// ProjectID returns the bound project.
func (m *ProjectMemory) ProjectID() string { return m.projectID }

// StorageType reports "primary" or "secondary".
func (m *ProjectMemory) StorageType() string { return m.storageType }

// EmbeddingProvider names the bound provider, or "none".
func (m *ProjectMemory) EmbeddingProvider() string {
	if m.embedder == nil {
		return "none"
	}
	return m.providerName
}

// Conversation returns the short-term buffer for this project.
func (m *ProjectMemory) Conversation() *Conversation { return m.conversation }

// StoreOptions are optional fields for Store. A nil Importance means the
// default for the entry type.
type StoreOptions struct {
	Importance *float64
	Metadata   map[string]any
	Tags       []string
}

// Store records content under t. The type is trusted as given.
func (m *ProjectMemory) Store(ctx context.Context, content string, t model.EntryType, o StoreOptions) (string, error) {
	importance := model.DefaultImportance
	if o.Importance != nil {
		importance = *o.Importance
	}
	return m.store.Store(ctx, model.NewEntry{
		Content:    content,
		Type:       t,
		Importance: importance,
		Embedding:  m.embed(ctx, content),
		Metadata:   o.Metadata,
		Tags:       o.Tags,
	})
}

func (m *ProjectMemory) storeTyped(ctx context.Context, content string, t model.EntryType, o StoreOptions) (string, error) {
	if o.Importance == nil {
		v := model.TypeImportance[t]
		o.Importance = &v
	}
	return m.Store(ctx, content, t, o)
}

func (m *ProjectMemory) StoreArchitecture(ctx context.Context, content string, o StoreOptions) (string, error) {
	return m.storeTyped(ctx, content, model.TypeArchitecture, o)
}

func (m *ProjectMemory) StoreDecision(ctx context.Context, content string, o StoreOptions) (string, error) {
	return m.storeTyped(ctx, content, model.TypeDecision, o)
}

func (m *ProjectMemory) StorePattern(ctx context.Context, content string, o StoreOptions) (string, error) {
	return m.storeTyped(ctx, content, model.TypePattern, o)
}

func (m *ProjectMemory) StoreContext(ctx context.Context, content string, o StoreOptions) (string, error) {
	return m.storeTyped(ctx, content, model.TypeContext, o)
}

func (m *ProjectMemory) StoreDependency(ctx context.Context, content string, o StoreOptions) (string, error) {
	return m.storeTyped(ctx, content, model.TypeDependency, o)
}

func (m *ProjectMemory) StoreConfig(ctx context.Context, content string, o StoreOptions) (string, error) {
	return m.storeTyped(ctx, content, model.TypeConfig, o)
}

func (m *ProjectMemory) StoreTodo(ctx context.Context, content string, o StoreOptions) (string, error) {
	return m.storeTyped(ctx, content, model.TypeTodo, o)
}

func (m *ProjectMemory) StoreIssue(ctx context.Context, content string, o StoreOptions) (string, error) {
	return m.storeTyped(ctx, content, model.TypeIssue, o)
}

// Get returns nil, nil when id is unknown.
func (m *ProjectMemory) Get(ctx context.Context, id string) (*model.Entry, error) {
	return m.store.Get(ctx, id)
}

// Search uses vector similarity when an embedder is bound and falls back to
// keyword matching when the query cannot be embedded.
func (m *ProjectMemory) Search(ctx context.Context, query string, p store.SearchParams) ([]model.Entry, error) {
	if m.embedder != nil {
		v, err := m.embedder.Embed(ctx, query)
		if err == nil {
			return m.store.SearchByEmbedding(ctx, v, p)
		}
		m.logger.Warn("query embedding failed, using keyword search", zap.Error(err))
	}
	return m.store.SearchByKeyword(ctx, query, p)
}

func (m *ProjectMemory) GetByType(ctx context.Context, t model.EntryType, limit int) ([]model.Entry, error) {
	return m.store.GetByType(ctx, t, limit)
}

func (m *ProjectMemory) GetByTags(ctx context.Context, tags []string, limit int) ([]model.Entry, error) {
	return m.store.GetByTags(ctx, tags, limit)
}

func (m *ProjectMemory) GetRecent(ctx context.Context, limit int) ([]model.Entry, error) {
	return m.store.GetRecent(ctx, limit)
}

func (m *ProjectMemory) GetImportant(ctx context.Context, limit int) ([]model.Entry, error) {
	return m.store.GetImportant(ctx, limit)
}

// Update changes only the supplied fields. Unknown ids are ignored.
func (m *ProjectMemory) Update(ctx context.Context, id string, p store.UpdateParams) error {
	return m.store.Update(ctx, id, p)
}

func (m *ProjectMemory) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

func (m *ProjectMemory) Count(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}

// Clear removes every entry of the project and empties the conversation
// buffer.
func (m *ProjectMemory) Clear(ctx context.Context) error {
	m.conversation.Clear()
	return m.store.Clear(ctx)
}

// Prune runs the retention sweep outside of a store.
func (m *ProjectMemory) Prune(ctx context.Context) error {
	return m.store.ApplyRetention(ctx)
}

func (m *ProjectMemory) IsAvailable(ctx context.Context) bool {
	return m.store.IsAvailable(ctx)
}

// Stats extends backend statistics with facade bindings.
type Stats struct {
	store.Stats
	StorageType       string `json:"storage_type"`
	EmbeddingProvider string `json:"embedding_provider"`
	Conversation      int    `json:"conversation_entries"`
}

func (m *ProjectMemory) Stats(ctx context.Context) (*Stats, error) {
	st, err := m.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}
	return &Stats{
		Stats:             *st,
		StorageType:       m.storageType,
		EmbeddingProvider: m.EmbeddingProvider(),
		Conversation:      m.conversation.Len(),
	}, nil
}

func (m *ProjectMemory) Close() error {
	m.closeCache()
	return m.store.Close()
}
