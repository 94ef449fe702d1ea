package embedding

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/ristretto"
)

// Cached memoizes vectors by exact text. Repeated queries such as the
// per-prompt context lookup skip the provider round trip.
type Cached struct {
	next  Embedder
	cache *ristretto.Cache
}

// NewCached wraps next with a cache holding up to maxEntries vectors.
func NewCached(next Embedder, maxEntries int64) (*Cached, error) {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// Cost is a vector count, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) key(text string) string {
	return c.next.Name() + "\x00" + text
}

// lookup and remember copy vectors so callers never share the cached slice.
func (c *Cached) lookup(text string) (Vector, bool) {
	v, ok := c.cache.Get(c.key(text))
	if !ok {
		return nil, false
	}
	return slices.Clone(v.(Vector)), true
}

func (c *Cached) remember(text string, v Vector) {
	c.cache.Set(c.key(text), slices.Clone(v), 1)
}

func (c *Cached) Embed(ctx context.Context, text string) (Vector, error) {
	if v, ok := c.lookup(text); ok {
		return v, nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.remember(text, v)
	return v, nil
}

func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := c.lookup(text); ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vs, err := EmbedBatch(ctx, c.next, missing)
	if err != nil {
		return nil, err
	}
	for j, v := range vs {
		out[missingIdx[j]] = v
		c.remember(missing[j], v)
	}
	return out, nil
}

// Wait blocks until pending cache writes are applied.
func (c *Cached) Wait() { c.cache.Wait() }

// Close releases the cache.
func (c *Cached) Close() { c.cache.Close() }

func (c *Cached) Dims() int { return c.next.Dims() }

func (c *Cached) Name() string { return c.next.Name() }
