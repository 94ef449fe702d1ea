// Package embedding provides a pluggable interface for text embedding providers.
package embedding

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
	// Name identifies the provider and model, e.g. "openai/text-embedding-3-small".
	Name() string
}

// BatchEmbedder is implemented by providers with a native batch endpoint.
// Results are in input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
}

// batchConcurrency bounds the fan-out used for providers without a batch API.
const batchConcurrency = 4

// EmbedBatch embeds texts in order, using the provider's batch endpoint when
// it has one.
func EmbedBatch(ctx context.Context, e Embedder, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if b, ok := e.(BatchEmbedder); ok {
		return b.EmbedBatch(ctx, texts)
	}

	out := make([]Vector, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			v, err := e.Embed(gctx, text)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
