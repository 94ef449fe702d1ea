package memory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/project-memory/internal/chunker"
	"github.com/rcliao/project-memory/internal/embedding"
	"github.com/rcliao/project-memory/internal/model"
)

// IngestOptions controls how a document is stored.
type IngestOptions struct {
	Type       model.EntryType // defaults to context
	Importance *float64        // defaults to the type's importance
	Tags       []string        // added to every section
	Source     string          // recorded in metadata, e.g. a file path
	Chunk      chunker.Options
}

// Ingest splits a markdown document into heading-scoped sections and stores
// each as an entry tagged with its lowercased heading. Returns the new ids
// in document order.
func (m *ProjectMemory) Ingest(ctx context.Context, doc string, o IngestOptions) ([]string, error) {
	sections := chunker.Split(doc, o.Chunk)
	if len(sections) == 0 {
		return nil, nil
	}

	typ := o.Type
	if typ == "" {
		typ = model.TypeContext
	}
	importance, ok := model.TypeImportance[typ]
	if !ok {
		importance = model.DefaultImportance
	}
	if o.Importance != nil {
		importance = *o.Importance
	}

	contents := make([]string, len(sections))
	for i, s := range sections {
		if title := s.Title(); title != "" {
			contents[i] = title + "\n\n" + s.Text
		} else {
			contents[i] = s.Text
		}
	}

	var vectors []embedding.Vector
	if m.embedder != nil {
		var err error
		vectors, err = embedding.EmbedBatch(ctx, m.embedder, contents)
		if err != nil {
			m.logger.Warn("batch embedding failed, ingesting without vectors", zap.Error(err))
			vectors = nil
		}
	}

	ids := make([]string, 0, len(sections))
	for i, s := range sections {
		meta := map[string]any{
			"start_line": s.StartLine,
			"end_line":   s.EndLine,
		}
		if o.Source != "" {
			meta["source"] = o.Source
		}
		if title := s.Title(); title != "" {
			meta["section"] = title
		}

		tags := append([]string(nil), o.Tags...)
		if h := s.Heading(); h != "" {
			tags = append(tags, strings.ToLower(h))
		}

		var vec []float32
		if vectors != nil {
			vec = vectors[i]
		}
		id, err := m.store.Store(ctx, model.NewEntry{
			Content:    contents[i],
			Type:       typ,
			Importance: importance,
			Embedding:  vec,
			Metadata:   meta,
			Tags:       tags,
		})
		if err != nil {
			return ids, fmt.Errorf("store section %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	m.logger.Debug("ingested document", zap.String("source", o.Source), zap.Int("sections", len(ids)))
	return ids, nil
}
