package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/project-memory/internal/model"
)

const exportVersion = 1

// Export is a portable dump of one project.
type Export struct {
	Version    int           `json:"version"`
	ProjectID  string        `json:"project_id"`
	ExportedAt time.Time     `json:"exported_at"`
	Entries    []model.Entry `json:"entries"`
}

// Export returns every entry of the project, newest first.
func (m *ProjectMemory) Export(ctx context.Context) (*Export, error) {
	n, err := m.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	out := &Export{
		Version:    exportVersion,
		ProjectID:  m.projectID,
		ExportedAt: time.Now().UTC(),
		Entries:    []model.Entry{},
	}
	if n == 0 {
		return out, nil
	}
	entries, err := m.store.GetRecent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("export entries: %w", err)
	}
	out.Entries = append(out.Entries, entries...)
	return out, nil
}

// Import stores entries under this project with new ids, keeping type,
// importance, tags, metadata and vectors. Entries without a vector are
// embedded when a provider is bound. Entries are stored oldest first so
// recency order survives. Returns the number imported.
func (m *ProjectMemory) Import(ctx context.Context, entries []model.Entry) (int, error) {
	imported := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		vec := e.Embedding
		if len(vec) == 0 {
			vec = m.embed(ctx, e.Content)
		}
		_, err := m.store.Store(ctx, model.NewEntry{
			Content:    e.Content,
			Type:       e.Type,
			Importance: e.Importance,
			Embedding:  vec,
			Metadata:   e.Metadata,
			Tags:       e.Tags,
		})
		if err != nil {
			return imported, fmt.Errorf("import entry %s: %w", e.ID, err)
		}
		imported++
	}
	return imported, nil
}
