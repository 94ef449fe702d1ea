package store

import (
	"context"
	"os"
)

// Stats holds per-project storage statistics.
type Stats struct {
	Backend       string         `json:"backend"`
	ProjectID     string         `json:"project_id"`
	Location      string         `json:"location,omitempty"`
	SizeBytes     int64          `json:"size_bytes,omitempty"`
	Total         int            `json:"total"`
	WithEmbedding int            `json:"with_embedding"`
	ByType        map[string]int `json:"by_type"`
}

// Stats returns statistics for the bound project.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		Backend:   "sqlite",
		ProjectID: s.projectID,
		Location:  s.path,
		ByType:    map[string]int{},
	}

	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(embedding) FROM memories WHERE project_id = ?`,
		s.projectID).Scan(&st.Total, &st.WithEmbedding)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT type, COUNT(*) FROM memories WHERE project_id = ?
		GROUP BY type ORDER BY COUNT(*) DESC`, s.projectID)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return st, err
		}
		st.ByType[typ] = n
	}
	return st, rows.Err()
}
