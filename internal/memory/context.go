package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/project-memory/internal/model"
	"github.com/rcliao/project-memory/internal/store"
)

const (
	contextRelevant  = 5
	contextImportant = 3
)

// GetContextForQuery renders the entries most relevant to query plus the
// project's most important entries as a bullet list for prompt injection.
// Relevant entries come first and duplicates keep their first position.
// It returns "" when there is nothing to show.
func (m *ProjectMemory) GetContextForQuery(ctx context.Context, query string) (string, error) {
	relevant, err := m.Search(ctx, query, store.SearchParams{Limit: contextRelevant})
	if err != nil {
		return "", fmt.Errorf("search context: %w", err)
	}
	important, err := m.GetImportant(ctx, contextImportant)
	if err != nil {
		return "", fmt.Errorf("load important: %w", err)
	}

	entries := dedupe(relevant, important)
	if len(entries) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Project knowledge (%s)\n", m.projectID)
	for _, e := range entries {
		fmt.Fprintf(&b, "- [%s] %s\n", e.Type, oneLine(e.Content))
	}
	return b.String(), nil
}

func dedupe(groups ...[]model.Entry) []model.Entry {
	seen := map[string]bool{}
	var out []model.Entry
	for _, g := range groups {
		for _, e := range g {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	return out
}

// oneLine keeps multi-line content inside a single bullet.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
