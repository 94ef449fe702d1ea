// Package model defines the core memory data types.
package model

import (
	"strings"
	"time"
)

// EntryType classifies a piece of project knowledge.
type EntryType string

const (
	TypeContext      EntryType = "context"
	TypeArchitecture EntryType = "architecture"
	TypeDependency   EntryType = "dependency"
	TypeConfig       EntryType = "config"
	TypePattern      EntryType = "pattern"
	TypeDecision     EntryType = "decision"
	TypeTodo         EntryType = "todo"
	TypeIssue        EntryType = "issue"
)

// DefaultImportance is used when a caller does not supply one.
const DefaultImportance = 0.5

// ValidTypes are the allowed entry types.
var ValidTypes = map[EntryType]bool{
	TypeContext:      true,
	TypeArchitecture: true,
	TypeDependency:   true,
	TypeConfig:       true,
	TypePattern:      true,
	TypeDecision:     true,
	TypeTodo:         true,
	TypeIssue:        true,
}

// TypeImportance holds the default importance applied by the typed store
// helpers.
var TypeImportance = map[EntryType]float64{
	TypeArchitecture: 0.8,
	TypeDecision:     0.8,
	TypePattern:      0.7,
	TypeContext:      0.7,
	TypeDependency:   0.6,
	TypeConfig:       0.6,
	TypeTodo:         0.5,
	TypeIssue:        0.7,
}

// ParseType maps untrusted input onto a valid type, falling back to
// TypeContext. The second return reports whether the input was valid.
func ParseType(s string) (EntryType, bool) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	if ValidTypes[t] {
		return t, true
	}
	return TypeContext, false
}

// Entry is a unit of persisted project knowledge.
type Entry struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Content     string         `json:"content"`
	Type        EntryType      `json:"type"`
	Importance  float64        `json:"importance"`
	Embedding   []float32      `json:"embedding,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	AccessCount int            `json:"access_count"`
}

// NewEntry is what a caller supplies to create an Entry. The backend assigns
// the id, timestamps and access count.
type NewEntry struct {
	Content    string
	Type       EntryType
	Importance float64
	Embedding  []float32
	Metadata   map[string]any
	Tags       []string
}

// ClampImportance bounds v to [0,1].
func ClampImportance(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
