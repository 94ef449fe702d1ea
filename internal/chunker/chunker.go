// Package chunker splits markdown documents into heading-scoped sections
// suitable for storing as individual memories.
package chunker

import (
	"strings"
)

const (
	DefaultMaxSize = 1200
	DefaultMinSize = 40
)

// Options configures splitting.
type Options struct {
	// MaxSize is the largest section body in bytes; longer bodies are split
	// on line boundaries.
	MaxSize int
	// Sections whose body is shorter than MinSize are folded into the
	// preceding section of the same scope.
	MinSize int
}

// DefaultOptions returns default splitting options.
func DefaultOptions() Options {
	return Options{MaxSize: DefaultMaxSize, MinSize: DefaultMinSize}
}

// Section is a run of text under one heading.
type Section struct {
	// Path holds the enclosing headings from outermost to innermost.
	// Empty for text before the first heading.
	Path      []string
	Text      string
	StartLine int
	EndLine   int
}

// Heading returns the innermost heading, or "" for preamble text.
func (s Section) Heading() string {
	if len(s.Path) == 0 {
		return ""
	}
	return s.Path[len(s.Path)-1]
}

// Title joins the heading path, e.g. "Setup > Database".
func (s Section) Title() string {
	return strings.Join(s.Path, " > ")
}

// Split breaks a markdown document at ATX headings. Headings inside fenced
// code blocks are ignored.
func Split(text string, opts Options) []Section {
	if opts.MaxSize <= 0 {
		opts = DefaultOptions()
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var (
		sections []Section
		stack    []heading
		body     []string
		start    = 1
		inFence  bool
	)

	flush := func(end int) {
		t := strings.TrimSpace(strings.Join(body, "\n"))
		body = nil
		if t == "" {
			return
		}
		sections = append(sections, Section{
			Path:      pathOf(stack),
			Text:      t,
			StartLine: start,
			EndLine:   end,
		})
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		n := i + 1
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence {
			if h, ok := parseHeading(trimmed); ok {
				flush(n - 1)
				for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
					stack = stack[:len(stack)-1]
				}
				stack = append(stack, h)
				start = n + 1
				continue
			}
		}
		if len(body) == 0 && trimmed == "" {
			start = n + 1
			continue
		}
		body = append(body, line)
	}
	flush(len(lines))

	sections = foldSmall(sections, opts.MinSize)

	var out []Section
	for _, s := range sections {
		out = append(out, splitLong(s, opts.MaxSize)...)
	}
	return out
}

type heading struct {
	level int
	title string
}

// parseHeading recognises "# Title" through "###### Title".
func parseHeading(line string) (heading, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return heading{}, false
	}
	rest := line[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return heading{}, false
	}
	title := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#"))
	if title == "" {
		return heading{}, false
	}
	return heading{level: level, title: title}, true
}

func pathOf(stack []heading) []string {
	if len(stack) == 0 {
		return nil
	}
	path := make([]string, len(stack))
	for i, h := range stack {
		path[i] = h.title
	}
	return path
}

// foldSmall appends short sections to the previous section when it is
// their parent or sibling.
func foldSmall(sections []Section, minSize int) []Section {
	var out []Section
	for _, s := range sections {
		if len(out) > 0 && len(s.Text) < minSize {
			prev := &out[len(out)-1]
			if sameScope(prev.Path, s.Path) {
				prev.Text += "\n\n" + labelled(s)
				prev.EndLine = s.EndLine
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func sameScope(prev, next []string) bool {
	if len(next) == 0 || len(prev) > len(next) {
		return false
	}
	for i := 0; i < len(prev)-1; i++ {
		if prev[i] != next[i] {
			return false
		}
	}
	return len(prev) == 0 || len(prev) == len(next) || prev[len(prev)-1] == next[len(prev)-1]
}

func labelled(s Section) string {
	if h := s.Heading(); h != "" {
		return h + ": " + s.Text
	}
	return s.Text
}

// splitLong breaks a section body on line boundaries so each part stays
// within maxSize. A single oversized line is kept whole.
func splitLong(s Section, maxSize int) []Section {
	if len(s.Text) <= maxSize {
		return []Section{s}
	}
	var (
		parts   []Section
		current []string
		size    int
		first   = s.StartLine
	)
	lines := strings.Split(s.Text, "\n")
	emit := func(last int) {
		t := strings.TrimSpace(strings.Join(current, "\n"))
		if t != "" {
			parts = append(parts, Section{Path: s.Path, Text: t, StartLine: first, EndLine: last})
		}
		current = nil
		size = 0
	}
	for i, line := range lines {
		if size+len(line) > maxSize && len(current) > 0 {
			emit(s.StartLine + i - 1)
			first = s.StartLine + i
		}
		current = append(current, line)
		size += len(line) + 1
	}
	emit(s.StartLine + len(lines) - 1)
	return parts
}
