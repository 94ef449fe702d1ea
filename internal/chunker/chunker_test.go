package chunker

import (
	"strings"
	"testing"
)

func TestSplit_EmptyInput(t *testing.T) {
	if got := Split("  \n\n", DefaultOptions()); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestSplit_NoHeadings(t *testing.T) {
	text := "Just a note about the build."
	got := Split(text, DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 section, got %d", len(got))
	}
	if got[0].Text != text {
		t.Errorf("expected %q, got %q", text, got[0].Text)
	}
	if got[0].Heading() != "" {
		t.Errorf("expected no heading, got %q", got[0].Heading())
	}
}

func TestSplit_HeadingPaths(t *testing.T) {
	body := strings.Repeat("Details that are long enough to stand alone. ", 2)
	text := "# Setup\n\n" + body + "\n\n## Database\n\n" + body + "\n\n## Cache\n\n" + body + "\n\n# Deploy\n\n" + body

	got := Split(text, DefaultOptions())
	want := []string{"Setup", "Setup > Database", "Setup > Cache", "Deploy"}
	if len(got) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Title() != w {
			t.Errorf("section %d: expected title %q, got %q", i, w, got[i].Title())
		}
		if strings.HasPrefix(got[i].Text, "#") {
			t.Errorf("section %d text should not include the heading: %q", i, got[i].Text)
		}
	}
	if got[1].Heading() != "Database" {
		t.Errorf("expected heading Database, got %q", got[1].Heading())
	}
	if got[0].StartLine != 3 {
		t.Errorf("expected first body on line 3, got %d", got[0].StartLine)
	}
}

func TestSplit_IgnoresHeadingsInCodeFence(t *testing.T) {
	text := "# Scripts\n\nRun this to bootstrap the environment:\n\n```sh\n# not a heading\nmake setup\n```\n"
	got := Split(text, DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 section, got %d", len(got))
	}
	if !strings.Contains(got[0].Text, "# not a heading") {
		t.Errorf("fenced comment should stay in the body: %q", got[0].Text)
	}
}

func TestSplit_FoldsShortSections(t *testing.T) {
	long := strings.Repeat("The service talks to Redis first. ", 3)
	text := "# Storage\n\n" + long + "\n\n# Storage Notes\n\nSee wiki."

	got := Split(text, DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected short sibling folded into 1 section, got %d", len(got))
	}
	if !strings.Contains(got[0].Text, "Storage Notes: See wiki.") {
		t.Errorf("expected labelled fold, got %q", got[0].Text)
	}
}

func TestSplit_SplitsLongSections(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, "This is a line of text that is about fifty characters long.")
	}
	text := "# Big\n\n" + strings.Join(lines, "\n")

	got := Split(text, Options{MaxSize: 300, MinSize: 10})
	if len(got) < 2 {
		t.Fatalf("expected multiple parts, got %d", len(got))
	}
	for i, s := range got {
		if len(s.Text) > 300 {
			t.Errorf("part %d exceeds max size: %d", i, len(s.Text))
		}
		if s.Heading() != "Big" {
			t.Errorf("part %d lost its heading: %q", i, s.Heading())
		}
	}
	if got[1].StartLine != got[0].EndLine+1 {
		t.Errorf("expected contiguous line ranges, got %d after %d", got[1].StartLine, got[0].EndLine)
	}
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		line  string
		ok    bool
		level int
		title string
	}{
		{"# Title", true, 1, "Title"},
		{"### Deep ###", true, 3, "Deep"},
		{"#hashtag", false, 0, ""},
		{"####### seven", false, 0, ""},
		{"#", false, 0, ""},
		{"plain", false, 0, ""},
	}
	for _, tt := range tests {
		h, ok := parseHeading(tt.line)
		if ok != tt.ok || h.level != tt.level || h.title != tt.title {
			t.Errorf("parseHeading(%q) = %+v, %v", tt.line, h, ok)
		}
	}
}
