package markdown

import (
	"strings"
	"testing"
)

const sample = `# Report

Intro paragraph with five words.

| a | b |
|---|---|
| 1 | 2 |

## Results

Inline math $x^2$ and a display block:

$$\sum_{i=0}^n i$$

![figure](images/fig1.png)
`

func TestAnalyze(t *testing.T) {
	s := Analyze(sample)
	if s.Tables != 1 {
		t.Fatalf("tables = %d, want 1", s.Tables)
	}
	if s.Headings != 2 {
		t.Fatalf("headings = %d, want 2", s.Headings)
	}
	if s.Images != 1 {
		t.Fatalf("images = %d, want 1", s.Images)
	}
	if s.Formulas != 2 {
		t.Fatalf("formulas = %d, want 2", s.Formulas)
	}
	if s.Words == 0 {
		t.Fatalf("expected non-zero word count")
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	s := Analyze("")
	if s != (Stats{}) {
		t.Fatalf("empty input should yield zero stats, got %+v", s)
	}
}

func TestCountFormulas(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"no math here", 0},
		{"$a$", 1},
		{"$a$ and $b$", 2},
		{"$$block$$", 1},
		{"$$block$$ plus $inline$", 2},
		{"lone $ sign", 0},
	}
	for _, c := range cases {
		if got := countFormulas(c.in); got != c.want {
			t.Fatalf("countFormulas(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestToHTML(t *testing.T) {
	out, err := ToHTML(sample)
	if err != nil {
		t.Fatalf("ToHTML() error = %v", err)
	}
	if !strings.Contains(out, "<table>") {
		t.Fatalf("expected a rendered table: %s", out)
	}
	if !strings.Contains(out, "<h1") {
		t.Fatalf("expected a rendered heading: %s", out)
	}
	if !strings.Contains(out, "math") {
		t.Fatalf("expected MathML output for formulas: %s", out)
	}
}

func TestExtractText(t *testing.T) {
	got := extractText("<p>one <strong>two</strong></p><table><tr><td>three</td></tr></table>")
	for _, w := range []string{"one", "two", "three"} {
		if !strings.Contains(got, w) {
			t.Fatalf("missing %q in %q", w, got)
		}
	}
	if strings.Contains(got, "<") {
		t.Fatalf("markup leaked into text: %q", got)
	}
}
