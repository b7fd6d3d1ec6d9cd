// Package markdown post-processes engine output: response metadata counts
// and the optional HTML rendition of a parse result.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// Stats summarizes the structure of a markdown document.
type Stats struct {
	Tables   int
	Formulas int
	Headings int
	Images   int
	Words    int
}

// Analyze walks the document AST and counts structural elements. Formula
// counting is delimiter based: each $$...$$ block and each inline $...$
// pair counts once.
func Analyze(source string) Stats {
	src := []byte(source)
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	var s Stats
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case east.KindTable:
			s.Tables++
		case ast.KindHeading:
			s.Headings++
		case ast.KindImage:
			s.Images++
		}
		return ast.WalkContinue, nil
	})

	s.Formulas = countFormulas(source)
	s.Words = countWords(source)
	return s
}

func countFormulas(source string) int {
	display := strings.Count(source, "$$")
	inline := strings.Count(source, "$") - display*2
	if inline < 0 {
		inline = 0
	}
	return display/2 + inline/2
}

// countWords renders the document and counts text tokens in the resulting
// HTML, so markup punctuation does not inflate the number.
func countWords(source string) int {
	rendered, err := ToHTML(source)
	if err != nil {
		return len(strings.Fields(source))
	}
	return len(strings.Fields(extractText(rendered)))
}

// ToHTML converts markdown to HTML with GFM tables and MathML rendering of
// TeX formulas.
func ToHTML(source string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			treeblood.MathML(),
		),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// extractText collects the text nodes of an HTML fragment.
func extractText(fragment string) string {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String()
}
