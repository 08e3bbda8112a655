// Package markdown reduces markdown documents to speakable plain text.
package markdown

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PlainText strips markdown structure from src. Code blocks and raw HTML are
// dropped; headings, paragraphs and list items end with a sentence break.
func PlainText(src string) string {
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var buf strings.Builder
	walk(doc, source, &buf)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func walk(node ast.Node, source []byte, buf *strings.Builder) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteByte(' ')
		}
		return

	case *ast.String:
		buf.Write(n.Value)
		return

	case *ast.CodeSpan:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return

	case *ast.AutoLink:
		buf.Write(n.Label(source))
		return

	case *ast.Image:
		// Alt text only.
		walkChildren(n, source, buf)
		return

	case *ast.Heading, *ast.Paragraph, *ast.ListItem:
		walkChildren(n, source, buf)
		endSentence(buf)
		return

	case *ast.ThematicBreak:
		endSentence(buf)
		return
	}

	walkChildren(node, source, buf)
}

func walkChildren(node ast.Node, source []byte, buf *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walk(c, source, buf)
	}
}

// endSentence terminates the text written so far with a period unless it
// already ends in terminal punctuation.
func endSentence(buf *strings.Builder) {
	s := strings.TrimRight(buf.String(), " ")
	if s == "" {
		return
	}
	buf.Reset()
	buf.WriteString(s)
	if r, _ := utf8.DecodeLastRuneInString(s); !strings.ContainsRune(".!?:;。！？", r) {
		buf.WriteByte('.')
	}
	buf.WriteByte(' ')
}
