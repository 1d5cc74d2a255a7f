package web

import (
	"bytes"
	"html/template"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Raw HTML in the docs is escaped: html.WithUnsafe is never set.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, emoji.Emoji),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// section is one heading of a help topic, linkable through its generated anchor.
type section struct {
	ID    string
	Title string
	Level int
}

// helpPage is a rendered docs topic with its section index.
type helpPage struct {
	Topic    string
	Sections []section
	Body     template.HTML
}

// Topics are embedded in the binary, so each one is rendered at most once.
var (
	helpMu    sync.Mutex
	helpPages = map[string]helpPage{}
)

func renderHelp(topic, src string) helpPage {
	helpMu.Lock()
	defer helpMu.Unlock()
	if p, ok := helpPages[topic]; ok {
		return p
	}
	p := renderMarkdownPage(src)
	p.Topic = topic
	helpPages[topic] = p
	return p
}

func renderMarkdownPage(src string) helpPage {
	b := []byte(strings.TrimSpace(src))
	if len(b) == 0 {
		return helpPage{}
	}
	doc := markdown.Parser().Parse(text.NewReader(b))

	var page helpPage
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		s := section{Title: string(h.Text(b)), Level: h.Level}
		if id, ok := h.AttributeString("id"); ok {
			if raw, ok := id.([]byte); ok {
				s.ID = string(raw)
			}
		}
		page.Sections = append(page.Sections, s)
		return ast.WalkSkipChildren, nil
	})

	var out bytes.Buffer
	if err := markdown.Renderer().Render(&out, b, doc); err != nil {
		page.Body = template.HTML("<pre>" + template.HTMLEscapeString(string(b)) + "</pre>")
		return page
	}
	page.Body = template.HTML(out.String())
	return page
}
