// Package pagesource pretty-prints the serialized DOM returned by the browser.
package pagesource

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Options controls Format output.
type Options struct {
	// Indent is repeated once per nesting level. Empty means two spaces.
	Indent string
	// DropComments omits comment nodes.
	DropComments bool
}

// Format parses src as an HTML document and re-renders it one node per line.
// Whitespace inside pre, textarea, script and style is kept as is.
func Format(src string, opts Options) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("failed to parse page source: %w", err)
	}
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	p := printer{opts: opts}
	if err := p.children(doc, 0); err != nil {
		return "", err
	}
	return p.buf.String(), nil
}

type printer struct {
	buf  bytes.Buffer
	opts Options
}

func (p *printer) indent(depth int) {
	for i := 0; i < depth; i++ {
		p.buf.WriteString(p.opts.Indent)
	}
}

func (p *printer) children(n *html.Node, depth int) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := p.node(c, depth); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) node(n *html.Node, depth int) error {
	switch n.Type {
	case html.DoctypeNode:
		p.indent(depth)
		p.buf.WriteString("<!DOCTYPE " + n.Data + ">\n")

	case html.CommentNode:
		if p.opts.DropComments {
			return nil
		}
		p.indent(depth)
		p.buf.WriteString("<!--" + n.Data + "-->\n")

	case html.TextNode:
		text := strings.Join(strings.Fields(n.Data), " ")
		if text == "" {
			return nil
		}
		p.indent(depth)
		p.buf.WriteString(html.EscapeString(text))
		p.buf.WriteByte('\n')

	case html.ElementNode:
		p.indent(depth)
		if preformatted(n.Data) {
			if err := html.Render(&p.buf, n); err != nil {
				return fmt.Errorf("failed to render <%s>: %w", n.Data, err)
			}
			p.buf.WriteByte('\n')
			return nil
		}
		p.startTag(n)
		if void(n.Data) {
			return nil
		}
		if err := p.children(n, depth+1); err != nil {
			return err
		}
		p.indent(depth)
		p.buf.WriteString("</" + n.Data + ">\n")

	default:
		return p.children(n, depth)
	}
	return nil
}

func (p *printer) startTag(n *html.Node) {
	p.buf.WriteString("<" + n.Data)
	for _, a := range n.Attr {
		p.buf.WriteByte(' ')
		if a.Namespace != "" {
			p.buf.WriteString(a.Namespace + ":")
		}
		p.buf.WriteString(a.Key)
		p.buf.WriteString(`="`)
		p.buf.WriteString(html.EscapeString(a.Val))
		p.buf.WriteByte('"')
	}
	p.buf.WriteString(">\n")
}

func preformatted(tag string) bool {
	switch tag {
	case "pre", "textarea", "script", "style":
		return true
	}
	return false
}

// void elements have no end tag.
func void(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}
