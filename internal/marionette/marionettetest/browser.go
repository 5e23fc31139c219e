package marionettetest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/equalsraf/ffcli/internal/marionette"
)

// elementKey is the W3C web element identifier used in replies.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// Page is a document served by the fake browser.
type Page struct {
	Title  string
	Source string
	Body   []*Node
}

// Node is an element in a Page. Frame elements carry their content document.
type Node struct {
	Tag      string
	ID       string
	Class    string
	Text     string
	Attrs    map[string]string
	Props    map[string]any
	Frame    *Page
	Children []*Node
}

// attribute resolves id and class from their fields and the rest from Attrs.
func (n *Node) attribute(name string) (string, bool) {
	switch {
	case name == "id" && n.ID != "":
		return n.ID, true
	case name == "class" && n.Class != "":
		return n.Class, true
	}
	v, ok := n.Attrs[name]
	return v, ok
}

func (n *Node) walk(fn func(*Node)) {
	for _, child := range n.Children {
		fn(child)
		child.walk(fn)
	}
}

func walkAll(nodes []*Node, fn func(*Node)) {
	for _, n := range nodes {
		fn(n)
		n.walk(fn)
	}
}

type browserState struct {
	pages    map[string]*Page
	history  []string
	position int
	frames   []*Node

	context  marionette.Context
	windows  []string
	window   int
	timeouts marionette.Timeouts
	cookies  []marionette.Cookie
	prefs    map[string]json.RawMessage
	addons   []string
	logs     [][]string

	refs  map[*Node]string
	nodes map[string]*Node
}

func newBrowserState(pages map[string]*Page, start string) *browserState {
	if start == "" {
		start = "about:blank"
	}
	if pages == nil {
		pages = make(map[string]*Page)
	}
	return &browserState{
		pages:    pages,
		history:  []string{start},
		windows:  []string{"window-1"},
		timeouts: marionette.Timeouts{Script: 30000, PageLoad: 300000, Implicit: 0},
		prefs:    make(map[string]json.RawMessage),
		refs:     make(map[*Node]string),
		nodes:    make(map[string]*Node),
	}
}

func (b *browserState) url() string {
	return b.history[b.position]
}

func (b *browserState) page() *Page {
	if p, ok := b.pages[b.url()]; ok {
		return p
	}
	return &Page{Source: "<html><head></head><body></body></html>"}
}

// document returns the innermost document of the current frame stack.
func (b *browserState) document() *Page {
	if len(b.frames) > 0 {
		return b.frames[len(b.frames)-1].Frame
	}
	return b.page()
}

func (b *browserState) navigate(target string) {
	b.history = append(b.history[:b.position+1], canonicalURL(target))
	b.position++
	b.frames = nil
}

// canonicalURL gives hierarchical URLs without a path the root path, the way
// the browser reports them after loading.
func canonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Path != "" || u.Opaque != "" {
		return raw
	}
	u.Path = "/"
	return u.String()
}

func (b *browserState) ref(n *Node) string {
	if id, ok := b.refs[n]; ok {
		return id
	}
	id := fmt.Sprintf("el-%d", len(b.refs)+1)
	b.refs[n] = id
	b.nodes[id] = n
	return id
}

func (b *browserState) encodeRef(n *Node) map[string]string {
	id := b.ref(n)
	return map[string]string{"ELEMENT": id, elementKey: id}
}

func (b *browserState) lookup(id string) (*Node, error) {
	n, ok := b.nodes[id]
	if !ok {
		return nil, &marionette.CallError{Code: "no such element", Message: "unknown element " + id}
	}
	return n, nil
}

// find returns nodes matching the strategy under root, or the current document.
func (b *browserState) find(using, value string, root *Node) ([]*Node, error) {
	match, err := matcher(using, value)
	if err != nil {
		return nil, err
	}
	var found []*Node
	collect := func(n *Node) {
		if match(n) {
			found = append(found, n)
		}
	}
	if root != nil {
		root.walk(collect)
	} else {
		walkAll(b.document().Body, collect)
	}
	return found, nil
}

func matcher(using, value string) (func(*Node) bool, error) {
	switch using {
	case "id":
		return func(n *Node) bool { return n.ID == value }, nil
	case "name":
		return func(n *Node) bool { return n.Attrs["name"] == value }, nil
	case "tag name":
		return func(n *Node) bool { return strings.EqualFold(n.Tag, value) }, nil
	case "class name":
		return func(n *Node) bool { return hasClass(n, value) }, nil
	case "link text":
		return func(n *Node) bool { return n.Tag == "a" && n.Text == value }, nil
	case "partial link text":
		return func(n *Node) bool { return n.Tag == "a" && strings.Contains(n.Text, value) }, nil
	case "css selector":
		return cssMatcher(value), nil
	default:
		return nil, &marionette.CallError{Code: "invalid selector", Message: "unsupported strategy " + using}
	}
}

// cssMatcher understands comma separated lists of "tag", "#id", ".class" and "*".
func cssMatcher(selector string) func(*Node) bool {
	parts := strings.Split(selector, ",")
	return func(n *Node) bool {
		for _, part := range parts {
			part = strings.TrimSpace(part)
			switch {
			case part == "*":
				return true
			case strings.HasPrefix(part, "#"):
				if n.ID == part[1:] {
					return true
				}
			case strings.HasPrefix(part, "."):
				if hasClass(n, part[1:]) {
					return true
				}
			case strings.EqualFold(n.Tag, part):
				return true
			}
		}
		return false
	}
}

func hasClass(n *Node, class string) bool {
	for _, c := range strings.Fields(n.Class) {
		if c == class {
			return true
		}
	}
	return false
}
