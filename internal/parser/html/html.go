package html

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is the tree node used for block content throughout pagedit.
type Node = html.Node

// Attribute is a single element attribute.
type Attribute = html.Attribute

const (
	ElementNode = html.ElementNode
	TextNode    = html.TextNode
)

// Parser reads editor markup fragments
type Parser struct{}

// Document is a parsed markup fragment. Root is a synthetic <div> holding
// the fragment's top-level nodes.
type Document struct {
	Root *Node
}

// NewParser creates a new markup parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseString parses markup from a string
func (p *Parser) ParseString(content string) (*Document, error) {
	return p.Parse(strings.NewReader(content))
}

// Parse parses a markup fragment in a <div> context. Full documents are
// accepted too; their <body> contents become the fragment.
func (p *Parser) Parse(r io.Reader) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markup: %w", err)
	}

	root := Element("div")
	if isFullDocument(src) {
		full, err := html.Parse(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML: %w", err)
		}
		body := FindFirst(full, func(n *Node) bool { return IsElement(n, "body") })
		if body != nil {
			MoveChildren(body, root)
		}
		return &Document{Root: root}, nil
	}

	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(bytes.NewReader(src), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{Root: root}, nil
}

func isFullDocument(src []byte) bool {
	head := strings.ToLower(string(src[:min(len(src), 512)]))
	return strings.Contains(head, "<!doctype") || strings.Contains(head, "<html")
}

// Render writes the children of the fragment root.
func (d *Document) Render() (string, error) {
	return RenderChildren(d.Root)
}

// Render serializes one node with its subtree.
func Render(n *Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderChildren serializes the children of n without n itself.
func RenderChildren(n *Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// Element creates a detached element. attrs are key/value pairs.
func Element(tag string, attrs ...string) *Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Text creates a detached text node.
func Text(s string) *Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// IsElement reports whether n is an element with the given tag.
// An empty tag matches any element.
func IsElement(n *Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && (tag == "" || n.Data == tag)
}

// Attr returns the attribute value and whether it is present.
func Attr(n *Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value or def when absent.
func AttrOr(n *Node, key, def string) string {
	if v, ok := Attr(n, key); ok {
		return v
	}
	return def
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}

// Classes returns the class list of n.
func Classes(n *Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether n carries class c.
func HasClass(n *Node, c string) bool {
	if !IsElement(n, "") {
		return false
	}
	for _, cl := range Classes(n) {
		if cl == c {
			return true
		}
	}
	return false
}

// AddClass adds c to the class list if missing.
func AddClass(n *Node, c string) {
	if HasClass(n, c) {
		return
	}
	SetAttr(n, "class", strings.TrimSpace(strings.Join(append(Classes(n), c), " ")))
}

// RemoveClass drops c from the class list. The attribute is removed when
// it becomes empty.
func RemoveClass(n *Node, c string) {
	var kept []string
	for _, cl := range Classes(n) {
		if cl != c {
			kept = append(kept, cl)
		}
	}
	if len(kept) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// FindFirst returns the first node in pre-order (n included) satisfying pred.
func FindFirst(n *Node, pred func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := FindFirst(c, pred); f != nil {
			return f
		}
	}
	return nil
}

// FindAll returns all nodes in pre-order (n included) satisfying pred.
// It does not descend into matched nodes.
func FindAll(n *Node, pred func(*Node) bool) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if pred(n) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// ByClass returns the first descendant-or-self element with class c.
func ByClass(n *Node, c string) *Node {
	return FindFirst(n, func(x *Node) bool { return HasClass(x, c) })
}

// ChildByClass returns the first direct child element with class c.
func ChildByClass(n *Node, c string) *Node {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if HasClass(ch, c) {
			return ch
		}
	}
	return nil
}

// Detach removes n from its parent. It is a no-op for detached nodes.
func Detach(n *Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// MoveChildren moves every child of from to the end of to, in order.
func MoveChildren(from, to *Node) {
	for c := from.FirstChild; c != nil; {
		next := c.NextSibling
		from.RemoveChild(c)
		to.AppendChild(c)
		c = next
	}
}

// RemoveChildren drops every child of n.
func RemoveChildren(n *Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// CloneShallow copies an element's tag and attributes without children.
func CloneShallow(n *Node) *Node {
	c := &html.Node{Type: n.Type, Data: n.Data, DataAtom: n.DataAtom, Namespace: n.Namespace}
	c.Attr = append([]html.Attribute(nil), n.Attr...)
	return c
}

// Clone deep-copies n.
func Clone(n *Node) *Node {
	c := CloneShallow(n)
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(Clone(ch))
	}
	return c
}

// TextContent concatenates all text under n.
func TextContent(n *Node) string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return b.String()
}

// SetText replaces all children of n with one text node.
func SetText(n *Node, s string) {
	RemoveChildren(n)
	n.AppendChild(Text(s))
}

// Contains reports whether d is n or a descendant of n.
func Contains(n, d *Node) bool {
	for x := d; x != nil; x = x.Parent {
		if x == n {
			return true
		}
	}
	return false
}

// Walk calls fn for n and every descendant in pre-order. Children are read
// before fn runs on them, so fn may detach the node it is given.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, fn)
		c = next
	}
}

// Escape escapes text for inclusion in markup.
func Escape(s string) string {
	return html.EscapeString(s)
}
