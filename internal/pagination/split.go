package pagination

import (
	"strings"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/geometry"
	"github.com/gompdf/pagedit/internal/parser/html"
)

// atomic elements are never descended into when looking for a split point.
var atomic = map[string]bool{
	"img": true, "br": true, "hr": true, "svg": true, "table": true,
}

// split divides b at the first content unit whose bottom passes usable.
// That unit and everything after it move into a new continuation block,
// which is returned. It returns nil when no unit before the overflow fits,
// leaving b untouched.
func (e *Engine) split(p *doc.Page, b *doc.Block, usable float64) *doc.Block {
	if b.Content == nil {
		return nil
	}
	blockBottom, err := geometry.BottomEdge(e.probe, p, b)
	if err != nil {
		return nil
	}
	contentBottom, err := e.probe.NodeBottom(p, b, b.Content)
	if err != nil {
		return nil
	}
	// Room is left for the padding and border below the content.
	budget := usable - max(0, blockBottom-contentBottom)

	var path []*html.Node
	container := b.Content
	var unit *html.Node
	for unit == nil {
		over := e.firstOver(p, b, container, budget)
		if over == nil {
			return nil
		}
		if over.Type == html.ElementNode && !atomic[over.Data] {
			if fc := e.firstMeasured(p, b, over); fc != nil && e.fits(p, b, fc, budget) {
				path = append(path, over)
				container = over
				continue
			}
		}
		if over.Type == html.TextNode {
			if tail := e.splitText(p, b, over, budget); tail != nil {
				over = tail
			}
		}
		unit = over
	}
	if !hasContentBefore(unit, b.Content) {
		return nil
	}

	cont := e.registry.Continuation(b)
	targets := []*html.Node{cont.Content}
	for _, c := range path {
		shell := html.CloneShallow(c)
		targets[len(targets)-1].AppendChild(shell)
		targets = append(targets, shell)
	}

	moveFrom(unit, targets[len(targets)-1])
	for i := len(path) - 1; i >= 0; i-- {
		if next := path[i].NextSibling; next != nil {
			moveFrom(next, targets[i])
		}
	}
	return cont
}

// firstOver returns the first measured child of container whose bottom
// passes budget.
func (e *Engine) firstOver(p *doc.Page, b *doc.Block, container *html.Node, budget float64) *html.Node {
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		bottom, err := e.probe.NodeBottom(p, b, c)
		if err != nil {
			continue
		}
		if bottom > budget {
			return c
		}
	}
	return nil
}

func (e *Engine) firstMeasured(p *doc.Page, b *doc.Block, n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if _, err := e.probe.NodeBottom(p, b, c); err == nil {
			return c
		}
	}
	return nil
}

func (e *Engine) fits(p *doc.Page, b *doc.Block, n *html.Node, budget float64) bool {
	bottom, err := e.probe.NodeBottom(p, b, n)
	return err == nil && bottom <= budget
}

// splitText cuts a text node before its first line passing budget, when
// the probe reports lines and an earlier line fits. The tail becomes a new
// sibling text node, which is returned.
func (e *Engine) splitText(p *doc.Page, b *doc.Block, n *html.Node, budget float64) *html.Node {
	tp, ok := e.probe.(geometry.TextProbe)
	if !ok {
		return nil
	}
	lines, err := tp.TextLines(p, b, n)
	if err != nil {
		return nil
	}
	for i, l := range lines {
		if l.Bottom <= budget {
			continue
		}
		if i == 0 || l.Offset <= 0 || l.Offset >= len(n.Data) {
			return nil
		}
		tail := html.Text(n.Data[l.Offset:])
		n.Data = n.Data[:l.Offset]
		n.Parent.InsertBefore(tail, n.NextSibling)
		return tail
	}
	return nil
}

// hasContentBefore reports whether anything visible precedes n inside root.
func hasContentBefore(n, root *html.Node) bool {
	for x := n; x != nil && x != root; x = x.Parent {
		for s := x.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode || (s.Type == html.TextNode && strings.TrimSpace(s.Data) != "") {
				return true
			}
		}
	}
	return false
}

// moveFrom moves n and its following siblings to the end of to.
func moveFrom(n, to *html.Node) {
	for n != nil {
		next := n.NextSibling
		html.Detach(n)
		to.AppendChild(n)
		n = next
	}
}
