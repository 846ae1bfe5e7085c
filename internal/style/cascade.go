package style

import (
	"strings"

	"github.com/gompdf/pagedit/internal/parser/css"
	"github.com/gompdf/pagedit/internal/parser/html"
)

// Specificity represents the specificity of a CSS selector
type Specificity struct {
	ID      int
	Class   int
	Element int
}

// StyleProperty represents a computed style property
type StyleProperty struct {
	Name      string
	Value     string
	Important bool
	Source    Source

	specificity Specificity
	order       int
}

// Source represents the origin of a style property
type Source int

const (
	SourceInherited Source = iota
	SourceUserAgent
	SourceAuthor
	SourceInline
)

// ComputedStyle maps property names to their winning declaration
type ComputedStyle map[string]StyleProperty

// Get returns the property value or "".
func (cs ComputedStyle) Get(name string) string {
	return cs[name].Value
}

// GetOr returns the property value or def when unset.
func (cs ComputedStyle) GetOr(name, def string) string {
	if p, ok := cs[name]; ok && strings.TrimSpace(p.Value) != "" {
		return p.Value
	}
	return def
}

// inherited lists the properties a child takes from its parent when no
// rule sets them.
var inherited = map[string]bool{
	"color":       true,
	"font-family": true,
	"font-size":   true,
	"font-style":  true,
	"font-weight": true,
	"line-height": true,
	"text-align":  true,
	"white-space": true,
}

// StyleEngine resolves styles for editor block nodes
type StyleEngine struct {
	userAgentStyles *css.Stylesheet
	authorStyles    []*css.Stylesheet
}

// NewStyleEngine creates a style engine seeded with the editor block stylesheet
func NewStyleEngine() *StyleEngine {
	return &StyleEngine{
		userAgentStyles: EditorStylesheet(),
	}
}

// AddStylesheet adds an author stylesheet to the style engine
func (e *StyleEngine) AddStylesheet(stylesheet *css.Stylesheet) {
	if stylesheet != nil {
		e.authorStyles = append(e.authorStyles, stylesheet)
	}
}

// Compute resolves the style of one element. parent is the computed style of
// its parent element and supplies inherited properties; it may be nil.
// Selector matching walks node's real ancestors, so nodes must be attached to
// their block wrapper when computed.
func (e *StyleEngine) Compute(node *html.Node, parent ComputedStyle) ComputedStyle {
	style := make(ComputedStyle)
	if !html.IsElement(node, "") {
		return e.inherit(style, parent)
	}

	e.applyStylesheet(style, node, e.userAgentStyles, SourceUserAgent)
	for _, stylesheet := range e.authorStyles {
		e.applyStylesheet(style, node, stylesheet, SourceAuthor)
	}
	e.applyInlineStyles(style, node)

	return e.inherit(style, parent)
}

// ComputeTree resolves styles for root and all its element descendants.
func (e *StyleEngine) ComputeTree(root *html.Node, parent ComputedStyle) map[*html.Node]ComputedStyle {
	result := make(map[*html.Node]ComputedStyle)
	var walk func(n *html.Node, parent ComputedStyle)
	walk = func(n *html.Node, parent ComputedStyle) {
		if n.Type != html.ElementNode {
			return
		}
		cs := e.Compute(n, parent)
		result[n] = cs
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, cs)
		}
	}
	if root != nil {
		walk(root, parent)
	}
	return result
}

func (e *StyleEngine) inherit(style, parent ComputedStyle) ComputedStyle {
	for name, prop := range parent {
		if !inherited[name] {
			continue
		}
		if cur, ok := style[name]; ok && cur.Value != "inherit" {
			continue
		}
		style[name] = StyleProperty{Name: name, Value: prop.Value, Source: SourceInherited}
	}
	return style
}

func (e *StyleEngine) applyStylesheet(style ComputedStyle, node *html.Node, stylesheet *css.Stylesheet, source Source) {
	for _, rule := range stylesheet.Rules {
		for _, selector := range rule.Selectors {
			if selectorMatches(node, selector) {
				e.applyDeclarations(style, rule.Declarations, calculateSpecificity(selector), rule.Order, source)
			}
		}
	}
}

func (e *StyleEngine) applyInlineStyles(style ComputedStyle, node *html.Node) {
	if v, ok := html.Attr(node, "style"); ok {
		e.applyDeclarations(style, css.ParseDeclarations(v), Specificity{ID: 1}, 0, SourceInline)
	}
}

func (e *StyleEngine) applyDeclarations(style ComputedStyle, declarations []*css.Declaration, specificity Specificity, order int, source Source) {
	for _, decl := range declarations {
		cand := StyleProperty{
			Name:        decl.Property,
			Value:       decl.Value,
			Important:   decl.Important,
			Source:      source,
			specificity: specificity,
			order:       order,
		}
		for _, p := range expandShorthand(cand) {
			if existing, ok := style[p.Name]; !ok || outranks(p, existing) {
				style[p.Name] = p
			}
		}
	}
}

// outranks orders declarations by importance, then origin, then
// specificity, then source order.
func outranks(a, b StyleProperty) bool {
	if a.Important != b.Important {
		return a.Important
	}
	if a.Source != b.Source {
		if a.Important {
			return a.Source < b.Source
		}
		return a.Source > b.Source
	}
	if c := compareSpecificity(a.specificity, b.specificity); c != 0 {
		return c > 0
	}
	return a.order >= b.order
}

// expandShorthand splits the longhand-bearing shorthands the layout reads.
func expandShorthand(p StyleProperty) []StyleProperty {
	with := func(name, val string) StyleProperty {
		q := p
		q.Name, q.Value = name, val
		return q
	}
	switch p.Name {
	case "border-left", "border-right", "border-top", "border-bottom":
		width, color := parseBorder(p.Value)
		return []StyleProperty{p, with(p.Name+"-width", width), with(p.Name+"-color", color)}
	case "border":
		width, color := parseBorder(p.Value)
		out := []StyleProperty{p}
		for _, side := range []string{"top", "right", "bottom", "left"} {
			out = append(out, with("border-"+side+"-width", width), with("border-"+side+"-color", color))
		}
		return out
	case "background":
		return []StyleProperty{p, with("background-color", p.Value)}
	}
	return []StyleProperty{p}
}

func parseBorder(v string) (width, color string) {
	for _, part := range strings.Fields(v) {
		switch {
		case part == "none":
			return "0", ""
		case strings.HasPrefix(part, "#") || strings.HasPrefix(part, "rgb"):
			color = part
		case part == "solid" || part == "dashed" || part == "dotted" || part == "double":
		case strings.IndexAny(part[:1], "0123456789.") == 0:
			width = part
		default:
			color = part
		}
	}
	return width, color
}

// selectorMatches checks a descendant-combinator selector against node
func selectorMatches(node *html.Node, selector string) bool {
	parts := strings.Fields(selector)
	if len(parts) == 0 || node == nil {
		return false
	}
	if !matchCompoundSelector(node, parts[len(parts)-1]) {
		return false
	}

	current := node.Parent
	for i := len(parts) - 2; i >= 0; i-- {
		found := false
		for anc := current; anc != nil; anc = anc.Parent {
			if matchCompoundSelector(anc, parts[i]) {
				found = true
				current = anc.Parent
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// matchCompoundSelector matches tag, #id and .class parts of one compound
// selector. Attribute selectors and pseudo-classes never match.
func matchCompoundSelector(node *html.Node, sel string) bool {
	if !html.IsElement(node, "") || sel == "" {
		return false
	}

	var wantTag, wantID string
	var wantClasses []string

	i := 0
	if sel[i] != '.' && sel[i] != '#' {
		j := i
		for j < len(sel) && sel[j] != '#' && sel[j] != '.' {
			j++
		}
		wantTag = sel[i:j]
		i = j
	}
	for i < len(sel) {
		j := i + 1
		for j < len(sel) && sel[j] != '.' && sel[j] != '#' {
			j++
		}
		switch sel[i] {
		case '#':
			wantID = sel[i+1 : j]
		case '.':
			wantClasses = append(wantClasses, sel[i+1:j])
		}
		i = j
	}
	if strings.ContainsAny(wantTag, "[:>+~") {
		return false
	}

	if wantTag != "" && wantTag != "*" && !strings.EqualFold(wantTag, node.Data) {
		return false
	}
	if wantID != "" && html.AttrOr(node, "id", "") != wantID {
		return false
	}
	for _, need := range wantClasses {
		if strings.ContainsAny(need, "[:") || !html.HasClass(node, need) {
			return false
		}
	}
	return true
}

// calculateSpecificity calculates the specificity of a CSS selector
func calculateSpecificity(selector string) Specificity {
	specificity := Specificity{}

	specificity.ID = strings.Count(selector, "#")
	specificity.Class = strings.Count(selector, ".") +
		strings.Count(selector, "[") +
		strings.Count(selector, ":")
	for _, part := range strings.Fields(selector) {
		if part[0] != '.' && part[0] != '#' && part[0] != '*' {
			specificity.Element++
		}
	}

	return specificity
}

// compareSpecificity compares two specificities
func compareSpecificity(a, b Specificity) int {
	if a.ID != b.ID {
		return a.ID - b.ID
	}
	if a.Class != b.Class {
		return a.Class - b.Class
	}
	return a.Element - b.Element
}
