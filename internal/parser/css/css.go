package css

import (
	"errors"
	"io"
	"strings"
)

// Parser reads the editor's block stylesheets
type Parser struct {
	// Media lists the @media types whose rules are kept. Rules under other
	// media and every other at-rule are dropped.
	Media []string
}

// Rule is one selector group with its declarations
type Rule struct {
	Selectors    []string
	Declarations []*Declaration
	// Order is the rule's position in the stylesheet, used to break
	// specificity ties.
	Order int
}

// Declaration is a property-value pair
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Stylesheet is a parsed stylesheet
type Stylesheet struct {
	Rules []*Rule
}

// NewParser creates a parser that keeps "screen" and "all" media rules.
func NewParser() *Parser {
	return &Parser{Media: []string{"screen", "all"}}
}

// ParseString parses CSS from a string
func (p *Parser) ParseString(content string) (*Stylesheet, error) {
	return p.Parse(strings.NewReader(content))
}

// Parse parses CSS from an io.Reader
func (p *Parser) Parse(r io.Reader) (*Stylesheet, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	sheet := &Stylesheet{}
	p.parseInto(sheet, removeComments(string(content)))
	return sheet, nil
}

// Merge appends other's rules after s's, renumbering their order.
func (s *Stylesheet) Merge(other *Stylesheet) {
	if other == nil {
		return
	}
	for _, r := range other.Rules {
		cp := *r
		cp.Order = len(s.Rules)
		s.Rules = append(s.Rules, &cp)
	}
}

func (p *Parser) parseInto(sheet *Stylesheet, content string) {
	for _, chunk := range splitRules(content) {
		if strings.HasPrefix(chunk, "@") {
			if inner, ok := p.mediaBody(chunk); ok {
				p.parseInto(sheet, inner)
			}
			continue
		}
		rule, err := parseRule(chunk)
		if err != nil {
			continue
		}
		rule.Order = len(sheet.Rules)
		sheet.Rules = append(sheet.Rules, rule)
	}
}

// mediaBody returns the inner rules of an @media block matching p.Media.
func (p *Parser) mediaBody(chunk string) (string, bool) {
	open := strings.IndexByte(chunk, '{')
	if open < 0 || !strings.HasPrefix(chunk, "@media") {
		return "", false
	}
	query := strings.ToLower(strings.TrimSpace(chunk[len("@media"):open]))
	for _, m := range p.Media {
		if strings.Contains(query, m) {
			return strings.TrimSuffix(chunk[open+1:], "}"), true
		}
	}
	return "", false
}

func parseRule(ruleStr string) (*Rule, error) {
	parts := strings.SplitN(ruleStr, "{", 2)
	if len(parts) != 2 {
		return nil, errors.New("invalid rule format")
	}

	selectors := parseSelectors(strings.TrimSpace(parts[0]))
	if len(selectors) == 0 {
		return nil, errors.New("no selectors found")
	}

	body := strings.TrimSuffix(strings.TrimSpace(parts[1]), "}")
	return &Rule{
		Selectors:    selectors,
		Declarations: ParseDeclarations(body),
	}, nil
}

func parseSelectors(selectorStr string) []string {
	selectors := strings.Split(selectorStr, ",")
	result := make([]string, 0, len(selectors))
	for _, selector := range selectors {
		// collapse descendant whitespace so matching can split on spaces
		selector = strings.Join(strings.Fields(selector), " ")
		if selector != "" {
			result = append(result, selector)
		}
	}
	return result
}

// ParseDeclarations parses a declaration list such as the body of a rule or
// an inline style attribute. Property names are lower-cased.
func ParseDeclarations(declarationsStr string) []*Declaration {
	declarationStrings := strings.Split(declarationsStr, ";")
	result := make([]*Declaration, 0, len(declarationStrings))

	for _, declStr := range declarationStrings {
		property, value, ok := strings.Cut(declStr, ":")
		if !ok {
			continue
		}
		property = strings.ToLower(strings.TrimSpace(property))
		value = strings.TrimSpace(value)
		if property == "" {
			continue
		}

		important := false
		if strings.HasSuffix(value, "!important") {
			important = true
			value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
		}

		result = append(result, &Declaration{
			Property:  property,
			Value:     value,
			Important: important,
		})
	}

	return result
}

// Lookup returns the last declaration for property in decls.
func Lookup(decls []*Declaration, property string) (string, bool) {
	for i := len(decls) - 1; i >= 0; i-- {
		if decls[i].Property == property {
			return decls[i].Value, true
		}
	}
	return "", false
}

func removeComments(content string) string {
	var result strings.Builder
	for {
		start := strings.Index(content, "/*")
		if start < 0 {
			result.WriteString(content)
			break
		}
		result.WriteString(content[:start])
		end := strings.Index(content[start+2:], "*/")
		if end < 0 {
			break
		}
		content = content[start+2+end+2:]
	}
	return result.String()
}

// splitRules splits a stylesheet into top-level chunks. Nested blocks, such
// as @media bodies, stay inside their chunk. Statement at-rules ending in
// ';' at depth zero (@import, @charset) are discarded.
func splitRules(content string) []string {
	var rules []string
	var current strings.Builder
	depth := 0

	for i := 0; i < len(content); i++ {
		c := content[i]
		switch {
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				current.WriteByte(c)
				rules = append(rules, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
			if depth < 0 {
				depth = 0
				current.Reset()
				continue
			}
		case c == ';' && depth == 0:
			current.Reset()
			continue
		}

		if depth > 0 || !isWhitespace(c) || current.Len() > 0 {
			current.WriteByte(c)
		}
	}

	return rules
}

func isWhitespace(char byte) bool {
	return char == ' ' || char == '\t' || char == '\n' || char == '\r'
}
