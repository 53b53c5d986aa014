package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// CleanedHTML is page source reduced to the structure a model needs to pick
// selectors: tags, text and targeting attributes.
type CleanedHTML struct {
	HTML        string
	Title       string
	Description string
	Truncated   bool
}

var (
	skippedTags = setOf("script", "style", "noscript", "iframe", "embed", "object", "svg", "template")

	blockTags = setOf("div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr", "td", "th",
		"form", "fieldset", "blockquote", "pre", "label", "dialog")

	voidTags = setOf("area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta",
		"param", "source", "track", "wbr")

	globalAttrs = setOf("id", "class", "role", "aria-label", "aria-checked", "aria-describedby", "title")

	tagAttrs = map[string]map[string]bool{
		"a":        setOf("href", "target"),
		"img":      setOf("src", "alt"),
		"input":    setOf("name", "type", "placeholder", "value", "checked", "disabled", "maxlength"),
		"textarea": setOf("name", "placeholder", "disabled"),
		"select":   setOf("name", "disabled"),
		"button":   setOf("type", "name", "disabled"),
		"form":     setOf("action", "method"),
		"label":    setOf("for"),
	}
)

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// CleanHTML parses raw and rewrites it without scripts, styles, comments
// and presentational attributes. Output stops after about maxLength bytes
// (0 means no limit).
func CleanHTML(raw string, maxLength int) (*CleanedHTML, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	c := &cleaner{limit: maxLength}
	c.walk(doc, 0)

	return &CleanedHTML{
		HTML:        c.out.String(),
		Title:       findTitle(doc),
		Description: findMetaDescription(doc),
		Truncated:   c.truncated,
	}, nil
}

type cleaner struct {
	out       strings.Builder
	limit     int
	truncated bool
}

func (c *cleaner) full() bool {
	return c.limit > 0 && c.out.Len() >= c.limit
}

func (c *cleaner) walk(n *html.Node, depth int) {
	if c.truncated {
		return
	}
	if c.full() {
		c.truncated = true
		return
	}

	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		c.text(n.Data)
		return
	case html.ElementNode:
		c.element(n, depth)
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, depth)
	}
}

func (c *cleaner) text(data string) {
	text := strings.Join(strings.Fields(data), " ")
	if text == "" {
		return
	}
	if c.limit > 0 && c.out.Len()+len(text) > c.limit {
		room := c.limit - c.out.Len()
		cut := 0
		for i := range text {
			if i > room {
				break
			}
			cut = i
		}
		c.out.WriteString(text[:cut])
		c.out.WriteString("...")
		c.truncated = true
		return
	}
	c.out.WriteString(text)
}

func (c *cleaner) element(n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)
	if skippedTags[tag] {
		return
	}

	block := blockTags[tag]
	if block && depth > 0 {
		c.newline(depth)
	}

	c.out.WriteString("<" + tag)
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if keepAttr(tag, key) {
			fmt.Fprintf(&c.out, ` %s="%s"`, key, html.EscapeString(attr.Val))
		}
	}
	c.out.WriteString(">")

	if voidTags[tag] {
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, depth+1)
	}
	if block {
		c.newline(depth)
	}
	c.out.WriteString("</" + tag + ">")
}

func (c *cleaner) newline(depth int) {
	c.out.WriteString("\n")
	c.out.WriteString(strings.Repeat("  ", depth))
}

func keepAttr(tag, key string) bool {
	if globalAttrs[key] || strings.HasPrefix(key, "data-") {
		return true
	}
	return tagAttrs[tag][key]
}

func findTitle(doc *html.Node) string {
	if n := findElement(doc, func(n *html.Node) bool { return n.Data == "title" }); n != nil {
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	return ""
}

func findMetaDescription(doc *html.Node) string {
	n := findElement(doc, func(n *html.Node) bool {
		return n.Data == "meta" && attr(n, "name") == "description" && attr(n, "content") != ""
	})
	if n == nil {
		return ""
	}
	return strings.TrimSpace(attr(n, "content"))
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
