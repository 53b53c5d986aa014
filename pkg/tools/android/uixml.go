package android

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Bounds is a screen rectangle in device pixels.
type Bounds struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Center returns the tap point of the rectangle.
func (b Bounds) Center() (int, int) {
	return (b.Left + b.Right) / 2, (b.Top + b.Bottom) / 2
}

func (b Bounds) empty() bool {
	return b.Right <= b.Left || b.Bottom <= b.Top
}

var boundsPattern = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)

// ParseBounds reads the "[l,t][r,b]" form used by uiautomator dumps.
func ParseBounds(s string) (Bounds, bool) {
	m := boundsPattern.FindStringSubmatch(s)
	if m == nil {
		return Bounds{}, false
	}
	var v [4]int
	for i := range v {
		v[i], _ = strconv.Atoi(m[i+1])
	}
	return Bounds{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, true
}

// UINode is one element of a view hierarchy dump.
type UINode struct {
	Index       int
	Text        string
	ResourceID  string
	ClassName   string
	Package     string
	ContentDesc string
	Clickable   bool
	Enabled     bool
	Bounds      Bounds
}

type xmlNode struct {
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:"node"`
}

// ParseHierarchy flattens a uiautomator hierarchy dump in document order.
func ParseHierarchy(raw string) ([]UINode, error) {
	var root xmlNode
	if err := xml.Unmarshal([]byte(raw), &root); err != nil {
		return nil, fmt.Errorf("parse ui hierarchy: %w", err)
	}
	var out []UINode
	var walk func(n xmlNode)
	walk = func(n xmlNode) {
		for _, child := range n.Children {
			out = append(out, toUINode(child))
			walk(child)
		}
	}
	walk(root)
	return out, nil
}

func toUINode(n xmlNode) UINode {
	node := UINode{Enabled: true}
	for _, a := range n.Attrs {
		switch a.Name.Local {
		case "index":
			node.Index, _ = strconv.Atoi(a.Value)
		case "text":
			node.Text = a.Value
		case "resource-id":
			node.ResourceID = a.Value
		case "class":
			node.ClassName = a.Value
		case "package":
			node.Package = a.Value
		case "content-desc":
			node.ContentDesc = a.Value
		case "clickable":
			node.Clickable = a.Value == "true"
		case "enabled":
			node.Enabled = a.Value != "false"
		case "bounds":
			node.Bounds, _ = ParseBounds(a.Value)
		}
	}
	return node
}

// Selector matches hierarchy nodes. Empty fields are ignored; every set
// field must match.
type Selector struct {
	Text                string
	TextContains        string
	ResourceID          string
	ResourceIDContains  string
	ContentDesc         string
	ContentDescContains string
	ClassName           string
}

// IsZero reports whether no criteria are set.
func (s Selector) IsZero() bool {
	return s == Selector{}
}

// Matches reports whether n satisfies every criterion of s.
func (s Selector) Matches(n UINode) bool {
	switch {
	case s.Text != "" && n.Text != s.Text:
		return false
	case s.TextContains != "" && !strings.Contains(n.Text, s.TextContains):
		return false
	case s.ResourceID != "" && n.ResourceID != s.ResourceID:
		return false
	case s.ResourceIDContains != "" && !strings.Contains(n.ResourceID, s.ResourceIDContains):
		return false
	case s.ContentDesc != "" && n.ContentDesc != s.ContentDesc:
		return false
	case s.ContentDescContains != "" && !strings.Contains(n.ContentDesc, s.ContentDescContains):
		return false
	case s.ClassName != "" && n.ClassName != s.ClassName:
		return false
	}
	return true
}

// Find returns the nodes matching s, at most limit of them (limit <= 0
// means all).
func Find(nodes []UINode, s Selector, limit int) []UINode {
	var out []UINode
	for _, n := range nodes {
		if !s.Matches(n) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// CountNodes counts element tags in a raw dump, including dumps that use
// class names as tag names.
func CountNodes(raw string) int {
	return strings.Count(raw, "<node") + strings.Count(raw, "<android.")
}
