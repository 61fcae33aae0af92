package planparser

import (
	"strings"

	"golang.org/x/net/html"
)

// dayLabelFor finds the date label that precedes the given table in document
// order. The markup does not nest tables inside date sections; the bold
// date label usually sits in a <p> that is a sibling of the table. The walk
// goes backward through preceding siblings, and if nothing matches there,
// escalates to the parent's preceding siblings, until a label is found or
// the tree runs out. Returns "" when no label exists; those tables are
// discarded by the caller.
func dayLabelFor(table *html.Node) string {
	for node := table; node != nil; node = node.Parent {
		for sib := node.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if label := dateLabelInNode(sib); label != "" {
				return label
			}
		}
	}
	return ""
}

// dateLabelInNode searches a node and its descendants for bold elements
// whose text carries a date fragment. Within one node the last matching
// bold wins: layouts sometimes stack several candidates and the nearest
// preceding one is the relevant one.
func dateLabelInNode(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	if n.Data == "b" {
		if t := nodeText(n); datePattern.MatchString(t) {
			return t
		}
	}
	bolds := collectElements(n, "b")
	for i := len(bolds) - 1; i >= 0; i-- {
		if t := nodeText(bolds[i]); datePattern.MatchString(t) {
			return t
		}
	}
	return ""
}

// collectElements returns all descendant elements with the given tag name
// in document order.
func collectElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// nodeText concatenates all text content below a node.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
