package article

import (
	"fmt"
	"html"
	"strings"

	nethtml "golang.org/x/net/html"
)

func (r summaryRenderer) renderInlineChildren(node *nethtml.Node) string {
	parts := make([]string, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		parts = append(parts, r.renderInlineNode(child))
	}
	return strings.Join(parts, " ")
}

func (r summaryRenderer) renderInlineNode(node *nethtml.Node) string {
	if node == nil {
		return ""
	}
	switch node.Type {
	case nethtml.TextNode:
		return node.Data
	case nethtml.ElementNode:
		switch strings.ToLower(node.Data) {
		case "script", "style", "noscript", "img":
			return ""
		case "br":
			return "\n"
		case "a":
			return r.renderLink(node)
		case "code", "kbd", "samp":
			text := normalizeInlineText(r.renderInlineChildren(node))
			if text == "" {
				return ""
			}
			return r.style(codeStyle, "`"+text+"`")
		default:
			return r.renderInlineChildren(node)
		}
	default:
		return ""
	}
}

// renderLink emits the anchor text followed by a footnote reference, or by
// the target in parentheses when footnotes are off.
func (r summaryRenderer) renderLink(node *nethtml.Node) string {
	text := normalizeInlineText(r.renderInlineChildren(node))
	href := nodeAttr(node, "href")
	if href == "" || strings.HasPrefix(href, "#") {
		return text
	}
	if text == "" || strings.EqualFold(text, href) {
		if !r.opts.Footnotes {
			return href
		}
		text = href
	}
	if !r.opts.Footnotes {
		return text + " (" + href + ")"
	}
	n := r.footnote(href)
	return text + r.style(footnoteRef, fmt.Sprintf("[%d]", n))
}

func (r summaryRenderer) footnote(href string) int {
	for i, existing := range *r.links {
		if existing == href {
			return i + 1
		}
	}
	*r.links = append(*r.links, href)
	return len(*r.links)
}

func normalizeInlineText(s string) string {
	s = html.UnescapeString(s)
	parts := strings.Split(s, "\n")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Join(strings.Fields(part), " ")
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return punctuationSpacing.Replace(strings.Join(out, "\n"))
}

var punctuationSpacing = strings.NewReplacer(
	" .", ".",
	" ,", ",",
	" ;", ";",
	" :", ":",
	" !", "!",
	" ?", "?",
	" )", ")",
	"( ", "(",
)
