// Package article turns the HTML summaries carried by feed entries into
// terminal text: wrapped detail lines, a plain-text body and list previews.
package article

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	nethtml "golang.org/x/net/html"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

// PreviewLength is the rune budget of a list preview.
const PreviewLength = 150

var reANSICodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type Options struct {
	// Footnotes replaces inline link targets with numbered references listed
	// after the body.
	Footnotes bool
	Styled    bool
}

var DefaultOptions = Options{Footnotes: true, Styled: true}

type summaryRenderer struct {
	width int
	opts  Options
	links *[]string
}

func SummaryLines(entry itmonitor.Entry, width int) []string {
	return SummaryLinesWithOptions(entry, width, DefaultOptions)
}

// SummaryLinesWithOptions renders the entry summary wrapped to width. Nil is
// returned when the entry has no summary.
func SummaryLinesWithOptions(entry itmonitor.Entry, width int, opts Options) []string {
	raw := strings.TrimSpace(entry.Summary)
	if raw == "" {
		return nil
	}
	body := parseFragment(raw)
	if body == nil {
		return wrapText(strings.TrimSpace(html.UnescapeString(raw)), width)
	}

	links := make([]string, 0, 4)
	r := summaryRenderer{width: max(1, width), opts: opts, links: &links}
	lines := trimBlankLines(r.renderNodes(elementChildren(body), 0))
	if len(lines) == 0 {
		return nil
	}
	if opts.Footnotes && len(links) > 0 {
		lines = append(lines, "")
		for i, link := range links {
			ref := fmt.Sprintf("[%d] ", i+1)
			if opts.Styled {
				link = footnoteURL.Render(link)
			}
			lines = append(lines, ref+link)
		}
	}
	return lines
}

// PlainText is the text content of an HTML fragment with whitespace
// collapsed, the way a browser reports textContent.
func PlainText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	body := parseFragment(fragment)
	if body == nil {
		return strings.Join(strings.Fields(html.UnescapeString(fragment)), " ")
	}
	return strings.Join(strings.Fields(collectText(body)), " ")
}

// Preview is the first n runes of the summary text, with "..." appended when
// the text was cut.
func Preview(summary string, n int) string {
	text := PlainText(summary)
	if n < 1 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:n]), " ") + "..."
}

func parseFragment(raw string) *nethtml.Node {
	doc, err := nethtml.Parse(strings.NewReader("<html><body>" + raw + "</body></html>"))
	if err != nil {
		return nil
	}
	return findBodyNode(doc)
}

func trimBlankLines(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines) - 1
	for end >= start && strings.TrimSpace(lines[end]) == "" {
		end--
	}
	if end < start {
		return nil
	}
	out := make([]string, 0, end-start+1)
	prevBlank := false
	for i := start; i <= end; i++ {
		blank := strings.TrimSpace(lines[i]) == ""
		if blank && prevBlank {
			continue
		}
		out = append(out, lines[i])
		prevBlank = blank
	}
	return out
}

// WrapText wraps plain text to width, keeping explicit line breaks.
func WrapText(text string, width int) []string {
	return wrapText(text, width)
}

// wrapText breaks on words; words longer than width are split on rune
// boundaries.
func wrapText(text string, width int) []string {
	if width < 1 {
		return []string{text}
	}
	paragraphs := strings.Split(text, "\n")
	out := make([]string, 0, len(paragraphs))

	for _, p := range paragraphs {
		words := strings.Fields(p)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, word := range words {
			for visibleLen(word) > width {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				runes := []rune(word)
				out = append(out, string(runes[:width]))
				word = string(runes[width:])
			}

			if line == "" {
				line = word
				continue
			}
			if visibleLen(line)+1+visibleLen(word) <= width {
				line += " " + word
				continue
			}
			out = append(out, line)
			line = word
		}
		if line != "" {
			out = append(out, line)
		}
	}

	return out
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSI(s))
}

func stripANSI(s string) string {
	return reANSICodes.ReplaceAllString(s, "")
}

func findBodyNode(node *nethtml.Node) *nethtml.Node {
	if node == nil {
		return nil
	}
	if node.Type == nethtml.ElementNode && strings.EqualFold(node.Data, "body") {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findBodyNode(child); found != nil {
			return found
		}
	}
	return nil
}

func elementChildren(node *nethtml.Node) []*nethtml.Node {
	children := make([]*nethtml.Node, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == nethtml.TextNode && strings.TrimSpace(child.Data) == "" {
			continue
		}
		children = append(children, child)
	}
	return children
}

func nodeAttr(node *nethtml.Node, name string) string {
	for _, attr := range node.Attr {
		if strings.EqualFold(attr.Key, name) {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

// collectText concatenates text nodes, skipping script and style bodies.
func collectText(node *nethtml.Node) string {
	if node == nil {
		return ""
	}
	switch node.Type {
	case nethtml.TextNode:
		return node.Data
	case nethtml.ElementNode:
		switch strings.ToLower(node.Data) {
		case "script", "style", "noscript":
			return ""
		case "br":
			return " "
		}
	}
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(collectText(child))
		if child.Type == nethtml.ElementNode && isBlockElement(child.Data) {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func collectRawText(node *nethtml.Node) string {
	if node == nil {
		return ""
	}
	if node.Type == nethtml.TextNode {
		return node.Data
	}
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(collectRawText(child))
	}
	return b.String()
}
