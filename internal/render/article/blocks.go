package article

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	nethtml "golang.org/x/net/html"
)

func (r summaryRenderer) style(s lipgloss.Style, text string) string {
	if !r.opts.Styled || text == "" {
		return text
	}
	return s.Render(text)
}

func (r summaryRenderer) renderNodes(nodes []*nethtml.Node, listDepth int) []string {
	lines := make([]string, 0, len(nodes)*2)
	inlineParts := make([]string, 0, 4)
	flushInline := func() {
		text := normalizeInlineText(strings.Join(inlineParts, " "))
		inlineParts = inlineParts[:0]
		if text == "" {
			return
		}
		lines = appendBlock(lines, wrapText(text, r.width))
	}

	for _, node := range nodes {
		switch node.Type {
		case nethtml.TextNode:
			inlineParts = append(inlineParts, node.Data)
		case nethtml.ElementNode:
			if isBlockElement(node.Data) {
				flushInline()
				lines = appendBlock(lines, r.renderBlock(node, listDepth))
				continue
			}
			inlineParts = append(inlineParts, r.renderInlineNode(node))
		}
	}
	flushInline()
	return trimBlankLines(lines)
}

// appendBlock separates consecutive blocks with one blank line.
func appendBlock(lines, block []string) []string {
	if len(block) == 0 {
		return lines
	}
	if len(lines) > 0 && lines[len(lines)-1] != "" {
		lines = append(lines, "")
	}
	return append(lines, block...)
}

func (r summaryRenderer) renderBlock(node *nethtml.Node, listDepth int) []string {
	tag := strings.ToLower(node.Data)
	switch tag {
	case "script", "style", "noscript":
		return nil
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := normalizeInlineText(r.renderInlineChildren(node))
		prefix := r.headingPrefix(int(tag[1] - '0'))
		lines := wrapPrefixedText(text, r.width, prefix, strings.Repeat(" ", visibleLen(prefix)))
		if !r.opts.Styled {
			return lines
		}
		return styleNonBlankLines(lines, headingStyle)
	case "p", "div", "section", "article", "header", "footer", "details", "summary":
		if hasBlockChild(node) {
			return r.renderNodes(elementChildren(node), listDepth)
		}
		text := normalizeInlineText(r.renderInlineChildren(node))
		if text == "" {
			return nil
		}
		return wrapText(text, r.width)
	case "blockquote":
		inner := r.renderNodes(elementChildren(node), listDepth)
		if len(inner) == 0 {
			return nil
		}
		out := make([]string, 0, len(inner))
		for _, line := range inner {
			if strings.TrimSpace(line) == "" {
				out = append(out, "")
				continue
			}
			if r.opts.Styled {
				out = append(out, quotePrefix+quoteText.Render(line))
				continue
			}
			out = append(out, "│ "+line)
		}
		return out
	case "ul":
		return r.renderList(node, false, listDepth+1)
	case "ol":
		return r.renderList(node, true, listDepth+1)
	case "li":
		return r.renderListItem(node, listDepth, "- ")
	case "pre":
		return r.renderPre(node)
	case "table":
		return r.renderTable(node)
	case "img":
		alt := normalizeInlineText(nodeAttr(node, "alt"))
		if alt == "" {
			alt = "image"
		}
		return []string{r.style(imageLabel, "["+alt+"]")}
	case "hr":
		return []string{strings.Repeat("-", min(max(r.width, 3), 24))}
	default:
		text := normalizeInlineText(r.renderInlineChildren(node))
		if text == "" {
			return nil
		}
		return wrapText(text, r.width)
	}
}

// renderPre keeps line breaks and indentation, which matter for changelogs
// and commit messages.
func (r summaryRenderer) renderPre(node *nethtml.Node) []string {
	text := strings.ReplaceAll(collectRawText(node), "\r\n", "\n")
	rawLines := strings.Split(text, "\n")
	out := make([]string, 0, len(rawLines))
	for _, line := range rawLines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			out = append(out, "")
			continue
		}
		out = append(out, "    "+r.style(codeStyle, line))
	}
	return trimBlankLines(out)
}

func (r summaryRenderer) renderTable(node *nethtml.Node) []string {
	sep := " " + r.style(tableSeparator, "|") + " "
	lines := make([]string, 0, 8)
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != nethtml.ElementNode {
				continue
			}
			if !strings.EqualFold(child.Data, "tr") {
				walk(child)
				continue
			}
			cells := make([]string, 0, 4)
			for cell := child.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.Type == nethtml.ElementNode && (strings.EqualFold(cell.Data, "td") || strings.EqualFold(cell.Data, "th")) {
					cells = append(cells, normalizeInlineText(r.renderInlineChildren(cell)))
				}
			}
			if len(cells) > 0 {
				lines = append(lines, wrapText(strings.Join(cells, sep), r.width)...)
			}
		}
	}
	walk(node)
	return lines
}

func (r summaryRenderer) renderList(node *nethtml.Node, ordered bool, listDepth int) []string {
	lines := make([]string, 0, 16)
	itemIndex := 0
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode || strings.ToLower(child.Data) != "li" {
			continue
		}
		itemIndex++
		marker := unorderedListMarker(listDepth)
		if ordered {
			marker = fmt.Sprintf("%d. ", itemIndex)
		}
		lines = append(lines, r.renderListItem(child, listDepth, marker)...)
	}
	return trimBlankLines(lines)
}

func (r summaryRenderer) renderListItem(node *nethtml.Node, listDepth int, marker string) []string {
	indent := strings.Repeat("  ", max(0, listDepth-1))
	firstPrefix := indent + marker
	restPrefix := indent + strings.Repeat(" ", visibleLen(marker))
	lines := make([]string, 0, 8)

	textParts := make([]string, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == nethtml.ElementNode {
			tag := strings.ToLower(child.Data)
			if tag == "ul" || tag == "ol" {
				continue
			}
		}
		textParts = append(textParts, r.renderInlineNode(child))
	}
	if text := normalizeInlineText(strings.Join(textParts, " ")); text != "" {
		lines = append(lines, wrapPrefixedText(text, r.width, firstPrefix, restPrefix)...)
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode {
			continue
		}
		switch strings.ToLower(child.Data) {
		case "ul":
			lines = append(lines, r.renderList(child, false, listDepth+1)...)
		case "ol":
			lines = append(lines, r.renderList(child, true, listDepth+1)...)
		}
	}
	return lines
}

func wrapPrefixedText(text string, width int, firstPrefix, restPrefix string) []string {
	text = normalizeInlineText(text)
	if text == "" {
		return nil
	}
	if width < 1 {
		return []string{firstPrefix + text}
	}
	firstWidth := max(1, width-visibleLen(firstPrefix))
	restWidth := max(1, width-visibleLen(restPrefix))
	out := make([]string, 0, 4)
	firstLine := true
	for _, p := range strings.Split(text, "\n") {
		lineWidth := restWidth
		if firstLine {
			lineWidth = firstWidth
		}
		for i, line := range wrapText(p, lineWidth) {
			if firstLine && i == 0 {
				out = append(out, firstPrefix+line)
				continue
			}
			out = append(out, restPrefix+line)
		}
		firstLine = false
	}
	return out
}

func (r summaryRenderer) headingPrefix(level int) string {
	level = min(max(level, 1), len(headingBars))
	bar := "▌"
	if r.opts.Styled {
		bar = headingBars[level-1].Render(bar)
	}
	return bar + strings.Repeat(" ", max(1, level-1))
}

func unorderedListMarker(listDepth int) string {
	switch listDepth {
	case 1:
		return "• "
	case 2:
		return "◦ "
	default:
		return "▪ "
	}
}

func styleNonBlankLines(lines []string, style lipgloss.Style) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = line
			continue
		}
		out[i] = style.Render(line)
	}
	return out
}

func isBlockElement(tag string) bool {
	switch strings.ToLower(tag) {
	case "h1", "h2", "h3", "h4", "h5", "h6",
		"p", "div", "section", "article", "header", "footer", "details", "summary",
		"blockquote", "ul", "ol", "li", "table", "thead", "tbody", "tfoot", "tr", "td", "th", "img",
		"pre", "hr":
		return true
	default:
		return false
	}
}

func hasBlockChild(node *nethtml.Node) bool {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == nethtml.ElementNode && isBlockElement(child.Data) {
			return true
		}
	}
	return false
}
