package view

import (
	"strings"

	article "github.com/glabrego/itmonitor-cli/internal/render/article"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

type WrapFunc func(string, int) []string

type DetailMeta struct {
	CategoryLabel string
	TypeLabel     string
	Read          bool
}

func DetailMetaLines(entry itmonitor.Entry, meta DetailMeta, width int, wrap WrapFunc) []string {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = "(untitled)"
	}
	lines := make([]string, 0, 12)
	lines = append(lines, wrap(title, width)...)
	lines = append(lines, strings.Repeat("=", max(1, min(width, visibleLen(title)))))
	lines = append(lines, "")

	if entry.FeedName != "" {
		lines = append(lines, wrap("Feed: "+entry.FeedName, width)...)
	}
	if meta.CategoryLabel != "" {
		lines = append(lines, wrap("Category: "+meta.CategoryLabel, width)...)
	}
	if meta.TypeLabel != "" {
		lines = append(lines, "Type: "+meta.TypeLabel)
	}
	if published := entry.PublishedAt(); !published.IsZero() {
		lines = append(lines, "Date: "+published.Local().Format("2 Jan 2006 15:04"))
	} else if entry.Published != "" {
		lines = append(lines, "Date: "+entry.Published)
	}
	if meta.Read {
		lines = append(lines, "Read: yes")
	} else {
		lines = append(lines, "Read: no")
	}
	if entry.Author != "" {
		lines = append(lines, wrap("Author: "+entry.Author, width)...)
	}
	if entry.Link != "" {
		lines = append(lines, wrap("URL: "+entry.Link, width)...)
	}
	return lines
}

// DetailLines is the metadata block followed by the rendered summary, shifted
// right by horizontalMargin.
func DetailLines(entry itmonitor.Entry, meta DetailMeta, contentWidth, horizontalMargin int, opts article.Options, wrap WrapFunc) []string {
	lines := DetailMetaLines(entry, meta, contentWidth, wrap)
	if body := article.SummaryLinesWithOptions(entry, contentWidth, opts); len(body) > 0 {
		lines = append(lines, "")
		lines = append(lines, body...)
	}
	return leftPadLines(lines, horizontalMargin)
}

func DetailMaxTop(linesLen, bodyHeight int) int {
	maxTop := linesLen - bodyHeight
	if maxTop < 0 {
		return 0
	}
	return maxTop
}

func RenderDetailLines(lines []string, top, maxLines int) string {
	if len(lines) == 0 {
		return ""
	}
	if top < 0 {
		top = 0
	}
	if top > len(lines)-1 {
		top = len(lines) - 1
	}
	end := len(lines)
	if maxLines > 0 && top+maxLines < end {
		end = top + maxLines
	}
	return strings.Join(lines[top:end], "\n") + "\n"
}

func leftPadLines(lines []string, padding int) []string {
	if padding <= 0 || len(lines) == 0 {
		return lines
	}
	prefix := strings.Repeat(" ", padding)
	out := make([]string, len(lines))
	for i, line := range lines {
		if line == "" {
			out[i] = line
			continue
		}
		out[i] = prefix + line
	}
	return out
}
