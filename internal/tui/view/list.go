package view

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	tuitheme "github.com/glabrego/itmonitor-cli/internal/tui/theme"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

var reANSICodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type EntryLineParams struct {
	Entry         itmonitor.Entry
	CategoryLabel string
	Now           time.Time
	Read          bool
	Active        bool
	Width         int
}

// RenderEntryLine lays out one list row: cursor, unread marker, type tag and
// title on the left, category and age flush right.
func RenderEntryLine(p EntryLineParams, th tuitheme.Theme) string {
	cursorMarker := " "
	if p.Active {
		cursorMarker = ">"
	}
	newMarker := "  "
	if !p.Read {
		newMarker = th.NewTag.Render("●") + " "
	}
	tag := TypeTag(p.Entry.FeedType)
	prefix := " " + cursorMarker + " " + newMarker + th.StyleTypeTag(p.Entry.FeedType, tag) + " "

	meta := RelativeTimeLabel(p.Now, p.Entry.PublishedAt())
	if category := strings.TrimSpace(p.CategoryLabel); category != "" {
		meta = category + " · " + meta
	}
	available := p.Width - visibleLen(prefix) - 1 - visibleLen(meta)
	if available < 1 {
		available = 1
	}

	label := strings.TrimSpace(p.Entry.Title)
	if label == "" {
		label = "(untitled)"
	}
	label = truncateRunes(label, available)
	gap := p.Width - visibleLen(prefix) - visibleLen(label) - visibleLen(meta)
	if gap < 1 {
		gap = 1
	}
	line := prefix + th.StyleEntryTitle(p.Read, label) + strings.Repeat(" ", gap) + th.MetaLabel.Render(meta)
	return th.RenderActiveLine(p.Active, line)
}

// RenderPreviewLine indents a summary preview under its entry line.
func RenderPreviewLine(preview string, width int, th tuitheme.Theme) string {
	const indent = "        "
	preview = strings.TrimSpace(preview)
	if preview == "" {
		return ""
	}
	return indent + th.Preview.Render(truncateRunes(preview, width-len(indent)))
}

func TypeTag(feedType string) string {
	switch feedType {
	case itmonitor.FeedTypeAnnouncements:
		return "[ann]"
	case itmonitor.FeedTypeReleases:
		return "[rel]"
	case itmonitor.FeedTypeCommits:
		return "[git]"
	}
	return "[---]"
}

// RelativeTimeLabel gives minutes, hours or days for the last week and a
// calendar date after that.
func RelativeTimeLabel(now, then time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	if then.IsZero() {
		return "unknown"
	}
	if then.After(now) {
		return "just now"
	}
	d := now.Sub(then)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dmin ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
	return then.Local().Format("2 Jan 2006")
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return strings.Repeat(".", maxLen)
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSIText(s))
}

func stripANSIText(s string) string {
	return reANSICodes.ReplaceAllString(s, "")
}
