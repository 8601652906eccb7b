package view

import (
	"fmt"
	"strings"
	"time"

	tuitheme "github.com/glabrego/itmonitor-cli/internal/tui/theme"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

type HeaderParams struct {
	Title     string
	Unread    int
	Online    bool
	Status    itmonitor.Status
	HasStatus bool
}

func Header(p HeaderParams, th tuitheme.Theme) string {
	parts := []string{th.Title.Render(p.Title)}
	if p.Unread > 0 {
		parts = append(parts, th.UnreadCount.Render(fmt.Sprintf("%d unread", p.Unread)))
	}
	if p.Online {
		parts = append(parts, th.Online.Render("● online"))
	} else {
		parts = append(parts, th.Offline.Render("● offline"))
	}
	if p.HasStatus {
		parts = append(parts, StatsLine(p.Status, th))
	}
	return strings.Join(parts, "  ")
}

func StatsLine(s itmonitor.Status, th tuitheme.Theme) string {
	stats := []string{
		th.MetaValue.Render(fmt.Sprintf("%d", s.TotalCategories)) + " " + th.MetaLabel.Render("categories"),
		th.MetaValue.Render(fmt.Sprintf("%d", s.TotalFeeds)) + " " + th.MetaLabel.Render("feeds"),
		th.MetaValue.Render(fmt.Sprintf("%d", s.TotalEntries)) + " " + th.MetaLabel.Render("entries"),
	}
	return strings.Join(stats, " ")
}

func Toolbar(inDetail, inPanel bool) string {
	switch {
	case inPanel:
		return "j/k move | space toggle | enter collapse | esc/f close | ? help"
	case inDetail:
		return "j/k scroll | [ ] prev/next | o open | y copy | esc back | ? help"
	}
	return "j/k move | enter read | m mark read | A mark all | f filters | r refresh | ? help"
}

type FooterParams struct {
	CategoriesOn    int
	CategoriesTotal int
	Types           []string
	Shown           int
	Total           int
	LastRefresh     time.Time
	Now             time.Time
}

func Footer(p FooterParams, th tuitheme.Theme) string {
	types := "none"
	if len(p.Types) > 0 {
		types = strings.Join(p.Types, ",")
	}
	parts := []string{
		th.MetaLabel.Render("categories") + " " + th.MetaValue.Render(fmt.Sprintf("%d/%d", p.CategoriesOn, p.CategoriesTotal)),
		th.MetaLabel.Render("types") + " " + th.MetaValue.Render(types),
		th.MetaValue.Render(fmt.Sprintf("%d/%d shown", p.Shown, p.Total)),
	}
	if !p.LastRefresh.IsZero() {
		parts = append(parts, th.MetaLabel.Render("updated")+" "+th.MetaValue.Render(RelativeTimeLabel(p.Now, p.LastRefresh)))
	}
	return strings.Join(parts, " • ")
}

func StatusLine(loading bool, hasWarning bool, status, warning string, th tuitheme.Theme) string {
	state := "idle"
	if loading {
		state = "loading"
	}
	if hasWarning {
		state = "warning"
	}
	main := "Ready"
	if status != "" {
		main = status
	} else if hasWarning {
		main = warning
	}
	stateLabel := th.StateIdle.Render("state")
	switch state {
	case "warning":
		stateLabel = th.StateWarn.Render("state")
	case "loading":
		stateLabel = th.StateLoad.Render("state")
	}
	return fmt.Sprintf("%s: %s | %s", stateLabel, state, th.MetaValue.Render(main))
}

var helpSections = []struct {
	title string
	keys  [][2]string
}{
	{"List", [][2]string{
		{"j/k, up/down", "move"},
		{"g/G", "top/bottom"},
		{"pgup/pgdown", "jump a page"},
		{"enter", "read entry"},
		{"m", "mark entry read"},
		{"A", "mark all visible read"},
		{"p", "toggle previews"},
		{"o", "open link in browser"},
		{"y", "copy link"},
	}},
	{"Detail", [][2]string{
		{"j/k", "scroll"},
		{"[ ]", "previous/next entry"},
		{"esc/backspace", "back to list"},
	}},
	{"Feed", [][2]string{
		{"f", "filter panel"},
		{"r", "reload from server"},
		{"F", "ask server to poll feeds now"},
		{"?", "toggle help"},
		{"q", "quit"},
	}},
}

func HelpLines(th tuitheme.Theme) []string {
	lines := make([]string, 0, 24)
	for i, section := range helpSections {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, th.Section.Render(section.title))
		for _, kv := range section.keys {
			lines = append(lines, fmt.Sprintf("  %-16s %s", kv[0], th.MetaValue.Render(kv[1])))
		}
	}
	return lines
}
