package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

type Theme struct {
	Title       lipgloss.Style
	ModePill    lipgloss.Style
	Section     lipgloss.Style
	UnreadCount lipgloss.Style
	ActiveLine  lipgloss.Style
	MetaLabel   lipgloss.Style
	MetaValue   lipgloss.Style
	StateIdle   lipgloss.Style
	StateWarn   lipgloss.Style
	StateLoad   lipgloss.Style
	Online      lipgloss.Style
	Offline     lipgloss.Style
	NewTag      lipgloss.Style
	Preview     lipgloss.Style
	Checked     lipgloss.Style
	Unchecked   lipgloss.Style

	TitleUnread lipgloss.Style
	TitleRead   lipgloss.Style

	TypeTags map[string]lipgloss.Style
}

func Default() Theme {
	cpMauve := lipgloss.Color("#cba6f7")
	cpRed := lipgloss.Color("#f38ba8")
	cpPeach := lipgloss.Color("#fab387")
	cpYellow := lipgloss.Color("#f9e2af")
	cpGreen := lipgloss.Color("#a6e3a1")
	cpTeal := lipgloss.Color("#94e2d5")
	cpBlue := lipgloss.Color("#89b4fa")
	cpLavender := lipgloss.Color("#b4befe")
	cpText := lipgloss.Color("#cdd6f4")
	cpSubtext0 := lipgloss.Color("#a6adc8")
	cpSubtext1 := lipgloss.Color("#bac2de")
	cpOverlay0 := lipgloss.Color("#6c7086")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")

	return Theme{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		ModePill:    lipgloss.NewStyle().Foreground(cpLavender).Background(cpSurface0).Padding(0, 1),
		Section:     lipgloss.NewStyle().Bold(true).Foreground(cpTeal),
		UnreadCount: lipgloss.NewStyle().Foreground(cpYellow).Bold(true),
		ActiveLine:  lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		MetaLabel:   lipgloss.NewStyle().Foreground(cpOverlay1),
		MetaValue:   lipgloss.NewStyle().Foreground(cpSubtext1),
		StateIdle:   lipgloss.NewStyle().Foreground(cpGreen),
		StateWarn:   lipgloss.NewStyle().Foreground(cpRed),
		StateLoad:   lipgloss.NewStyle().Foreground(cpPeach),
		Online:      lipgloss.NewStyle().Foreground(cpGreen),
		Offline:     lipgloss.NewStyle().Foreground(cpRed),
		NewTag:      lipgloss.NewStyle().Foreground(cpYellow).Bold(true),
		Preview:     lipgloss.NewStyle().Foreground(cpOverlay0),
		Checked:     lipgloss.NewStyle().Foreground(cpGreen),
		Unchecked:   lipgloss.NewStyle().Foreground(cpOverlay0),
		TitleUnread: lipgloss.NewStyle().Bold(true).Foreground(cpText),
		TitleRead:   lipgloss.NewStyle().Foreground(cpSubtext0),
		TypeTags: map[string]lipgloss.Style{
			itmonitor.FeedTypeAnnouncements: lipgloss.NewStyle().Foreground(cpBlue),
			itmonitor.FeedTypeReleases:      lipgloss.NewStyle().Foreground(cpGreen),
			itmonitor.FeedTypeCommits:       lipgloss.NewStyle().Foreground(cpPeach),
		},
	}
}

func (t Theme) StyleEntryTitle(read bool, title string) string {
	if title == "" {
		return title
	}
	if read {
		return t.TitleRead.Render(title)
	}
	return t.TitleUnread.Render(title)
}

// StyleTypeTag colors a feed type label; unknown types are left plain.
func (t Theme) StyleTypeTag(feedType, label string) string {
	style, ok := t.TypeTags[feedType]
	if !ok {
		return label
	}
	return style.Render(label)
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if !active {
		return line
	}
	return t.ActiveLine.Render(line)
}
