package article

import "github.com/charmbracelet/lipgloss"

var (
	cpMauve    = lipgloss.Color("#cba6f7")
	cpPeach    = lipgloss.Color("#fab387")
	cpTeal     = lipgloss.Color("#94e2d5")
	cpBlue     = lipgloss.Color("#89b4fa")
	cpLavender = lipgloss.Color("#b4befe")
	cpSubtext0 = lipgloss.Color("#a6adc8")
	cpOverlay1 = lipgloss.Color("#7f849c")
	cpSurface2 = lipgloss.Color("#585b70")

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(cpLavender)
	headingBars  = []lipgloss.Style{
		lipgloss.NewStyle().Bold(true).Foreground(cpBlue),
		lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		lipgloss.NewStyle().Bold(true).Foreground(cpTeal),
	}
	footnoteURL    = lipgloss.NewStyle().Foreground(cpBlue).Faint(true)
	footnoteRef    = lipgloss.NewStyle().Foreground(cpBlue)
	quotePrefix    = lipgloss.NewStyle().Foreground(cpOverlay1).Render("│ ")
	quoteText      = lipgloss.NewStyle().Italic(true).Foreground(cpSubtext0)
	codeStyle      = lipgloss.NewStyle().Foreground(cpPeach)
	tableSeparator = lipgloss.NewStyle().Foreground(cpSurface2)
	imageLabel     = lipgloss.NewStyle().Foreground(cpMauve).Faint(true).Italic(true)
)
