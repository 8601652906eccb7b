package view

import (
	"fmt"
	"strings"

	"github.com/glabrego/itmonitor-cli/internal/tui/panel"
	tuitheme "github.com/glabrego/itmonitor-cli/internal/tui/theme"
)

func RenderPanelRow(row panel.Row, collapsed bool, active bool, width int, th tuitheme.Theme) string {
	if row.Kind == panel.RowSection {
		marker := "▾ "
		if collapsed {
			marker = "▸ "
		}
		return th.RenderActiveLine(active, th.Section.Render(marker+row.Label))
	}

	box := th.Unchecked.Render("[ ]")
	if row.Checked {
		box = th.Checked.Render("[x]")
	}
	label := row.Label
	if row.Kind == panel.RowType {
		label = th.StyleTypeTag(row.Key, label)
	}
	left := "  " + box + " " + label

	right := ""
	if row.Total > 0 {
		right = th.MetaLabel.Render(fmt.Sprintf("%d", row.Total))
		if row.Unread > 0 {
			right = th.UnreadCount.Render(fmt.Sprintf("%d new", row.Unread)) + " " + right
		}
	}
	if right == "" {
		return th.RenderActiveLine(active, left)
	}
	gap := width - visibleLen(left) - visibleLen(right)
	if gap < 1 {
		gap = 1
	}
	return th.RenderActiveLine(active, left+strings.Repeat(" ", gap)+right)
}
