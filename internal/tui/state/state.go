package state

import (
	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
	"github.com/glabrego/itmonitor-cli/internal/tui/panel"
)

func ClampCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor >= size {
		return size - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

func PageStep(height int, hasStatus bool) int {
	if height <= 0 {
		return 10
	}
	headerLines := 6
	if hasStatus {
		headerLines += 2
	}
	step := height - headerLines
	if step < 3 {
		step = 3
	}
	return step
}

func CenteredWindow(totalRows, cursor, height int) (int, int) {
	if totalRows <= 0 {
		return 0, 0
	}
	if height <= 0 || totalRows <= height {
		return 0, totalRows
	}
	cursor = ClampCursor(cursor, totalRows)
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	maxStart := totalRows - height
	if start > maxStart {
		start = maxStart
	}
	return start, start + height
}

func EntryIndexByID(entries []itmonitor.Entry, entryID string) int {
	if entryID == "" {
		return -1
	}
	for i, entry := range entries {
		if entry.ID == entryID {
			return i
		}
	}
	return -1
}

// AnchoredCursor keeps the cursor on the entry with anchorID after the list
// changed. When that entry is gone the old position is clamped instead.
func AnchoredCursor(entries []itmonitor.Entry, anchorID string, fallback int) int {
	if idx := EntryIndexByID(entries, anchorID); idx >= 0 {
		return idx
	}
	return ClampCursor(fallback, len(entries))
}

// StepPanelCursor moves delta rows, wrapping at both ends.
func StepPanelCursor(rows []panel.Row, cursor, delta int) int {
	if len(rows) == 0 {
		return 0
	}
	next := (cursor + delta) % len(rows)
	if next < 0 {
		next += len(rows)
	}
	return next
}
