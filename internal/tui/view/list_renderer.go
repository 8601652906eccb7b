package view

import (
	"strings"
)

type ListRenderInput struct {
	Count  int
	Start  int
	End    int
	Cursor int

	// EmptyText is shown when no entry passes the filter.
	EmptyText string

	RenderEntryLine   func(index int, active bool) string
	RenderPreviewLine func(index int) string
}

func RenderListBody(in ListRenderInput) string {
	if in.Count == 0 {
		if in.EmptyText == "" {
			return ""
		}
		return in.EmptyText + "\n"
	}
	if in.Start >= in.End || in.Start < 0 {
		return ""
	}
	end := min(in.End, in.Count)
	var b strings.Builder
	for i := in.Start; i < end; i++ {
		b.WriteString(in.RenderEntryLine(i, i == in.Cursor))
		b.WriteString("\n")
		if in.RenderPreviewLine != nil {
			if preview := in.RenderPreviewLine(i); preview != "" {
				b.WriteString(preview)
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
