package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/itmonitor-cli/internal/app"
	tuiactions "github.com/glabrego/itmonitor-cli/internal/tui/actions"
)

func TestModelUpdate_HandlesAllActionMessageTypes(t *testing.T) {
	m, _ := newTestModel(&fakeLoader{}, Options{RefreshInterval: time.Minute})

	tests := []struct {
		name string
		msg  tea.Msg
	}{
		{
			name: "load success",
			msg: tuiactions.LoadResultMsg{
				Snapshot: app.Snapshot{Entries: fixtureEntries(), EntriesFetched: true, Categories: fixtureCategories(), CategoriesFetched: true},
				Duration: 120 * time.Millisecond,
				Source:   tuiactions.SourceInit,
			},
		},
		{
			name: "load error",
			msg: tuiactions.LoadResultMsg{
				Err:      assertErr("load failed"),
				Duration: 120 * time.Millisecond,
				Source:   tuiactions.SourceManual,
			},
		},
		{
			name: "force refresh error",
			msg: tuiactions.LoadResultMsg{
				Err:    assertErr("force fetch failed"),
				Source: tuiactions.SourceForce,
			},
		},
		{
			name: "tick",
			msg:  tuiactions.TickMsg{At: testNow},
		},
		{
			name: "open url success",
			msg: tuiactions.OpenURLSuccessMsg{
				Status:  "Opened URL in browser",
				EntryID: "1",
				Opened:  true,
			},
		},
		{
			name: "open url error",
			msg:  tuiactions.OpenURLErrorMsg{Err: assertErr("open failed")},
		},
		{
			name: "window size",
			msg:  tea.WindowSizeMsg{Width: 80, Height: 24},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			updated, _ := m.Update(tc.msg)
			next, ok := updated.(Model)
			if !ok {
				t.Fatalf("expected Model after update, got %T", updated)
			}
			if next.View() == "" {
				t.Fatal("expected a non-empty view")
			}
			m = next
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func assertErr(s string) error { return errString(s) }
