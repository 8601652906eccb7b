package actions

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/itmonitor-cli/internal/app"
)

const (
	SourceInit   = "init"
	SourceManual = "manual"
	SourceTick   = "auto"
	SourceForce  = "force"
)

type Service interface {
	LoadAll(ctx context.Context) (app.Snapshot, error)
	Reload(ctx context.Context) (app.Snapshot, error)
	ForceRefresh(ctx context.Context) (app.Snapshot, error)
}

// LoadResultMsg carries a load round. Snapshot may be partially filled when
// Err is set.
type LoadResultMsg struct {
	Snapshot app.Snapshot
	Err      error
	Duration time.Duration
	Source   string
}

type TickMsg struct {
	At time.Time
}

type OpenURLSuccessMsg struct {
	Status  string
	EntryID string
	Opened  bool
}

type OpenURLErrorMsg struct {
	Err error
}

func LoadAllCmd(service Service, source string) tea.Cmd {
	return loadCmd(service.LoadAll, 10*time.Second, source)
}

func ReloadCmd(service Service, source string) tea.Cmd {
	return loadCmd(service.Reload, 10*time.Second, source)
}

// ForceRefreshCmd gets a longer deadline since the aggregator polls every
// upstream feed before answering.
func ForceRefreshCmd(service Service) tea.Cmd {
	return loadCmd(service.ForceRefresh, 30*time.Second, SourceForce)
}

func loadCmd(load func(context.Context) (app.Snapshot, error), timeout time.Duration, source string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()

		snap, err := load(ctx)
		return LoadResultMsg{Snapshot: snap, Err: err, Duration: time.Since(start), Source: source}
	}
}

func TickCmd(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{At: t}
	})
}

func OpenURLCmd(entryID, url string, openFn, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if openFn != nil {
			if err := openFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Opened URL in browser", EntryID: entryID, Opened: true}
			}
		}
		if copyFn != nil {
			if err := copyFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Could not open browser, URL copied to clipboard", EntryID: entryID, Opened: false}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not open URL or copy to clipboard")}
	}
}

func CopyURLCmd(url string, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if copyFn != nil {
			if err := copyFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "URL copied to clipboard"}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not copy URL to clipboard")}
	}
}
