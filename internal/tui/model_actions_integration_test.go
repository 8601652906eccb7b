package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/itmonitor-cli/internal/app"
	"github.com/glabrego/itmonitor-cli/internal/feedstate"
	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
	"github.com/glabrego/itmonitor-cli/internal/itmonitor/itmonitortest"
	tuiactions "github.com/glabrego/itmonitor-cli/internal/tui/actions"
)

func TestModelKeypressFlows_AgainstFakeAPI(t *testing.T) {
	srv := itmonitortest.NewServer()
	t.Cleanup(srv.Close)
	srv.SetStatus(itmonitor.Status{TotalCategories: 2, TotalFeeds: 4, TotalEntries: 3})
	srv.SetCategories(map[string]string{"infra": "Infrastructure", "security": "Security"})
	srv.SetEntries(fixtureEntries())

	service := app.NewService(itmonitor.NewClient(srv.URL, srv.Client()), nil, 50)
	mgr := feedstate.New(feedstate.NewMemoryStore())
	m := NewModel(service, mgr, Options{DeepLink: "1"})
	m.nowFn = func() time.Time { return testNow }
	m.openURLFn = func(string) error { return nil }
	m.copyURLFn = func(string) error { return nil }

	// Init's load, run by hand.
	msg := tuiactions.LoadAllCmd(service, tuiactions.SourceInit)()
	m, _ = update(t, m, msg)
	if len(m.entries) != 2 || !mgr.Normalized() || !m.online {
		t.Fatalf("unexpected state after init load: entries=%d normalized=%v online=%v", len(m.entries), mgr.Normalized(), m.online)
	}
	if !m.inDetail || !mgr.IsRead("1") {
		t.Fatal("expected deep link to open and read entry 1")
	}
	if srv.LastLimit() != 50 {
		t.Fatalf("expected fetch limit 50, got %d", srv.LastLimit())
	}

	m = press(t, m, "esc")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'F'}})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("expected force refresh command")
	}
	m, _ = update(t, m, cmd())
	if srv.ForceCalls() != 1 {
		t.Fatalf("expected one force fetch, got %d", srv.ForceCalls())
	}
	if m.fetching || m.err != nil {
		t.Fatalf("unexpected state after force refresh: fetching=%v err=%v", m.fetching, m.err)
	}

	srv.Fail("latest", 1)
	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = updated.(Model)
	m, _ = update(t, m, cmd())
	if m.err == nil || !m.online {
		t.Fatalf("expected partial failure with reachable server, err=%v online=%v", m.err, m.online)
	}
	if len(m.entries) != 2 {
		t.Fatalf("expected previous entries kept after failed fetch, got %d", len(m.entries))
	}
}
