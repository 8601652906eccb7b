package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glabrego/itmonitor-cli/internal/app"
	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

type fakeService struct {
	snapshot  app.Snapshot
	loadErr   error
	forceErr  error

	calls        []string
	lastDeadline time.Time
}

func (f *fakeService) record(ctx context.Context, name string) {
	f.calls = append(f.calls, name)
	if dl, ok := ctx.Deadline(); ok {
		f.lastDeadline = dl
	}
}

func (f *fakeService) LoadAll(ctx context.Context) (app.Snapshot, error) {
	f.record(ctx, "load-all")
	return f.snapshot, f.loadErr
}

func (f *fakeService) Reload(ctx context.Context) (app.Snapshot, error) {
	f.record(ctx, "reload")
	return f.snapshot, f.loadErr
}

func (f *fakeService) ForceRefresh(ctx context.Context) (app.Snapshot, error) {
	f.record(ctx, "force")
	if f.forceErr != nil {
		return app.Snapshot{}, f.forceErr
	}
	return f.snapshot, f.loadErr
}

func TestLoadAllCmd(t *testing.T) {
	svc := &fakeService{snapshot: app.Snapshot{Entries: []itmonitor.Entry{{ID: "a"}}, EntriesFetched: true}}
	before := time.Now()
	msg := LoadAllCmd(svc, SourceManual)()
	res, ok := msg.(LoadResultMsg)
	if !ok {
		t.Fatalf("expected LoadResultMsg, got %T", msg)
	}
	if res.Source != SourceManual || res.Err != nil || len(res.Snapshot.Entries) != 1 {
		t.Fatalf("unexpected load payload: %+v", res)
	}
	if svc.lastDeadline.IsZero() || svc.lastDeadline.Before(before.Add(9*time.Second)) {
		t.Fatalf("expected ~10s deadline, got %s", svc.lastDeadline)
	}
}

func TestReloadCmdKeepsPartialSnapshot(t *testing.T) {
	svc := &fakeService{
		snapshot: app.Snapshot{StatusFetched: true, Status: itmonitor.Status{TotalFeeds: 4}},
		loadErr:  errors.New("latest failed"),
	}
	res := ReloadCmd(svc, SourceTick)().(LoadResultMsg)
	if res.Err == nil || res.Source != SourceTick {
		t.Fatalf("expected error result from tick source, got %+v", res)
	}
	if !res.Snapshot.StatusFetched || res.Snapshot.Status.TotalFeeds != 4 {
		t.Fatalf("expected partial snapshot to survive, got %+v", res.Snapshot)
	}
	if len(svc.calls) != 1 || svc.calls[0] != "reload" {
		t.Fatalf("unexpected calls: %v", svc.calls)
	}
}

func TestForceRefreshCmdUsesLongerDeadline(t *testing.T) {
	svc := &fakeService{forceErr: errors.New("force failed")}
	before := time.Now()
	res := ForceRefreshCmd(svc)().(LoadResultMsg)
	if res.Err == nil || res.Source != SourceForce {
		t.Fatalf("unexpected force payload: %+v", res)
	}
	if svc.lastDeadline.Before(before.Add(29 * time.Second)) {
		t.Fatalf("expected ~30s deadline, got %s", svc.lastDeadline)
	}
}

func TestTickCmdDisabledForZeroInterval(t *testing.T) {
	if TickCmd(0) != nil {
		t.Fatal("expected nil tick command for zero interval")
	}
	if TickCmd(time.Minute) == nil {
		t.Fatal("expected tick command")
	}
}

func TestOpenURLCmd_Fallbacks(t *testing.T) {
	msg := OpenURLCmd("e1", "https://example.com",
		func(string) error { return nil },
		func(string) error { return nil },
	)()
	success, ok := msg.(OpenURLSuccessMsg)
	if !ok || !success.Opened || success.EntryID != "e1" {
		t.Fatalf("expected opened success, got %T %+v", msg, success)
	}

	msg = OpenURLCmd("e1", "https://example.com",
		func(string) error { return errors.New("open failed") },
		func(string) error { return nil },
	)()
	success, ok = msg.(OpenURLSuccessMsg)
	if !ok || success.Opened {
		t.Fatalf("expected copy fallback success, got %T %+v", msg, success)
	}

	msg = OpenURLCmd("e1", "https://example.com",
		func(string) error { return errors.New("open failed") },
		func(string) error { return errors.New("copy failed") },
	)()
	if _, ok := msg.(OpenURLErrorMsg); !ok {
		t.Fatalf("expected OpenURLErrorMsg, got %T", msg)
	}
}

func TestCopyURLCmd(t *testing.T) {
	msg := CopyURLCmd("https://example.com", func(string) error { return nil })()
	if _, ok := msg.(OpenURLSuccessMsg); !ok {
		t.Fatalf("expected OpenURLSuccessMsg, got %T", msg)
	}
	msg = CopyURLCmd("https://example.com", func(string) error { return errors.New("copy failed") })()
	if _, ok := msg.(OpenURLErrorMsg); !ok {
		t.Fatalf("expected OpenURLErrorMsg, got %T", msg)
	}
}
