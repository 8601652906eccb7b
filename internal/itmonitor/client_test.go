package itmonitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestLatest_SendsLimitAndParsesEntries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/feeds/latest" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "500" {
			t.Fatalf("unexpected limit query: %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Fatalf("unexpected accept header: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"count":2,"entries":[
			{"id":"a1","category":"Infra Tools","category_key":"infra","feed_type":"releases","feed_name":"Kubernetes","title":"v1.30","link":"https://example.com/a1","published":"2026-02-01T10:00:00+00:00","summary":"<p>Hello</p>"},
			{"id":"a2","category":"Security","feed_type":"announcements","feed_name":"CVE","title":"Advisory","link":"https://example.com/a2","published":"2026-02-01T09:00:00"}
		]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	entries, err := c.Latest(context.Background(), 500)
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].CategoryKey != "infra" || entries[0].FeedType != FeedTypeReleases {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].CategoryKey != "" || entries[1].Author != "" {
		t.Fatalf("expected optional fields to stay empty: %+v", entries[1])
	}
	want := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	if got := entries[0].PublishedAt(); !got.Equal(want) {
		t.Fatalf("unexpected published time: %s", got)
	}
	if entries[1].PublishedAt().IsZero() {
		t.Fatal("expected zone-less timestamp to parse")
	}
}

func TestLatest_ClampsLimit(t *testing.T) {
	var limits []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limits = append(limits, r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"success":true,"entries":[]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	for _, limit := range []int{0, 5000} {
		entries, err := c.Latest(context.Background(), limit)
		if err != nil {
			t.Fatalf("Latest(%d) returned error: %v", limit, err)
		}
		if entries == nil {
			t.Fatalf("expected empty slice for limit %d", limit)
		}
	}
	if len(limits) != 2 || limits[0] != "100" || limits[1] != "1000" {
		t.Fatalf("unexpected limits sent: %v", limits)
	}
}

func TestCategories_SortedByKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/feeds/categories" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":true,"categories":{"security":{"name":"Security","feeds":{}},"infra":{"name":"Infra Tools"},"misc":{}}}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	cats, err := c.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories returned error: %v", err)
	}
	if len(cats) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(cats))
	}
	if cats[0].Key != "infra" || cats[0].Name != "Infra Tools" {
		t.Fatalf("unexpected first category: %+v", cats[0])
	}
	if cats[1].Key != "misc" || cats[1].Name != "misc" {
		t.Fatalf("expected nameless category to fall back to key: %+v", cats[1])
	}
}

func TestStatus_ParsesCounters(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"status":{"total_categories":3,"total_feeds":12,"total_entries":340,"last_update":"2026-02-01T10:00:00Z"}}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.TotalFeeds != 12 || status.TotalEntries != 340 || status.LastUpdate == "" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestStatus_UnsuccessfulEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"store offline"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	_, err := c.Status(context.Background())
	if !errors.Is(err, ErrUnsuccessful) {
		t.Fatalf("expected ErrUnsuccessful, got %v", err)
	}
	if !strings.Contains(err.Error(), "store offline") {
		t.Fatalf("expected server message in error, got %v", err)
	}
}

func TestForceFetch_PostsAndChecksSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/admin/force-fetch" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":false,"message":"Fetch failed"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	if err := c.ForceFetch(context.Background()); !errors.Is(err, ErrUnsuccessful) {
		t.Fatalf("expected ErrUnsuccessful, got %v", err)
	}
}

func TestNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	_, err := c.Latest(context.Background(), 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 502: upstream down") {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestWithRetries_RetriesServerErrorsOnly(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"entries":[{"id":"x"}]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client(), WithRetries(2))
	entries, err := c.Latest(context.Background(), 10)
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if len(entries) != 1 || calls.Load() != 2 {
		t.Fatalf("expected success on second attempt, calls=%d entries=%+v", calls.Load(), entries)
	}

	var notFound atomic.Int32
	ts404 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		notFound.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts404.Close()

	c = NewClient(ts404.URL, ts404.Client(), WithRetries(3))
	if _, err := c.Status(context.Background()); err == nil {
		t.Fatal("expected error for 404")
	}
	if notFound.Load() != 1 {
		t.Fatalf("expected 4xx not to be retried, got %d calls", notFound.Load())
	}
}
