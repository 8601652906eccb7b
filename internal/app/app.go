package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

// ErrFetchInFlight is returned by FetchLatest while another fetch is running.
var ErrFetchInFlight = errors.New("fetch already in flight")

type APIClient interface {
	Status(ctx context.Context) (itmonitor.Status, error)
	Categories(ctx context.Context) ([]itmonitor.Category, error)
	Latest(ctx context.Context, limit int) ([]itmonitor.Entry, error)
	ForceFetch(ctx context.Context) error
}

type EntryCache interface {
	SaveEntries(ctx context.Context, entries []itmonitor.Entry) error
	ListEntries(ctx context.Context, limit int) ([]itmonitor.Entry, error)
}

// Snapshot is what one load round produced. The *Fetched flags tell a part
// that was not loaded apart from one that came back empty.
type Snapshot struct {
	Status        itmonitor.Status
	StatusFetched bool

	Categories        []itmonitor.Category
	CategoriesFetched bool

	Entries        []itmonitor.Entry
	EntriesFetched bool
}

type Service struct {
	client APIClient
	cache  EntryCache
	limit  int

	fetching atomic.Bool
}

// NewService wires the API client to an optional entry cache. limit is the
// number of entries requested per fetch.
func NewService(client APIClient, cache EntryCache, limit int) *Service {
	return &Service{client: client, cache: cache, limit: limit}
}

func (s *Service) Fetching() bool {
	return s.fetching.Load()
}

// FetchLatest loads the newest entries. Only one fetch runs at a time; a
// concurrent call returns ErrFetchInFlight without touching the network.
func (s *Service) FetchLatest(ctx context.Context) ([]itmonitor.Entry, error) {
	if !s.fetching.CompareAndSwap(false, true) {
		log.Debug("entry fetch skipped, another one is running")
		return nil, ErrFetchInFlight
	}
	defer s.fetching.Store(false)

	entries, err := s.client.Latest(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("fetch latest entries: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SaveEntries(ctx, entries); err != nil {
			log.WithError(err).Warn("could not cache fetched entries")
		}
	}
	return entries, nil
}

// LoadAll fetches status, categories and entries concurrently and waits for
// all three. Whatever succeeded is returned together with the first error.
func (s *Service) LoadAll(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var g errgroup.Group

	g.Go(func() error { return s.loadStatus(ctx, &snap) })
	g.Go(func() error {
		categories, err := s.client.Categories(ctx)
		if err != nil {
			log.WithError(err).WithField("endpoint", "categories").Error("load failed")
			return fmt.Errorf("fetch categories: %w", err)
		}
		snap.Categories = categories
		snap.CategoriesFetched = true
		return nil
	})
	g.Go(func() error { return s.loadEntries(ctx, &snap) })

	err := g.Wait()
	return snap, err
}

// Reload refreshes entries and status, the periodic refresh path.
func (s *Service) Reload(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var g errgroup.Group

	g.Go(func() error { return s.loadStatus(ctx, &snap) })
	g.Go(func() error { return s.loadEntries(ctx, &snap) })

	err := g.Wait()
	return snap, err
}

// ForceRefresh asks the aggregator to poll its feeds now, then reloads
// everything.
func (s *Service) ForceRefresh(ctx context.Context) (Snapshot, error) {
	if err := s.client.ForceFetch(ctx); err != nil {
		log.WithError(err).WithField("endpoint", "force-fetch").Error("force fetch failed")
		return Snapshot{}, fmt.Errorf("force fetch: %w", err)
	}
	return s.LoadAll(ctx)
}

// ListCached returns the entries saved by the last successful fetch.
func (s *Service) ListCached(ctx context.Context) ([]itmonitor.Entry, error) {
	if s.cache == nil {
		return []itmonitor.Entry{}, nil
	}
	entries, err := s.cache.ListEntries(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("load entries from cache: %w", err)
	}
	return entries, nil
}

func (s *Service) loadStatus(ctx context.Context, snap *Snapshot) error {
	status, err := s.client.Status(ctx)
	if err != nil {
		log.WithError(err).WithField("endpoint", "status").Error("load failed")
		return fmt.Errorf("fetch status: %w", err)
	}
	snap.Status = status
	snap.StatusFetched = true
	return nil
}

func (s *Service) loadEntries(ctx context.Context, snap *Snapshot) error {
	entries, err := s.FetchLatest(ctx)
	if errors.Is(err, ErrFetchInFlight) {
		return nil
	}
	if err != nil {
		log.WithError(err).WithField("endpoint", "latest").Error("load failed")
		return err
	}
	snap.Entries = entries
	snap.EntriesFetched = true
	return nil
}
