// Package feedstate owns the client-side view of the aggregator feed: the
// current entries, which of them were read, which were already seen on the
// previous visit, and the category/type filter that derives the visible list.
//
// A Manager is not safe for concurrent use. It is meant to be driven from a
// single event loop.
package feedstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

const (
	KeyFilters  = "itm_filters"
	KeyRead     = "itm_read"
	KeyLastSeen = "itm_last_seen"

	MaxReadIDs     = 1000
	LastSeenWindow = 100

	persistTimeout = 5 * time.Second
)

type Manager struct {
	store        Store
	logger       log.FieldLogger
	defaultTypes []string

	entries    []itmonitor.Entry
	categories []itmonitor.Category
	keyByName  map[string]string

	filters    FilterConfig
	normalized bool

	readIDs  []string
	readSet  map[string]struct{}
	lastSeen map[string]struct{}
}

type Option func(*Manager)

// WithDefaultTypes overrides DefaultTypes for this manager.
func WithDefaultTypes(types []string) Option {
	return func(m *Manager) {
		m.defaultTypes = lo.Uniq(types)
	}
}

func WithLogger(logger log.FieldLogger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func New(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		logger:       log.StandardLogger(),
		defaultTypes: append([]string(nil), DefaultTypes...),
		keyByName:    make(map[string]string),
		readSet:      make(map[string]struct{}),
		lastSeen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.filters = m.defaultFilters()
	return m
}

func (m *Manager) defaultFilters() FilterConfig {
	return FilterConfig{Categories: []string{}, Types: append([]string{}, m.defaultTypes...)}
}

// LoadPersistedState reads the filter, read and last-seen blobs. Each one
// falls back to its default independently when absent or unreadable.
func (m *Manager) LoadPersistedState() (FilterConfig, []string, []string) {
	m.filters = m.loadFilters()
	m.setReadIDs(m.loadIDs(KeyRead))
	m.lastSeen = lo.SliceToMap(m.loadIDs(KeyLastSeen), func(id string) (string, struct{}) { return id, struct{}{} })
	return m.Filters(), m.ReadIDs(), lo.Keys(m.lastSeen)
}

func (m *Manager) loadFilters() FilterConfig {
	raw, ok := m.load(KeyFilters)
	if !ok {
		return m.defaultFilters()
	}
	var stored struct {
		Categories []string  `json:"categories"`
		Types      *[]string `json:"types"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		m.logger.WithField("key", KeyFilters).WithError(err).Warn("malformed persisted filters, using defaults")
		return m.defaultFilters()
	}
	f := m.defaultFilters()
	if stored.Categories != nil {
		f.Categories = lo.Uniq(stored.Categories)
	}
	if stored.Types != nil {
		f.Types = lo.Uniq(*stored.Types)
	}
	return f
}

func (m *Manager) loadIDs(key string) []string {
	raw, ok := m.load(key)
	if !ok {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		m.logger.WithField("key", key).WithError(err).Warn("malformed persisted ids, ignoring")
		return nil
	}
	return ids
}

func (m *Manager) load(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false
	}
	if err != nil {
		m.logger.WithField("key", key).WithError(err).Warn("could not read persisted state, using defaults")
		return nil, false
	}
	return raw, true
}

func (m *Manager) persist(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.store.Put(ctx, key, raw); err != nil {
		m.logger.WithField("key", key).WithError(err).Error("could not persist state")
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// SetEntries replaces the working set. Read and last-seen state are untouched.
func (m *Manager) SetEntries(entries []itmonitor.Entry) {
	m.entries = append([]itmonitor.Entry(nil), entries...)
}

func (m *Manager) Entries() []itmonitor.Entry {
	return append([]itmonitor.Entry(nil), m.entries...)
}

// SetCategories records the known categories, used to resolve entries that
// only carry a display name.
func (m *Manager) SetCategories(categories []itmonitor.Category) {
	m.categories = append([]itmonitor.Category(nil), categories...)
	m.keyByName = make(map[string]string, len(categories))
	for _, c := range categories {
		if _, dup := m.keyByName[c.Name]; !dup {
			m.keyByName[c.Name] = c.Key
		}
	}
}

func (m *Manager) Categories() []itmonitor.Category {
	return append([]itmonitor.Category(nil), m.categories...)
}

// NormalizeCategoryFilterOnFirstLoad expands an empty category filter to every
// known key. Only the first call has any effect; it reports whether the
// filter was expanded.
func (m *Manager) NormalizeCategoryFilterOnFirstLoad(knownKeys []string) (bool, error) {
	if m.normalized {
		return false, nil
	}
	m.normalized = true
	if len(m.filters.Categories) > 0 {
		return false, nil
	}
	m.filters.Categories = lo.Uniq(knownKeys)
	return true, m.persist(KeyFilters, m.filters)
}

func (m *Manager) Normalized() bool {
	return m.normalized
}

func (m *Manager) Filters() FilterConfig {
	return m.filters.clone()
}

func (m *Manager) CategoryIncluded(key string) bool {
	return lo.Contains(m.filters.Categories, key)
}

func (m *Manager) TypeIncluded(tag string) bool {
	return lo.Contains(m.filters.Types, tag)
}

func (m *Manager) SetCategoryFilter(key string, included bool) error {
	next, changed := toggle(m.filters.Categories, key, included)
	m.filters.Categories = next
	if !changed {
		return nil
	}
	return m.persist(KeyFilters, m.filters)
}

func (m *Manager) SetTypeFilter(tag string, included bool) error {
	next, changed := toggle(m.filters.Types, tag, included)
	m.filters.Types = next
	if !changed {
		return nil
	}
	return m.persist(KeyFilters, m.filters)
}

// ResolveCategoryKey prefers the entry's category_key, then a known category
// with the same display name, then DeriveCategoryKey.
func (m *Manager) ResolveCategoryKey(entry itmonitor.Entry) string {
	if entry.CategoryKey != "" {
		return entry.CategoryKey
	}
	if key, ok := m.keyByName[entry.Category]; ok {
		return key
	}
	return DeriveCategoryKey(entry.Category)
}

func (m *Manager) passes(entry itmonitor.Entry) bool {
	if len(m.filters.Categories) > 0 || m.normalized {
		if !lo.Contains(m.filters.Categories, m.ResolveCategoryKey(entry)) {
			return false
		}
	}
	return lo.Contains(m.filters.Types, entry.FeedType)
}

// FilteredEntries returns the entries passing the current filter, in fetch order.
func (m *Manager) FilteredEntries() []itmonitor.Entry {
	return lo.Filter(m.entries, func(e itmonitor.Entry, _ int) bool {
		return m.passes(e)
	})
}

func (m *Manager) FindEntry(id string) (itmonitor.Entry, bool) {
	return lo.Find(m.entries, func(e itmonitor.Entry) bool { return e.ID == id })
}

func (m *Manager) IsRead(id string) bool {
	_, ok := m.readSet[id]
	return ok
}

func (m *Manager) ReadIDs() []string {
	return append([]string(nil), m.readIDs...)
}

func (m *Manager) setReadIDs(ids []string) {
	ids = lo.Uniq(ids)
	if len(ids) > MaxReadIDs {
		ids = ids[len(ids)-MaxReadIDs:]
	}
	m.readIDs = ids
	m.readSet = lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
}

func (m *Manager) appendRead(id string) bool {
	if m.IsRead(id) {
		return false
	}
	m.readIDs = append(m.readIDs, id)
	m.readSet[id] = struct{}{}
	return true
}

func (m *Manager) saveRead() error {
	if len(m.readIDs) > MaxReadIDs {
		m.setReadIDs(m.readIDs)
	}
	return m.persist(KeyRead, m.readIDs)
}

// MarkRead records id as read. Repeated calls for the same id are no-ops.
func (m *Manager) MarkRead(id string) error {
	if id == "" || !m.appendRead(id) {
		return nil
	}
	return m.saveRead()
}

// MarkAllVisibleRead marks every entry passing the filter and persists once.
// It returns how many entries changed state.
func (m *Manager) MarkAllVisibleRead() (int, error) {
	marked := 0
	for _, e := range m.FilteredEntries() {
		if m.appendRead(e.ID) {
			marked++
		}
	}
	if marked == 0 {
		return 0, nil
	}
	return marked, m.saveRead()
}

// UnreadCount counts filtered entries that are not read.
func (m *Manager) UnreadCount() int {
	return lo.CountBy(m.FilteredEntries(), func(e itmonitor.Entry) bool { return !m.IsRead(e.ID) })
}

func (m *Manager) topIDs() []string {
	top := m.entries
	if len(top) > LastSeenWindow {
		top = top[:LastSeenWindow]
	}
	return lo.Map(top, func(e itmonitor.Entry, _ int) string { return e.ID })
}

// ComputeNewSinceLastVisit counts top entries that were neither seen on the
// previous fetch nor read, then replaces the last-seen set with the current
// top entries.
func (m *Manager) ComputeNewSinceLastVisit() (int, error) {
	current := m.topIDs()
	fresh := lo.CountBy(current, func(id string) bool {
		_, seen := m.lastSeen[id]
		return !seen && !m.IsRead(id)
	})
	m.lastSeen = lo.SliceToMap(current, func(id string) (string, struct{}) { return id, struct{}{} })
	return fresh, m.persist(KeyLastSeen, current)
}

func (m *Manager) LastSeenIDs() []string {
	return lo.Keys(m.lastSeen)
}

// TitleWithCount prefixes base with the unread count when there is any.
func (m *Manager) TitleWithCount(base string) string {
	if n := m.UnreadCount(); n > 0 {
		return fmt.Sprintf("(%d) %s", n, base)
	}
	return base
}
