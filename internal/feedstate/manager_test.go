package feedstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

type countingStore struct {
	*MemoryStore
	puts   map[string]int
	getErr map[string]error
	putErr error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: NewMemoryStore(), puts: make(map[string]int), getErr: make(map[string]error)}
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.getErr[key]; err != nil {
		return nil, err
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *countingStore) Put(ctx context.Context, key string, value []byte) error {
	s.puts[key]++
	if s.putErr != nil {
		return s.putErr
	}
	return s.MemoryStore.Put(ctx, key, value)
}

func entry(id, categoryKey, feedType string) itmonitor.Entry {
	return itmonitor.Entry{ID: id, Category: categoryKey, CategoryKey: categoryKey, FeedType: feedType, Title: "Entry " + id}
}

func ids(entries []itmonitor.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func loaded(t *testing.T, store Store, opts ...Option) *Manager {
	t.Helper()
	m := New(store, opts...)
	m.LoadPersistedState()
	return m
}

func TestLoadPersistedState_Defaults(t *testing.T) {
	m := New(NewMemoryStore())
	filters, read, seen := m.LoadPersistedState()

	assert.Empty(t, filters.Categories)
	assert.Equal(t, []string{"announcements", "releases"}, filters.Types)
	assert.Empty(t, read)
	assert.Empty(t, seen)
}

func TestLoadPersistedState_DefaultTypesOption(t *testing.T) {
	m := New(NewMemoryStore(), WithDefaultTypes([]string{"announcements", "releases", "commits"}))
	filters, _, _ := m.LoadPersistedState()
	assert.Equal(t, []string{"announcements", "releases", "commits"}, filters.Types)
}

func TestLoadPersistedState_MalformedFilterFallsBackIndependently(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, KeyFilters, []byte(`{"categories": [`)))
	require.NoError(t, store.Put(ctx, KeyRead, []byte(`["a","b"]`)))
	require.NoError(t, store.Put(ctx, KeyLastSeen, []byte(`not json`)))

	m := New(store)
	var filters FilterConfig
	var read, seen []string
	require.NotPanics(t, func() { filters, read, seen = m.LoadPersistedState() })

	assert.Equal(t, FilterConfig{Categories: []string{}, Types: []string{"announcements", "releases"}}, filters)
	assert.Equal(t, []string{"a", "b"}, read)
	assert.Empty(t, seen)
	assert.True(t, m.IsRead("a"))
}

func TestLoadPersistedState_StoreErrorIsTreatedAsAbsent(t *testing.T) {
	store := newCountingStore()
	store.getErr[KeyRead] = errors.New("disk on fire")
	require.NoError(t, store.MemoryStore.Put(context.Background(), KeyFilters, []byte(`{"categories":["infra"],"types":["commits"]}`)))

	m := New(store)
	filters, read, _ := m.LoadPersistedState()
	assert.Equal(t, []string{"infra"}, filters.Categories)
	assert.Equal(t, []string{"commits"}, filters.Types)
	assert.Empty(t, read)
}

func TestLoadPersistedState_MissingTypesUsesDefaultButExplicitEmptyStays(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), KeyFilters, []byte(`{"categories":["infra"]}`)))
	filters, _, _ := New(store).LoadPersistedState()
	assert.Equal(t, []string{"announcements", "releases"}, filters.Types)

	require.NoError(t, store.Put(context.Background(), KeyFilters, []byte(`{"categories":["infra"],"types":[]}`)))
	filters, _, _ = New(store).LoadPersistedState()
	assert.Empty(t, filters.Types)
}

func TestDeriveCategoryKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "Security", want: "security"},
		{name: "spaces collapse", in: "Infra   Tools", want: "infra_tools"},
		{name: "tabs and newlines", in: "Cloud\t\nNative", want: "cloud_native"},
		{name: "punctuation stripped", in: "CI/CD & Builds!", want: "cicd__builds"},
		{name: "accents stripped", in: "Réseau", want: "rseau"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveCategoryKey(tt.in))
		})
	}
}

func TestResolveCategoryKey(t *testing.T) {
	m := New(NewMemoryStore())
	m.SetCategories([]itmonitor.Category{{Key: "sec", Name: "Security Watch"}})

	assert.Equal(t, "explicit", m.ResolveCategoryKey(itmonitor.Entry{Category: "Security Watch", CategoryKey: "explicit"}))
	assert.Equal(t, "sec", m.ResolveCategoryKey(itmonitor.Entry{Category: "Security Watch"}))
	assert.Equal(t, "infra_tools", m.ResolveCategoryKey(itmonitor.Entry{Category: "Infra Tools"}))
}

func TestFilteredEntries_CategoryAndTypeMembership(t *testing.T) {
	m := loaded(t, NewMemoryStore())
	m.SetEntries([]itmonitor.Entry{
		entry("1", "infra", "releases"),
		entry("2", "infra", "commits"),
		entry("3", "security", "releases"),
		{ID: "4", Category: "Infra", FeedType: "releases"},
		entry("5", "infra", "releases"),
	})
	_, err := m.NormalizeCategoryFilterOnFirstLoad([]string{"infra", "security"})
	require.NoError(t, err)
	require.NoError(t, m.SetCategoryFilter("security", false))
	require.NoError(t, m.SetTypeFilter("announcements", false))

	assert.Equal(t, []string{"1", "4", "5"}, ids(m.FilteredEntries()))
}

func TestFilteredEntries_EmptyTypeFilterMatchesNothing(t *testing.T) {
	m := loaded(t, NewMemoryStore())
	m.SetEntries([]itmonitor.Entry{entry("1", "infra", "releases"), entry("2", "security", "announcements")})
	_, err := m.NormalizeCategoryFilterOnFirstLoad([]string{"infra", "security"})
	require.NoError(t, err)

	for _, tag := range itmonitor.FeedTypes {
		require.NoError(t, m.SetTypeFilter(tag, false))
	}
	assert.Empty(t, m.FilteredEntries())
	assert.Zero(t, m.UnreadCount())
}

func TestFilteredEntries_EmptyCategoriesBeforeAndAfterNormalization(t *testing.T) {
	m := loaded(t, NewMemoryStore())
	m.SetEntries([]itmonitor.Entry{entry("1", "infra", "releases"), entry("2", "security", "announcements")})

	assert.Len(t, m.FilteredEntries(), 2, "empty category filter matches everything before categories are known")

	expanded, err := m.NormalizeCategoryFilterOnFirstLoad([]string{"infra", "security"})
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.Len(t, m.FilteredEntries(), 2)

	require.NoError(t, m.SetCategoryFilter("infra", false))
	require.NoError(t, m.SetCategoryFilter("security", false))
	assert.Empty(t, m.FilteredEntries(), "an emptied selection after normalization matches nothing")
}

func TestNormalizeCategoryFilterOnFirstLoad_RunsOnce(t *testing.T) {
	m := loaded(t, NewMemoryStore())

	expanded, err := m.NormalizeCategoryFilterOnFirstLoad([]string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, expanded)

	require.NoError(t, m.SetCategoryFilter("a", false))
	require.NoError(t, m.SetCategoryFilter("b", false))

	expanded, err = m.NormalizeCategoryFilterOnFirstLoad([]string{"a", "b"})
	require.NoError(t, err)
	assert.False(t, expanded)
	assert.Empty(t, m.Filters().Categories)
}

func TestNormalizeCategoryFilterOnFirstLoad_KeepsSavedSelection(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), KeyFilters, []byte(`{"categories":["infra"],"types":["releases"]}`)))
	m := loaded(t, store)

	expanded, err := m.NormalizeCategoryFilterOnFirstLoad([]string{"infra", "security"})
	require.NoError(t, err)
	assert.False(t, expanded)
	assert.Equal(t, []string{"infra"}, m.Filters().Categories)
}

func TestMarkRead_Idempotent(t *testing.T) {
	store := newCountingStore()
	m := loaded(t, store)

	require.NoError(t, m.MarkRead("x"))
	once := m.ReadIDs()
	require.NoError(t, m.MarkRead("x"))

	assert.Equal(t, once, m.ReadIDs())
	assert.Equal(t, 1, store.puts[KeyRead])

	raw, err := store.Get(context.Background(), KeyRead)
	require.NoError(t, err)
	assert.JSONEq(t, `["x"]`, string(raw))
}

func TestMarkRead_CapEvictsOldest(t *testing.T) {
	store := NewMemoryStore()
	m := loaded(t, store)

	for i := 0; i < MaxReadIDs+25; i++ {
		require.NoError(t, m.MarkRead(fmt.Sprintf("id-%d", i)))
		require.NoError(t, m.MarkRead(fmt.Sprintf("id-%d", i)))
	}

	read := m.ReadIDs()
	require.Len(t, read, MaxReadIDs)
	assert.Equal(t, "id-25", read[0])
	assert.Equal(t, fmt.Sprintf("id-%d", MaxReadIDs+24), read[len(read)-1])
	assert.False(t, m.IsRead("id-0"))

	raw, err := store.Get(context.Background(), KeyRead)
	require.NoError(t, err)
	var persisted []string
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Len(t, persisted, MaxReadIDs)
}

func TestMarkAllVisibleRead_OnlyFilteredEntriesSinglePersist(t *testing.T) {
	store := newCountingStore()
	m := loaded(t, store)
	m.SetEntries([]itmonitor.Entry{
		entry("1", "infra", "releases"),
		entry("2", "infra", "commits"),
		entry("3", "security", "announcements"),
		entry("4", "infra", "announcements"),
	})
	_, err := m.NormalizeCategoryFilterOnFirstLoad([]string{"infra", "security"})
	require.NoError(t, err)
	require.NoError(t, m.SetCategoryFilter("security", false))
	require.NoError(t, m.MarkRead("4"))
	before := store.puts[KeyRead]

	visible := ids(m.FilteredEntries())
	marked, err := m.MarkAllVisibleRead()
	require.NoError(t, err)

	assert.Equal(t, 1, marked)
	assert.Equal(t, before+1, store.puts[KeyRead])
	for _, e := range m.Entries() {
		assert.Equal(t, contains(visible, e.ID), m.IsRead(e.ID), "entry %s", e.ID)
	}
	assert.Zero(t, m.UnreadCount())
}

func TestUnreadCountAndTitle(t *testing.T) {
	m := loaded(t, NewMemoryStore())
	m.SetEntries([]itmonitor.Entry{entry("1", "infra", "releases"), entry("2", "infra", "releases"), entry("3", "infra", "commits")})

	assert.Equal(t, 2, m.UnreadCount())
	assert.Equal(t, "(2) IT Monitoring", m.TitleWithCount("IT Monitoring"))

	require.NoError(t, m.MarkRead("1"))
	require.NoError(t, m.MarkRead("2"))
	assert.Equal(t, "IT Monitoring", m.TitleWithCount("IT Monitoring"))
}

func TestComputeNewSinceLastVisit(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), KeyLastSeen, []byte(`["A","B","C"]`)))
	m := loaded(t, store)
	require.NoError(t, m.MarkRead("D"))

	m.SetEntries([]itmonitor.Entry{entry("A", "x", "releases"), entry("B", "x", "releases"), entry("D", "x", "releases"), entry("E", "x", "releases")})
	fresh, err := m.ComputeNewSinceLastVisit()
	require.NoError(t, err)

	assert.Equal(t, 1, fresh)
	assert.ElementsMatch(t, []string{"A", "B", "D", "E"}, m.LastSeenIDs())

	raw, err := store.Get(context.Background(), KeyLastSeen)
	require.NoError(t, err)
	assert.JSONEq(t, `["A","B","D","E"]`, string(raw))

	fresh, err = m.ComputeNewSinceLastVisit()
	require.NoError(t, err)
	assert.Zero(t, fresh, "same entries are not new twice")
}

func TestComputeNewSinceLastVisit_OnlyTopWindow(t *testing.T) {
	m := loaded(t, NewMemoryStore())
	entries := make([]itmonitor.Entry, 0, LastSeenWindow+20)
	for i := 0; i < LastSeenWindow+20; i++ {
		entries = append(entries, entry(fmt.Sprintf("e%d", i), "x", "releases"))
	}
	m.SetEntries(entries)

	fresh, err := m.ComputeNewSinceLastVisit()
	require.NoError(t, err)
	assert.Equal(t, LastSeenWindow, fresh)
	assert.Len(t, m.LastSeenIDs(), LastSeenWindow)
}

func TestSetFilters_IdempotentAndPersisted(t *testing.T) {
	store := newCountingStore()
	m := loaded(t, store)

	require.NoError(t, m.SetTypeFilter("commits", true))
	require.NoError(t, m.SetTypeFilter("commits", true))
	require.NoError(t, m.SetTypeFilter("releases", false))
	require.NoError(t, m.SetTypeFilter("releases", false))

	assert.Equal(t, []string{"announcements", "commits"}, m.Filters().Types)
	assert.Equal(t, 2, store.puts[KeyFilters])

	reloaded := loaded(t, store)
	assert.Equal(t, []string{"announcements", "commits"}, reloaded.Filters().Types)
}

func TestPersistFailureKeepsInMemoryState(t *testing.T) {
	store := newCountingStore()
	m := loaded(t, store)
	store.putErr = errors.New("read-only")

	err := m.MarkRead("z")
	require.Error(t, err)
	assert.True(t, m.IsRead("z"))
}

func TestSetEntriesDoesNotAliasInput(t *testing.T) {
	m := loaded(t, NewMemoryStore())
	in := []itmonitor.Entry{entry("1", "infra", "releases")}
	m.SetEntries(in)
	in[0].ID = "mutated"

	e, ok := m.FindEntry("1")
	require.True(t, ok)
	assert.Equal(t, "infra", e.CategoryKey)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
