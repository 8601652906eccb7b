// Package panel builds the rows of the filter panel: one section of
// category toggles and one of feed type toggles.
package panel

import (
	"sort"
	"strings"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

type RowKind string

const (
	RowSection  RowKind = "section"
	RowCategory RowKind = "category"
	RowType     RowKind = "type"
)

const (
	SectionCategories = "Categories"
	SectionTypes      = "Types"
)

type Row struct {
	Kind    RowKind
	Label   string
	Key     string
	Checked bool
	Total   int
	Unread  int
}

// Input is everything the panel needs from the feed state, passed as
// functions so the panel does not depend on the state manager.
type Input struct {
	Categories        []itmonitor.Category
	Types             []string
	Entries           []itmonitor.Entry
	CategoryKey       func(itmonitor.Entry) string
	IsRead            func(id string) bool
	CategoryIncluded  func(key string) bool
	TypeIncluded      func(tag string) bool
	CollapsedSections map[string]bool
}

type counts struct {
	total  int
	unread int
}

func BuildRows(in Input) []Row {
	byCategory := make(map[string]*counts)
	byType := make(map[string]*counts)
	bump := func(m map[string]*counts, key string, unread bool) {
		c, ok := m[key]
		if !ok {
			c = &counts{}
			m[key] = c
		}
		c.total++
		if unread {
			c.unread++
		}
	}
	for _, e := range in.Entries {
		unread := in.IsRead == nil || !in.IsRead(e.ID)
		bump(byCategory, in.categoryKey(e), unread)
		bump(byType, e.FeedType, unread)
	}

	categories := withUnlistedCategories(in.Categories, byCategory)
	rows := make([]Row, 0, len(categories)+len(in.Types)+2)

	rows = append(rows, Row{Kind: RowSection, Label: SectionCategories})
	if !in.CollapsedSections[SectionCategories] {
		for _, c := range categories {
			row := Row{Kind: RowCategory, Label: c.Name, Key: c.Key, Checked: in.CategoryIncluded != nil && in.CategoryIncluded(c.Key)}
			if n := byCategory[c.Key]; n != nil {
				row.Total, row.Unread = n.total, n.unread
			}
			rows = append(rows, row)
		}
	}

	rows = append(rows, Row{Kind: RowSection, Label: SectionTypes})
	if !in.CollapsedSections[SectionTypes] {
		for _, tag := range in.Types {
			row := Row{Kind: RowType, Label: TypeLabel(tag), Key: tag, Checked: in.TypeIncluded != nil && in.TypeIncluded(tag)}
			if n := byType[tag]; n != nil {
				row.Total, row.Unread = n.total, n.unread
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func (in Input) categoryKey(e itmonitor.Entry) string {
	if in.CategoryKey != nil {
		return in.CategoryKey(e)
	}
	return e.CategoryKey
}

// withUnlistedCategories appends categories seen on entries but missing from
// the category list, e.g. while the list has not loaded yet.
func withUnlistedCategories(known []itmonitor.Category, seen map[string]*counts) []itmonitor.Category {
	out := append([]itmonitor.Category(nil), known...)
	listed := make(map[string]struct{}, len(known))
	for _, c := range known {
		listed[c.Key] = struct{}{}
	}
	extra := make([]string, 0)
	for key := range seen {
		if _, ok := listed[key]; !ok && key != "" {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		out = append(out, itmonitor.Category{Key: key, Name: key})
	}
	return out
}

func TypeLabel(tag string) string {
	switch tag {
	case itmonitor.FeedTypeAnnouncements:
		return "Announcements"
	case itmonitor.FeedTypeReleases:
		return "Releases"
	case itmonitor.FeedTypeCommits:
		return "Commits"
	}
	if tag == "" {
		return "Other"
	}
	return strings.ToUpper(tag[:1]) + tag[1:]
}

func FirstOptionRow(rows []Row) int {
	for i, row := range rows {
		if row.Kind != RowSection {
			return i
		}
	}
	return 0
}

// CursorForKey finds the row for kind/key so the cursor survives a rebuild.
func CursorForKey(rows []Row, kind RowKind, key string) int {
	for i, row := range rows {
		if row.Kind == kind && (row.Key == key || (kind == RowSection && row.Label == key)) {
			return i
		}
	}
	return -1
}
