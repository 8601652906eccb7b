package itmonitor

import (
	"sort"
	"strings"
	"time"
)

const (
	FeedTypeAnnouncements = "announcements"
	FeedTypeReleases      = "releases"
	FeedTypeCommits       = "commits"
)

// FeedTypes lists the feed type tags the aggregator emits, in display order.
var FeedTypes = []string{FeedTypeAnnouncements, FeedTypeReleases, FeedTypeCommits}

// Entry is one aggregated article, release or commit as returned by /api/feeds/latest.
// Optional fields are empty when the API omits them.
type Entry struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	CategoryKey string `json:"category_key,omitempty"`
	FeedType    string `json:"feed_type"`
	FeedName    string `json:"feed_name"`
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Link        string `json:"link"`
	Published   string `json:"published"`
	Summary     string `json:"summary,omitempty"`
}

var publishedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// PublishedAt parses Published. The zero time is returned when no known layout matches.
func (e Entry) PublishedAt() time.Time {
	raw := strings.TrimSpace(e.Published)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

type Category struct {
	Key  string
	Name string
}

type categoryPayload struct {
	Name string `json:"name"`
}

func sortedCategories(raw map[string]categoryPayload) []Category {
	out := make([]Category, 0, len(raw))
	for key, c := range raw {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = key
		}
		out = append(out, Category{Key: key, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Status is the aggregate counters block of /api/feeds/status.
type Status struct {
	TotalCategories int    `json:"total_categories"`
	TotalFeeds      int    `json:"total_feeds"`
	TotalEntries    int    `json:"total_entries"`
	LastUpdate      string `json:"last_update"`
}
