package feedstate

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

// DefaultTypes is the feed type selection used when no filter has been saved.
var DefaultTypes = []string{itmonitor.FeedTypeAnnouncements, itmonitor.FeedTypeReleases}

// FilterConfig is the persisted category and feed type selection.
type FilterConfig struct {
	Categories []string `json:"categories"`
	Types      []string `json:"types"`
}

func (f FilterConfig) clone() FilterConfig {
	return FilterConfig{
		Categories: append([]string{}, f.Categories...),
		Types:      append([]string{}, f.Types...),
	}
}

var (
	reWhitespace  = regexp.MustCompile(`\s+`)
	reNotKeyChars = regexp.MustCompile(`[^a-z0-9_]`)
)

// DeriveCategoryKey turns a display name into a category key: lowercase,
// whitespace runs become "_", anything outside [a-z0-9_] is dropped.
func DeriveCategoryKey(name string) string {
	key := strings.ToLower(name)
	key = reWhitespace.ReplaceAllString(key, "_")
	return reNotKeyChars.ReplaceAllString(key, "")
}

func toggle(set []string, value string, included bool) ([]string, bool) {
	has := lo.Contains(set, value)
	switch {
	case included && !has:
		return append(set, value), true
	case !included && has:
		return lo.Without(set, value), true
	}
	return set, false
}
