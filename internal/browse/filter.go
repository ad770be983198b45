// Package browse holds the pure browsing logic over a content index:
// category and text filtering, paging and incremental batches, and the view
// state that is mirrored into the URL.
package browse

import (
	"strings"

	"github.com/ziadkadry99/folio/internal/content"
)

// AllCategories selects every item.
const AllCategories = "all"

// NormalizeCategory lowercases and trims a category selector. Empty means all.
func NormalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AllCategories
	}
	return s
}

// Filter returns the items in category that match query, newest first.
// The input slice is not reordered. A query that is empty after trimming
// matches everything.
func Filter(items []*content.Item, category, query string) []*content.Item {
	category = NormalizeCategory(category)
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]*content.Item, 0, len(items))
	for _, it := range items {
		if category != AllCategories && !it.HasCategory(category) {
			continue
		}
		if q != "" && !Matches(it, q) {
			continue
		}
		out = append(out, it)
	}
	return content.SortByDate(out)
}

// Matches reports whether the lowercased query q occurs in the item's title,
// date or cached preview. An item without a preview is searched as if its
// preview were empty.
func Matches(it *content.Item, q string) bool {
	return strings.Contains(strings.ToLower(it.Title), q) ||
		strings.Contains(strings.ToLower(it.Date), q) ||
		strings.Contains(strings.ToLower(it.Preview()), q)
}
