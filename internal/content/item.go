package content

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultTitle is shown for items whose index record carries no title.
const DefaultTitle = "Untitled"

// Item is one indexed content entry: a blog post, a project or a music piece.
type Item struct {
	Filename     string   `json:"filename"`
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	Categories   []string `json:"categories"`
	SongOfTheDay string   `json:"song_of_the_day,omitempty"`

	// IsUnread is an annotation recomputed on every render pass. It is owned
	// by whoever annotates the item; shared index items are never annotated
	// by concurrent request handlers (see Clone).
	IsUnread bool `json:"-"`

	preview atomic.Pointer[string]
}

// rawItem mirrors the index document, which may carry either a singular
// "category" string or a "categories" field that is an array or a
// comma-separated string.
type rawItem struct {
	Filename     string          `json:"filename"`
	Title        string          `json:"title"`
	Date         json.RawMessage `json:"date"`
	Category     string          `json:"category"`
	Categories   json.RawMessage `json:"categories"`
	SongOfTheDay string          `json:"song_of_the_day"`
}

// UnmarshalJSON decodes an index record and normalizes it.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw rawItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	cats, err := decodeCategories(raw.Categories)
	if err != nil {
		return fmt.Errorf("item %q: categories: %w", raw.Filename, err)
	}
	if raw.Category != "" {
		cats = append(cats, raw.Category)
	}

	it.Filename = strings.TrimSpace(raw.Filename)
	it.Title = strings.TrimSpace(raw.Title)
	it.Date = decodeDate(raw.Date)
	it.Categories = cats
	it.SongOfTheDay = raw.SongOfTheDay
	it.Normalize()
	return nil
}

// decodeCategories accepts null, an array of strings, or a comma-separated string.
func decodeCategories(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("expected string or array of strings")
	}
	return strings.Split(s, ","), nil
}

// decodeDate keeps date strings as-is and renders other scalars (such as a
// bare year) as their JSON text. Anything unreadable becomes empty.
func decodeDate(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// Normalize applies the ingestion rules: default title, and categories as a
// lowercase, trimmed, de-duplicated, sorted set.
func (it *Item) Normalize() {
	if it.Title == "" {
		it.Title = DefaultTitle
	}
	it.Categories = NormalizeCategories(it.Categories)
}

// NormalizeCategories lowercases, trims and de-duplicates category names.
func NormalizeCategories(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// HasCategory reports whether the item belongs to the category. Matching is
// exact after case folding.
func (it *Item) HasCategory(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	for _, c := range it.Categories {
		if strings.ToLower(c) == category {
			return true
		}
	}
	return false
}

// Time returns the parsed date. ok is false when the date is missing or
// unparsable, in which case the zero time is returned.
func (it *Item) Time() (t time.Time, ok bool) {
	return ParseDate(it.Date)
}

// Preview returns the cached preview text, or "" if none has been computed.
func (it *Item) Preview() string {
	if p := it.preview.Load(); p != nil {
		return *p
	}
	return ""
}

// HasPreview reports whether a preview has been cached.
func (it *Item) HasPreview() bool {
	return it.preview.Load() != nil
}

// SetPreview caches the preview text on the item. Safe for concurrent use.
func (it *Item) SetPreview(s string) {
	it.preview.Store(&s)
}

// Clone returns a copy that can be annotated without touching the original.
// The cached preview is carried over.
func (it *Item) Clone() *Item {
	c := &Item{
		Filename:     it.Filename,
		Title:        it.Title,
		Date:         it.Date,
		Categories:   append([]string(nil), it.Categories...),
		SongOfTheDay: it.SongOfTheDay,
		IsUnread:     it.IsUnread,
	}
	if p := it.preview.Load(); p != nil {
		c.SetPreview(*p)
	}
	return c
}

// CloneAll clones every item in order.
func CloneAll(items []*Item) []*Item {
	out := make([]*Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
