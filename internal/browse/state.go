package browse

import (
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names shared by every section. The item key differs per
// section ("post", "project", "music").
const (
	ParamCategory = "category"
	ParamPage     = "page"
	ParamSearch   = "q"
)

// ViewState is everything needed to reproduce a view. Search is kept in
// memory only and never written to the URL.
type ViewState struct {
	Category string
	Search   string
	Page     int
	Open     string // filename of the open item, if any
}

// DefaultState is the view shown when the URL carries no parameters.
func DefaultState() ViewState {
	return ViewState{Category: AllCategories, Page: 1}
}

// Values encodes the state as query parameters. An open item is encoded by
// itself under itemKey; otherwise category and page are written, omitting
// the defaults.
func (s ViewState) Values(itemKey string) url.Values {
	v := url.Values{}
	if s.Open != "" {
		v.Set(itemKey, s.Open)
		return v
	}
	if c := NormalizeCategory(s.Category); c != AllCategories {
		v.Set(ParamCategory, c)
	}
	if s.Page > 1 {
		v.Set(ParamPage, strconv.Itoa(s.Page))
	}
	return v
}

// Encode returns the state as a query string with a leading "?", or "" for
// the default view.
func (s ViewState) Encode(itemKey string) string {
	enc := s.Values(itemKey).Encode()
	if enc == "" {
		return ""
	}
	return "?" + enc
}

// ParseState reads category, page and the item key from query parameters.
// Missing or invalid values fall back to the defaults.
func ParseState(v url.Values, itemKey string) ViewState {
	s := DefaultState()
	s.Category = NormalizeCategory(v.Get(ParamCategory))
	if p, err := strconv.Atoi(strings.TrimSpace(v.Get(ParamPage))); err == nil && p > 0 {
		s.Page = p
	}
	if itemKey != "" {
		s.Open = v.Get(itemKey)
	}
	return s
}

// ParseQuery parses a raw query string, with or without its leading "?".
func ParseQuery(raw, itemKey string) (ViewState, error) {
	v, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return DefaultState(), err
	}
	return ParseState(v, itemKey), nil
}
