package browse

import "github.com/ziadkadry99/folio/internal/content"

// DefaultPageSize is used when a section does not configure one.
const DefaultPageSize = 10

// Page is one discrete page of a filtered result.
type Page struct {
	Items  []*content.Item
	Number int // 1-based, already clamped
	Pages  int // at least 1, even for an empty result
	Size   int
	Total  int
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Number < p.Pages }

// PageCount returns ceil(total/size), never less than 1.
func PageCount(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	n := (total + size - 1) / size
	if n < 1 {
		n = 1
	}
	return n
}

// ClampPage forces page into [1, PageCount(total, size)].
func ClampPage(page, total, size int) int {
	if page < 1 {
		return 1
	}
	if last := PageCount(total, size); page > last {
		return last
	}
	return page
}

// Paginate returns the slice [(page-1)*size, page*size) of items after
// clamping page into range.
func Paginate(items []*content.Item, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	page = ClampPage(page, total, size)

	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Page{
		Items:  items[start:end],
		Number: page,
		Pages:  PageCount(total, size),
		Size:   size,
		Total:  total,
	}
}
