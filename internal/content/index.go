package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

var (
	// ErrDuplicateFilename is returned when two index records share a filename.
	ErrDuplicateFilename = errors.New("duplicate filename in index")
	// ErrNotFound is returned when a filename is not in the index.
	ErrNotFound = errors.New("item not found")
)

// Index is the in-memory table of item metadata. It is immutable after
// construction: the fetch order is preserved and display sorting always
// works on a copy.
type Index struct {
	items  []*Item
	byName map[string]*Item
	sorted []*Item
}

// Decode reads a whole index document. It is all-or-nothing: malformed JSON
// or an invalid record fails the entire decode.
func Decode(r io.Reader) ([]*Item, error) {
	var items []*Item
	dec := json.NewDecoder(r)
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}
	return items, nil
}

// NewIndex builds an index over items in the given order.
func NewIndex(items []*Item) (*Index, error) {
	idx := &Index{
		items:  make([]*Item, 0, len(items)),
		byName: make(map[string]*Item, len(items)),
	}
	for i, it := range items {
		if it == nil {
			return nil, fmt.Errorf("index record %d is null", i)
		}
		if it.Filename == "" {
			return nil, fmt.Errorf("index record %d has no filename", i)
		}
		if _, dup := idx.byName[it.Filename]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFilename, it.Filename)
		}
		it.Normalize()
		idx.byName[it.Filename] = it
		idx.items = append(idx.items, it)
	}
	idx.sorted = SortByDate(idx.items)
	return idx, nil
}

// ReadIndex decodes an index document and builds the index.
func ReadIndex(r io.Reader) (*Index, error) {
	items, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return NewIndex(items)
}

// Len returns the number of items.
func (x *Index) Len() int { return len(x.items) }

// Items returns the items in fetch order. The slice is a copy; the items are shared.
func (x *Index) Items() []*Item {
	return append([]*Item(nil), x.items...)
}

// Sorted returns the items newest first. The slice is a copy.
func (x *Index) Sorted() []*Item {
	return append([]*Item(nil), x.sorted...)
}

// Lookup finds an item by filename.
func (x *Index) Lookup(filename string) (*Item, bool) {
	it, ok := x.byName[filename]
	return it, ok
}

// Categories returns every category used in the index, sorted.
func (x *Index) Categories() []string {
	var all []string
	for _, it := range x.items {
		all = append(all, it.Categories...)
	}
	return NormalizeCategories(all)
}

// Neighbors returns the items shown before (newer) and after (older) the
// given item in display order. Either may be nil.
func (x *Index) Neighbors(filename string) (prev, next *Item) {
	for i, it := range x.sorted {
		if it.Filename != filename {
			continue
		}
		if i > 0 {
			prev = x.sorted[i-1]
		}
		if i+1 < len(x.sorted) {
			next = x.sorted[i+1]
		}
		return prev, next
	}
	return nil, nil
}

// SortByDate returns a copy of items ordered newest first. Items whose date
// cannot be parsed keep their relative order and sink below every dated item.
func SortByDate(items []*Item) []*Item {
	type keyed struct {
		it    *Item
		when  int64
		dated bool
	}
	ks := make([]keyed, len(items))
	for i, it := range items {
		t, ok := it.Time()
		ks[i] = keyed{it: it, when: t.UnixNano(), dated: ok}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		if a.dated != b.dated {
			return a.dated
		}
		if !a.dated {
			return false
		}
		return a.when > b.when
	})
	out := make([]*Item, len(ks))
	for i, k := range ks {
		out[i] = k.it
	}
	return out
}
