package browse

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/folio/internal/content"
)

// Policy selects how a filtered result is revealed.
type Policy string

const (
	PolicyPages   Policy = "pages"
	PolicyBatches Policy = "batches"
)

// Options configures a Session.
type Options struct {
	ItemKey   string // query parameter carrying the open item, e.g. "post"
	Policy    Policy
	PageSize  int
	BatchSize int
	Fetch     FetchFunc // loads per-item data for batches; may be nil
}

// View is what a renderer needs for the current state.
type View struct {
	State    ViewState
	Filtered []*content.Item
	Visible  []*content.Item
	Page     Page // set for PolicyPages
	Done     bool // every filtered item is visible
	Open     *content.Item
}

// Session owns the view state of one browsing surface. Every transition that
// changes the filtered set resets the page and the batch cursor. Transitions
// take a skipPush flag so that replaying a history entry does not push it
// again.
type Session struct {
	idx      *content.Index
	opts     Options
	state    ViewState
	filtered []*content.Item
	batcher  *Batcher
	history  *History
}

// NewSession creates a session whose initial state comes from the query
// string of the page load, not from an implicit default.
func NewSession(idx *content.Index, opts Options, initialQuery string) (*Session, error) {
	if opts.Policy == "" {
		opts.Policy = PolicyPages
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	s := &Session{
		idx:     idx,
		opts:    opts,
		state:   DefaultState(),
		batcher: NewBatcher(opts.BatchSize),
	}
	s.refilter()

	st, err := ParseQuery(initialQuery, opts.ItemKey)
	if err != nil {
		return nil, fmt.Errorf("parsing initial query: %w", err)
	}
	s.apply(st)
	s.history = NewHistory(s.state.Encode(opts.ItemKey))
	return s, nil
}

// Index returns the underlying index.
func (s *Session) Index() *content.Index { return s.idx }

// State returns the current view state.
func (s *Session) State() ViewState { return s.state }

// History returns the session's navigation stack.
func (s *Session) History() *History { return s.history }

// URL returns the current state as a query string.
func (s *Session) URL() string { return s.state.Encode(s.opts.ItemKey) }

// refilter recomputes the filtered set and resets the cursors.
func (s *Session) refilter() {
	s.filtered = Filter(s.idx.Items(), s.state.Category, s.state.Search)
	s.state.Page = 1
	s.batcher.Reset()
}

// apply moves to st, refiltering only when the filter inputs changed.
func (s *Session) apply(st ViewState) {
	st.Category = NormalizeCategory(st.Category)
	if st.Category != s.state.Category || st.Search != s.state.Search {
		s.state.Category = st.Category
		s.state.Search = st.Search
		s.refilter()
	}
	s.state.Page = ClampPage(st.Page, len(s.filtered), s.opts.PageSize)
	s.state.Open = ""
	if st.Open != "" {
		if _, ok := s.idx.Lookup(st.Open); ok {
			s.state.Open = st.Open
		}
	}
}

func (s *Session) commit(skipPush bool) {
	if !skipPush {
		s.history.Push(s.URL())
	}
}

// SetCategory switches category and returns to the first page.
func (s *Session) SetCategory(category string, skipPush bool) {
	st := s.state
	st.Category = category
	st.Open = ""
	st.Page = 1
	s.apply(st)
	s.commit(skipPush)
}

// SetSearch changes the free-text query. Search is not part of the URL, so
// the current history entry is replaced rather than pushed.
func (s *Session) SetSearch(query string) {
	st := s.state
	st.Search = query
	st.Open = ""
	st.Page = 1
	s.apply(st)
	s.history.Replace(s.URL())
}

// SetPage moves to a page, clamped into range.
func (s *Session) SetPage(page int, skipPush bool) {
	st := s.state
	st.Page = page
	st.Open = ""
	s.apply(st)
	s.commit(skipPush)
}

// SetBatchSize changes the batch size (the compact toggle) and resets the cursor.
func (s *Session) SetBatchSize(n int) {
	s.batcher.SetSize(n)
	s.state.Page = 1
}

// Open selects an item by filename.
func (s *Session) Open(filename string, skipPush bool) (*content.Item, error) {
	it, ok := s.idx.Lookup(filename)
	if !ok {
		return nil, fmt.Errorf("%w: %s", content.ErrNotFound, filename)
	}
	s.state.Open = filename
	s.commit(skipPush)
	return it, nil
}

// Close returns from an item to the list it was opened from.
func (s *Session) Close(skipPush bool) {
	s.state.Open = ""
	s.commit(skipPush)
}

// Restore reproduces the view encoded in a query string without pushing it.
// Search is cleared, matching a fresh load of that URL. An item entry only
// carries the item key, so the list underneath it is left as it was.
func (s *Session) Restore(query string) error {
	st, err := ParseQuery(query, s.opts.ItemKey)
	if err != nil {
		return err
	}
	if st.Open != "" {
		st.Category, st.Search, st.Page = s.state.Category, s.state.Search, s.state.Page
	} else {
		st.Search = ""
	}
	s.apply(st)
	return nil
}

// Back replays the previous history entry.
func (s *Session) Back() (bool, error) {
	q, ok := s.history.Back()
	if !ok {
		return false, nil
	}
	return true, s.Restore(q)
}

// Forward replays the next history entry.
func (s *Session) Forward() (bool, error) {
	q, ok := s.history.Forward()
	if !ok {
		return false, nil
	}
	return true, s.Restore(q)
}

// LoadMore reveals the next batch under PolicyBatches.
func (s *Session) LoadMore(ctx context.Context) (Batch, error) {
	return s.batcher.LoadMore(ctx, s.filtered, s.opts.Fetch)
}

// Batcher exposes the batch controller.
func (s *Session) Batcher() *Batcher { return s.batcher }

// View returns the filtered set and the visible slice for the current state.
func (s *Session) View() View {
	v := View{State: s.state, Filtered: s.filtered}
	if s.state.Open != "" {
		v.Open, _ = s.idx.Lookup(s.state.Open)
	}
	switch s.opts.Policy {
	case PolicyBatches:
		v.Visible = s.batcher.Visible(s.filtered)
		v.Done = s.batcher.Done(len(s.filtered))
	default:
		v.Page = Paginate(s.filtered, s.state.Page, s.opts.PageSize)
		v.Visible = v.Page.Items
		v.Done = !v.Page.HasNext()
	}
	return v
}
