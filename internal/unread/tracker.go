package unread

import (
	"context"
	"fmt"
	"time"

	"github.com/ziadkadry99/folio/internal/content"
)

const (
	// DefaultKey is the store key holding the last-read timestamp.
	DefaultKey = "lastReadPostDate"
	// DefaultMaxAge is how long the last-read value is kept.
	DefaultMaxAge = 365 * 24 * time.Hour
	// DefaultDismissAfter is how long an unread notice stays visible.
	DefaultDismissAfter = 5 * time.Second
)

// Notice is the transient "new items" notification of a render pass.
type Notice struct {
	Count        int           `json:"count"`
	Message      string        `json:"message,omitempty"`
	DismissAfter time.Duration `json:"dismiss_after_ms"`
}

// Show reports whether the notice should be displayed.
func (n Notice) Show() bool { return n.Count > 0 }

// Millis returns DismissAfter in milliseconds, for templates and scripts.
func (n Notice) Millis() int64 { return n.DismissAfter.Milliseconds() }

// Tracker compares item dates against the visitor's last-read timestamp.
type Tracker struct {
	store        Store
	key          string
	maxAge       time.Duration
	dismissAfter time.Duration
	now          func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithKey overrides the store key.
func WithKey(key string) Option {
	return func(t *Tracker) {
		if key != "" {
			t.key = key
		}
	}
}

// WithMaxAge overrides how long the last-read value is kept.
func WithMaxAge(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.maxAge = d
		}
	}
}

// WithDismissAfter overrides the notice display time.
func WithDismissAfter(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.dismissAfter = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker over store.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:        store,
		key:          DefaultKey,
		maxAge:       DefaultMaxAge,
		dismissAfter: DefaultDismissAfter,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LastRead returns the stored timestamp, or the Unix epoch when nothing (or
// nothing parsable) is stored.
func (t *Tracker) LastRead(ctx context.Context) (time.Time, error) {
	v, ok, err := t.store.Get(ctx, t.key)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading last-read: %w", err)
	}
	if !ok {
		return time.Unix(0, 0).UTC(), nil
	}
	when, ok := content.ParseDate(v)
	if !ok {
		return time.Unix(0, 0).UTC(), nil
	}
	return when, nil
}

// Annotate sets IsUnread on every item dated strictly after the last-read
// timestamp and clears it on the rest. Items without a parsable date are
// never unread. Callers sharing items across goroutines pass clones.
func (t *Tracker) Annotate(ctx context.Context, items []*content.Item) (Notice, error) {
	last, err := t.LastRead(ctx)
	if err != nil {
		return Notice{}, err
	}
	return t.annotate(last, items), nil
}

func (t *Tracker) annotate(last time.Time, items []*content.Item) Notice {
	n := Notice{DismissAfter: t.dismissAfter}
	for _, it := range items {
		when, ok := it.Time()
		it.IsUnread = ok && when.After(last)
		if it.IsUnread {
			n.Count++
		}
	}
	switch n.Count {
	case 0:
	case 1:
		n.Message = "1 new post since your last visit"
	default:
		n.Message = fmt.Sprintf("%d new posts since your last visit", n.Count)
	}
	return n
}

// MarkRead records that the item was opened. The timestamp only moves
// forward, and never past the current time, so a future-dated item cannot
// hide genuinely new ones. It reports whether the store was updated.
func (t *Tracker) MarkRead(ctx context.Context, it *content.Item) (bool, error) {
	when, ok := it.Time()
	if !ok {
		return false, nil
	}
	if when.After(t.now()) {
		return false, nil
	}
	last, err := t.LastRead(ctx)
	if err != nil {
		return false, err
	}
	if !when.After(last) {
		return false, nil
	}
	if err := t.store.Set(ctx, t.key, content.FormatTimestamp(when), t.maxAge); err != nil {
		return false, fmt.Errorf("writing last-read: %w", err)
	}
	return true, nil
}
