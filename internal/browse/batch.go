package browse

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/folio/internal/content"
)

var (
	// ErrBatchInFlight is returned when a batch is requested while another is loading.
	ErrBatchInFlight = errors.New("batch already loading")
	// ErrStale is returned when the view was reset while a batch was loading.
	// The batch is discarded and the cursor is left where the reset put it.
	ErrStale = errors.New("batch discarded: view changed while loading")
)

// DefaultBatchSize is the number of items revealed per "load more".
const DefaultBatchSize = 10

// maxConcurrentFetches bounds the per-item fan-out of a batch.
const maxConcurrentFetches = 8

// FetchFunc loads whatever a rendered item needs, typically its preview.
type FetchFunc func(ctx context.Context, it *content.Item) error

// Batch is the result of one incremental load.
type Batch struct {
	// Items are in display order regardless of which fetch finished first.
	Items []*content.Item
	// Errors holds per-item fetch failures keyed by filename. A failed item
	// is still part of the batch and renders as an inline error.
	Errors map[string]error
}

// Batcher reveals a filtered result incrementally. The shown-count cursor
// starts at one batch and only grows until Reset.
type Batcher struct {
	mu      sync.Mutex
	size    int
	shown   int
	loading bool
	gen     uint64
}

// NewBatcher creates a batcher with the given batch size.
func NewBatcher(size int) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batcher{size: size, shown: size}
}

// Size returns the batch size.
func (b *Batcher) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// SetSize changes the batch size and resets the cursor.
func (b *Batcher) SetSize(n int) {
	if n <= 0 {
		n = DefaultBatchSize
	}
	b.mu.Lock()
	b.size = n
	b.mu.Unlock()
	b.Reset()
}

// Reset moves the cursor back to the first batch. Any batch still loading
// becomes stale.
func (b *Batcher) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shown = b.size
	b.gen++
}

// Shown returns how many of total items are visible.
func (b *Batcher) Shown(total int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shown > total {
		return total
	}
	return b.shown
}

// Visible returns the revealed prefix of items.
func (b *Batcher) Visible(items []*content.Item) []*content.Item {
	return items[:b.Shown(len(items))]
}

// Done reports whether every item is visible.
func (b *Batcher) Done(total int) bool {
	return b.Shown(total) >= total
}

// Loading reports whether a batch is in flight.
func (b *Batcher) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// LoadMore fetches the next batch of items and advances the cursor. Only one
// batch loads at a time: a call made while another is in flight returns
// ErrBatchInFlight without touching the cursor. When everything is already
// shown it returns an empty batch.
func (b *Batcher) LoadMore(ctx context.Context, items []*content.Item, fetch FetchFunc) (Batch, error) {
	b.mu.Lock()
	if b.loading {
		b.mu.Unlock()
		return Batch{}, ErrBatchInFlight
	}
	start := b.shown
	if start >= len(items) {
		b.mu.Unlock()
		return Batch{}, nil
	}
	end := start + b.size
	if end > len(items) {
		end = len(items)
	}
	b.loading = true
	gen := b.gen
	b.mu.Unlock()

	batch := Batch{Items: items[start:end]}
	batch.Errors = FetchAll(ctx, batch.Items, fetch)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false
	if gen != b.gen {
		return Batch{}, ErrStale
	}
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	b.shown = end
	return batch, nil
}

// FetchAll runs fetch for every item concurrently and waits for all of them.
// Failures are reported per filename; a nil fetch does nothing.
func FetchAll(ctx context.Context, items []*content.Item, fetch FetchFunc) map[string]error {
	if fetch == nil || len(items) == 0 {
		return nil
	}
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, it := range items {
		g.Go(func() error {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return nil
			}
			errs[i] = fetch(ctx, it)
			return nil // never fail the group - errors reported per item
		})
	}
	_ = g.Wait()

	var out map[string]error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if out == nil {
			out = make(map[string]error)
		}
		out[items[i].Filename] = err
	}
	return out
}
