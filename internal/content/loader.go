package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"sync"
)

// ErrNotLoaded is returned by Loader.Index before the load attempt finished.
var ErrNotLoaded = errors.New("index not loaded")

// Source is a location an index document can be read from.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// FileSource reads the index from a file system.
type FileSource struct {
	FS   fs.FS
	Path string
}

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.FS.Open(s.Path)
}

func (s FileSource) String() string { return s.Path }

// HTTPSource fetches the index over HTTP.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", s.URL, resp.Status)
	}
	return resp.Body, nil
}

func (s HTTPSource) String() string { return s.URL }

// Loader performs a single all-or-nothing load of an index. Ready is closed
// exactly once, when the attempt has finished. A failed load leaves no index
// behind and is never retried by the loader; build a new Loader to try again.
type Loader struct {
	src   Source
	once  sync.Once
	ready chan struct{}

	idx *Index
	err error
}

// NewLoader creates a loader for the given source.
func NewLoader(src Source) *Loader {
	return &Loader{src: src, ready: make(chan struct{})}
}

// Load runs the load attempt on first call; later calls return its outcome.
func (l *Loader) Load(ctx context.Context) (*Index, error) {
	l.once.Do(func() {
		defer close(l.ready)
		l.idx, l.err = l.load(ctx)
	})
	return l.idx, l.err
}

func (l *Loader) load(ctx context.Context) (*Index, error) {
	rc, err := l.src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", l.src, err)
	}
	defer rc.Close()

	idx, err := ReadIndex(rc)
	if err != nil {
		return nil, fmt.Errorf("loading index %s: %w", l.src, err)
	}
	return idx, nil
}

// Ready is closed once the load attempt has finished, successfully or not.
func (l *Loader) Ready() <-chan struct{} { return l.ready }

// Index returns the loaded index without blocking.
func (l *Loader) Index() (*Index, error) {
	select {
	case <-l.ready:
		return l.idx, l.err
	default:
		return nil, ErrNotLoaded
	}
}

// Wait blocks until the load attempt finishes or ctx is done.
func (l *Loader) Wait(ctx context.Context) (*Index, error) {
	select {
	case <-l.ready:
		return l.idx, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
