package server

import (
	"context"
	"io/fs"
	"net/http"
	"path"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/ziadkadry99/folio/internal/browse"
	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/content"
	"github.com/ziadkadry99/folio/internal/logging"
)

// section is the runtime state of one configured section. The loader is
// swapped whole on reload, so handlers always see one consistent index.
type section struct {
	conf   config.Section
	source content.Source
	repo   *content.Repository
	loader atomic.Pointer[content.Loader]
}

func newSection(conf config.Section, siteFS fs.FS, client *http.Client) *section {
	s := &section{
		conf: conf,
		repo: content.NewRepository(siteFS, path.Clean(conf.ItemsDir)),
	}
	if conf.IsRemote() {
		s.source = content.HTTPSource{URL: conf.Index, Client: client}
	} else {
		s.source = content.FileSource{FS: siteFS, Path: path.Clean(conf.Index)}
	}
	return s
}

// load runs a fresh load attempt. A failure replaces the current loader only
// when there is no good index to keep serving.
func (s *section) load(ctx context.Context) error {
	l := content.NewLoader(s.source)
	idx, err := l.Load(ctx)
	if err != nil {
		if cur := s.loader.Load(); cur != nil {
			if _, curErr := cur.Index(); curErr == nil {
				s.log().Warn("keeping previous index", "err", err)
				return err
			}
		}
		s.loader.Store(l)
		return err
	}

	// Previews feed search, so compute them before the index goes live.
	if errs := browse.FetchAll(ctx, idx.Items(), s.repo.LoadPreview); len(errs) > 0 {
		s.log().Debug("previews unavailable", "count", len(errs))
	}
	s.loader.Store(l)
	return nil
}

// log returns the global logger prefixed with the section name. It is not
// cached since Init and Discard replace the global logger.
func (s *section) log() *log.Logger {
	return logging.WithPrefix(s.conf.Name)
}

// index returns the current index, or the error of the last load attempt.
func (s *section) index() (*content.Index, error) {
	l := s.loader.Load()
	if l == nil {
		return nil, content.ErrNotLoaded
	}
	return l.Index()
}

func (s *section) options() browse.Options {
	return browse.Options{
		ItemKey:   s.conf.ItemKey,
		Policy:    browse.Policy(s.conf.Paging),
		PageSize:  s.conf.PageSize,
		BatchSize: s.conf.BatchSize,
		Fetch:     s.repo.LoadPreview,
	}
}

// href returns the section URL for st. An active search is carried along so
// pager links stay inside the searched result.
func (s *section) href(st browse.ViewState) string {
	v := st.Values(s.conf.ItemKey)
	if st.Open == "" && st.Search != "" {
		v.Set(browse.ParamSearch, st.Search)
	}
	if enc := v.Encode(); enc != "" {
		return "/" + s.conf.Name + "?" + enc
	}
	return "/" + s.conf.Name
}

func (s *section) itemHref(filename string) string {
	return s.href(browse.ViewState{Open: filename})
}
