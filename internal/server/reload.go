package server

import (
	"context"
	"path/filepath"

	"github.com/ziadkadry99/folio/internal/logging"
	"github.com/ziadkadry99/folio/internal/watch"
)

// indexFiles maps the absolute path of every local index file to the
// sections reading it.
func (s *Server) indexFiles() (map[string][]string, error) {
	files := make(map[string][]string)
	for _, sec := range s.sections {
		if sec.conf.IsRemote() {
			continue
		}
		abs, err := filepath.Abs(s.site.SitePath(sec.conf.Index))
		if err != nil {
			return nil, err
		}
		files[abs] = append(files[abs], sec.conf.Name)
	}
	return files, nil
}

// Watch reloads sections whenever their local index file changes, until ctx
// is cancelled. Remote indexes are not watched.
func (s *Server) Watch(ctx context.Context) error {
	files, err := s.indexFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		<-ctx.Done()
		return nil
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	w, err := watch.New(paths, watch.DefaultDebounce, func(changed []string) {
		for _, p := range changed {
			for _, name := range files[p] {
				if err := s.Reload(ctx, name); err != nil {
					logging.Error("reloading section, keeping the previous index", "section", name, "err", err)
				}
			}
		}
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
