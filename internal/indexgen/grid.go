package indexgen

import (
	"context"
	"fmt"
	"html"
	"io/fs"
	"regexp"
	"strings"

	"github.com/ziadkadry99/folio/internal/content"
	"github.com/ziadkadry99/folio/internal/logging"
	"github.com/ziadkadry99/folio/internal/progress"
	"github.com/ziadkadry99/folio/internal/render"
)

// GridOptions configures GenerateGrid.
type GridOptions struct {
	Include  string // glob, default "**/*.{md,html}"
	Exclude  []string
	Reporter progress.Reporter
}

var htmlTitle = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// GenerateGrid builds the index for a project or music directory. Every
// matching file is kept. Titles come from front matter, then the first
// heading (or <title> for HTML), then the filename.
func GenerateGrid(ctx context.Context, fsys fs.FS, opts GridOptions) ([]Entry, error) {
	if opts.Include == "" {
		opts.Include = "**/*.{md,html}"
	}
	rep := opts.Reporter
	if rep == nil {
		rep = progress.Nop{}
	}

	files, err := Find(fsys, opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}
	rep.Start(len(files))
	defer rep.Finish()

	entries := make([]Entry, 0, len(files))
	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep.Update(i+1, name)

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		body, raw := content.StripFrontmatter(data)
		meta := ParseMeta(raw)

		title := meta.Title
		if title == "" {
			title = bodyTitle(string(body), content.KindOf(name))
		}
		if title == "" {
			title = TitleFromFilename(name)
		}
		cats := meta.Categories
		if cats == nil {
			cats = []string{}
		}
		entries = append(entries, Entry{
			Filename:   name,
			Title:      title,
			Date:       meta.Date,
			Categories: cats,
		})
	}

	logging.Info("grid indexed", "items", len(entries))
	return entries, nil
}

func bodyTitle(body string, kind content.Kind) string {
	if kind == content.KindHTML {
		if m := htmlTitle.FindStringSubmatch(body); m != nil {
			return strings.TrimSpace(html.UnescapeString(m[1]))
		}
		return ""
	}
	return render.ExtractTitle(body)
}
