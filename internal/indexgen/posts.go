package indexgen

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ziadkadry99/folio/internal/content"
	"github.com/ziadkadry99/folio/internal/logging"
	"github.com/ziadkadry99/folio/internal/progress"
)

// DefaultSongMarker introduces the song of the day in a post body.
const DefaultSongMarker = "שיר היום:"

// Entry is one record of a generated index. It decodes as a content.Item.
type Entry struct {
	Filename     string   `json:"filename"`
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	Categories   []string `json:"categories"`
	SongOfTheDay string   `json:"song_of_the_day,omitempty"`
}

// PostOptions configures GeneratePosts.
type PostOptions struct {
	Include      string   // glob, default "**/*.md"
	Exclude      []string // extra exclude globs
	UploadTarget string   // keep posts whose uploadto lists this; empty keeps all
	SongMarker   string
	Reporter     progress.Reporter
}

// Meta is the front matter fields the generators read.
type Meta struct {
	Title      string
	Date       string
	Categories []string
	UploadTo   []string
}

// GeneratePosts builds the posts index from the markdown files in fsys.
// Posts not targeted at the upload target are skipped.
func GeneratePosts(ctx context.Context, fsys fs.FS, opts PostOptions) ([]Entry, error) {
	if opts.Include == "" {
		opts.Include = "**/*.md"
	}
	if opts.SongMarker == "" {
		opts.SongMarker = DefaultSongMarker
	}
	rep := opts.Reporter
	if rep == nil {
		rep = progress.Nop{}
	}
	target := strings.ToLower(strings.TrimSpace(opts.UploadTarget))

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

		if target != "" && !contains(meta.UploadTo, target) {
			logging.Debug("skipped post", "file", name, "uploadto", meta.UploadTo)
			continue
		}

		e := Entry{
			Filename:   name,
			Title:      meta.Title,
			Date:       meta.Date,
			Categories: meta.Categories,
		}
		if e.Title == "" {
			e.Title = TitleFromFilename(name)
		}
		if e.Categories == nil {
			e.Categories = []string{}
		}
		e.SongOfTheDay = SongOfTheDay(string(body), opts.SongMarker)
		entries = append(entries, e)
	}

	logging.Info("posts indexed", "kept", len(entries), "scanned", len(files))
	return entries, nil
}

// ParseMeta reads the generator fields from decoded front matter. Dates have
// their "T" separator replaced by a space; categories and uploadto accept a
// list or a comma-separated string, and uploadto is lowercased.
func ParseMeta(raw map[string]interface{}) Meta {
	return Meta{
		Title:      strings.TrimSpace(scalar(raw["title"])),
		Date:       strings.ReplaceAll(strings.TrimSpace(scalar(raw["date"])), "T", " "),
		Categories: list(raw["categories"], false),
		UploadTo:   list(raw["uploadto"], true),
	}
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(t)
	}
}

func list(v interface{}, lower bool) []string {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if lower {
			s = strings.ToLower(s)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			add(part)
		}
	case []interface{}:
		for _, part := range t {
			add(scalar(part))
		}
	case []string:
		for _, part := range t {
			add(part)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var titleCaser = cases.Title(language.Und)

// TitleFromFilename derives a title from a relative path: the extension is
// dropped, dashes become spaces and each word is capitalized.
func TitleFromFilename(name string) string {
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.ReplaceAll(name, "-", " ")
	return titleCaser.String(name)
}

// SongOfTheDay returns the text after marker up to the first blank line, or
// "" when the body has no marker.
func SongOfTheDay(body, marker string) string {
	after, ok := afterMarker(body, marker)
	if !ok {
		return ""
	}
	if i := strings.Index(after, "\n\n"); i >= 0 {
		after = after[:i]
	}
	return strings.TrimSpace(after)
}

// afterMarker returns the body text following marker with leading space
// removed. Line endings are normalized to "\n".
func afterMarker(body, marker string) (string, bool) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	i := strings.Index(body, marker)
	if i < 0 {
		return "", false
	}
	return strings.TrimLeftFunc(body[i+len(marker):], unicode.IsSpace), true
}
