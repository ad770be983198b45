package indexgen

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/ziadkadry99/folio/internal/content"
	"github.com/ziadkadry99/folio/internal/logging"
)

// DefaultSongCategory is the category whose posts carry songs.
const DefaultSongCategory = "travel"

// Song is one record of the songs index.
type Song struct {
	Date     string `json:"date"`
	Title    string `json:"title"`
	SongText string `json:"songText"`
	Filename string `json:"filename"`
}

// SongOptions configures GenerateSongs.
type SongOptions struct {
	Category string
	Marker   string
}

// GenerateSongs extracts the full song text from every post in the song
// category, newest first. Posts listed in the index but missing from fsys
// are logged and skipped.
func GenerateSongs(ctx context.Context, fsys fs.FS, posts []*content.Item, opts SongOptions) ([]Song, error) {
	if opts.Category == "" {
		opts.Category = DefaultSongCategory
	}
	if opts.Marker == "" {
		opts.Marker = DefaultSongMarker
	}

	var songs []Song
	for _, p := range posts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !p.HasCategory(opts.Category) {
			continue
		}
		data, err := fs.ReadFile(fsys, p.Filename)
		if errors.Is(err, fs.ErrNotExist) {
			logging.Warn("post file not found", "file", p.Filename)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p.Filename, err)
		}
		body, _ := content.StripFrontmatter(data)
		text, ok := afterMarker(string(body), opts.Marker)
		if !ok {
			continue
		}
		songs = append(songs, Song{
			Date:     p.Date,
			Title:    p.Title,
			SongText: strings.TrimSpace(text),
			Filename: p.Filename,
		})
	}

	SortSongs(songs)
	logging.Info("songs indexed", "songs", len(songs), "category", opts.Category)
	return songs, nil
}

// SortSongs orders songs newest first. Songs with unparsable dates go last.
func SortSongs(songs []Song) {
	sort.SliceStable(songs, func(i, j int) bool {
		a, aok := content.ParseDate(songs[i].Date)
		b, bok := content.ParseDate(songs[j].Date)
		if aok != bok {
			return aok
		}
		return a.After(b)
	})
}
