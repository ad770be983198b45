package server

import (
	"net/http"
	"strings"

	"github.com/ziadkadry99/folio/internal/content"
)

const (
	songsShown       = 10
	songPreviewRunes = 80
)

type songEntry struct {
	Date     string `json:"date"`
	Title    string `json:"title"`
	Preview  string `json:"preview"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// songList is the first page of songs of the day and how many were left out.
type songList struct {
	Songs []songEntry `json:"songs"`
	More  int         `json:"more"`
	Total int         `json:"total"`
}

// postsSection is the section whose items the post generator writes.
func (s *Server) postsSection() *section {
	for _, sec := range s.sections {
		if !sec.conf.IsRemote() && strings.Trim(sec.conf.ItemsDir, "/") == strings.Trim(s.site.Index.PostsDir, "/") {
			return sec
		}
	}
	return s.byName["blog"]
}

// songs lists posts of the song category carrying a song of the day, newest
// first.
func (s *Server) songs(posts *section, idx *content.Index) *songList {
	var items []*content.Item
	for _, it := range idx.Items() {
		if it.SongOfTheDay != "" && it.HasCategory(s.site.Index.SongCategory) {
			items = append(items, it)
		}
	}
	items = content.SortByDate(items)

	list := &songList{Songs: []songEntry{}, Total: len(items)}
	for i, it := range items {
		if i == songsShown {
			list.More = len(items) - songsShown
			break
		}
		date, _, _ := strings.Cut(it.Date, " ")
		list.Songs = append(list.Songs, songEntry{
			Date:     date,
			Title:    it.Title,
			Preview:  truncateRunes(it.SongOfTheDay, songPreviewRunes),
			Filename: it.Filename,
			URL:      posts.itemHref(it.Filename),
		})
	}
	return list
}

func truncateRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	posts := s.postsSection()
	if posts == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no posts section configured"})
		return
	}
	idx, err := posts.index()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.songs(posts, idx))
}
