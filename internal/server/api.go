package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/folio/internal/browse"
	"github.com/ziadkadry99/folio/internal/content"
	"github.com/ziadkadry99/folio/internal/logging"
	"github.com/ziadkadry99/folio/internal/unread"
)

// apiItem is an index record as served to scripts.
type apiItem struct {
	Filename   string   `json:"filename"`
	Title      string   `json:"title"`
	Date       string   `json:"date"`
	Categories []string `json:"categories"`
	Preview    string   `json:"preview,omitempty"`
	Unread     bool     `json:"unread"`
	URL        string   `json:"url"`
	Error      string   `json:"error,omitempty"`
}

type apiNotice struct {
	Count          int    `json:"count"`
	Message        string `json:"message"`
	DismissAfterMS int64  `json:"dismiss_after_ms"`
}

// listResponse is the JSON response for the list endpoint. Page and Pages
// are set for page requests, Offset and Limit for load-more requests.
type listResponse struct {
	Items      []apiItem  `json:"items"`
	Page       int        `json:"page,omitempty"`
	Pages      int        `json:"pages,omitempty"`
	Offset     int        `json:"offset"`
	Limit      int        `json:"limit"`
	Total      int        `json:"total"`
	Categories []string   `json:"categories"`
	Notice     *apiNotice `json:"notice,omitempty"`
}

type itemLink struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	URL      string `json:"url"`
}

// itemResponse is the JSON response for the single item endpoint.
type itemResponse struct {
	Item apiItem   `json:"item"`
	HTML string    `json:"html"`
	Prev *itemLink `json:"prev,omitempty"`
	Next *itemLink `json:"next,omitempty"`
}

func (s *Server) apiSection(w http.ResponseWriter, r *http.Request) (*section, *content.Index, bool) {
	sec, ok := s.byName[chi.URLParam(r, "section")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown section"})
		return nil, nil, false
	}
	idx, err := sec.index()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return nil, nil, false
	}
	return sec, idx, true
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	sec, idx, ok := s.apiSection(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	st := browse.ParseState(q, "")
	search := strings.TrimSpace(q.Get(browse.ParamSearch))
	filtered := browse.Filter(idx.Items(), st.Category, search)

	resp := listResponse{Total: len(filtered), Categories: idx.Categories()}
	var visible []*content.Item

	if q.Has("offset") || q.Has("limit") {
		offset, err1 := intParam(q.Get("offset"), 0)
		limit, err2 := intParam(q.Get("limit"), sec.conf.BatchSize)
		if err1 != nil || err2 != nil || offset < 0 || limit <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "offset must be a non-negative integer and limit a positive one"})
			return
		}
		if offset > len(filtered) {
			offset = len(filtered)
		}
		visible = filtered[offset : offset+min(limit, len(filtered)-offset)]
		resp.Offset, resp.Limit = offset, limit
	} else {
		page := browse.Paginate(filtered, st.Page, sec.conf.PageSize)
		visible = page.Items
		resp.Page, resp.Pages = page.Number, page.Pages
		resp.Offset, resp.Limit = (page.Number-1)*page.Size, page.Size
	}

	errs := browse.FetchAll(r.Context(), visible, sec.repo.LoadPreview)
	notice, clones := s.annotate(w, r, filtered, visible)
	if notice.Show() {
		resp.Notice = noticeJSON(notice)
	}

	resp.Items = make([]apiItem, 0, len(clones))
	for _, it := range clones {
		ai := toAPIItem(sec, it)
		if e := errs[it.Filename]; e != nil {
			ai.Error = e.Error()
		}
		resp.Items = append(resp.Items, ai)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIItem(w http.ResponseWriter, r *http.Request) {
	sec, idx, ok := s.apiSection(w, r)
	if !ok {
		return
	}
	filename := chi.URLParam(r, "*")
	it, found := idx.Lookup(filename)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such item"})
		return
	}

	doc, err := sec.repo.Read(r.Context(), it.Filename)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, content.ErrInvalidPath):
			status = http.StatusBadRequest
		case errors.Is(err, content.ErrNotFound):
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	html, err := s.renderer.Document(doc, "/"+sec.repo.Dir)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if _, err := s.tracker(w, r).MarkRead(r.Context(), it); err != nil {
		logging.Warn("recording last read", "err", err)
	}

	resp := itemResponse{Item: toAPIItem(sec, it.Clone()), HTML: string(html)}
	prev, next := idx.Neighbors(it.Filename)
	if prev != nil {
		resp.Prev = &itemLink{Filename: prev.Filename, Title: prev.Title, URL: sec.itemHref(prev.Filename)}
	}
	if next != nil {
		resp.Next = &itemLink{Filename: next.Filename, Title: next.Title, URL: sec.itemHref(next.Filename)}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toAPIItem(sec *section, it *content.Item) apiItem {
	cats := it.Categories
	if cats == nil {
		cats = []string{}
	}
	return apiItem{
		Filename:   it.Filename,
		Title:      it.Title,
		Date:       it.Date,
		Categories: cats,
		Preview:    it.Preview(),
		Unread:     it.IsUnread,
		URL:        sec.itemHref(it.Filename),
	}
}

func noticeJSON(n unread.Notice) *apiNotice {
	return &apiNotice{Count: n.Count, Message: n.Message, DismissAfterMS: n.Millis()}
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// writeJSON is a helper to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
