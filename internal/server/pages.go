package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/folio/internal/browse"
	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/content"
	"github.com/ziadkadry99/folio/internal/logging"
	"github.com/ziadkadry99/folio/internal/unread"
)

// songsSection is the section whose page lists the songs of the day.
const songsSection = "music"

type link struct {
	Label  string
	Href   string
	Active bool
}

type card struct {
	Item    *content.Item
	Href    string
	Preview string
	Err     string
}

type pager struct {
	Number int
	Pages  int
	Prev   string
	Next   string
}

type loadMore struct {
	API    string
	Offset int
	Limit  int
}

type itemView struct {
	Item *content.Item
	HTML template.HTML
	Err  string
	Prev *link
	Next *link
	Back string
}

type pageData struct {
	SiteTitle string
	Title     string
	Theme     string
	Themes    []link
	Header    template.HTML
	Footer    template.HTML
	Nav       []link

	Section    string
	ItemKey    string
	Categories []link
	Category   string
	Search     string
	Cards      []card
	Pager      *pager
	More       *loadMore
	Notice     unread.Notice
	Songs      *songList
	Open       *itemView
	Error      string
	Empty      bool
}

// basePage fills what every page shares: chrome, navigation and themes.
func (s *Server) basePage(r *http.Request, current string) *pageData {
	theme := s.theme(r)
	d := &pageData{
		SiteTitle: s.site.SiteTitle,
		Title:     s.site.SiteTitle,
		Theme:     theme,
		Header:    s.component("header"),
		Footer:    s.component("footer"),
		Section:   current,
	}
	ret := r.URL.RequestURI()
	for _, name := range s.site.Themes {
		d.Themes = append(d.Themes, link{
			Label:  name,
			Href:   "/theme/" + name + "?return=" + template.URLQueryEscaper(ret),
			Active: name == theme,
		})
	}
	for _, sec := range s.sections {
		d.Nav = append(d.Nav, link{Label: sec.conf.Title, Href: "/" + sec.conf.Name, Active: sec.conf.Name == current})
	}
	return d
}

func (s *Server) renderPage(w http.ResponseWriter, status int, d *pageData) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "page", d); err != nil {
		logging.Error("rendering page", "section", d.Section, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	main := strings.Trim(s.site.MainPage, "/")
	if main != "" && main != "home" {
		http.Redirect(w, r, "/"+main, http.StatusFound)
		return
	}
	if _, err := fs.Stat(s.siteFS, "index.html"); err == nil {
		s.static.ServeHTTP(w, r)
		return
	}
	s.renderPage(w, http.StatusOK, s.basePage(r, ""))
}

// handleSection renders a section's list or open item. Names that are not
// sections fall through to the static files.
func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	sec, ok := s.byName[chi.URLParam(r, "section")]
	if !ok {
		s.static.ServeHTTP(w, r)
		return
	}
	d := s.basePage(r, sec.conf.Name)
	d.Title = sec.conf.Title + " - " + s.site.SiteTitle
	d.ItemKey = sec.conf.ItemKey

	idx, err := sec.index()
	if err != nil {
		logging.Error("section unavailable", "section", sec.conf.Name, "err", err)
		d.Error = fmt.Sprintf("Could not load %s: %v", strings.ToLower(sec.conf.Title), err)
		s.renderPage(w, http.StatusServiceUnavailable, d)
		return
	}

	requested := browse.ParseState(r.URL.Query(), sec.conf.ItemKey)
	sess, err := newRequestSession(r, sec, idx)
	if err != nil {
		d.Error = "Invalid query string."
		s.renderPage(w, http.StatusBadRequest, d)
		return
	}

	status := http.StatusOK
	view := sess.View()
	if view.Open != nil {
		s.fillItem(r.Context(), w, r, sec, idx, view.Open, d)
	} else {
		if requested.Open != "" {
			status = http.StatusNotFound
			d.Error = fmt.Sprintf("No %s named %q.", sec.conf.ItemKey, requested.Open)
		}
		s.fillList(r.Context(), w, r, sec, idx, view, d)
	}
	s.renderPage(w, status, d)
}

// newRequestSession builds the view state of a page load from its query
// string. A q parameter filters the result and keeps the requested page.
func newRequestSession(r *http.Request, sec *section, idx *content.Index) (*browse.Session, error) {
	sess, err := browse.NewSession(idx, sec.options(), r.URL.RawQuery)
	if err != nil {
		return nil, err
	}
	requested := browse.ParseState(r.URL.Query(), sec.conf.ItemKey)
	if q := strings.TrimSpace(r.URL.Query().Get(browse.ParamSearch)); q != "" && sess.State().Open == "" {
		sess.SetSearch(q)
		sess.SetPage(requested.Page, true)
	}
	return sess, nil
}

func (s *Server) fillList(ctx context.Context, w http.ResponseWriter, r *http.Request, sec *section, idx *content.Index, view browse.View, d *pageData) {
	st := view.State
	d.Category = st.Category
	d.Search = st.Search

	errs := browse.FetchAll(ctx, view.Visible, sec.repo.LoadPreview)
	notice, visible := s.annotate(w, r, view.Filtered, view.Visible)
	d.Notice = notice

	for _, it := range visible {
		c := card{Item: it, Href: sec.itemHref(it.Filename), Preview: it.Preview()}
		if errs[it.Filename] != nil {
			c.Err = "Preview unavailable."
		}
		d.Cards = append(d.Cards, c)
	}
	d.Empty = len(view.Filtered) == 0

	for _, c := range append([]string{browse.AllCategories}, idx.Categories()...) {
		d.Categories = append(d.Categories, link{
			Label:  c,
			Href:   sec.href(browse.ViewState{Category: c, Search: st.Search, Page: 1}),
			Active: c == st.Category,
		})
	}

	switch sec.conf.Paging {
	case config.PagingBatches:
		if !view.Done {
			d.More = &loadMore{
				API:    "/api/" + sec.conf.Name + listQuery(st),
				Offset: len(visible),
				Limit:  sec.conf.BatchSize,
			}
		}
	default:
		if p := view.Page; p.Pages > 1 {
			pg := &pager{Number: p.Number, Pages: p.Pages}
			if p.HasPrev() {
				prev := st
				prev.Page = p.Number - 1
				pg.Prev = sec.href(prev)
			}
			if p.HasNext() {
				next := st
				next.Page = p.Number + 1
				pg.Next = sec.href(next)
			}
			d.Pager = pg
		}
	}

	if sec.conf.Name == songsSection {
		if posts := s.postsSection(); posts != nil {
			if pidx, err := posts.index(); err == nil {
				d.Songs = s.songs(posts, pidx)
			}
		}
	}
}

func (s *Server) fillItem(ctx context.Context, w http.ResponseWriter, r *http.Request, sec *section, idx *content.Index, it *content.Item, d *pageData) {
	iv := &itemView{Item: it.Clone(), Back: "/" + sec.conf.Name}
	d.Title = iv.Item.Title + " - " + s.site.SiteTitle

	doc, err := sec.repo.Read(ctx, it.Filename)
	if err != nil {
		logging.Warn("reading item", "section", sec.conf.Name, "file", it.Filename, "err", err)
		iv.Err = fmt.Sprintf("Could not load this %s.", sec.conf.ItemKey)
	} else if iv.HTML, err = s.renderer.Document(doc, "/"+sec.repo.Dir); err != nil {
		logging.Warn("rendering item", "section", sec.conf.Name, "file", it.Filename, "err", err)
		iv.Err = fmt.Sprintf("Could not render this %s.", sec.conf.ItemKey)
	}

	prev, next := idx.Neighbors(it.Filename)
	if prev != nil {
		iv.Prev = &link{Label: prev.Title, Href: sec.itemHref(prev.Filename)}
	}
	if next != nil {
		iv.Next = &link{Label: next.Title, Href: sec.itemHref(next.Filename)}
	}

	if _, err := s.tracker(w, r).MarkRead(ctx, it); err != nil {
		logging.Warn("recording last read", "err", err)
	}
	d.Open = iv
}

// annotate runs the unread tracker once over the filtered set, so the notice
// counts every unread match and not just the shown page. It returns clones
// of visible carrying their unread flags.
func (s *Server) annotate(w http.ResponseWriter, r *http.Request, filtered, visible []*content.Item) (unread.Notice, []*content.Item) {
	all := content.CloneAll(filtered)
	notice, err := s.tracker(w, r).Annotate(r.Context(), all)
	if err != nil {
		logging.Warn("reading last visit", "err", err)
	}
	flagged := make(map[string]bool, len(all))
	for _, it := range all {
		flagged[it.Filename] = it.IsUnread
	}
	out := content.CloneAll(visible)
	for _, it := range out {
		it.IsUnread = flagged[it.Filename]
	}
	return notice, out
}

// listQuery encodes the filter of st for the list API.
func listQuery(st browse.ViewState) string {
	v := st.Values("")
	v.Del(browse.ParamPage)
	if st.Search != "" {
		v.Set(browse.ParamSearch, st.Search)
	}
	if enc := v.Encode(); enc != "" {
		return "?" + enc
	}
	return ""
}
