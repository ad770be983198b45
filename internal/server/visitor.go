package server

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/logging"
	"github.com/ziadkadry99/folio/internal/unread"
)

// themeCookie matches the key the site scripts keep the theme under.
const themeCookie = "site-theme"

const themeMaxAge = 365 * 24 * time.Hour

// tracker builds the unread tracker for one request on the configured backend.
func (s *Server) tracker(w http.ResponseWriter, r *http.Request) *unread.Tracker {
	tc := s.site.Tracker
	var store unread.Store
	if tc.Backend == config.TrackerSQLite {
		visitor := unread.VisitorID(w, r, tc.VisitorCookie, tc.MaxAge())
		store = unread.NewDBStore(s.db, visitor)
	} else {
		store = unread.NewCookieStore(w, r)
	}
	return unread.NewTracker(store,
		unread.WithKey(tc.CookieName),
		unread.WithMaxAge(tc.MaxAge()),
		unread.WithDismissAfter(tc.NoticeDuration()),
		unread.WithClock(s.now),
	)
}

// theme returns the visitor's theme, falling back to the default.
func (s *Server) theme(r *http.Request) string {
	if c, err := r.Cookie(themeCookie); err == nil && s.site.HasTheme(c.Value) {
		return c.Value
	}
	return s.site.DefaultTheme
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.site.HasTheme(name) {
		name = s.site.DefaultTheme
	}
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    name,
		Path:     "/",
		MaxAge:   int(themeMaxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, returnTarget(r), http.StatusSeeOther)
}

// returnTarget picks a same-site path to go back to: the return parameter,
// then the referer, then the root.
func returnTarget(r *http.Request) string {
	if ret := r.URL.Query().Get("return"); isLocalPath(ret) {
		return ret
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host && isLocalPath(ref.Path) {
		if ref.RawQuery != "" {
			return ref.Path + "?" + ref.RawQuery
		}
		return ref.Path
	}
	return "/"
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, `\`)
}

// component returns a shared page fragment from the components directory.
// A missing component renders as nothing.
func (s *Server) component(name string) template.HTML {
	data, err := fs.ReadFile(s.siteFS, path.Join("components", name+".html"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Warn("reading component", "name", name, "err", err)
		}
		return ""
	}
	return template.HTML(data)
}
