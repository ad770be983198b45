package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/db"
	"github.com/ziadkadry99/folio/internal/logging"
)

const postsIndex = `[
  {"filename": "alpha.md", "title": "Alpha", "date": "2024-03-01", "categories": ["travel"],
   "song_of_the_day": "Here Comes the Sun, a song about the sun finally coming out after a long cold lonely winter"},
  {"filename": "bravo.md", "title": "Bravo", "date": "2024-02-01", "categories": "food"},
  {"filename": "charlie.md", "title": "Charlie", "date": "2024-01-01", "category": "travel"}
]`

func writeFile(t *testing.T, dir, rel, data string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newTestSite lays out a small site and returns a loaded server over it.
func newTestSite(t *testing.T, mutate func(*config.Config)) (*Server, string) {
	t.Helper()
	logging.Discard()
	dir := t.TempDir()

	writeFile(t, dir, "posts/index.json", postsIndex)
	writeFile(t, dir, "posts/alpha.md", "---\ntitle: Alpha\n---\n# Alpha\n\nFirst day on the road. ![map](img/map.png)\n")
	writeFile(t, dir, "posts/bravo.md", "# Bravo\n\nWe ate far too much.\n")
	writeFile(t, dir, "posts/charlie.md", "# Charlie\n\nA quiet start to the year.\n")
	writeFile(t, dir, "projects/index.json", `[{"filename": "kite.html", "title": "Kite", "date": "2023-05-05"}]`)
	writeFile(t, dir, "projects/kite.html", "<p>A kite made of paper.</p>")
	writeFile(t, dir, "components/header.html", `<div class="brand">Road notes</div>`)
	writeFile(t, dir, "css/theme-goofy.css", "body{}")
	writeFile(t, dir, ".folio.yml", "discogs:\n  token: secret\n")

	cfg := config.DefaultConfig()
	cfg.SiteDir = dir
	cfg.SiteTitle = "Road notes"
	cfg.Sections[0].PageSize = 2
	cfg.Sections = cfg.Sections[:2]
	if mutate != nil {
		mutate(cfg)
	}

	var database *db.DB
	if cfg.Tracker.Backend == config.TrackerSQLite {
		var err error
		database, err = db.OpenMemory()
		if err != nil {
			t.Fatalf("OpenMemory: %v", err)
		}
		t.Cleanup(func() { database.Close() })
	}

	srv, err := New(Config{Port: 0}, cfg, database)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return srv, dir
}

func get(t *testing.T, srv *Server, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	logging.Discard()
	cfg := config.DefaultConfig()
	cfg.SiteDir = t.TempDir()
	srv, err := New(Config{Port: 0, AllowAll: true}, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestNewRequiresDatabaseForSQLiteTracker(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tracker.Backend = config.TrackerSQLite
	if _, err := New(Config{}, cfg, nil); err == nil {
		t.Fatal("expected an error without a database")
	}
}

func TestHomeRedirectsToMainPage(t *testing.T) {
	srv, _ := newTestSite(t, func(c *config.Config) { c.MainPage = "blog" })

	w := get(t, srv, "/")
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/blog" {
		t.Errorf("expected redirect to /blog, got %q", loc)
	}
}

func TestHomeWithoutRedirect(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `href="/projects"`) {
		t.Errorf("expected the home page to link every section")
	}
}

func TestSectionListFirstVisit(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/blog")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"Alpha", "Bravo", // page 1 of 2
		"3 new posts since your last visit", // counts page 2 as well
		`class="brand"`,     // header component
		"/css/theme-goofy.css",
		"First day on the road.", // preview
		"/blog?page=2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
	if strings.Contains(body, "Charlie") {
		t.Error("Charlie belongs on page 2")
	}
	if strings.Count(body, "card unread") != 2 {
		t.Errorf("expected 2 unread cards, got %d", strings.Count(body, "card unread"))
	}
}

func TestSectionListCategoryAndPage(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/blog?category=travel")
	body := w.Body.String()
	if !strings.Contains(body, "Alpha") || !strings.Contains(body, "Charlie") || strings.Contains(body, "We ate far too much") {
		t.Errorf("expected only travel posts, got:\n%s", body)
	}

	// Page past the end is clamped to the last page.
	w = get(t, srv, "/blog?page=9")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Page 2 of 2") {
		t.Error("expected clamping to page 2")
	}
}

func TestSectionListSearch(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/blog?q=quiet")
	body := w.Body.String()
	if !strings.Contains(body, "Charlie") || strings.Contains(body, "Bravo") {
		t.Errorf("expected the search to match Charlie only")
	}

	w = get(t, srv, "/blog?q=nothing-like-this")
	if !strings.Contains(w.Body.String(), "No posts found") {
		t.Error("expected the empty state")
	}
}

func TestSectionListSinceLastVisit(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/blog", &http.Cookie{Name: "lastReadPostDate", Value: url.QueryEscape("2024-02-15T00:00:00Z")})
	body := w.Body.String()
	if !strings.Contains(body, "1 new post since your last visit") {
		t.Error("expected a single unread post")
	}
	if strings.Count(body, "card unread") != 1 {
		t.Errorf("expected 1 unread card, got %d", strings.Count(body, "card unread"))
	}
}

func TestSectionListNoticeCountsOtherPages(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/blog?page=2", &http.Cookie{Name: "lastReadPostDate", Value: url.QueryEscape("2024-01-15T00:00:00Z")})
	body := w.Body.String()
	if !strings.Contains(body, "Charlie") {
		t.Fatalf("expected Charlie on page 2, got:\n%s", body)
	}
	if !strings.Contains(body, "2 new posts since your last visit") {
		t.Error("expected the notice to count the unread posts on page 1")
	}
	if n := strings.Count(body, "card unread"); n != 0 {
		t.Errorf("expected no unread cards on page 2, got %d", n)
	}
}

func TestOpenItemMarksRead(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/blog?post=bravo.md")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "We ate far too much.") {
		t.Error("expected the rendered post")
	}
	if !strings.Contains(body, "/blog?post=alpha.md") || !strings.Contains(body, "/blog?post=charlie.md") {
		t.Error("expected prev and next links")
	}

	var marked string
	for _, c := range w.Result().Cookies() {
		if c.Name == "lastReadPostDate" {
			marked, _ = url.QueryUnescape(c.Value)
		}
	}
	if marked != "2024-02-01T00:00:00Z" {
		t.Errorf("expected last read 2024-02-01T00:00:00Z, got %q", marked)
	}

	// Opening an older post does not move the marker back.
	w = get(t, srv, "/blog?post=charlie.md", &http.Cookie{Name: "lastReadPostDate", Value: url.QueryEscape(marked)})
	for _, c := range w.Result().Cookies() {
		if c.Name == "lastReadPostDate" {
			t.Errorf("expected no cookie update, got %q", c.Value)
		}
	}
}

func TestOpenItemRewritesRelativeURLs(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/blog?post=alpha.md")
	if !strings.Contains(w.Body.String(), `src="/posts/img/map.png"`) {
		t.Errorf("expected image URL rewritten against the posts directory")
	}
}

func TestOpenUnknownItem(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/blog?post=missing.md")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Alpha") {
		t.Error("expected the list to be shown")
	}
}

func TestSectionLoadFailure(t *testing.T) {
	srv, dir := newTestSite(t, nil)
	writeFile(t, dir, "projects/index.json", `[{"filename": "a"}, {"filename": "a"}]`)
	if err := srv.Reload(context.Background(), "projects"); err == nil {
		t.Fatal("expected reload to fail on duplicate filenames")
	}

	// The previous index keeps serving.
	w := get(t, srv, "/projects")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Kite") {
		t.Fatalf("expected the previous index, got %d", w.Code)
	}

	// A section that never loaded shows its error inline.
	fresh, err := New(Config{}, srv.site, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = fresh.Load(context.Background())
	w = get(t, fresh, "/projects")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Could not load projects") {
		t.Error("expected an inline error")
	}
	if !strings.Contains(get(t, fresh, "/blog").Body.String(), "Alpha") {
		t.Error("expected other sections to be unaffected")
	}
}

func TestSectionLogPrefix(t *testing.T) {
	srv, dir := newTestSite(t, nil)
	var buf bytes.Buffer
	logging.Logger = log.New(&buf)
	t.Cleanup(logging.Discard)

	writeFile(t, dir, "projects/index.json", `not json`)
	if err := srv.Reload(context.Background(), "projects"); err == nil {
		t.Fatal("expected reload to fail")
	}
	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "keeping previous index") {
			line = l
		}
	}
	if !strings.Contains(line, "projects") {
		t.Errorf("expected a warning prefixed with the section name, got:\n%s", buf.String())
	}
}

func TestStaticFiles(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	if w := get(t, srv, "/css/theme-goofy.css"); w.Code != http.StatusOK {
		t.Errorf("expected 200 for a stylesheet, got %d", w.Code)
	}
	if w := get(t, srv, "/.folio.yml"); w.Code != http.StatusNotFound {
		t.Errorf("expected dotfiles to be hidden, got %d", w.Code)
	}
}

func TestAPIList(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/api/blog?page=2")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Page != 2 || resp.Pages != 2 || resp.Total != 3 {
		t.Errorf("unexpected paging %+v", resp)
	}
	if len(resp.Items) != 1 || resp.Items[0].Filename != "charlie.md" {
		t.Fatalf("expected charlie.md on page 2, got %+v", resp.Items)
	}
	if resp.Items[0].Preview == "" || !resp.Items[0].Unread {
		t.Errorf("expected a preview and an unread flag, got %+v", resp.Items[0])
	}
	if resp.Notice == nil || resp.Notice.DismissAfterMS != 5000 || resp.Notice.Count != 3 {
		t.Errorf("expected a 5s notice counting all 3 posts, got %+v", resp.Notice)
	}
	if len(resp.Categories) != 2 {
		t.Errorf("expected 2 categories, got %v", resp.Categories)
	}
}

func TestAPIListOffset(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	var resp listResponse
	w := get(t, srv, "/api/blog?offset=1&limit=5&category=travel")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 1 || resp.Items[0].Filename != "charlie.md" {
		t.Errorf("unexpected response %+v", resp)
	}

	resp = listResponse{}
	w = get(t, srv, "/api/blog?offset=1&limit=9223372036854775807")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for a huge limit, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 3 || len(resp.Items) != 2 {
		t.Errorf("expected the last 2 of 3 items, got %+v", resp)
	}

	w = get(t, srv, "/api/blog?offset=-1")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a negative offset, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected a JSON error, got Content-Type %q", ct)
	}
	var apiErr map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil || apiErr["error"] == "" {
		t.Errorf("expected an error field, got %s", w.Body.String())
	}
	if w := get(t, srv, "/api/nope"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown section, got %d", w.Code)
	}
}

func TestAPIItem(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/api/projects/items/kite.html")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp itemResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Item.Title != "Kite" || !strings.Contains(resp.HTML, "A kite made of paper.") {
		t.Errorf("unexpected item %+v", resp)
	}
	if resp.Item.URL != "/projects?project=kite.html" {
		t.Errorf("unexpected url %q", resp.Item.URL)
	}

	if w := get(t, srv, "/api/projects/items/missing.html"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestAPISongs(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/api/songs")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp songList
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 || len(resp.Songs) != 1 || resp.More != 0 {
		t.Fatalf("unexpected songs %+v", resp)
	}
	song := resp.Songs[0]
	if song.Date != "2024-03-01" || song.URL != "/blog?post=alpha.md" {
		t.Errorf("unexpected song %+v", song)
	}
	if !strings.HasSuffix(song.Preview, "...") || len([]rune(song.Preview)) > songPreviewRunes+3 {
		t.Errorf("expected a truncated preview, got %q", song.Preview)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 80); got != "short" {
		t.Errorf("expected short text untouched, got %q", got)
	}
	if got := truncateRunes("שיר ארוך מאוד", 3); got != "שיר..." {
		t.Errorf("expected rune-aware truncation, got %q", got)
	}
}

func TestThemeCookie(t *testing.T) {
	srv, _ := newTestSite(t, nil)

	w := get(t, srv, "/theme/dark?return=/blog%3Fpage%3D2")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/blog?page=2" {
		t.Errorf("unexpected redirect %q", loc)
	}
	var theme string
	for _, c := range w.Result().Cookies() {
		if c.Name == themeCookie {
			theme = c.Value
		}
	}
	if theme != "dark" {
		t.Errorf("expected theme cookie dark, got %q", theme)
	}

	w = get(t, srv, "/theme/neon?return=//evil.example")
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("expected a local redirect, got %q", loc)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == themeCookie && c.Value != "goofy" {
			t.Errorf("expected unknown themes to fall back to goofy, got %q", c.Value)
		}
	}

	w = get(t, srv, "/blog", &http.Cookie{Name: themeCookie, Value: "sports"})
	if !strings.Contains(w.Body.String(), "/css/theme-sports.css") {
		t.Error("expected the sports stylesheet")
	}
}

func TestSQLiteTracker(t *testing.T) {
	srv, _ := newTestSite(t, func(c *config.Config) { c.Tracker.Backend = config.TrackerSQLite })

	w := get(t, srv, "/blog?post=bravo.md")
	var visitor *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "lastReadPostDate" {
			t.Error("the sqlite backend should not write the timestamp cookie")
		}
		if c.Name == "folio_visitor" {
			visitor = c
		}
	}
	if visitor == nil {
		t.Fatal("expected a visitor cookie")
	}

	w = get(t, srv, "/blog", visitor)
	if !strings.Contains(w.Body.String(), "1 new post since your last visit") {
		t.Error("expected the stored timestamp to be used")
	}
}

func TestLiveReloadPushesNotice(t *testing.T) {
	srv, dir := newTestSite(t, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	header := http.Header{}
	header.Add("Cookie", "lastReadPostDate="+url.QueryEscape("2024-03-01T00:00:00Z"))
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/live", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(liveRequest{Type: "view", Section: "blog", Category: "all"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		clients := srv.hub.snapshot()
		if len(clients) == 1 {
			if sec, _ := clients[0].view(); sec == "blog" {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered its view")
		}
		time.Sleep(10 * time.Millisecond)
	}

	writeFile(t, dir, "posts/delta.md", "# Delta\n\nBack home.\n")
	writeFile(t, dir, "posts/index.json", strings.Replace(postsIndex, "[", `[
  {"filename": "delta.md", "title": "Delta", "date": "2024-04-01", "categories": ["home"]},`, 1))
	if err := srv.Reload(context.Background(), "blog"); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reload, notice liveMessage
	if err := conn.ReadJSON(&reload); err != nil {
		t.Fatalf("read reload: %v", err)
	}
	if reload.Type != "reload" || reload.Section != "blog" {
		t.Errorf("unexpected message %+v", reload)
	}
	if err := conn.ReadJSON(&notice); err != nil {
		t.Fatalf("read notice: %v", err)
	}
	if notice.Type != "notice" || notice.Count != 1 || notice.Message != "1 new post since your last visit" {
		t.Errorf("unexpected notice %+v", notice)
	}
}
