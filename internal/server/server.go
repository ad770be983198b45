package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/db"
	"github.com/ziadkadry99/folio/internal/logging"
	"github.com/ziadkadry99/folio/internal/render"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server renders the site's sections and serves its static files.
type Server struct {
	cfg      Config
	site     *config.Config
	db       *db.DB
	siteFS   fs.FS
	renderer *render.Renderer
	pages    *template.Template
	static   http.Handler
	hub      *hub
	now      func() time.Time

	sections []*section
	byName   map[string]*section

	router     chi.Router
	httpServer *http.Server
}

// New creates a server for the given site. database is only used by the
// sqlite tracker backend and may be nil otherwise. Indexes are not loaded
// until Load is called.
func New(cfg Config, site *config.Config, database *db.DB) (*Server, error) {
	if site.Tracker.Backend == config.TrackerSQLite && database == nil {
		return nil, fmt.Errorf("the sqlite tracker needs a database")
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	siteFS := os.DirFS(site.SiteDir)
	s := &Server{
		cfg:      cfg,
		site:     site,
		db:       database,
		siteFS:   siteFS,
		renderer: render.New("github"),
		pages:    pages,
		static:   hideDotfiles(http.FileServer(http.FS(siteFS))),
		hub:      newHub(),
		now:      time.Now,
		byName:   make(map[string]*section, len(site.Sections)),
	}

	client := &http.Client{Timeout: 30 * time.Second}
	for _, conf := range site.Sections {
		sec := newSection(conf, siteFS, client)
		s.sections = append(s.sections, sec)
		s.byName[conf.Name] = sec
	}

	s.router = s.buildRouter()
	return s, nil
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Websocket connections outlive the request timeout.
	r.Get("/ws/live", s.handleLive)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/", s.handleHome)
		r.Get("/theme/{name}", s.handleTheme)

		r.Get("/api/songs", s.handleSongs)
		r.Get("/api/{section}", s.handleAPIList)
		r.Get("/api/{section}/items/*", s.handleAPIItem)

		r.Get("/{section}", s.handleSection)
		r.Handle("/*", s.static)
	})

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// ServerConfig returns the server configuration.
func (s *Server) ServerConfig() Config { return s.cfg }

// Load loads every section's index. A section that fails keeps serving its
// error inline; the returned error joins all failures.
func (s *Server) Load(ctx context.Context) error {
	var errs []error
	for _, sec := range s.sections {
		if err := sec.load(ctx); err != nil {
			sec.log().Error("loading section", "err", err)
			errs = append(errs, err)
			continue
		}
		sec.log().Debug("section loaded", "source", sec.source.String())
	}
	return errors.Join(errs...)
}

// Reload reloads one section and tells live clients about it. On failure the
// previously loaded index stays in place.
func (s *Server) Reload(ctx context.Context, name string) error {
	sec, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("unknown section %q", name)
	}
	if err := sec.load(ctx); err != nil {
		return err
	}
	sec.log().Info("section reloaded")
	s.broadcastReload(ctx, name)
	return nil
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logging.Info("folio server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and closes live connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// hideDotfiles keeps configuration and database files under the site
// directory out of the static file server.
func hideDotfiles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, part := range strings.Split(r.URL.Path, "/") {
			if strings.HasPrefix(part, ".") {
				http.NotFound(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
