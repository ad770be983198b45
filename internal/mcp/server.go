package mcp

import (
	"context"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/folio/internal/browse"
	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/content"
	"github.com/ziadkadry99/folio/internal/logging"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Collection is one loaded section exposed to agents.
type Collection struct {
	Name    string
	Title   string
	ItemKey string
	Index   *content.Index
	Repo    *content.Repository
}

// Server wraps an MCP server that exposes the site's indexes as tools.
type Server struct {
	collections []*Collection
	byName      map[string]*Collection
	mcp         *server.MCPServer
}

// NewServer creates a new MCP server over the given collections.
func NewServer(collections []*Collection) *Server {
	s := &Server{
		collections: collections,
		byName:      make(map[string]*Collection, len(collections)),
	}
	for _, c := range collections {
		s.byName[c.Name] = c
	}

	s.mcp = server.NewMCPServer(
		"folio",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// LoadCollections loads every section of the site. Sections whose index
// fails to load are logged and left out.
func LoadCollections(ctx context.Context, site *config.Config, siteFS fs.FS) []*Collection {
	client := &http.Client{Timeout: 30 * time.Second}
	var out []*Collection
	for _, sec := range site.Sections {
		var src content.Source
		if sec.IsRemote() {
			src = content.HTTPSource{URL: sec.Index, Client: client}
		} else {
			src = content.FileSource{FS: siteFS, Path: path.Clean(sec.Index)}
		}
		idx, err := content.NewLoader(src).Load(ctx)
		if err != nil {
			logging.Warn("skipping section", "section", sec.Name, "err", err)
			continue
		}
		repo := content.NewRepository(siteFS, path.Clean(sec.ItemsDir))
		browse.FetchAll(ctx, idx.Items(), repo.LoadPreview)
		out = append(out, &Collection{
			Name:    sec.Name,
			Title:   sec.Title,
			ItemKey: sec.ItemKey,
			Index:   idx,
			Repo:    repo,
		})
	}
	return out
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchItemsTool, s.handleSearchItems)
	s.mcp.AddTool(getItemTool, s.handleGetItem)
	s.mcp.AddTool(listCategoriesTool, s.handleListCategories)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
