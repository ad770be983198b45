package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/logging"
)

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"posts/index.json": `[
  {"filename": "lisbon.md", "title": "Lisbon", "date": "2024-05-02", "categories": ["travel"]},
  {"filename": "bread.md", "title": "Sourdough", "date": "2024-04-10", "categories": ["food"]},
  {"filename": "porto.md", "title": "Porto", "date": "2024-05-09", "categories": ["travel", "food"]}
]`,
		"posts/lisbon.md":    "---\ntitle: Lisbon\n---\nTrams and custard tarts.\n",
		"posts/bread.md":     "Flour, water, salt and patience.\n",
		"projects/index.json": `{not json`,
	}
	for rel, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logging.Discard()
	dir := writeSite(t)
	cfg := config.DefaultConfig()
	cfg.SiteDir = dir
	collections := LoadCollections(context.Background(), cfg, os.DirFS(dir))
	return NewServer(collections)
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	var sb strings.Builder
	for _, c := range result.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			sb.WriteString(tc.Text)
		case *mcp.TextContent:
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func TestLoadCollectionsSkipsBrokenSections(t *testing.T) {
	srv := newTestServer(t)
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	// projects has a malformed index, music has none at all.
	if len(srv.collections) != 1 || srv.collections[0].Name != "blog" {
		t.Fatalf("expected only the blog to load, got %v", srv.names())
	}
}

func TestHandleSearchItems(t *testing.T) {
	srv := newTestServer(t)

	t.Run("category filter keeps index order", func(t *testing.T) {
		result := call(t, srv.handleSearchItems, map[string]any{"section": "blog", "category": "travel"})
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		if !strings.Contains(text, "Found 2 item(s) in blog, page 1 of 1") {
			t.Errorf("unexpected header:\n%s", text)
		}
		if strings.Index(text, "lisbon.md") > strings.Index(text, "porto.md") {
			t.Error("expected index order")
		}
		if strings.Contains(text, "bread.md") {
			t.Error("food-only post should be filtered out")
		}
	})

	t.Run("query matches preview", func(t *testing.T) {
		text := resultText(t, call(t, srv.handleSearchItems, map[string]any{"section": "blog", "query": "PATIENCE"}))
		if !strings.Contains(text, "bread.md") || strings.Contains(text, "lisbon.md") {
			t.Errorf("unexpected result:\n%s", text)
		}
	})

	t.Run("paging", func(t *testing.T) {
		text := resultText(t, call(t, srv.handleSearchItems, map[string]any{"section": "blog", "page": 5, "page_size": 2}))
		if !strings.Contains(text, "page 2 of 2") || !strings.Contains(text, "porto.md") {
			t.Errorf("expected the clamped last page:\n%s", text)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		text := resultText(t, call(t, srv.handleSearchItems, map[string]any{"section": "blog", "query": "zebra"}))
		if !strings.Contains(text, "No items") {
			t.Errorf("unexpected result %q", text)
		}
	})

	t.Run("unknown section", func(t *testing.T) {
		if !call(t, srv.handleSearchItems, map[string]any{"section": "recipes"}).IsError {
			t.Error("expected error for an unknown section")
		}
	})

	t.Run("missing section", func(t *testing.T) {
		if !call(t, srv.handleSearchItems, map[string]any{}).IsError {
			t.Error("expected error for a missing section")
		}
	})
}

func TestHandleGetItem(t *testing.T) {
	srv := newTestServer(t)

	result := call(t, srv.handleGetItem, map[string]any{"section": "blog", "filename": "lisbon.md"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Trams and custard tarts.") || strings.Contains(text, "---") {
		t.Errorf("expected the body without front matter:\n%s", text)
	}

	if !call(t, srv.handleGetItem, map[string]any{"section": "blog", "filename": "nope.md"}).IsError {
		t.Error("expected error for an unindexed file")
	}
	result = call(t, srv.handleGetItem, map[string]any{"section": "blog", "filename": "porto.md"})
	if !result.IsError || !strings.Contains(resultText(t, result), "missing") {
		t.Error("expected error for an indexed file that does not exist")
	}
}

func TestHandleListCategories(t *testing.T) {
	srv := newTestServer(t)

	text := resultText(t, call(t, srv.handleListCategories, map[string]any{}))
	for _, want := range []string{"blog (3 items)", "- travel: 2", "- food: 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in:\n%s", want, text)
		}
	}

	empty := NewServer(nil)
	if !strings.Contains(resultText(t, call(t, empty.handleListCategories, map[string]any{})), "No sections") {
		t.Error("expected a hint when nothing is loaded")
	}
}
